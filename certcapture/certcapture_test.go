package certcapture

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/waelchateur/ApkSignatureKill/fault"
)

func selfSigned(t *testing.T, cn string) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	c, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	return c
}

func mustCapture(t *testing.T, chain [][]byte) *Blob {
	t.Helper()
	b, err := Capture(chain)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	return b
}

func TestCapture_LayoutAndOrder(t *testing.T) {
	chain := FromX509([]*x509.Certificate{selfSigned(t, "leaf"), selfSigned(t, "issuer")})
	blob := mustCapture(t, chain)

	if blob.Raw[0] != 2 {
		t.Fatalf("count byte = %d, want 2", blob.Raw[0])
	}
	n := int(blob.Raw[1])<<24 | int(blob.Raw[2])<<16 | int(blob.Raw[3])<<8 | int(blob.Raw[4])
	if n != len(chain[0]) || !bytes.Equal(blob.Raw[5:5+n], chain[0]) {
		t.Fatalf("first certificate not stored big-endian length-prefixed")
	}

	back, err := Decode(blob.Raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(back) != 2 || !bytes.Equal(back[0], chain[0]) || !bytes.Equal(back[1], chain[1]) {
		t.Fatalf("decoded chain differs from input")
	}

	again := mustCapture(t, chain)
	if blob.Wrapped() != again.Wrapped() {
		t.Fatalf("capture is not deterministic")
	}
	swapped := mustCapture(t, [][]byte{chain[1], chain[0]})
	if bytes.Equal(swapped.Raw, blob.Raw) {
		t.Fatalf("order of certificates was not preserved")
	}
}

func TestCapture_RejectsBadChains(t *testing.T) {
	if _, err := Capture(nil); !fault.IsKind(err, fault.KindMalformedInput) || fault.RuleID(err) != "CERT-CAP-002" {
		t.Fatalf("empty chain: got %v", err)
	}
	many := make([][]byte, MaxCertificates+1)
	for i := range many {
		many[i] = []byte{byte(i)}
	}
	b, err := Capture(many)
	if !fault.IsKind(err, fault.KindCapacityExceeded) || fault.RuleID(err) != "CERT-CAP-001" {
		t.Fatalf("256 certificates: got %v", err)
	}
	if b != nil {
		t.Fatalf("blob returned alongside capacity error")
	}
	if _, err := Capture(many[:MaxCertificates]); err != nil {
		t.Fatalf("255 certificates: %v", err)
	}
}

func TestBlob_WrappedLines(t *testing.T) {
	cases := []int{1, 57, 58, 114, 600}
	for _, n := range cases {
		blob := &Blob{Raw: bytes.Repeat([]byte{0xAB}, n)}
		w := blob.Wrapped()
		if !strings.HasSuffix(w, "\n") {
			t.Fatalf("n=%d: wrapped text lacks final newline", n)
		}
		lines := strings.Split(strings.TrimSuffix(w, "\n"), "\n")
		for i, l := range lines {
			if len(l) > 76 || (i < len(lines)-1 && len(l) != 76) {
				t.Fatalf("n=%d: line %d has %d characters", n, i, len(l))
			}
		}
		raw, err := ParseWrapped(w)
		if err != nil || !bytes.Equal(raw, blob.Raw) {
			t.Fatalf("n=%d: wrapped text does not decode back (%v)", n, err)
		}

		lit := blob.Literal()
		if strings.Contains(lit, "\n") || !strings.HasSuffix(lit, `\n`) {
			t.Fatalf("n=%d: literal form = %q", n, lit)
		}
		if strings.Count(lit, `\n`) != len(lines) {
			t.Fatalf("n=%d: literal has %d escapes, want %d", n, strings.Count(lit, `\n`), len(lines))
		}
		raw, err = ParseWrapped(lit)
		if err != nil || !bytes.Equal(raw, blob.Raw) {
			t.Fatalf("n=%d: literal does not decode back (%v)", n, err)
		}
	}
}

func TestBlob_ExactLineHasSingleNewline(t *testing.T) {
	// 57 bytes encode to exactly 76 characters.
	w := (&Blob{Raw: make([]byte, 57)}).Wrapped()
	if len(w) != 77 || strings.Count(w, "\n") != 1 {
		t.Fatalf("wrapped = %q", w)
	}
}

func TestDecode_RejectsMalformed(t *testing.T) {
	cases := map[string]struct {
		raw  []byte
		rule string
	}{
		"empty":         {nil, "CERT-DEC-001"},
		"short length":  {[]byte{1, 0, 0}, "CERT-DEC-002"},
		"overrun":       {[]byte{1, 0, 0, 0, 9, 1}, "CERT-DEC-003"},
		"trailing data": {[]byte{1, 0, 0, 0, 1, 7, 8}, "CERT-DEC-004"},
	}
	for name, tc := range cases {
		if _, err := Decode(tc.raw); fault.RuleID(err) != tc.rule {
			t.Fatalf("%s: got %v, want %s", name, err, tc.rule)
		}
	}
}

func TestFingerprints(t *testing.T) {
	fp := Fingerprints([][]byte{[]byte("a"), []byte("b")})
	if len(fp) != 2 || len(fp[0]) != 64 || fp[0] == fp[1] {
		t.Fatalf("fingerprints = %v", fp)
	}
	if fp[0] != "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb" {
		t.Fatalf("sha256(a) = %s", fp[0])
	}
}

func TestFromAPK_MissingFile(t *testing.T) {
	if _, err := FromAPK(t.TempDir()+"/missing.apk", false); !fault.IsKind(err, fault.KindMalformedInput) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
}
