package receipt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/waelchateur/ApkSignatureKill/fault"
	"github.com/waelchateur/ApkSignatureKill/keys"
)

func sampleDoc() Document {
	return Document{
		Meta:  map[string]string{"Version": "1", "Tool": "apkhook"},
		Input: map[string]string{"Manifest-CID": "bafkreiaaaa", "Certificates": "2", "Package": "com.example.app"},
		Output: map[string]string{
			"Manifest-CID": "bafkreibbbb",
			"Mode":         "insert",
			"Hook-Class":   "bin.mt.apksignaturekillerplus.HookApplication",
		},
	}
}

func mustSigner(t *testing.T, alg string) keys.Signer {
	t.Helper()
	seed := bytes.Repeat([]byte{0x42}, keys.SeedSize)
	s, err := keys.NewSigner(alg, seed)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

func TestRenderIsCanonical(t *testing.T) {
	b, err := Render(sampleDoc())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := strings.Join([]string{
		Preamble,
		"META",
		"Tool: apkhook",
		"Version: 1",
		"",
		"INPUT",
		"Certificates: 2",
		"Manifest-CID: bafkreiaaaa",
		"Package: com.example.app",
		"",
		"OUTPUT",
		"Hook-Class: bin.mt.apksignaturekillerplus.HookApplication",
		"Manifest-CID: bafkreibbbb",
		"Mode: insert",
		"",
		"CRYPTO",
		Postamble,
	}, "\n")
	if string(b) != want {
		t.Fatalf("Render:\n%s\nwant:\n%s", b, want)
	}
	r, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Output["Mode"] != "insert" || !bytes.Equal(r.Bytes(), b) {
		t.Fatalf("Parse lost content: %+v", r.Document)
	}
}

func TestRenderRejectsBadPairs(t *testing.T) {
	cases := []struct {
		k, v, rule string
	}{
		{"", "x", "RCPT-KEY-001"},
		{"Bad Key", "x", "RCPT-KEY-002"},
		{"K", "", "RCPT-VAL-001"},
		{"K", "a\nb", "RCPT-VAL-002"},
		{"K", " padded", "RCPT-VAL-003"},
	}
	for _, c := range cases {
		doc := sampleDoc()
		doc.Meta[c.k] = c.v
		if _, err := Render(doc); fault.RuleID(err) != c.rule {
			t.Fatalf("Render(%q: %q): got %v, want %s", c.k, c.v, err, c.rule)
		}
	}
}

func TestParseRejectsNonCanonical(t *testing.T) {
	canonical, err := Render(sampleDoc())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(canonical)
	cases := map[string]string{
		"no preamble":     strings.TrimPrefix(s, Preamble+"\n"),
		"unsorted keys":   strings.Replace(s, "Tool: apkhook\nVersion: 1", "Version: 1\nTool: apkhook", 1),
		"trailing line":   s + "\n",
		"double blank":    strings.Replace(s, "\n\nINPUT", "\n\n\nINPUT", 1),
		"swapped section": strings.Replace(s, "INPUT", "OUTPUT", 1),
		"truncated":       strings.TrimSuffix(s, Postamble),
		"crlf":            strings.ReplaceAll(s, "\n", "\r\n"),
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); !fault.IsKind(err, fault.KindMalformedInput) {
			t.Fatalf("%s: expected MalformedInput, got %v", name, err)
		}
	}
}

func TestSignVerify(t *testing.T) {
	for _, alg := range []string{keys.AlgEd25519, keys.AlgDilithium3} {
		t.Run(alg, func(t *testing.T) {
			signed, err := Sign(sampleDoc(), mustSigner(t, alg), "sha3-256")
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}
			r, err := Verify(signed)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if r.Crypto[KeySignatureAlg] != alg || r.Crypto[KeyHashAlg] != "sha3-256" {
				t.Fatalf("crypto section = %v", r.Crypto)
			}

			tampered := bytes.Replace(signed, []byte("Mode: insert"), []byte("Mode: rewrite"), 1)
			if _, err := Verify(tampered); fault.RuleID(err) != "RCPT-CRYPTO-005" {
				t.Fatalf("Verify tampered: %v", err)
			}
		})
	}
}

func TestVerifyRequiresCryptoFields(t *testing.T) {
	unsigned, err := Render(sampleDoc())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := Verify(unsigned); fault.RuleID(err) != "RCPT-CRYPTO-002" {
		t.Fatalf("Verify unsigned: %v", err)
	}

	doc := sampleDoc()
	signed, err := Sign(doc, mustSigner(t, keys.AlgEd25519), "sha256")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	r, err := Parse(signed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r.Crypto[KeySignatureAlg] = keys.AlgDilithium3
	mismatched, err := Render(r.Document)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := Verify(mismatched); fault.RuleID(err) != "RCPT-CRYPTO-003" {
		t.Fatalf("Verify mismatched alg: %v", err)
	}
}
