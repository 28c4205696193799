// Package certcapture serializes an APK's signing certificates into the blob
// the injected hook replays to the package manager.
//
// Layout of Blob.Raw:
//
//	uint8   certificate count
//	repeat count times:
//	  uint32  DER length, big-endian
//	  []byte  DER encoding
package certcapture

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"

	"github.com/avast/apkverifier"

	"github.com/waelchateur/ApkSignatureKill/fault"
)

// MaxCertificates is the largest chain the count byte can describe.
const MaxCertificates = 255

// lineWidth matches the platform's default base64 mode.
const lineWidth = 76

type Blob struct {
	Raw []byte
}

// Capture builds the blob for chain. Certificates are kept in the given
// order. The result only depends on the input bytes.
func Capture(chain [][]byte) (*Blob, error) {
	if len(chain) == 0 {
		return nil, fault.New(fault.KindMalformedInput, "CERT-CAP-002", "certificate chain is empty")
	}
	if len(chain) > MaxCertificates {
		return nil, fault.Newf(fault.KindCapacityExceeded, "CERT-CAP-001",
			"%d certificates do not fit the count byte (max %d)", len(chain), MaxCertificates)
	}
	size := 1
	for i, der := range chain {
		if len(der) > math.MaxInt32 {
			return nil, fault.Newf(fault.KindCapacityExceeded, "CERT-CAP-003",
				"certificate %d is %d bytes, larger than a signed 32-bit length", i, len(der))
		}
		size += 4 + len(der)
	}
	raw := make([]byte, 0, size)
	raw = append(raw, byte(len(chain)))
	for _, der := range chain {
		raw = binary.BigEndian.AppendUint32(raw, uint32(len(der)))
		raw = append(raw, der...)
	}
	return &Blob{Raw: raw}, nil
}

// Wrapped returns the base64 text of the blob in lines of 76 characters,
// each terminated by a newline.
func (b *Blob) Wrapped() string {
	enc := base64.StdEncoding.EncodeToString(b.Raw)
	var sb strings.Builder
	sb.Grow(len(enc) + len(enc)/lineWidth + 1)
	for len(enc) > lineWidth {
		sb.WriteString(enc[:lineWidth])
		sb.WriteByte('\n')
		enc = enc[lineWidth:]
	}
	if len(enc) > 0 {
		sb.WriteString(enc)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Literal is Wrapped with every newline spelled as the two characters `\n`,
// so the text can sit inside a quoted string literal.
func (b *Blob) Literal() string {
	return strings.ReplaceAll(b.Wrapped(), "\n", `\n`)
}

// Decode splits a blob back into its certificates.
func Decode(raw []byte) ([][]byte, error) {
	if len(raw) < 1 {
		return nil, fault.At(fault.KindMalformedInput, "CERT-DEC-001", 0, "empty certificate blob")
	}
	count := int(raw[0])
	out := make([][]byte, 0, count)
	off := 1
	for i := 0; i < count; i++ {
		if off+4 > len(raw) {
			return nil, fault.At(fault.KindMalformedInput, "CERT-DEC-002", off, "certificate %d: truncated length", i)
		}
		n := int(binary.BigEndian.Uint32(raw[off:]))
		off += 4
		if n < 0 || off+n > len(raw) {
			return nil, fault.At(fault.KindMalformedInput, "CERT-DEC-003", off-4,
				"certificate %d: length %d overruns blob", i, n)
		}
		out = append(out, append([]byte(nil), raw[off:off+n]...))
		off += n
	}
	if off != len(raw) {
		return nil, fault.At(fault.KindMalformedInput, "CERT-DEC-004", off, "%d trailing bytes after %d certificates", len(raw)-off, count)
	}
	return out, nil
}

// ParseWrapped decodes the text produced by Wrapped or Literal.
func ParseWrapped(text string) ([]byte, error) {
	text = strings.ReplaceAll(text, `\n`, "")
	text = strings.ReplaceAll(text, "\n", "")
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fault.Wrap(fault.KindMalformedInput, "CERT-DEC-005", "invalid base64 blob", err)
	}
	return raw, nil
}

func FromX509(certs []*x509.Certificate) [][]byte {
	out := make([][]byte, 0, len(certs))
	for _, c := range certs {
		out = append(out, c.Raw)
	}
	return out
}

// FromAPK returns the leaf certificate of every signer of the APK at path,
// the same list the package manager reports as the package signatures. With
// verify set the APK signature has to check out first.
func FromAPK(path string, verify bool) ([][]byte, error) {
	var signers [][]*x509.Certificate
	if verify {
		res, err := apkverifier.Verify(path, nil)
		if err != nil {
			return nil, fault.Wrap(fault.KindMalformedInput, "CERT-APK-001", "verify apk signature", err)
		}
		signers = res.SignerCerts
	} else {
		var err error
		signers, err = apkverifier.ExtractCerts(path, nil)
		if err != nil {
			return nil, fault.Wrap(fault.KindMalformedInput, "CERT-APK-002", "extract apk certificates", err)
		}
	}
	var leaves []*x509.Certificate
	for _, chain := range signers {
		if len(chain) > 0 {
			leaves = append(leaves, chain[0])
		}
	}
	if len(leaves) == 0 {
		return nil, fault.New(fault.KindMalformedInput, "CERT-APK-003", "apk carries no signing certificate")
	}
	return FromX509(leaves), nil
}

// Fingerprints returns the lowercase hex SHA-256 of each certificate.
func Fingerprints(chain [][]byte) []string {
	out := make([]string, len(chain))
	for i, der := range chain {
		sum := sha256.Sum256(der)
		out[i] = hex.EncodeToString(sum[:])
	}
	return out
}
