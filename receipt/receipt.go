// Package receipt renders and verifies signed injection receipts.
//
// A receipt is a canonical text document:
//
//	-----BEGIN APKHOOK RECEIPT-----
//	META
//	Version: 1
//
//	INPUT
//	Manifest-CID: bafk...
//
//	OUTPUT
//	Manifest-CID: bafk...
//
//	CRYPTO
//	Hash-Alg: sha3-256
//	Public-Key: ed25519:...
//	Signature: ...
//	Signature-Alg: ed25519
//	-----END APKHOOK RECEIPT-----
//
// Sections appear in that order, keys are sorted and unique, and exactly one
// blank line separates sections. The signature covers the rendering of the
// document without its Signature line.
package receipt

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/waelchateur/ApkSignatureKill/fault"
	"github.com/waelchateur/ApkSignatureKill/keys"
)

const (
	Preamble  = "-----BEGIN APKHOOK RECEIPT-----"
	Postamble = "-----END APKHOOK RECEIPT-----"
)

// Crypto section keys.
const (
	KeyHashAlg      = "Hash-Alg"
	KeyPublicKey    = "Public-Key"
	KeySignature    = "Signature"
	KeySignatureAlg = "Signature-Alg"
)

var sectionOrder = []string{"META", "INPUT", "OUTPUT", "CRYPTO"}

type Document struct {
	Meta   map[string]string
	Input  map[string]string
	Output map[string]string
	Crypto map[string]string
}

func (d *Document) section(name string) *map[string]string {
	switch name {
	case "META":
		return &d.Meta
	case "INPUT":
		return &d.Input
	case "OUTPUT":
		return &d.Output
	case "CRYPTO":
		return &d.Crypto
	}
	return nil
}

// Render produces the canonical bytes of doc.
func Render(doc Document) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")
	for i, name := range sectionOrder {
		pairs := *doc.section(name)
		sb.WriteString(name)
		sb.WriteString("\n")
		keys := make([]string, 0, len(pairs))
		for k := range pairs {
			if err := checkKey(k); err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := pairs[k]
			if err := checkValue(k, v); err != nil {
				return nil, err
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
		if i != len(sectionOrder)-1 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString(Postamble)
	return []byte(sb.String()), nil
}

func checkKey(k string) error {
	if k == "" {
		return fault.New(fault.KindMalformedInput, "RCPT-KEY-001", "empty key")
	}
	for _, c := range k {
		if c <= ' ' || c > '~' || c == ':' {
			return fault.Newf(fault.KindMalformedInput, "RCPT-KEY-002", "invalid character %q in key %q", c, k)
		}
	}
	return nil
}

func checkValue(k, v string) error {
	switch {
	case v == "":
		return fault.Newf(fault.KindMalformedInput, "RCPT-VAL-001", "empty value for %s", k)
	case strings.ContainsAny(v, "\r\n"):
		return fault.Newf(fault.KindMalformedInput, "RCPT-VAL-002", "value for %s contains a line break", k)
	case strings.TrimSpace(v) != v:
		return fault.Newf(fault.KindMalformedInput, "RCPT-VAL-003", "value for %s has surrounding whitespace", k)
	}
	return nil
}

// Receipt is a parsed canonical receipt.
type Receipt struct {
	Document
	raw []byte
}

func (r *Receipt) Bytes() []byte { return bytes.Clone(r.raw) }

// Parse reads a receipt. Anything that does not re-render to the same bytes
// is rejected.
func Parse(data []byte) (*Receipt, error) {
	var doc Document
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	lineNo := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		lineNo++
		return sc.Text(), true
	}

	if first, ok := next(); !ok || first != Preamble {
		return nil, fault.New(fault.KindMalformedInput, "RCPT-STR-001", "receipt preamble missing")
	}
	var (
		current *map[string]string
		index   int
		closed  bool
	)
	for {
		line, ok := next()
		if !ok {
			break
		}
		switch {
		case line == Postamble:
			closed = true
		case line == "":
			current = nil
		case current == nil:
			if index >= len(sectionOrder) || line != sectionOrder[index] {
				return nil, fault.Newf(fault.KindMalformedInput, "RCPT-STR-002",
					"line %d: expected section %s, found %q", lineNo, expectedSection(index), line)
			}
			current = doc.section(line)
			*current = map[string]string{}
			index++
		default:
			k, v, found := strings.Cut(line, ": ")
			if !found {
				return nil, fault.Newf(fault.KindMalformedInput, "RCPT-STR-003", "line %d: expected \"key: value\"", lineNo)
			}
			if _, dup := (*current)[k]; dup {
				return nil, fault.Newf(fault.KindMalformedInput, "RCPT-STR-004", "line %d: duplicate key %s", lineNo, k)
			}
			(*current)[k] = v
		}
		if closed {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fault.Wrap(fault.KindMalformedInput, "RCPT-STR-005", "read receipt", err)
	}
	if !closed || index != len(sectionOrder) {
		return nil, fault.New(fault.KindMalformedInput, "RCPT-STR-006", "receipt truncated")
	}
	canonical, err := Render(doc)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(canonical, data) {
		return nil, fault.New(fault.KindMalformedInput, "RCPT-CANON-001", "receipt is not in canonical form")
	}
	return &Receipt{Document: doc, raw: canonical}, nil
}

func expectedSection(i int) string {
	if i < len(sectionOrder) {
		return sectionOrder[i]
	}
	return "postamble"
}

// Sign fills the CRYPTO section of doc and returns the signed receipt bytes.
// Existing CRYPTO entries other than the four signature keys are kept.
func Sign(doc Document, signer keys.Signer, hashAlg string) ([]byte, error) {
	crypto := make(map[string]string, len(doc.Crypto)+4)
	for k, v := range doc.Crypto {
		crypto[k] = v
	}
	delete(crypto, KeySignature)
	crypto[KeyHashAlg] = hashAlg
	crypto[KeyPublicKey] = signer.PublicKey()
	crypto[KeySignatureAlg] = signer.Algorithm()
	doc.Crypto = crypto

	digest, err := scopeDigest(doc, hashAlg)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "RCPT-CRYPTO-001", "sign receipt", err)
	}
	crypto[KeySignature] = base64.StdEncoding.EncodeToString(sig)
	return Render(doc)
}

// Verify parses data and checks its signature.
func Verify(data []byte) (*Receipt, error) {
	r, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c := r.Crypto
	for _, k := range []string{KeyHashAlg, KeyPublicKey, KeySignature, KeySignatureAlg} {
		if c[k] == "" {
			return nil, fault.Newf(fault.KindMalformedInput, "RCPT-CRYPTO-002", "CRYPTO section missing %s", k)
		}
	}
	if alg, _, _ := strings.Cut(c[KeyPublicKey], ":"); alg != c[KeySignatureAlg] {
		return nil, fault.Newf(fault.KindMalformedInput, "RCPT-CRYPTO-003",
			"public key algorithm %q does not match Signature-Alg %q", alg, c[KeySignatureAlg])
	}
	sig, err := base64.StdEncoding.DecodeString(c[KeySignature])
	if err != nil {
		return nil, fault.Wrap(fault.KindMalformedInput, "RCPT-CRYPTO-004", "decode signature", err)
	}
	digest, err := scopeDigest(r.Document, c[KeyHashAlg])
	if err != nil {
		return nil, err
	}
	if err := keys.Verify(c[KeyPublicKey], digest, sig); err != nil {
		return nil, fault.Wrap(fault.KindMalformedInput, "RCPT-CRYPTO-005", "signature invalid", err)
	}
	return r, nil
}

func scopeDigest(doc Document, hashAlg string) ([]byte, error) {
	crypto := make(map[string]string, len(doc.Crypto))
	for k, v := range doc.Crypto {
		if k != KeySignature {
			crypto[k] = v
		}
	}
	doc.Crypto = crypto
	scope, err := Render(doc)
	if err != nil {
		return nil, err
	}
	digest, err := keys.Digest(hashAlg, scope)
	if err != nil {
		return nil, fault.Wrap(fault.KindMalformedInput, "RCPT-CRYPTO-006", "digest receipt", err)
	}
	return digest, nil
}
