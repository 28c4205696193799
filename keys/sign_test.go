package keys

import (
	"strings"
	"testing"
)

func TestSignersVerify(t *testing.T) {
	for _, alg := range []string{AlgEd25519, AlgDilithium3} {
		t.Run(alg, func(t *testing.T) {
			s, err := NewSigner(alg, testSeed(1))
			if err != nil {
				t.Fatalf("NewSigner: %v", err)
			}
			if s.Algorithm() != alg || !strings.HasPrefix(s.PublicKey(), alg+":") {
				t.Fatalf("signer reports %s / %.20s", s.Algorithm(), s.PublicKey())
			}
			digest, err := Digest("sha3-256", []byte("receipt body"))
			if err != nil {
				t.Fatalf("Digest: %v", err)
			}
			sig, err := s.Sign(digest)
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}
			if err := Verify(s.PublicKey(), digest, sig); err != nil {
				t.Fatalf("Verify: %v", err)
			}
			digest[0] ^= 1
			if err := Verify(s.PublicKey(), digest, sig); err != ErrBadSignature {
				t.Fatalf("Verify tampered: got %v, want ErrBadSignature", err)
			}
		})
	}
}

func TestSignerKeysAreDeterministic(t *testing.T) {
	a, _ := NewDilithium3Signer(testSeed(3))
	b, _ := NewDilithium3Signer(testSeed(3))
	if a.PublicKey() != b.PublicKey() {
		t.Fatalf("same seed produced different dilithium3 keys")
	}
	c, _ := NewEd25519Signer(testSeed(3))
	d, _ := NewEd25519Signer(testSeed(4))
	if c.PublicKey() == d.PublicKey() {
		t.Fatalf("different seeds produced the same ed25519 key")
	}
}

func TestDigestAlgorithms(t *testing.T) {
	sizes := map[string]int{"sha256": 32, "sha512": 64, "sha3-256": 32}
	for alg, n := range sizes {
		d, err := Digest(alg, []byte("x"))
		if err != nil || len(d) != n {
			t.Fatalf("Digest(%s) = %d bytes, %v", alg, len(d), err)
		}
	}
	if _, err := Digest("md5", nil); err == nil {
		t.Fatalf("expected unsupported hash error")
	}
}

func TestVerifyRejectsMalformedKeys(t *testing.T) {
	for _, k := range []string{"nocolon", "ed25519:!!!", "ed25519:AAAA", "rsa:AAAA"} {
		if err := Verify(k, []byte("d"), []byte("s")); err == nil {
			t.Fatalf("Verify(%q): expected error", k)
		}
	}
}
