package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// Digest hashes message with one of sha256, sha512 or sha3-256.
func Digest(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// Signer signs receipt digests.
type Signer interface {
	Algorithm() string
	// PublicKey renders the verification key as "<alg>:<base64>".
	PublicKey() string
	Sign(digest []byte) ([]byte, error)
}

// NewSigner builds the signer for alg from a seed.
func NewSigner(alg string, seed []byte) (Signer, error) {
	switch alg {
	case AlgEd25519, "":
		return NewEd25519Signer(seed)
	case AlgDilithium3:
		return NewDilithium3Signer(seed)
	default:
		return nil, fmt.Errorf("unsupported signature algorithm: %q", alg)
	}
}

type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes", SeedSize)
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Algorithm() string { return AlgEd25519 }

func (s *Ed25519Signer) PublicKey() string {
	return AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(s.priv.Public().(ed25519.PublicKey))
}

func (s *Ed25519Signer) Sign(digest []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, digest), nil
}

type Dilithium3Signer struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

// NewDilithium3Signer expands seed into a Dilithium3 key pair.
func NewDilithium3Signer(seed []byte) (*Dilithium3Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("dilithium3 seed must be %d bytes", SeedSize)
	}
	var expanded [mode3.SeedSize]byte
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(derivationLabel + ":dilithium3"))
	_, _ = h.Write(seed)
	_, _ = h.Read(expanded[:])
	pub, priv := mode3.NewKeyFromSeed(&expanded)
	return &Dilithium3Signer{pub: pub, priv: priv}, nil
}

func (s *Dilithium3Signer) Algorithm() string { return AlgDilithium3 }

func (s *Dilithium3Signer) PublicKey() string {
	return AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(s.pub.Bytes())
}

func (s *Dilithium3Signer) Sign(digest []byte) ([]byte, error) {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest, sig)
	return sig, nil
}

var ErrBadSignature = errors.New("keys: signature verification failed")

// Verify checks sig over digest against a key rendered by Signer.PublicKey.
func Verify(publicKey string, digest, sig []byte) error {
	alg, b64, ok := strings.Cut(publicKey, ":")
	if !ok {
		return fmt.Errorf("keys: public key %q has no algorithm prefix", publicKey)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("keys: public key: %w", err)
	}
	switch alg {
	case AlgEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return fmt.Errorf("keys: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
		if !ed25519.Verify(ed25519.PublicKey(raw), digest, sig) {
			return ErrBadSignature
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("keys: dilithium3 public key: %w", err)
		}
		if len(sig) != mode3.SignatureSize || !mode3.Verify(&pk, digest, sig) {
			return ErrBadSignature
		}
	default:
		return fmt.Errorf("keys: unsupported signature algorithm %q", alg)
	}
	return nil
}
