// Package artifact stores the outputs of an injection run (patched manifest,
// certificate blob, encoded hook methods, receipts) by content identifier.
//
// Identifiers are CIDv1 with the raw codec and a sha2-256 multihash, so any
// backend can be checked against the bytes it returns.
package artifact

import (
	"context"
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var (
	ErrNotFound    = errors.New("artifact: not found")
	ErrInvalidID   = errors.New("artifact: invalid id")
	ErrIDMismatch  = errors.New("artifact: id mismatch")
	ErrImmutable   = errors.New("artifact: immutable object mismatch")
	ErrNoBackends  = errors.New("artifact: no backends configured")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Store is a content-addressed artifact store.
//
// Put is idempotent and returns the identifier of the bytes written. Stored
// objects never change. Get reports ErrNotFound for absent identifiers and
// ErrIDMismatch when the backend returns bytes that do not hash to the id.
type Store interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
}

// ID returns the identifier of data.
func ID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// IDString is ID rendered as a string, or "" if hashing fails.
func IDString(data []byte) string {
	id, err := ID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// Check verifies that data hashes to id.
func Check(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrInvalidID
	}
	got, err := ID(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrIDMismatch
	}
	return nil
}

// Parse decodes a textual identifier.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil || !id.Defined() {
		return cid.Undef, ErrInvalidID
	}
	return id, nil
}
