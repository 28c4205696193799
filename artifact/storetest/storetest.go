// Package storetest is the shared conformance suite for artifact.Store
// implementations.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/waelchateur/ApkSignatureKill/artifact"
)

// NewStore returns a fresh, empty store isolated from other tests.
type NewStore func(t *testing.T) artifact.Store

func Run(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("patched AndroidManifest.xml")
		id, err := s.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		wantID, err := artifact.ID(want)
		if err != nil {
			t.Fatalf("ID: %v", err)
		}
		if !id.Equals(wantID) {
			t.Fatalf("Put id = %s, want %s", id, wantID)
		}
		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get returned %q, want %q", got, want)
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("certificate blob")
		id1, err := s.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1): %v", err)
		}
		id2, err := s.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2): %v", err)
		}
		if !id1.Equals(id2) {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id, err := artifact.ID(b)
		if err != nil {
			t.Fatalf("ID: %v", err)
		}
		if ok, err := s.Has(ctx, id); err != nil || ok {
			t.Fatalf("Has before Put = %v, %v", ok, err)
		}
		if _, err := s.Get(ctx, id); !artifact.IsNotFound(err) {
			t.Fatalf("Get missing: got %v, want ErrNotFound", err)
		}
		if _, err := s.Put(ctx, b); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if ok, err := s.Has(ctx, id); err != nil || !ok {
			t.Fatalf("Has after Put = %v, %v", ok, err)
		}
	})

	t.Run("EmptyArtifact", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Put(ctx, nil)
		if err != nil {
			t.Fatalf("Put(nil): %v", err)
		}
		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("Get returned %d bytes", len(got))
		}
	})

	t.Run("RejectUndefinedID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if ok, _ := s.Has(ctx, undef); ok {
			t.Fatalf("Has should be false for an undefined id")
		}
		if _, err := s.Get(ctx, undef); !errors.Is(err, artifact.ErrInvalidID) {
			t.Fatalf("Get undefined id: got %v, want ErrInvalidID", err)
		}
	})
}
