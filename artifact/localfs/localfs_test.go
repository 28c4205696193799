package localfs

import (
	"context"
	"os"
	"testing"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/artifact/storetest"
)

func mustNew(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) artifact.Store { return mustNew(t) })
}

func TestRejectsEmptyRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestDetectsOutOfBandMutation(t *testing.T) {
	ctx := context.Background()
	s := mustNew(t)
	orig := []byte("original manifest")
	id, err := s.Put(ctx, orig)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	path := s.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := s.Get(ctx, id); err != artifact.ErrIDMismatch {
		t.Fatalf("Get after corruption: got %v, want ErrIDMismatch", err)
	}
	if _, err := s.Put(ctx, orig); err != artifact.ErrImmutable {
		t.Fatalf("Put after corruption: got %v, want ErrImmutable", err)
	}
}
