package bundle_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/artifact/bundle"
	"github.com/waelchateur/ApkSignatureKill/artifact/localfs"
)

func mustPut(t *testing.T, s artifact.Store, data string) cid.Cid {
	t.Helper()
	id, err := s.Put(context.Background(), []byte(data))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return id
}

func TestExportIsDeterministic(t *testing.T) {
	ctx := context.Background()
	src := artifact.NewMemoryStore()
	id1 := mustPut(t, src, "patched manifest")
	id2 := mustPut(t, src, "signature blob")

	var a, b bytes.Buffer
	if err := bundle.Export(ctx, &a, src, []cid.Cid{id2, id1}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if err := bundle.Export(ctx, &b, src, []cid.Cid{id1, id2, id1}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("bundle bytes depend on input order")
	}
}

func TestImportRoundTripWithLabels(t *testing.T) {
	ctx := context.Background()
	src := artifact.NewMemoryStore()
	manifest := mustPut(t, src, "patched manifest")
	rcpt := mustPut(t, src, "receipt")

	var buf bytes.Buffer
	opts := bundle.ExportOptions{
		IncludeIndex: true,
		Labels:       map[string]cid.Cid{"manifest": manifest, "receipt": rcpt},
	}
	if err := bundle.Export(ctx, &buf, src, nil, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	labels, err := bundle.Import(ctx, bytes.NewReader(buf.Bytes()), dst, bundle.ImportOptions{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !labels["manifest"].Equals(manifest) || !labels["receipt"].Equals(rcpt) {
		t.Fatalf("labels = %v", labels)
	}
	got, err := dst.Get(ctx, manifest)
	if err != nil || string(got) != "patched manifest" {
		t.Fatalf("Get = %q, %v", got, err)
	}
}

func TestExportMissingArtifact(t *testing.T) {
	id, err := artifact.ID([]byte("never stored"))
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	err = bundle.Export(context.Background(), &bytes.Buffer{}, artifact.NewMemoryStore(), []cid.Cid{id}, bundle.ExportOptions{})
	if !artifact.IsNotFound(err) {
		t.Fatalf("Export = %v, want not found", err)
	}
}

func TestImportRejects(t *testing.T) {
	good := []byte("good")
	other, err := artifact.ID([]byte("other"))
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	ctx := context.Background()

	_, err = bundle.Import(ctx, bytes.NewReader(makeTar(t, "artifacts/"+other.String(), good)), artifact.NewMemoryStore(), bundle.ImportOptions{})
	if !errors.Is(err, artifact.ErrIDMismatch) {
		t.Fatalf("mismatched entry: %v", err)
	}

	_, err = bundle.Import(ctx, bytes.NewReader(makeTar(t, "artifacts/not-a-cid", good)), artifact.NewMemoryStore(), bundle.ImportOptions{})
	if !errors.Is(err, artifact.ErrInvalidID) {
		t.Fatalf("bad name: %v", err)
	}

	_, err = bundle.Import(ctx, bytes.NewReader(makeTar(t, "../escape", good)), artifact.NewMemoryStore(), bundle.ImportOptions{})
	if err == nil {
		t.Fatalf("path traversal accepted")
	}

	unknown := makeTar(t, "notes.txt", good)
	if _, err := bundle.Import(ctx, bytes.NewReader(unknown), artifact.NewMemoryStore(), bundle.ImportOptions{}); err == nil {
		t.Fatalf("unknown entry accepted")
	}
	if _, err := bundle.Import(ctx, bytes.NewReader(unknown), artifact.NewMemoryStore(), bundle.ImportOptions{IgnoreUnknown: true}); err != nil {
		t.Fatalf("IgnoreUnknown: %v", err)
	}
}

func makeTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	h := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  time.Unix(0, 0).UTC(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(h); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}
