package grpcstore

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/artifact/localfs"
	"github.com/waelchateur/ApkSignatureKill/artifact/storetest"
)

// serve starts a Store service over an in-memory listener and returns a
// client connected to it.
func serve(t *testing.T, backend artifact.Store) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterStoreServer(srv, &Server{Store: backend})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	c := NewClient(cc)
	c.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConformanceOverMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) artifact.Store { return serve(t, artifact.NewMemoryStore()) })
}

func TestRoundTripOverLocalFS(t *testing.T) {
	fs, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	c := serve(t, fs)
	ctx := context.Background()
	payload := []byte("encoded hook methods")
	id, err := c.Put(ctx, payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := fs.Has(ctx, id); err != nil || !ok {
		t.Fatalf("backend Has = %v, %v", ok, err)
	}
	got, err := c.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

// lyingStore returns different bytes than were stored.
type lyingStore struct{ artifact.MemoryStore }

func (l *lyingStore) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	return []byte("something else"), nil
}

func TestServerRejectsForeignBytes(t *testing.T) {
	c := serve(t, &lyingStore{})
	ctx := context.Background()
	id, err := c.Put(ctx, []byte("real"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := c.Get(ctx, id); err != artifact.ErrIDMismatch {
		t.Fatalf("Get: got %v, want ErrIDMismatch", err)
	}
}

func TestRegistryOpenValidatesConfig(t *testing.T) {
	for _, cfg := range []map[string]string{
		{},
		{"target": "localhost:1", "dial-timeout": "soon"},
		{"target": "localhost:1", "max-msg-bytes": "lots"},
	} {
		if _, _, err := open(cfg); err == nil {
			t.Fatalf("open(%v): expected error", cfg)
		}
	}
}
