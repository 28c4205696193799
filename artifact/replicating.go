package artifact

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
)

// NamedStore gives a backend a stable name for per-backend reporting.
type NamedStore struct {
	Name  string
	Store Store
}

// ReplicatingStore writes every artifact to all backends and requires them
// to agree on the identifier. Reads fall back in order.
type ReplicatingStore struct {
	Backends []NamedStore
}

var _ Store = ReplicatingStore{}

// PutAll writes data to every backend and returns the expected identifier
// along with what each backend reported. A disagreeing backend stops the
// write with ErrIDMismatch.
func (r ReplicatingStore) PutAll(ctx context.Context, data []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := ID(data)
	if err != nil {
		return cid.Undef, nil, err
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, ErrNoBackends
	}
	out := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store == nil {
			return cid.Undef, out, fmt.Errorf("artifact: nil store for backend %q", b.Name)
		}
		got, err := b.Store.Put(ctx, data)
		if err != nil {
			return cid.Undef, out, fmt.Errorf("artifact: backend %q: %w", b.Name, err)
		}
		out[b.Name] = got
		if !got.Equals(want) {
			return cid.Undef, out, ErrIDMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingStore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(ctx, data)
	return id, err
}

func (r ReplicatingStore) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	stores := make([]Store, 0, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store != nil {
			stores = append(stores, b.Store)
		}
	}
	return MultiStore{Stores: stores}.Get(ctx, id)
}

func (r ReplicatingStore) Has(ctx context.Context, id cid.Cid) (bool, error) {
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		ok, err := b.Store.Has(ctx, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
