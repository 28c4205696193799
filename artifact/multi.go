package artifact

import (
	"context"

	"github.com/ipfs/go-cid"
)

// MultiStore reads from several stores in slice order and writes only to
// the first one. Callers choose the order; it is never derived from a map.
type MultiStore struct {
	Stores []Store
}

var _ Store = MultiStore{}

func (m MultiStore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if len(m.Stores) == 0 {
		return cid.Undef, ErrNoBackends
	}
	return m.Stores[0].Put(ctx, data)
}

func (m MultiStore) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if len(m.Stores) == 0 {
		return nil, ErrNoBackends
	}
	for _, s := range m.Stores {
		b, err := s.Get(ctx, id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (m MultiStore) Has(ctx context.Context, id cid.Cid) (bool, error) {
	for _, s := range m.Stores {
		ok, err := s.Has(ctx, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
