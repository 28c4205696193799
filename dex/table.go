package dex

import "slices"

// Table interns values of one reference kind and hands out their indices.
type Table[K comparable] struct {
	items []K
	index map[K]uint32
}

func NewTable[K comparable]() *Table[K] {
	return &Table[K]{index: make(map[K]uint32)}
}

// Intern adds k if it is new and returns its index.
func (t *Table[K]) Intern(k K) uint32 {
	if i, ok := t.index[k]; ok {
		return i
	}
	if t.index == nil {
		t.index = make(map[K]uint32)
	}
	i := uint32(len(t.items))
	t.items = append(t.items, k)
	t.index[k] = i
	return i
}

// ItemIndex returns the index of k and whether it was interned.
func (t *Table[K]) ItemIndex(k K) (uint32, bool) {
	i, ok := t.index[k]
	return i, ok
}

func (t *Table[K]) Len() int { return len(t.items) }

// Items returns the interned values in index order.
func (t *Table[K]) Items() []K { return slices.Clone(t.items) }

// SortFunc reorders the table with cmp and reassigns every index.
func (t *Table[K]) SortFunc(cmp func(a, b K) int) {
	slices.SortStableFunc(t.items, cmp)
	for i, k := range t.items {
		t.index[k] = uint32(i)
	}
}
