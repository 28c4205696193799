// Package registry selects artifact store backends by name.
//
// Backends register themselves from init, so a binary enables one by
// importing its package (often as a blank import). Each backend opens from a
// flat key/value configuration whose keys mirror its command-line flags.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/waelchateur/ApkSignatureKill/artifact"
)

// Usage restricts which programs accept a backend.
type Usage uint8

const (
	UsageCLI Usage = 1 << iota
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }

type Backend struct {
	Name        string
	Description string
	Usage       Usage
	// Keys lists the configuration keys Open understands, for help output
	// and for rejecting typos.
	Keys []string
	// Open builds the store. The returned close function may be nil.
	Open func(cfg map[string]string) (artifact.Store, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("registry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("registry: backend %q missing Open", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("registry: backend %q missing Usage", b.Name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("registry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the backends allowed for usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Names(usage Usage) []string {
	bs := List(usage)
	names := make([]string, 0, len(bs))
	for _, b := range bs {
		names = append(names, b.Name)
	}
	return names
}

// Open opens the named backend with cfg.
func Open(name string, usage Usage, cfg map[string]string) (artifact.Store, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("registry: unknown backend %q (have %s)", name, strings.Join(Names(usage), ", "))
	}
	if !b.Usage.allows(usage) {
		return nil, nil, fmt.Errorf("registry: backend %q not supported in this program", name)
	}
	for k := range cfg {
		if !contains(b.Keys, k) {
			return nil, nil, fmt.Errorf("registry: backend %q does not accept key %q", name, k)
		}
	}
	return b.Open(cfg)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func init() {
	MustRegister(Backend{
		Name:        "memory",
		Description: "In-process store, lost on exit",
		Usage:       UsageCLI | UsageDaemon,
		Open: func(map[string]string) (artifact.Store, func() error, error) {
			return artifact.NewMemoryStore(), nil, nil
		},
	})
}
