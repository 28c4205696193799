// Package config loads the injector settings from a JSON file and the
// environment, and opens the configured artifact store and receipt signer.
//
// Example:
//
//	{
//	  "api_level": 26,
//	  "verify_manifest": true,
//	  "store": {
//	    "write_policy": "all",
//	    "backends": [
//	      {"name": "localfs", "config": {"dir": "/var/lib/apkhook"}},
//	      {"name": "grpc", "id": "remote", "config": {"target": "store:7777"}}
//	    ]
//	  },
//	  "receipt": {"key_file": "/etc/apkhook/root.key", "role": "receipt", "signature_alg": "dilithium3"}
//	}
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/artifact/registry"
	"github.com/waelchateur/ApkSignatureKill/dex"
	"github.com/waelchateur/ApkSignatureKill/hook"
	"github.com/waelchateur/ApkSignatureKill/keys"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPILevel    = "APKHOOK_API_LEVEL"
	EnvHookClass   = "APKHOOK_HOOK_CLASS"
	EnvNativeLib   = "APKHOOK_NATIVE_LIB"
	EnvVerify      = "APKHOOK_VERIFY"
	EnvStoreDir    = "APKHOOK_STORE_DIR"
	EnvStoreTarget = "APKHOOK_STORE_TARGET"
	EnvSeedHex     = "APKHOOK_SEED_HEX"
)

type Config struct {
	APILevel       int    `json:"api_level,omitempty"`
	HookClass      string `json:"hook_class,omitempty"`
	NativeLibrary  string `json:"native_library,omitempty"`
	VerifyManifest bool   `json:"verify_manifest"`
	// VerifyAPK makes certificate capture run full APK signature
	// verification instead of plain extraction.
	VerifyAPK bool          `json:"verify_apk"`
	Store     StoreConfig   `json:"store"`
	Receipt   ReceiptConfig `json:"receipt"`
}

// StoreConfig selects artifact backends. WritePolicy "first" (the default)
// writes to the first backend and reads in order; "all" writes to every
// backend and requires identical identifiers.
type StoreConfig struct {
	WritePolicy string          `json:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends,omitempty"`
}

type BackendConfig struct {
	// Name is the registered backend name (memory, localfs, grpc).
	Name string `json:"name"`
	// ID optionally distinguishes two backends of the same kind.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

type ReceiptConfig struct {
	SeedHex string `json:"seed_hex,omitempty"`
	KeyFile string `json:"key_file,omitempty"`
	// Role, when set, derives the signing seed from the root seed.
	Role         string `json:"role,omitempty"`
	SignatureAlg string `json:"signature_alg,omitempty"`
	HashAlg      string `json:"hash_alg,omitempty"`
}

func Default() Config {
	return Config{
		APILevel:       dex.DefaultAPI,
		HookClass:      hook.DefaultHookClass,
		NativeLibrary:  hook.DefaultNativeLibrary,
		VerifyManifest: true,
		Receipt: ReceiptConfig{
			SignatureAlg: keys.AlgEd25519,
			HashAlg:      "sha256",
		},
	}
}

// LoadFile reads a JSON config on top of Default.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from APKHOOK_* environment variables. A store
// directory or target replaces the backend of the same kind, or is added
// after the configured ones.
func (c *Config) ApplyEnv() {
	c.APILevel = env.Int(EnvAPILevel, c.APILevel)
	c.HookClass = env.Str(EnvHookClass, c.HookClass)
	c.NativeLibrary = env.Str(EnvNativeLib, c.NativeLibrary)
	if env.Has(EnvVerify) {
		c.VerifyManifest = env.Bool(EnvVerify)
	}
	if dir := env.Str(EnvStoreDir); dir != "" {
		c.Store.set(BackendConfig{Name: "localfs", Config: map[string]string{"dir": dir}})
	}
	if target := env.Str(EnvStoreTarget); target != "" {
		c.Store.set(BackendConfig{Name: "grpc", Config: map[string]string{"target": target}})
	}
	c.Receipt.SeedHex = env.Str(EnvSeedHex, c.Receipt.SeedHex)
}

func (s *StoreConfig) set(b BackendConfig) {
	for i := range s.Backends {
		if s.Backends[i].Name == b.Name && s.Backends[i].ID == "" {
			s.Backends[i].Config = b.Config
			return
		}
	}
	s.Backends = append(s.Backends, b)
}

func (c Config) Validate() error {
	if _, err := dex.ForAPI(c.APILevel); err != nil {
		return fmt.Errorf("config: api_level: %w", err)
	}
	if c.HookClass == "" || strings.ContainsAny(c.HookClass, "/;") {
		return fmt.Errorf("config: hook_class %q must be a dotted class name", c.HookClass)
	}
	if c.NativeLibrary == "" || strings.ContainsAny(c.NativeLibrary, "/.") {
		return fmt.Errorf("config: native_library %q must be a bare library name", c.NativeLibrary)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Receipt.Validate()
}

func (s StoreConfig) Validate() error {
	seen := make(map[string]struct{}, len(s.Backends))
	for _, b := range s.Backends {
		if b.Name == "" {
			return errors.New("config: store backend name is required")
		}
		if _, ok := seen[b.id()]; ok {
			return fmt.Errorf("config: duplicate store backend id %q", b.id())
		}
		seen[b.id()] = struct{}{}
	}
	switch s.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("config: invalid write_policy %q", s.WritePolicy)
	}
}

func (r ReceiptConfig) Validate() error {
	if r.SeedHex != "" && r.KeyFile != "" {
		return errors.New("config: receipt seed_hex and key_file are exclusive")
	}
	if r.Role != "" {
		if err := keys.CheckRole(r.Role); err != nil {
			return fmt.Errorf("config: receipt role: %w", err)
		}
	}
	switch r.SignatureAlg {
	case "", keys.AlgEd25519, keys.AlgDilithium3:
	default:
		return fmt.Errorf("config: unsupported signature_alg %q", r.SignatureAlg)
	}
	if r.HashAlg != "" {
		if _, err := keys.Digest(r.HashAlg, nil); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// Enabled reports whether any signing key is configured.
func (r ReceiptConfig) Enabled() bool { return r.SeedHex != "" || r.KeyFile != "" }

// Signer loads the configured key. It returns nil when receipts are not
// enabled.
func (r ReceiptConfig) Signer() (keys.Signer, error) {
	if !r.Enabled() {
		return nil, nil
	}
	var (
		seed []byte
		err  error
	)
	if r.SeedHex != "" {
		seed, err = keys.ParseSeedHex(r.SeedHex)
	} else {
		seed, err = keys.LoadSeedFile(r.KeyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("config: receipt key: %w", err)
	}
	if r.Role != "" {
		if seed, err = keys.DeriveRoleSeed(seed, r.Role); err != nil {
			return nil, err
		}
	}
	return keys.NewSigner(r.SignatureAlg, seed)
}

// Open opens the configured backends through the registry. With no
// backends it returns a nil store. preferred, when set, names the backend
// moved to the front and so used for writes under the "first" policy.
//
// Backends must be linked into the binary, usually by blank imports of
// their packages.
func (s StoreConfig) Open(usage registry.Usage, preferred string) (artifact.Store, func() error, error) {
	noop := func() error { return nil }
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	if len(s.Backends) == 0 {
		return nil, noop, nil
	}

	ordered := append([]BackendConfig(nil), s.Backends...)
	if preferred != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferred || ordered[i].ID == preferred {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("config: preferred backend %q not configured", preferred)
		}
		b := ordered[idx]
		copy(ordered[1:idx+1], ordered[:idx])
		ordered[0] = b
	}

	named := make([]artifact.NamedStore, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	for _, b := range ordered {
		st, closeFn, err := registry.Open(b.Name, usage, b.Config)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("config: backend %q: %w", b.id(), err)
		}
		named = append(named, artifact.NamedStore{Name: b.id(), Store: st})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].Store, closeAll, nil
	}
	if s.WritePolicy == "all" {
		return artifact.ReplicatingStore{Backends: named}, closeAll, nil
	}
	stores := make([]artifact.Store, 0, len(named))
	for _, n := range named {
		stores = append(stores, n.Store)
	}
	return artifact.MultiStore{Stores: stores}, closeAll, nil
}
