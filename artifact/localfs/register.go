package localfs

import (
	"fmt"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/artifact/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "localfs",
		Description: "Directory of read-only artifact files",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		Keys:        []string{"dir"},
		Open: func(cfg map[string]string) (artifact.Store, func() error, error) {
			dir := cfg["dir"]
			if dir == "" {
				return nil, nil, fmt.Errorf("localfs: missing dir")
			}
			s, err := New(dir)
			return s, nil, err
		},
	})
}
