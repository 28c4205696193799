package grpcstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/artifact/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "grpc",
		Description: "Remote store served by apkhook-stored",
		Usage:       registry.UsageCLI,
		Keys:        []string{"target", "dial-timeout", "timeout", "max-msg-bytes"},
		Open:        open,
	})
}

func open(cfg map[string]string) (artifact.Store, func() error, error) {
	target := strings.TrimSpace(cfg["target"])
	if target == "" {
		return nil, nil, fmt.Errorf("grpc: missing target")
	}
	opts := DialOptions{Timeout: 5 * time.Second}
	var err error
	if v := cfg["dial-timeout"]; v != "" {
		if opts.Timeout, err = time.ParseDuration(v); err != nil {
			return nil, nil, fmt.Errorf("grpc: dial-timeout: %w", err)
		}
	}
	if v := cfg["max-msg-bytes"]; v != "" {
		if opts.MaxMsgBytes, err = strconv.Atoi(v); err != nil {
			return nil, nil, fmt.Errorf("grpc: max-msg-bytes: %w", err)
		}
	}
	var timeout time.Duration
	if v := cfg["timeout"]; v != "" {
		if timeout, err = time.ParseDuration(v); err != nil {
			return nil, nil, fmt.Errorf("grpc: timeout: %w", err)
		}
	}
	c, err := Dial(target, opts)
	if err != nil {
		return nil, nil, err
	}
	c.Timeout = timeout
	return c, c.Close, nil
}
