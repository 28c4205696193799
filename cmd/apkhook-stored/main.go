package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"google.golang.org/grpc"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/artifact/grpcstore"
	"github.com/waelchateur/ApkSignatureKill/artifact/registry"
	"github.com/waelchateur/ApkSignatureKill/config"

	_ "github.com/waelchateur/ApkSignatureKill/artifact/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	listen      string
	backend     string
	settings    stringList
	configPath  string
	maxMsgBytes int
	list        bool
	verbose     bool
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("apkhook-stored", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&o.listen, "listen", "127.0.0.1:7777", "listen address")
	fs.StringVar(&o.backend, "backend", "localfs", "store backend name")
	fs.Var(&o.settings, "set", "backend setting as key=value (repeatable), e.g. dir=/var/lib/apkhook")
	fs.StringVar(&o.configPath, "config", "", "JSON config file; its store section replaces --backend/--set")
	fs.IntVar(&o.maxMsgBytes, "max-msg-bytes", 0, "largest accepted message in bytes (0 keeps the gRPC default)")
	fs.BoolVar(&o.list, "list-backends", false, "List supported backends and exit")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")
	err := fs.Parse(args)
	return o, err
}

// openStore opens the backing store from the config file when one is given,
// otherwise from --backend and --set.
func openStore(o options) (artifact.Store, func() error, error) {
	if o.configPath != "" {
		cfg, err := config.LoadFile(o.configPath)
		if err != nil {
			return nil, nil, err
		}
		st, closeFn, err := cfg.Store.Open(registry.UsageDaemon, "")
		if err == nil && st == nil {
			_ = closeFn()
			err = fmt.Errorf("%s: no store backends configured", o.configPath)
		}
		return st, closeFn, err
	}
	settings := make(map[string]string, len(o.settings))
	for _, kv := range o.settings {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, nil, fmt.Errorf("invalid --set %q (want key=value)", kv)
		}
		settings[k] = v
	}
	return registry.Open(o.backend, registry.UsageDaemon, settings)
}

func newServer(store artifact.Store, logger log.Interface, maxMsgBytes int) *grpc.Server {
	var opts []grpc.ServerOption
	if maxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(maxMsgBytes), grpc.MaxSendMsgSize(maxMsgBytes))
	}
	s := grpc.NewServer(opts...)
	grpcstore.RegisterStoreServer(s, &grpcstore.Server{Store: store, Logger: logger})
	return s
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	o, err := parseFlags(args, errOut)
	if err != nil {
		return 2
	}
	if o.list {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}
	level := log.InfoLevel
	if o.verbose {
		level = log.DebugLevel
	}
	logger := &log.Logger{Handler: cli.New(errOut), Level: level}

	store, closeFn, err := openStore(o)
	if err != nil {
		logger.WithError(err).Error("open store")
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", o.listen)
	if err != nil {
		logger.WithError(err).Error("listen")
		return 1
	}
	defer lis.Close()

	s := newServer(store, logger, o.maxMsgBytes)
	logger.WithFields(log.Fields{"addr": lis.Addr().String(), "backend": o.backend}).Info("apkhook-stored listening")
	if err := s.Serve(lis); err != nil {
		logger.WithError(err).Error("serve")
		return 1
	}
	return 0
}
