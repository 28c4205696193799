package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/artifact/bundle"
	"github.com/waelchateur/ApkSignatureKill/artifact/registry"
	"github.com/waelchateur/ApkSignatureKill/axml"
	"github.com/waelchateur/ApkSignatureKill/certcapture"
	"github.com/waelchateur/ApkSignatureKill/config"
	"github.com/waelchateur/ApkSignatureKill/dex"
	"github.com/waelchateur/ApkSignatureKill/fault"
	"github.com/waelchateur/ApkSignatureKill/keys"
	"github.com/waelchateur/ApkSignatureKill/pipeline"
	"github.com/waelchateur/ApkSignatureKill/receipt"

	_ "github.com/waelchateur/ApkSignatureKill/artifact/grpcstore"
	_ "github.com/waelchateur/ApkSignatureKill/artifact/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "inject":
		return cmdInject(args[1:], out, errOut)
	case "manifest":
		return cmdManifest(args[1:], out, errOut)
	case "certs":
		return cmdCerts(args[1:], out, errOut)
	case "receipt":
		return cmdReceipt(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "artifact":
		return cmdArtifact(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "backends":
		for _, b := range registry.List(registry.UsageCLI) {
			fmt.Fprintf(out, "%s\t%s\t%s\n", b.Name, strings.Join(b.Keys, ","), b.Description)
		}
		return 0
	case "version":
		fmt.Fprintf(out, "apkhook %s\n", pipeline.Version)
		return 0
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "apkhook: signature-kill hook injector")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  apkhook inject --apk <in.apk> --out <out.apk> [--config <file>] [--cert <file> ...] [--lib <abi>=<file> ...] [--dex <file>] [--receipt <file>] [--bundle <file>] [--store <backend>] [-v]")
	fmt.Fprintln(w, "  apkhook manifest --in <AndroidManifest.xml> --out <file> [--hook-class <class>] [--no-verify]")
	fmt.Fprintln(w, "  apkhook certs (--apk <file> [--verify] | --cert <file> ...) [--format wrapped|literal|base64|raw]")
	fmt.Fprintln(w, "  apkhook receipt verify <file>")
	fmt.Fprintln(w, "  apkhook key init --out <file> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  apkhook key derive --from <file> --role <role> --out <file> [--force]")
	fmt.Fprintln(w, "  apkhook key public --key-file <file> [--alg ed25519|dilithium3]")
	fmt.Fprintln(w, "  apkhook artifact put|get|has [--config <file>] [--store <backend>] <file|cid>")
	fmt.Fprintln(w, "  apkhook artifact import [--config <file>] [--store <backend>] <bundle.tar>")
	fmt.Fprintln(w, "  apkhook cid <file>")
	fmt.Fprintln(w, "  apkhook backends")
	fmt.Fprintln(w, "  apkhook version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - the output APK is unsigned; sign it with your release tooling")
	fmt.Fprintln(w, "  - --cert replays the given DER or PEM certificates instead of the APK's own signers")
	fmt.Fprintln(w, "  - APKHOOK_* environment variables override the config file")
	fmt.Fprintln(w, "  - receipts are written without a trailing newline")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func newLogger(errOut io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return &log.Logger{Handler: cli.New(errOut), Level: level}
}

// loadConfig reads path, or the defaults when path is empty, then applies
// the environment.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// readCertificates loads DER or PEM certificate files, keeping every PEM
// CERTIFICATE block in file order.
func readCertificates(paths []string) ([][]byte, error) {
	var chain [][]byte
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if !bytes.Contains(b, []byte("-----BEGIN")) {
			chain = append(chain, b)
			continue
		}
		found := false
		for rest := b; ; {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				break
			}
			if block.Type == "CERTIFICATE" {
				chain = append(chain, block.Bytes)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%s: no CERTIFICATE block", filepath.Base(path))
		}
	}
	return chain, nil
}

func parseLibs(items []string) (map[string][]byte, error) {
	libs := make(map[string][]byte, len(items))
	for _, it := range items {
		abi, path, ok := strings.Cut(it, "=")
		if !ok || abi == "" || path == "" {
			return nil, fmt.Errorf("invalid --lib %q (want <abi>=<file>)", it)
		}
		if _, dup := libs[abi]; dup {
			return nil, fmt.Errorf("duplicate --lib for %s", abi)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		libs[abi] = b
	}
	return libs, nil
}

func cmdInject(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inject", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var apkPath string
	var outPath string
	var configPath string
	var certs stringList
	var libs stringList
	var dexPath string
	var receiptPath string
	var bundlePath string
	var storeName string
	var hookClass string
	var apiLevel int
	var verifyAPK bool
	var verbose bool

	fs.StringVar(&apkPath, "apk", "", "Input APK")
	fs.StringVar(&outPath, "out", "", "Output APK (unsigned)")
	fs.StringVar(&configPath, "config", "", "JSON config file")
	fs.Var(&certs, "cert", "Certificate file to replay (repeatable, leaf first)")
	fs.Var(&libs, "lib", "Hook native library as <abi>=<file> (repeatable)")
	fs.StringVar(&dexPath, "dex", "", "Prebuilt container with the hook class, added as the next classesN.dex")
	fs.StringVar(&receiptPath, "receipt", "", "Write the signed receipt here (requires a receipt key)")
	fs.StringVar(&bundlePath, "bundle", "", "Write every produced artifact to this TAR bundle")
	fs.StringVar(&storeName, "store", "", "Preferred configured backend for writes")
	fs.StringVar(&hookClass, "hook-class", "", "Override the hook class name")
	fs.IntVar(&apiLevel, "api", 0, "Override the target API level")
	fs.BoolVar(&verifyAPK, "verify-apk", false, "Require the input APK signature to verify")
	fs.BoolVar(&verbose, "v", false, "Debug logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if apkPath == "" || outPath == "" {
		fmt.Fprintln(errOut, "missing --apk or --out")
		return 2
	}
	logger := newLogger(errOut, verbose)

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	if hookClass != "" {
		cfg.HookClass = hookClass
	}
	if apiLevel != 0 {
		cfg.APILevel = apiLevel
	}
	profile, err := dex.ForAPI(cfg.APILevel)
	if err != nil {
		fmt.Fprintf(errOut, "invalid api level: %v\n", err)
		return 2
	}
	chain, err := readCertificates(certs)
	if err != nil {
		fmt.Fprintf(errOut, "read --cert: %v\n", err)
		return 1
	}
	nativeLibs, err := parseLibs(libs)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}
	var hookDex []byte
	if dexPath != "" {
		if hookDex, err = os.ReadFile(dexPath); err != nil {
			fmt.Fprintf(errOut, "read --dex: %v\n", err)
			return 1
		}
	}
	signer, err := cfg.Receipt.Signer()
	if err != nil {
		fmt.Fprintf(errOut, "receipt key: %v\n", err)
		return 1
	}
	if receiptPath != "" && signer == nil {
		fmt.Fprintln(errOut, "--receipt requires a receipt key (config receipt.key_file or APKHOOK_SEED_HEX)")
		return 2
	}
	store, closeStore, err := cfg.Store.Open(registry.UsageCLI, storeName)
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 1
	}
	defer closeStore()
	if store == nil && bundlePath != "" {
		store = artifact.NewMemoryStore()
	}

	p := pipeline.New(pipeline.Options{
		Profile:        profile,
		HookClass:      cfg.HookClass,
		NativeLibrary:  cfg.NativeLibrary,
		Store:          store,
		Signer:         signer,
		HashAlg:        cfg.Receipt.HashAlg,
		VerifyManifest: cfg.VerifyManifest,
		Logger:         logger,
	})

	var buf bytes.Buffer
	res, err := p.RunAPK(context.Background(), pipeline.APKInput{
		Path:            apkPath,
		Verify:          verifyAPK || cfg.VerifyAPK,
		Certificates:    chain,
		NativeLibraries: nativeLibs,
		HookDex:         hookDex,
	}, &buf)
	if err != nil {
		reportError(errOut, "inject", err)
		return 1
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}
	if receiptPath != "" {
		if err := os.WriteFile(receiptPath, res.Receipt, 0o644); err != nil {
			fmt.Fprintf(errOut, "write --receipt: %v\n", err)
			return 1
		}
	}
	if bundlePath != "" {
		var bb bytes.Buffer
		opts := bundle.ExportOptions{Labels: res.Artifacts, IncludeIndex: true}
		if err := bundle.Export(context.Background(), &bb, store, nil, opts); err != nil {
			fmt.Fprintf(errOut, "bundle: %v\n", err)
			return 1
		}
		if err := os.WriteFile(bundlePath, bb.Bytes(), 0o644); err != nil {
			fmt.Fprintf(errOut, "write --bundle: %v\n", err)
			return 1
		}
	}
	for _, name := range []string{pipeline.ArtifactManifest, pipeline.ArtifactSignatures, pipeline.ArtifactHookCode, pipeline.ArtifactReceipt} {
		if id, ok := res.Artifacts[name]; ok {
			fmt.Fprintf(out, "%s\t%s\n", name, id)
		}
	}
	return 0
}

// reportError prints err with its rule id when it carries one.
func reportError(w io.Writer, what string, err error) {
	var fe *fault.Error
	if errors.As(err, &fe) {
		fmt.Fprintf(w, "%s: [%s %s] %v\n", what, fe.Kind, fe.RuleID, err)
		return
	}
	fmt.Fprintf(w, "%s: %v\n", what, err)
}

func cmdManifest(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("manifest", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var inPath string
	var outPath string
	var hookClass string
	var noVerify bool

	fs.StringVar(&inPath, "in", "", "Compiled AndroidManifest.xml")
	fs.StringVar(&outPath, "out", "", "Patched manifest output")
	fs.StringVar(&hookClass, "hook-class", config.Default().HookClass, "Hook class name")
	fs.BoolVar(&noVerify, "no-verify", false, "Skip decoding the result with an independent parser")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inPath == "" || outPath == "" {
		fmt.Fprintln(errOut, "missing --in or --out")
		return 2
	}
	b, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --in: %v\n", err)
		return 1
	}
	m, err := axml.Parse(b)
	if err != nil {
		reportError(errOut, "parse", err)
		return 1
	}
	res, err := axml.InjectApplication(m, hookClass)
	if err != nil {
		reportError(errOut, "patch", err)
		return 1
	}
	patched := m.Bytes()
	if !noVerify {
		if err := pipeline.VerifyManifest(patched, hookClass); err != nil {
			reportError(errOut, "verify", err)
			return 1
		}
	}
	if err := os.WriteFile(outPath, patched, 0o644); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "package\t%s\n", res.PackageName)
	fmt.Fprintf(out, "mode\t%s\n", res.Mode)
	if res.OriginalApplication != "" {
		fmt.Fprintf(out, "original\t%s\n", res.OriginalApplication)
	}
	return 0
}

func cmdCerts(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("certs", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var apkPath string
	var verify bool
	var certs stringList
	var format string

	fs.StringVar(&apkPath, "apk", "", "Read the signing certificates of this APK")
	fs.BoolVar(&verify, "verify", false, "Require the APK signature to verify")
	fs.Var(&certs, "cert", "Certificate file (repeatable, leaf first)")
	fs.StringVar(&format, "format", "wrapped", "Output format: wrapped, literal, base64 or raw")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (apkPath == "") == (len(certs) == 0) {
		fmt.Fprintln(errOut, "exactly one of --apk or --cert is required")
		return 2
	}
	var chain [][]byte
	var err error
	if apkPath != "" {
		chain, err = certcapture.FromAPK(apkPath, verify)
	} else {
		chain, err = readCertificates(certs)
	}
	if err != nil {
		reportError(errOut, "certificates", err)
		return 1
	}
	blob, err := certcapture.Capture(chain)
	if err != nil {
		reportError(errOut, "capture", err)
		return 1
	}
	switch format {
	case "wrapped":
		_, _ = io.WriteString(out, blob.Wrapped())
	case "literal":
		_, _ = fmt.Fprintln(out, blob.Literal())
	case "base64":
		_, _ = fmt.Fprintln(out, strings.ReplaceAll(blob.Wrapped(), "\n", ""))
	case "raw":
		_, _ = out.Write(blob.Raw)
	default:
		fmt.Fprintf(errOut, "unknown --format %q\n", format)
		return 2
	}
	return 0
}

func cmdReceipt(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 || args[0] != "verify" {
		fmt.Fprintln(errOut, "usage: apkhook receipt verify <file>")
		return 2
	}
	fs := flag.NewFlagSet("receipt verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: apkhook receipt verify <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read receipt: %v\n", err)
		return 1
	}
	r, err := receipt.Verify(b)
	if err != nil {
		reportError(errOut, "invalid", err)
		return 1
	}
	fmt.Fprintf(out, "OK\t%s\n", r.Crypto[receipt.KeyPublicKey])
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "public":
		return cmdKeyPublic(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "apkhook key: receipt signing seeds")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  apkhook key init --out <file> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  apkhook key derive --from <file> --role <role> --out <file> [--force]")
	fmt.Fprintln(w, "  apkhook key public --key-file <file> [--alg ed25519|dilithium3]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var outPath string
	var seedHex string
	var force bool

	fs.StringVar(&outPath, "out", "", "Seed file to write (0600)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional seed as 64 hex chars (for reproducible builds)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing seed file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}
	var seed []byte
	if seedHex != "" {
		var err error
		if seed, err = keys.ParseSeedHex(seedHex); err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, keys.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}
	return writeSeed(outPath, seed, force, out, errOut)
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var role string
	var outPath string
	var force bool

	fs.StringVar(&from, "from", "", "Root seed file")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. receipt, ci)")
	fs.StringVar(&outPath, "out", "", "Derived seed file to write (0600)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing seed file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" || outPath == "" {
		fmt.Fprintln(errOut, "missing --from, --role or --out")
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	root, err := keys.LoadSeedFile(from)
	if err != nil {
		fmt.Fprintf(errOut, "read --from: %v\n", err)
		return 1
	}
	seed, err := keys.DeriveRoleSeed(root, role)
	if err != nil {
		fmt.Fprintf(errOut, "derive: %v\n", err)
		return 1
	}
	return writeSeed(outPath, seed, force, out, errOut)
}

func writeSeed(path string, seed []byte, force bool, out, errOut io.Writer) int {
	if err := keys.SaveSeedFile(path, seed, force); err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	signer, err := keys.NewSigner(keys.AlgEd25519, seed)
	if err != nil {
		fmt.Fprintf(errOut, "key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Public key: %s\n", signer.PublicKey())
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyPublic(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key public", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var keyFile string
	var alg string

	fs.StringVar(&keyFile, "key-file", "", "Seed file")
	fs.StringVar(&alg, "alg", keys.AlgEd25519, "Signature algorithm")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if keyFile == "" {
		fmt.Fprintln(errOut, "missing --key-file")
		return 2
	}
	seed, err := keys.LoadSeedFile(keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "read --key-file: %v\n", err)
		return 1
	}
	signer, err := keys.NewSigner(alg, seed)
	if err != nil {
		fmt.Fprintf(errOut, "key: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(out, signer.PublicKey())
	return 0
}

func cmdArtifact(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: apkhook artifact put|get|has|import [--config <file>] [--store <backend>] <file|cid>")
		return 2
	}
	op := args[0]
	fs := flag.NewFlagSet("artifact "+op, flag.ContinueOnError)
	fs.SetOutput(errOut)

	var configPath string
	var storeName string

	fs.StringVar(&configPath, "config", "", "JSON config file")
	fs.StringVar(&storeName, "store", "", "Preferred configured backend")

	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(errOut, "usage: apkhook artifact %s [--config <file>] [--store <backend>] <file|cid>\n", op)
		return 2
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	store, closeStore, err := cfg.Store.Open(registry.UsageCLI, storeName)
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 1
	}
	defer closeStore()
	if store == nil {
		fmt.Fprintln(errOut, "no store configured (config store.backends, APKHOOK_STORE_DIR or APKHOOK_STORE_TARGET)")
		return 2
	}
	ctx := context.Background()

	switch op {
	case "put":
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
			return 1
		}
		id, err := store.Put(ctx, b)
		if err != nil {
			fmt.Fprintf(errOut, "put: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, id)
		return 0
	case "import":
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "open bundle: %v\n", err)
			return 1
		}
		defer f.Close()
		labels, err := bundle.Import(ctx, f, store, bundle.ImportOptions{})
		if err != nil {
			fmt.Fprintf(errOut, "import: %v\n", err)
			return 1
		}
		names := make([]string, 0, len(labels))
		for name := range labels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%s\t%s\n", name, labels[name])
		}
		return 0
	case "get", "has":
		id, err := artifact.Parse(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "invalid cid: %v\n", err)
			return 2
		}
		if op == "has" {
			ok, err := store.Has(ctx, id)
			if err != nil {
				fmt.Fprintf(errOut, "has: %v\n", err)
				return 1
			}
			_, _ = fmt.Fprintln(out, ok)
			return 0
		}
		b, err := store.Get(ctx, id)
		if err != nil {
			fmt.Fprintf(errOut, "get: %v\n", err)
			return 1
		}
		_, _ = out.Write(b)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown artifact subcommand: %s\n", op)
		return 2
	}
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: apkhook cid <file>")
		return 2
	}
	path := fs.Arg(0)
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return 1
	}
	_, _ = fmt.Fprintln(out, artifact.IDString(b))
	return 0
}
