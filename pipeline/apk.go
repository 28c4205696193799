package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/apex/log"

	"github.com/waelchateur/ApkSignatureKill/apkzip"
	"github.com/waelchateur/ApkSignatureKill/certcapture"
)

type APKInput struct {
	Path string
	// Verify requires the input APK's signature to verify before its
	// certificates are captured.
	Verify bool
	// Certificates replaces the APK's own signers when set, e.g. to replay
	// the signatures of the original release onto a re-signed build.
	Certificates [][]byte
	// NativeLibraries maps an ABI to the hook library built for it.
	NativeLibraries map[string][]byte
	// HookDex is an optional prebuilt container holding the hook class. It is
	// added under the next free classesN.dex name.
	HookDex []byte
}

// RunAPK runs the injection on an APK and writes the rebuilt, unsigned APK
// to w.
func (p *Pipeline) RunAPK(ctx context.Context, in APKInput, w io.Writer) (*Result, error) {
	manifest, err := apkzip.ReadEntry(in.Path, apkzip.ManifestEntry)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read manifest: %w", err)
	}
	certs := in.Certificates
	if len(certs) == 0 {
		if certs, err = certcapture.FromAPK(in.Path, in.Verify); err != nil {
			return nil, fmt.Errorf("pipeline: read certificates: %w", err)
		}
	}
	res, err := p.Run(ctx, Input{Manifest: manifest, Certificates: certs, Source: filepath.Base(in.Path)})
	if err != nil {
		return nil, err
	}

	add := make(map[string][]byte, len(in.NativeLibraries)+1)
	abis := make([]string, 0, len(in.NativeLibraries))
	for abi, lib := range in.NativeLibraries {
		add[apkzip.NativeLibraryPath(abi, p.opts.NativeLibrary)] = lib
		abis = append(abis, abi)
	}
	sort.Strings(abis)
	if len(in.HookDex) > 0 {
		entries, err := apkzip.Entries(in.Path)
		if err != nil {
			return nil, fmt.Errorf("pipeline: list entries: %w", err)
		}
		name := apkzip.NextDexName(entries)
		add[name] = in.HookDex
		p.log.WithField("entry", name).Debug("adding hook container")
	}
	replace := map[string][]byte{apkzip.ManifestEntry: res.Manifest}
	if err := apkzip.Assemble(w, in.Path, replace, add); err != nil {
		return nil, fmt.Errorf("pipeline: assemble: %w", err)
	}
	p.log.WithFields(log.Fields{"source": in.Path, "abis": abis}).Info("assembled apk")
	return res, nil
}
