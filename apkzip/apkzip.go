// Package apkzip reads entries from an APK and writes a rebuilt copy with
// replaced and added entries. The rebuilt archive is unsigned: the v1
// signature files are dropped and must be regenerated by the caller's
// signing step.
package apkzip

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ManifestEntry is the compiled manifest's location inside an APK.
const ManifestEntry = "AndroidManifest.xml"

// DefaultABIs are the ABIs the hook library is shipped for.
var DefaultABIs = []string{"armeabi-v7a", "arm64-v8a", "x86", "x86_64"}

// NativeLibraryPath returns the entry name of lib<name>.so for abi.
func NativeLibraryPath(abi, name string) string {
	return "lib/" + abi + "/lib" + name + ".so"
}

// ReadEntry returns the uncompressed contents of one entry.
func ReadEntry(apkPath, name string) ([]byte, error) {
	r, err := zip.OpenReader(apkPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := r.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("apkzip: %s has no entry %s", apkPath, name)
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Entries lists the entry names of an APK in archive order.
func Entries(apkPath string) ([]string, error) {
	r, err := zip.OpenReader(apkPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// NextDexName returns the first free classesN.dex name, following the
// platform's multidex numbering (classes.dex, classes2.dex, ...).
func NextDexName(entries []string) string {
	have := make(map[string]bool, len(entries))
	for _, e := range entries {
		have[e] = true
	}
	if !have["classes.dex"] {
		return "classes.dex"
	}
	for i := 2; ; i++ {
		name := "classes" + strconv.Itoa(i) + ".dex"
		if !have[name] {
			return name
		}
	}
}

// IsSignatureFile reports whether name belongs to a v1 (JAR) signature.
func IsSignatureFile(name string) bool {
	dir, base := path.Split(name)
	if !strings.EqualFold(dir, "META-INF/") {
		return false
	}
	upper := strings.ToUpper(base)
	if upper == "MANIFEST.MF" || strings.HasPrefix(upper, "SIG-") {
		return true
	}
	switch path.Ext(upper) {
	case ".SF", ".RSA", ".DSA", ".EC":
		return true
	}
	return false
}

// Assemble writes a copy of the APK at srcPath to w. Entries named in
// replace get the new contents, entries in add are appended in name order,
// and v1 signature files are dropped. Untouched entries are copied without
// recompression.
func Assemble(w io.Writer, srcPath string, replace, add map[string][]byte) error {
	r, err := zip.OpenReader(srcPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for name := range add {
		if _, clash := replace[name]; clash {
			return fmt.Errorf("apkzip: %s is both replaced and added", name)
		}
	}

	zw := zip.NewWriter(w)
	seen := make(map[string]bool, len(r.File))
	for _, f := range r.File {
		if IsSignatureFile(f.Name) {
			continue
		}
		seen[f.Name] = true
		data, ok := replace[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("apkzip: copy %s: %w", f.Name, err)
			}
			continue
		}
		hdr := f.FileHeader
		hdr.CRC32, hdr.CompressedSize64, hdr.UncompressedSize64 = 0, 0, 0
		hdr.CompressedSize, hdr.UncompressedSize = 0, 0
		if err := writeEntry(zw, &hdr, data); err != nil {
			return err
		}
	}
	for name := range replace {
		if !seen[name] {
			return fmt.Errorf("apkzip: %s has no entry %s to replace", srcPath, name)
		}
	}

	names := make([]string, 0, len(add))
	for name := range add {
		if seen[name] {
			return fmt.Errorf("apkzip: %s already has an entry %s", srcPath, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hdr := &zip.FileHeader{Name: name, Method: methodFor(name)}
		if err := writeEntry(zw, hdr, add[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, hdr *zip.FileHeader, data []byte) error {
	ew, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("apkzip: create %s: %w", hdr.Name, err)
	}
	if _, err := ew.Write(data); err != nil {
		return fmt.Errorf("apkzip: write %s: %w", hdr.Name, err)
	}
	return nil
}

// methodFor keeps native libraries and the resource table uncompressed so
// the platform can map them directly.
func methodFor(name string) uint16 {
	if strings.HasSuffix(name, ".so") || name == "resources.arsc" {
		return zip.Store
	}
	return zip.Deflate
}
