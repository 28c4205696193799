package apkzip

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeAPK(t *testing.T, entries map[string]string, order []string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("CreateHeader: %v", err)
		}
		if _, err := io.WriteString(w, entries[name]); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	path := filepath.Join(t.TempDir(), "in.apk")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func sampleAPK(t *testing.T) string {
	entries := map[string]string{
		ManifestEntry:                    "old manifest",
		"classes.dex":                    "dex",
		"META-INF/MANIFEST.MF":           "mf",
		"META-INF/CERT.SF":               "sf",
		"META-INF/CERT.RSA":              "rsa",
		"META-INF/services/a.b.Provider": "svc",
		"res/layout/main.xml":            "layout",
	}
	order := []string{ManifestEntry, "classes.dex", "META-INF/MANIFEST.MF", "META-INF/CERT.SF",
		"META-INF/CERT.RSA", "META-INF/services/a.b.Provider", "res/layout/main.xml"}
	return writeAPK(t, entries, order)
}

func readAll(t *testing.T, data []byte) ([]string, map[string]*zip.File) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var names []string
	files := map[string]*zip.File{}
	for _, f := range zr.File {
		names = append(names, f.Name)
		files[f.Name] = f
	}
	return names, files
}

func contents(t *testing.T, f *zip.File) string {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("Open %s: %v", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Read %s: %v", f.Name, err)
	}
	return string(b)
}

func TestReadEntry(t *testing.T) {
	path := sampleAPK(t)
	b, err := ReadEntry(path, ManifestEntry)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(b) != "old manifest" {
		t.Fatalf("ReadEntry = %q", b)
	}
	if _, err := ReadEntry(path, "missing"); err == nil {
		t.Fatalf("expected error for missing entry")
	}
}

func TestAssemble(t *testing.T) {
	path := sampleAPK(t)
	var out bytes.Buffer
	err := Assemble(&out, path,
		map[string][]byte{ManifestEntry: []byte("new manifest")},
		map[string][]byte{
			NativeLibraryPath("x86", "mthook"):       []byte("so-x86"),
			NativeLibraryPath("arm64-v8a", "mthook"): []byte("so-arm64"),
		})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	names, files := readAll(t, out.Bytes())
	want := []string{ManifestEntry, "classes.dex", "META-INF/services/a.b.Provider", "res/layout/main.xml",
		"lib/arm64-v8a/libmthook.so", "lib/x86/libmthook.so"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entries = %v, want %v", names, want)
		}
	}
	if got := contents(t, files[ManifestEntry]); got != "new manifest" {
		t.Fatalf("manifest = %q", got)
	}
	if got := contents(t, files["classes.dex"]); got != "dex" {
		t.Fatalf("classes.dex = %q", got)
	}
	if m := files["lib/x86/libmthook.so"].Method; m != zip.Store {
		t.Fatalf("native library method = %d, want Store", m)
	}
}

func TestAssembleRejectsConflicts(t *testing.T) {
	path := sampleAPK(t)
	cases := []struct {
		name         string
		replace, add map[string][]byte
	}{
		{"replace missing", map[string][]byte{"nope": nil}, nil},
		{"add existing", nil, map[string][]byte{"classes.dex": nil}},
		{"both", map[string][]byte{ManifestEntry: nil}, map[string][]byte{ManifestEntry: nil}},
	}
	for _, c := range cases {
		if err := Assemble(io.Discard, path, c.replace, c.add); err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
}

func TestIsSignatureFile(t *testing.T) {
	for name, want := range map[string]bool{
		"META-INF/MANIFEST.MF":          true,
		"META-INF/CERT.RSA":             true,
		"META-INF/KEY.ec":               true,
		"META-INF/SIG-BUNDLE":           true,
		"META-INF/services/x":           false,
		"META-INF/kotlin.kotlin_module": false,
		"assets/META-INF/CERT.RSA":      false,
	} {
		if got := IsSignatureFile(name); got != want {
			t.Fatalf("IsSignatureFile(%q) = %v", name, got)
		}
	}
}

func TestEntriesAndNextDexName(t *testing.T) {
	names, err := Entries(sampleAPK(t))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(names) != 7 || names[0] != ManifestEntry {
		t.Fatalf("Entries = %v", names)
	}
	if got := NextDexName(names); got != "classes2.dex" {
		t.Fatalf("NextDexName = %s", got)
	}
	if got := NextDexName([]string{"classes.dex", "classes2.dex", "classes4.dex"}); got != "classes3.dex" {
		t.Fatalf("NextDexName with gap = %s", got)
	}
	if got := NextDexName(nil); got != "classes.dex" {
		t.Fatalf("NextDexName empty = %s", got)
	}
}
