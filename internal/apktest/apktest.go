// Package apktest builds compiled manifests, certificates and APK archives
// for tests outside the axml package.
package apktest

import (
	"archive/zip"
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
	"unicode/utf16"
)

const (
	androidNS = "http://schemas.android.com/apk/res/android"
	noString  = 0xFFFFFFFF

	typeString = 0x03
	typeIntDec = 0x10

	idLabel       = 0x01010001
	idName        = 0x01010003
	idVersionCode = 0x0101021b
)

var le = binary.LittleEndian

type attr struct {
	name string
	id   uint32
	str  string
	typ  uint8
	data uint32
}

type node struct {
	start bool
	name  string
	attrs []attr
}

// Manifest returns a UTF-16 compiled manifest for package pkg. The
// application element carries android:name only when application is not
// empty; a child activity always does, so the resource map has the
// android:name entry.
func Manifest(pkg, application string) []byte {
	appAttrs := []attr{{name: "label", id: idLabel, str: "Example", typ: typeString}}
	if application != "" {
		appAttrs = append(appAttrs, attr{name: "name", id: idName, str: application, typ: typeString})
	}
	nodes := []node{
		{start: true, name: "manifest", attrs: []attr{
			{name: "versionCode", id: idVersionCode, typ: typeIntDec, data: 1},
			{name: "package", str: pkg, typ: typeString},
		}},
		{start: true, name: "application", attrs: appAttrs},
		{start: true, name: "activity", attrs: []attr{{name: "name", id: idName, str: ".MainActivity", typ: typeString}}},
		{name: "activity"},
		{name: "application"},
		{name: "manifest"},
	}
	return build(nodes)
}

func build(nodes []node) []byte {
	var (
		pool  []string
		ids   []uint32
		index = map[string]uint32{}
	)
	intern := func(s string) uint32 {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = uint32(len(pool))
		pool = append(pool, s)
		return index[s]
	}
	// Resource-mapped names come first, as aapt lays them out.
	for _, n := range nodes {
		for _, a := range n.attrs {
			if _, ok := index[a.name]; a.id != 0 && !ok {
				intern(a.name)
				ids = append(ids, a.id)
			}
		}
	}
	prefix := intern("android")
	uri := intern(androidNS)
	for _, n := range nodes {
		intern(n.name)
		for _, a := range n.attrs {
			intern(a.name)
			if a.typ == typeString {
				intern(a.str)
			}
		}
	}

	var body []byte
	body = appendHeader(body, 0x0180, 8, 8+4*len(ids))
	for _, id := range ids {
		body = le.AppendUint32(body, id)
	}
	body = appendNS(body, 0x0100, prefix, uri)
	for _, n := range nodes {
		if !n.start {
			body = appendNode(body, 0x0103, 24)
			body = le.AppendUint32(body, noString)
			body = le.AppendUint32(body, index[n.name])
			continue
		}
		body = appendNode(body, 0x0102, 36+20*len(n.attrs))
		body = le.AppendUint32(body, noString)
		body = le.AppendUint32(body, index[n.name])
		body = le.AppendUint16(body, 20)
		body = le.AppendUint16(body, 20)
		body = le.AppendUint16(body, uint16(len(n.attrs)))
		body = append(body, 0, 0, 0, 0, 0, 0)
		for _, a := range n.attrs {
			ns, raw, data := uri, uint32(noString), a.data
			if a.id == 0 {
				ns = noString
			}
			if a.typ == typeString {
				raw = index[a.str]
				data = raw
			}
			body = le.AppendUint32(body, ns)
			body = le.AppendUint32(body, index[a.name])
			body = le.AppendUint32(body, raw)
			body = le.AppendUint16(body, 8)
			body = append(body, 0, a.typ)
			body = le.AppendUint32(body, data)
		}
	}
	body = appendNS(body, 0x0101, prefix, uri)

	strs := stringPool(pool)
	out := appendHeader(nil, 0x0003, 8, 8+len(strs)+len(body))
	out = append(out, strs...)
	return append(out, body...)
}

func stringPool(pool []string) []byte {
	var data []byte
	offsets := make([]uint32, len(pool))
	for i, s := range pool {
		offsets[i] = uint32(len(data))
		u := utf16.Encode([]rune(s))
		data = le.AppendUint16(data, uint16(len(u)))
		for _, c := range u {
			data = le.AppendUint16(data, c)
		}
		data = append(data, 0, 0)
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	start := 28 + 4*len(pool)
	out := appendHeader(nil, 0x0001, 28, start+len(data))
	out = le.AppendUint32(out, uint32(len(pool)))
	out = le.AppendUint32(out, 0)
	out = le.AppendUint32(out, 0)
	out = le.AppendUint32(out, uint32(start))
	out = le.AppendUint32(out, 0)
	for _, o := range offsets {
		out = le.AppendUint32(out, o)
	}
	return append(out, data...)
}

func appendHeader(b []byte, typ uint16, headerSize, size int) []byte {
	b = le.AppendUint16(b, typ)
	b = le.AppendUint16(b, uint16(headerSize))
	return le.AppendUint32(b, uint32(size))
}

func appendNode(b []byte, typ uint16, size int) []byte {
	b = appendHeader(b, typ, 16, size)
	b = le.AppendUint32(b, 1)
	return le.AppendUint32(b, noString)
}

func appendNS(b []byte, typ uint16, prefix, uri uint32) []byte {
	b = appendNode(b, typ, 24)
	b = le.AppendUint32(b, prefix)
	return le.AppendUint32(b, uri)
}

// Certificate returns a fresh self-signed DER certificate.
func Certificate(t testing.TB, cn string) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	return der
}

// WriteAPK writes an unsigned archive holding entries in name order and
// returns its path.
func WriteAPK(t testing.TB, entries map[string][]byte) string {
	t.Helper()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	path := filepath.Join(t.TempDir(), "app.apk")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}
