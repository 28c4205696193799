package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/waelchateur/ApkSignatureKill/apkzip"
	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/axml"
	"github.com/waelchateur/ApkSignatureKill/certcapture"
	"github.com/waelchateur/ApkSignatureKill/fault"
	"github.com/waelchateur/ApkSignatureKill/hook"
	"github.com/waelchateur/ApkSignatureKill/internal/apktest"
	"github.com/waelchateur/ApkSignatureKill/keys"
	"github.com/waelchateur/ApkSignatureKill/receipt"
)

func mustRun(t *testing.T, p *Pipeline, in Input) *Result {
	t.Helper()
	res, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestRun_InsertsApplication(t *testing.T) {
	cert := apktest.Certificate(t, "release")
	store := artifact.NewMemoryStore()
	p := New(Options{Store: store, VerifyManifest: true})

	res := mustRun(t, p, Input{
		Manifest:     apktest.Manifest("com.example.app", ""),
		Certificates: [][]byte{cert},
	})
	if res.Patch.Mode != axml.ModeInsert {
		t.Fatalf("Mode = %v, want insert", res.Patch.Mode)
	}
	if res.Patch.PackageName != "com.example.app" {
		t.Fatalf("PackageName = %q", res.Patch.PackageName)
	}
	if res.Hook.Super != "Landroid/app/Application;" {
		t.Fatalf("Super = %q", res.Hook.Super)
	}
	if err := VerifyManifest(res.Manifest, hook.DefaultHookClass); err != nil {
		t.Fatalf("VerifyManifest: %v", err)
	}
	if len(res.Artifacts) != 3 || store.Len() != 3 {
		t.Fatalf("artifacts = %v, stored %d", res.Artifacts, store.Len())
	}
	got, err := store.Get(context.Background(), res.Artifacts[ArtifactManifest])
	if err != nil {
		t.Fatalf("Get manifest: %v", err)
	}
	if !bytes.Equal(got, res.Manifest) {
		t.Fatalf("stored manifest differs from result")
	}
	if res.Receipt != nil {
		t.Fatalf("receipt produced without a signer")
	}
}

func TestRun_RewritesApplicationAndKeepsSuper(t *testing.T) {
	p := New(Options{HookClass: "com.example.hook.Hook", VerifyManifest: true})
	res := mustRun(t, p, Input{
		Manifest:     apktest.Manifest("com.example.app", ".App"),
		Certificates: [][]byte{apktest.Certificate(t, "release")},
	})
	if res.Patch.Mode != axml.ModeRewrite || res.Patch.OriginalApplication != ".App" {
		t.Fatalf("patch = %+v", res.Patch)
	}
	if res.Hook.Super != "Lcom/example/app/App;" {
		t.Fatalf("Super = %q", res.Hook.Super)
	}
	if res.Code.Class != "Lcom/example/hook/Hook;" {
		t.Fatalf("Class = %q", res.Code.Class)
	}
	// Without a store the identifiers are still computed.
	if want := artifact.IDString(res.Manifest); res.Artifacts[ArtifactManifest].String() != want {
		t.Fatalf("manifest id = %s, want %s", res.Artifacts[ArtifactManifest], want)
	}
}

func TestRun_HookCodeCarriesSignatures(t *testing.T) {
	chain := [][]byte{apktest.Certificate(t, "a"), apktest.Certificate(t, "b")}
	p := New(Options{})
	res := mustRun(t, p, Input{Manifest: apktest.Manifest("com.example.app", ""), Certificates: chain})

	found := false
	for _, s := range res.Code.Strings {
		if s == res.Signatures.Wrapped() {
			found = true
		}
	}
	if !found {
		t.Fatalf("encoded strings do not contain the signature text")
	}
	decoded, err := certcapture.Decode(res.Signatures.Raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 2 || !bytes.Equal(decoded[0], chain[0]) {
		t.Fatalf("captured chain does not round trip")
	}

	names := map[string]bool{}
	for _, m := range res.Code.Methods {
		names[m.Name] = true
		if len(m.Code) == 0 || len(m.Code)%2 != 0 {
			t.Fatalf("%s: code length %d", m.Name, len(m.Code))
		}
	}
	for _, want := range []string{"<clinit>", "<init>", "attachBaseContext"} {
		if !names[want] {
			t.Fatalf("missing method %s in %v", want, names)
		}
	}

	var back HookCode
	if err := json.Unmarshal(hookCodeJSON(t, res), &back); err != nil {
		t.Fatalf("hook code artifact is not JSON: %v", err)
	}
	if back.Class != res.Code.Class || len(back.Methods) != len(res.Code.Methods) {
		t.Fatalf("artifact hook code = %+v", back)
	}
}

func hookCodeJSON(t *testing.T, res *Result) []byte {
	t.Helper()
	data, err := json.Marshal(res.Code)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := artifact.Check(res.Artifacts[ArtifactHookCode], data); err != nil {
		t.Fatalf("hook code id: %v", err)
	}
	return data
}

func TestRun_SignedReceipt(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, keys.SeedSize)
	signer, err := keys.NewSigner(keys.AlgEd25519, seed)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	store := artifact.NewMemoryStore()
	p := New(Options{Store: store, Signer: signer})
	manifest := apktest.Manifest("com.example.app", ".App")
	res := mustRun(t, p, Input{
		Manifest:     manifest,
		Certificates: [][]byte{apktest.Certificate(t, "release")},
		Source:       "app.apk",
	})
	if res.Receipt == nil {
		t.Fatalf("no receipt")
	}
	r, err := receipt.Verify(res.Receipt)
	if err != nil {
		t.Fatalf("receipt.Verify: %v", err)
	}
	if r.Input["Source"] != "app.apk" || r.Input["Package"] != "com.example.app" {
		t.Fatalf("receipt input = %v", r.Input)
	}
	if r.Input["Manifest-CID"] != artifact.IDString(manifest) {
		t.Fatalf("input manifest id = %s", r.Input["Manifest-CID"])
	}
	if r.Output["Manifest-CID"] != res.Artifacts[ArtifactManifest].String() {
		t.Fatalf("output manifest id = %s", r.Output["Manifest-CID"])
	}
	if r.Output["Original-Application"] != ".App" || r.Output["Mode"] != "rewrite" {
		t.Fatalf("receipt output = %v", r.Output)
	}
	if ok, _ := store.Has(context.Background(), res.Artifacts[ArtifactReceipt]); !ok {
		t.Fatalf("receipt not stored")
	}
}

func TestRun_Failures(t *testing.T) {
	cert := apktest.Certificate(t, "release")
	tests := []struct {
		name string
		in   Input
		rule string
	}{
		{"no certificates", Input{Manifest: apktest.Manifest("com.example.app", "")}, "CERT-CAP-002"},
		{"truncated manifest", Input{Manifest: []byte{3, 0, 8, 0}, Certificates: [][]byte{cert}}, "AXML-HDR-002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := artifact.NewMemoryStore()
			_, err := New(Options{Store: store}).Run(context.Background(), tt.in)
			if err == nil {
				t.Fatalf("Run succeeded")
			}
			if got := fault.RuleID(err); got != tt.rule {
				t.Fatalf("RuleID = %q, want %q (%v)", got, tt.rule, err)
			}
			if store.Len() != 0 {
				t.Fatalf("failed run stored %d artifacts", store.Len())
			}
		})
	}
}

func TestVerifyManifest_WrongClass(t *testing.T) {
	m := apktest.Manifest("com.example.app", ".App")
	err := VerifyManifest(m, hook.DefaultHookClass)
	if fault.RuleID(err) != "PIPE-VERIFY-002" {
		t.Fatalf("VerifyManifest = %v", err)
	}
}

func TestRunAPK(t *testing.T) {
	apk := apktest.WriteAPK(t, map[string][]byte{
		apkzip.ManifestEntry:  apktest.Manifest("com.example.app", ""),
		"classes.dex":         []byte("dex"),
		"META-INF/CERT.RSA":   []byte("rsa"),
		"res/layout/main.xml": []byte("layout"),
	})
	var out bytes.Buffer
	p := New(Options{NativeLibrary: "kill"})
	res, err := p.RunAPK(context.Background(), APKInput{
		Path:            apk,
		Certificates:    [][]byte{apktest.Certificate(t, "release")},
		NativeLibraries: map[string][]byte{"arm64-v8a": []byte("elf")},
		HookDex:         []byte("hook dex"),
	}, &out)
	if err != nil {
		t.Fatalf("RunAPK: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}
	for _, want := range []string{apkzip.ManifestEntry, "classes.dex", "classes2.dex", "lib/arm64-v8a/libkill.so", "res/layout/main.xml"} {
		if files[want] == nil {
			t.Fatalf("missing %s in %v", want, files)
		}
	}
	if files["META-INF/CERT.RSA"] != nil {
		t.Fatalf("signature file survived")
	}
	rc, err := files[apkzip.ManifestEntry].Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	var manifest bytes.Buffer
	if _, err := manifest.ReadFrom(rc); err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if !bytes.Equal(manifest.Bytes(), res.Manifest) {
		t.Fatalf("archived manifest differs from result")
	}
}

func TestRunAPK_UnsignedWithoutCertificates(t *testing.T) {
	apk := apktest.WriteAPK(t, map[string][]byte{apkzip.ManifestEntry: apktest.Manifest("com.example.app", "")})
	_, err := New(Options{}).RunAPK(context.Background(), APKInput{Path: apk}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("RunAPK accepted an unsigned apk without certificates")
	}
	if k := fault.KindOf(err); k != fault.KindMalformedInput {
		t.Fatalf("Kind = %q (%v)", k, err)
	}
}
