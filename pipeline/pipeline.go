// Package pipeline runs one injection: patch the manifest, capture the
// signing certificates, build and encode the hook class, then record the
// outputs as artifacts with an optional signed receipt.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/apex/log"
	"github.com/avast/apkparser"
	"github.com/ipfs/go-cid"

	"github.com/waelchateur/ApkSignatureKill/artifact"
	"github.com/waelchateur/ApkSignatureKill/axml"
	"github.com/waelchateur/ApkSignatureKill/certcapture"
	"github.com/waelchateur/ApkSignatureKill/dex"
	"github.com/waelchateur/ApkSignatureKill/fault"
	"github.com/waelchateur/ApkSignatureKill/hook"
	"github.com/waelchateur/ApkSignatureKill/keys"
	"github.com/waelchateur/ApkSignatureKill/receipt"
)

// Version is recorded in receipts.
const Version = "0.3.0"

// Artifact names used in Result.Artifacts.
const (
	ArtifactManifest   = "manifest"
	ArtifactSignatures = "signatures"
	ArtifactHookCode   = "hook-code"
	ArtifactReceipt    = "receipt"
)

type Options struct {
	Profile       dex.Profile
	HookClass     string
	NativeLibrary string
	// Store receives every artifact when set.
	Store artifact.Store
	// Signer enables receipts.
	Signer  keys.Signer
	HashAlg string
	// VerifyManifest decodes the patched manifest with an independent
	// decoder and checks the application class.
	VerifyManifest bool
	Logger         log.Interface
}

type Pipeline struct {
	opts Options
	log  log.Interface
}

func New(opts Options) *Pipeline {
	if opts.Profile.API == 0 {
		opts.Profile = dex.DefaultProfile()
	}
	if opts.HookClass == "" {
		opts.HookClass = hook.DefaultHookClass
	}
	if opts.NativeLibrary == "" {
		opts.NativeLibrary = hook.DefaultNativeLibrary
	}
	if opts.HashAlg == "" {
		opts.HashAlg = "sha256"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Log
	}
	return &Pipeline{opts: opts, log: logger}
}

type Input struct {
	// Manifest is the compiled AndroidManifest.xml.
	Manifest []byte
	// Certificates is the DER chain to replay, leaf first.
	Certificates [][]byte
	// Source names the input in receipts; optional.
	Source string
}

// EncodedMethod is one hook method after encoding.
type EncodedMethod struct {
	Class       string `json:"class"`
	Name        string `json:"name"`
	Proto       string `json:"proto"`
	AccessFlags uint32 `json:"access_flags"`
	Registers   int    `json:"registers"`
	Ins         int    `json:"ins"`
	Outs        int    `json:"outs"`
	Code        []byte `json:"code"`
}

// HookCode is the encoded hook class handed to the container writer.
type HookCode struct {
	API            int             `json:"api"`
	Class          string          `json:"class"`
	Super          string          `json:"super"`
	SignatureField string          `json:"signature_field"`
	Native         string          `json:"native"`
	Strings        []string        `json:"strings"`
	Types          []string        `json:"types"`
	Methods        []EncodedMethod `json:"methods"`
}

type Result struct {
	Manifest   []byte
	Patch      *axml.PatchResult
	Signatures *certcapture.Blob
	Hook       *hook.Program
	Code       *HookCode
	// Artifacts maps artifact names to their identifiers. Identifiers are
	// computed even without a store.
	Artifacts map[string]cid.Cid
	Receipt   []byte
}

// Run performs one injection. Nothing is stored unless every stage
// succeeds.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	blob, err := certcapture.Capture(in.Certificates)
	if err != nil {
		return nil, fmt.Errorf("pipeline: capture certificates: %w", err)
	}
	p.log.WithFields(log.Fields{"certs": len(in.Certificates), "bytes": len(blob.Raw)}).Debug("captured certificates")

	m, err := axml.Parse(in.Manifest)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse manifest: %w", err)
	}
	patch, err := axml.InjectApplication(m, p.opts.HookClass)
	if err != nil {
		return nil, fmt.Errorf("pipeline: patch manifest: %w", err)
	}
	out := m.Bytes()
	p.log.WithFields(log.Fields{
		"package":  patch.PackageName,
		"mode":     patch.Mode.String(),
		"original": patch.OriginalApplication,
		"bytes":    len(out),
	}).Info("patched manifest")

	if p.opts.VerifyManifest {
		if err := VerifyManifest(out, p.opts.HookClass); err != nil {
			return nil, err
		}
	}

	super := hook.DefaultSuperClass
	if patch.OriginalApplication != "" {
		if super, err = hook.QualifyClassName(patch.PackageName, patch.OriginalApplication); err != nil {
			return nil, fmt.Errorf("pipeline: original application: %w", err)
		}
	}
	prog, err := hook.Build(hook.Params{
		HookClass:     p.opts.HookClass,
		SuperClass:    super,
		NativeLibrary: p.opts.NativeLibrary,
		Signatures:    blob.Wrapped(),
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: build hook: %w", err)
	}
	code, err := p.encode(prog)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Manifest:   out,
		Patch:      patch,
		Signatures: blob,
		Hook:       prog,
		Code:       code,
		Artifacts:  map[string]cid.Cid{},
	}
	codeJSON, err := json.Marshal(code)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "PIPE-CODE-001", "serialize hook code", err)
	}
	payloads := map[string][]byte{
		ArtifactManifest:   out,
		ArtifactSignatures: blob.Raw,
		ArtifactHookCode:   codeJSON,
	}
	for _, name := range []string{ArtifactManifest, ArtifactSignatures, ArtifactHookCode} {
		if res.Artifacts[name], err = p.put(ctx, name, payloads[name]); err != nil {
			return nil, err
		}
	}

	if p.opts.Signer != nil {
		doc := p.receiptDocument(in, res)
		if res.Receipt, err = receipt.Sign(doc, p.opts.Signer, p.opts.HashAlg); err != nil {
			return nil, fmt.Errorf("pipeline: sign receipt: %w", err)
		}
		if res.Artifacts[ArtifactReceipt], err = p.put(ctx, ArtifactReceipt, res.Receipt); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (p *Pipeline) encode(prog *hook.Program) (*HookCode, error) {
	enc := dex.NewEncoder(p.opts.Profile, prog.Tables)
	code := &HookCode{
		API:            p.opts.Profile.API,
		Class:          prog.Class,
		Super:          prog.Super,
		SignatureField: prog.SignatureField.String(),
		Native:         prog.Native.String(),
	}
	for _, s := range prog.Tables.Strings.Items() {
		code.Strings = append(code.Strings, string(s))
	}
	for _, t := range prog.Tables.Types.Items() {
		code.Types = append(code.Types, string(t))
	}
	for _, m := range prog.Methods {
		w := dex.NewCodeWriter(0)
		if err := enc.EncodeAll(w, m.Code); err != nil {
			return nil, fmt.Errorf("pipeline: encode %s: %w", m.Ref, err)
		}
		code.Methods = append(code.Methods, EncodedMethod{
			Class:       m.Ref.Class,
			Name:        m.Ref.Name,
			Proto:       m.Ref.Proto,
			AccessFlags: m.AccessFlags,
			Registers:   m.Registers,
			Ins:         m.Ins,
			Outs:        m.Outs,
			Code:        w.Bytes(),
		})
		p.log.WithFields(log.Fields{"method": m.Ref.Name, "units": w.CodeUnits()}).Debug("encoded method")
	}
	return code, nil
}

func (p *Pipeline) put(ctx context.Context, name string, data []byte) (cid.Cid, error) {
	if p.opts.Store == nil {
		return artifact.ID(data)
	}
	id, err := p.opts.Store.Put(ctx, data)
	if err != nil {
		return cid.Undef, fmt.Errorf("pipeline: store %s: %w", name, err)
	}
	p.log.WithFields(log.Fields{"artifact": name, "cid": id.String(), "bytes": len(data)}).Debug("stored artifact")
	return id, nil
}

func (p *Pipeline) receiptDocument(in Input, res *Result) receipt.Document {
	input := map[string]string{
		"Manifest-CID": artifact.IDString(in.Manifest),
		"Certificates": strconv.Itoa(len(in.Certificates)),
	}
	for i, fp := range certcapture.Fingerprints(in.Certificates) {
		input[fmt.Sprintf("Certificate-%d-SHA256", i+1)] = fp
	}
	if res.Patch.PackageName != "" {
		input["Package"] = res.Patch.PackageName
	}
	if in.Source != "" {
		input["Source"] = in.Source
	}
	output := map[string]string{
		"Mode":           res.Patch.Mode.String(),
		"Hook-Class":     p.opts.HookClass,
		"Super-Class":    res.Hook.Super,
		"Native-Library": p.opts.NativeLibrary,
		"API-Level":      strconv.Itoa(p.opts.Profile.API),
	}
	if res.Patch.OriginalApplication != "" {
		output["Original-Application"] = res.Patch.OriginalApplication
	}
	for name, id := range res.Artifacts {
		output[artifactKey(name)] = id.String()
	}
	return receipt.Document{
		Meta:   map[string]string{"Version": "1", "Generator": "apkhook/" + Version},
		Input:  input,
		Output: output,
	}
}

func artifactKey(name string) string {
	switch name {
	case ArtifactManifest:
		return "Manifest-CID"
	case ArtifactSignatures:
		return "Signatures-CID"
	case ArtifactHookCode:
		return "Hook-Code-CID"
	default:
		return name + "-CID"
	}
}

type decodedManifest struct {
	XMLName     xml.Name `xml:"manifest"`
	Package     string   `xml:"package,attr"`
	Application struct {
		Name string `xml:"name,attr"`
	} `xml:"application"`
}

// VerifyManifest decodes data with an independent decoder and checks that
// the application element names class.
func VerifyManifest(data []byte, class string) error {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := apkparser.ParseXml(bytes.NewReader(data), enc, nil); err != nil {
		return fault.Wrap(fault.KindInternal, "PIPE-VERIFY-001", "patched manifest does not decode", err)
	}
	if err := enc.Flush(); err != nil {
		return fault.Wrap(fault.KindInternal, "PIPE-VERIFY-001", "patched manifest does not decode", err)
	}
	var m decodedManifest
	if err := xml.Unmarshal(buf.Bytes(), &m); err != nil {
		return fault.Wrap(fault.KindInternal, "PIPE-VERIFY-001", "patched manifest does not decode", err)
	}
	if m.Application.Name != class {
		return fault.Newf(fault.KindInternal, "PIPE-VERIFY-002",
			"decoded application class %q, want %q", m.Application.Name, class)
	}
	return nil
}
