// Package hook lays out the replacement Application class that the patched
// manifest points at. The class stores the captured signing certificates,
// loads the native hook library and hands it the context before delegating
// to the original Application.
//
// Equivalent smali:
//
//	.class public L<hook>;
//	.super L<super>;
//	.field private static signatures:Ljava/lang/String;
//
//	.method static constructor <clinit>()V
//	    const-string v0, "<certificate blob>"
//	    sput-object v0, L<hook>;->signatures:Ljava/lang/String;
//	    return-void
//
//	.method public constructor <init>()V
//	    invoke-direct {p0}, L<super>;-><init>()V
//	    return-void
//
//	.method protected attachBaseContext(Landroid/content/Context;)V
//	    const-string v0, "<native library>"
//	    invoke-static {v0}, Ljava/lang/System;->loadLibrary(Ljava/lang/String;)V
//	    sget-object v1, L<hook>;->signatures:Ljava/lang/String;
//	    invoke-static {p1, v1}, L<hook>;->hook(Landroid/content/Context;Ljava/lang/String;)V
//	    invoke-super {p0, p1}, L<super>;->attachBaseContext(Landroid/content/Context;)V
//	    return-void
package hook

import (
	"strings"

	"github.com/waelchateur/ApkSignatureKill/dex"
	"github.com/waelchateur/ApkSignatureKill/fault"
)

const (
	DefaultHookClass     = "bin.mt.apksignaturekillerplus.HookApplication"
	DefaultSuperClass    = "android.app.Application"
	DefaultNativeLibrary = "mthook"
)

// Access flags used by the hook class.
const (
	AccPublic      = 0x0001
	AccPrivate     = 0x0002
	AccProtected   = 0x0004
	AccStatic      = 0x0008
	AccNative      = 0x0100
	AccConstructor = 0x10000

	// NativeAccessFlags are the flags of Program.Native.
	NativeAccessFlags = AccPrivate | AccStatic | AccNative
)

const (
	contextType   = "Landroid/content/Context;"
	stringType    = "Ljava/lang/String;"
	signatureName = "signatures"
	nativeName    = "hook"
)

type Params struct {
	HookClass     string // dotted class name
	SuperClass    string // dotted class name
	NativeLibrary string
	// Signatures is the text stored in the signatures field, normally
	// certcapture.Blob.Wrapped.
	Signatures string
	// Tables, when set, receives the references instead of a fresh set, so
	// the class can join an existing code section.
	Tables *dex.Tables
}

type Method struct {
	Ref         dex.MethodRef
	AccessFlags uint32
	Registers   int
	Ins         int
	Outs        int
	Code        []dex.Instruction
}

type Program struct {
	Class          string // type descriptor
	Super          string // type descriptor
	AccessFlags    uint32
	SignatureField dex.FieldRef
	// Native is declared without code; the hook library registers it.
	Native  dex.MethodRef
	Methods []Method
	Tables  *dex.Tables
}

// QualifyClassName resolves a manifest class name against the package:
// ".Foo" and "Foo" become "pkg.Foo", dotted names are returned as is.
func QualifyClassName(pkg, name string) (string, error) {
	if name == "" {
		return "", fault.New(fault.KindMalformedInput, "HOOK-NAME-001", "empty class name")
	}
	relative := strings.HasPrefix(name, ".") || !strings.Contains(name, ".")
	if !relative {
		return name, nil
	}
	if pkg == "" {
		return "", fault.Newf(fault.KindMalformedInput, "HOOK-NAME-002", "relative class name %q without a package name", name)
	}
	if strings.HasPrefix(name, ".") {
		return pkg + name, nil
	}
	return pkg + "." + name, nil
}

// Descriptor turns a dotted class name into a type descriptor.
func Descriptor(className string) string {
	return "L" + strings.ReplaceAll(className, ".", "/") + ";"
}

func (p Params) withDefaults() Params {
	if p.HookClass == "" {
		p.HookClass = DefaultHookClass
	}
	if p.SuperClass == "" {
		p.SuperClass = DefaultSuperClass
	}
	if p.NativeLibrary == "" {
		p.NativeLibrary = DefaultNativeLibrary
	}
	if p.Tables == nil {
		p.Tables = dex.NewTables()
	}
	return p
}

// Build interns every reference of the hook class, sorts the tables and
// returns the class with its method bodies.
func Build(p Params) (*Program, error) {
	p = p.withDefaults()
	if p.Signatures == "" {
		return nil, fault.New(fault.KindMalformedInput, "HOOK-BUILD-001", "no signatures to embed")
	}
	if strings.ContainsAny(p.HookClass+p.SuperClass, "/;") {
		return nil, fault.Newf(fault.KindMalformedInput, "HOOK-BUILD-002",
			"class names must be dotted: %q, %q", p.HookClass, p.SuperClass)
	}

	self := dex.TypeRef(Descriptor(p.HookClass))
	super := dex.TypeRef(Descriptor(p.SuperClass))
	sig := dex.FieldRef{Class: string(self), Name: signatureName, Type: stringType}
	native := dex.MethodRef{Class: string(self), Name: nativeName, Proto: "(" + contextType + stringType + ")V"}
	loadLibrary := dex.MethodRef{Class: "Ljava/lang/System;", Name: "loadLibrary", Proto: "(" + stringType + ")V"}
	clinit := dex.MethodRef{Class: string(self), Name: "<clinit>", Proto: "()V"}
	selfInit := dex.MethodRef{Class: string(self), Name: "<init>", Proto: "()V"}
	superInit := dex.MethodRef{Class: string(super), Name: "<init>", Proto: "()V"}
	attach := dex.MethodRef{Class: string(self), Name: "attachBaseContext", Proto: "(" + contextType + ")V"}
	superAttach := dex.MethodRef{Class: string(super), Name: "attachBaseContext", Proto: attach.Proto}

	t := p.Tables
	t.InternType(string(self))
	t.InternType(string(super))
	t.InternString(p.Signatures)
	t.InternString(p.NativeLibrary)
	t.InternField(sig)
	for _, m := range []dex.MethodRef{native, loadLibrary, clinit, selfInit, superInit, attach, superAttach} {
		if _, err := t.InternMethod(m); err != nil {
			return nil, err
		}
	}
	t.Sort()

	prog := &Program{
		Class:          string(self),
		Super:          string(super),
		AccessFlags:    AccPublic,
		SignatureField: sig,
		Native:         native,
		Tables:         t,
	}

	// attachBaseContext: v0, v1 locals; p0 = v2, p1 = v3.
	prog.Methods = []Method{
		{
			Ref:         clinit,
			AccessFlags: AccStatic | AccConstructor,
			Registers:   1,
			Code: []dex.Instruction{
				constString(t, 0, p.Signatures),
				dex.Insn21c{Op: dex.OpSputObject, A: 0, Ref: sig},
				dex.Insn10x{Op: dex.OpReturnVoid},
			},
		},
		{
			Ref:         selfInit,
			AccessFlags: AccPublic | AccConstructor,
			Registers:   1,
			Ins:         1,
			Outs:        1,
			Code: []dex.Instruction{
				dex.Insn35c{Op: dex.OpInvokeDirect, Registers: []int{0}, Ref: superInit},
				dex.Insn10x{Op: dex.OpReturnVoid},
			},
		},
		{
			Ref:         attach,
			AccessFlags: AccProtected,
			Registers:   4,
			Ins:         2,
			Outs:        2,
			Code: []dex.Instruction{
				constString(t, 0, p.NativeLibrary),
				dex.Insn35c{Op: dex.OpInvokeStatic, Registers: []int{0}, Ref: loadLibrary},
				dex.Insn21c{Op: dex.OpSgetObject, A: 1, Ref: sig},
				dex.Insn35c{Op: dex.OpInvokeStatic, Registers: []int{3, 1}, Ref: native},
				dex.Insn35c{Op: dex.OpInvokeSuper, Registers: []int{2, 3}, Ref: superAttach},
				dex.Insn10x{Op: dex.OpReturnVoid},
			},
		},
	}
	return prog, nil
}

// constString picks the jumbo form once the string index outgrows 16 bits.
func constString(t *dex.Tables, reg int, s string) dex.Instruction {
	if idx, _ := t.Strings.ItemIndex(dex.StringRef(s)); idx > 0xFFFF {
		return dex.Insn31c{Op: dex.OpConstStringJumbo, A: reg, Ref: dex.StringRef(s)}
	}
	return dex.Insn21c{Op: dex.OpConstString, A: reg, Ref: dex.StringRef(s)}
}
