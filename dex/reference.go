package dex

import (
	"strings"

	"github.com/waelchateur/ApkSignatureKill/fault"
)

// ReferenceKind says which index table an instruction operand points into.
type ReferenceKind uint8

const (
	RefNone ReferenceKind = iota
	RefString
	RefType
	RefField
	RefMethod
	RefMethodProto
	// RefCallSite and RefMethodHandle appear in opcode metadata but have no
	// table here.
	RefCallSite
	RefMethodHandle
)

func (k ReferenceKind) String() string {
	switch k {
	case RefNone:
		return "none"
	case RefString:
		return "string"
	case RefType:
		return "type"
	case RefField:
		return "field"
	case RefMethod:
		return "method"
	case RefMethodProto:
		return "method-proto"
	case RefCallSite:
		return "call-site"
	case RefMethodHandle:
		return "method-handle"
	default:
		return "unknown"
	}
}

// Reference is a symbolic operand. The concrete types are comparable so they
// can key the interning tables.
type Reference interface {
	Kind() ReferenceKind
}

type StringRef string

// TypeRef is a type descriptor such as "Ljava/lang/String;" or "[I".
type TypeRef string

type FieldRef struct {
	Class string // declaring type descriptor
	Name  string
	Type  string // field type descriptor
}

type MethodRef struct {
	Class string
	Name  string
	Proto string // method descriptor, e.g. "(Landroid/content/Context;)V"
}

type ProtoRef struct {
	Descriptor string
}

func (StringRef) Kind() ReferenceKind { return RefString }
func (TypeRef) Kind() ReferenceKind   { return RefType }
func (FieldRef) Kind() ReferenceKind  { return RefField }
func (MethodRef) Kind() ReferenceKind { return RefMethod }
func (ProtoRef) Kind() ReferenceKind  { return RefMethodProto }

func (f FieldRef) String() string  { return f.Class + "->" + f.Name + ":" + f.Type }
func (m MethodRef) String() string { return m.Class + "->" + m.Name + m.Proto }

// SplitProto splits a method descriptor into parameter and return type
// descriptors.
func SplitProto(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fault.Newf(fault.KindMalformedInput, "DEX-PROTO-001", "method descriptor %q does not start with (", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := typeLen(desc[i:])
		if err != nil {
			return nil, "", fault.Wrap(fault.KindMalformedInput, "DEX-PROTO-002", "method descriptor "+desc, err)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fault.Newf(fault.KindMalformedInput, "DEX-PROTO-003", "method descriptor %q is missing )", desc)
	}
	ret = desc[i+1:]
	if ret == "V" {
		return params, ret, nil
	}
	if n, err := typeLen(ret); err != nil || n != len(ret) {
		return nil, "", fault.Newf(fault.KindMalformedInput, "DEX-PROTO-004", "method descriptor %q has bad return type", desc)
	}
	return params, ret, nil
}

// Shorty returns the short-form descriptor the proto table stores: one
// character per type, reference types collapsed to L.
func Shorty(desc string) (string, error) {
	params, ret, err := SplitProto(desc)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteByte(shortyChar(ret))
	for _, p := range params {
		sb.WriteByte(shortyChar(p))
	}
	return sb.String(), nil
}

// RegisterWords returns how many registers the parameters of desc take,
// wide types counting twice.
func RegisterWords(desc string) (int, error) {
	params, _, err := SplitProto(desc)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range params {
		if p == "J" || p == "D" {
			n += 2
		} else {
			n++
		}
	}
	return n, nil
}

func shortyChar(t string) byte {
	if t[0] == 'L' || t[0] == '[' {
		return 'L'
	}
	return t[0]
}

func typeLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fault.New(fault.KindMalformedInput, "DEX-PROTO-005", "truncated type descriptor")
	}
	switch s[i] {
	case 'Z', 'B', 'S', 'C', 'I', 'J', 'F', 'D':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, fault.Newf(fault.KindMalformedInput, "DEX-PROTO-005", "unterminated class descriptor %q", s)
		}
		return i + end + 1, nil
	default:
		return 0, fault.Newf(fault.KindMalformedInput, "DEX-PROTO-005", "bad type descriptor %q", s)
	}
}
