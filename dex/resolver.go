package dex

import (
	"cmp"
	"slices"
	"unicode/utf16"

	"github.com/waelchateur/ApkSignatureKill/fault"
)

// SymbolResolver maps a symbolic reference to its index in the
// corresponding table of the output container.
type SymbolResolver interface {
	Resolve(kind ReferenceKind, ref Reference) (uint32, error)
}

// Tables holds the five index tables of a code section. Interning a
// composite reference also interns the strings and types it names, so the
// tables are always closed.
type Tables struct {
	Strings *Table[StringRef]
	Types   *Table[TypeRef]
	Fields  *Table[FieldRef]
	Methods *Table[MethodRef]
	Protos  *Table[ProtoRef]
}

func NewTables() *Tables {
	return &Tables{
		Strings: NewTable[StringRef](),
		Types:   NewTable[TypeRef](),
		Fields:  NewTable[FieldRef](),
		Methods: NewTable[MethodRef](),
		Protos:  NewTable[ProtoRef](),
	}
}

func (t *Tables) InternString(s string) uint32 { return t.Strings.Intern(StringRef(s)) }

func (t *Tables) InternType(desc string) uint32 {
	t.InternString(desc)
	return t.Types.Intern(TypeRef(desc))
}

func (t *Tables) InternProto(desc string) (uint32, error) {
	params, ret, err := SplitProto(desc)
	if err != nil {
		return 0, err
	}
	shorty, err := Shorty(desc)
	if err != nil {
		return 0, err
	}
	t.InternString(shorty)
	t.InternType(ret)
	for _, p := range params {
		t.InternType(p)
	}
	return t.Protos.Intern(ProtoRef{Descriptor: desc}), nil
}

func (t *Tables) InternField(f FieldRef) uint32 {
	t.InternType(f.Class)
	t.InternType(f.Type)
	t.InternString(f.Name)
	return t.Fields.Intern(f)
}

func (t *Tables) InternMethod(m MethodRef) (uint32, error) {
	if _, err := t.InternProto(m.Proto); err != nil {
		return 0, err
	}
	t.InternType(m.Class)
	t.InternString(m.Name)
	return t.Methods.Intern(m), nil
}

// Resolve implements SymbolResolver. The tables are only read.
func (t *Tables) Resolve(kind ReferenceKind, ref Reference) (uint32, error) {
	var (
		idx uint32
		ok  bool
	)
	switch kind {
	case RefString:
		r, isKind := ref.(StringRef)
		if !isKind {
			return 0, wrongRef(kind, ref)
		}
		idx, ok = t.Strings.ItemIndex(r)
	case RefType:
		r, isKind := ref.(TypeRef)
		if !isKind {
			return 0, wrongRef(kind, ref)
		}
		idx, ok = t.Types.ItemIndex(r)
	case RefField:
		r, isKind := ref.(FieldRef)
		if !isKind {
			return 0, wrongRef(kind, ref)
		}
		idx, ok = t.Fields.ItemIndex(r)
	case RefMethod:
		r, isKind := ref.(MethodRef)
		if !isKind {
			return 0, wrongRef(kind, ref)
		}
		idx, ok = t.Methods.ItemIndex(r)
	case RefMethodProto:
		r, isKind := ref.(ProtoRef)
		if !isKind {
			return 0, wrongRef(kind, ref)
		}
		idx, ok = t.Protos.ItemIndex(r)
	default:
		return 0, fault.Newf(fault.KindUnsupportedOperand, "DEX-REF-001", "unknown reference type: %s", kind)
	}
	if !ok {
		return 0, fault.Newf(fault.KindMalformedInput, "DEX-REF-003", "%s reference %v is not interned", kind, ref)
	}
	return idx, nil
}

func wrongRef(kind ReferenceKind, ref Reference) error {
	got := "nil"
	if ref != nil {
		got = ref.Kind().String()
	}
	return fault.Newf(fault.KindUnsupportedOperand, "DEX-REF-002", "expected a %s reference, got %s", kind, got)
}

// Sort puts every table in container order: strings by UTF-16 code units,
// types by string index, protos by return type then parameters, fields and
// methods by class, name, then type or proto.
func (t *Tables) Sort() {
	t.Strings.SortFunc(func(a, b StringRef) int {
		return slices.Compare(utf16.Encode([]rune(string(a))), utf16.Encode([]rune(string(b))))
	})
	str := func(s string) uint32 { i, _ := t.Strings.ItemIndex(StringRef(s)); return i }
	t.Types.SortFunc(func(a, b TypeRef) int { return cmp.Compare(str(string(a)), str(string(b))) })

	typ := func(s string) uint32 { i, _ := t.Types.ItemIndex(TypeRef(s)); return i }
	t.Protos.SortFunc(func(a, b ProtoRef) int {
		pa, ra, _ := SplitProto(a.Descriptor)
		pb, rb, _ := SplitProto(b.Descriptor)
		if c := cmp.Compare(typ(ra), typ(rb)); c != 0 {
			return c
		}
		return slices.CompareFunc(pa, pb, func(x, y string) int { return cmp.Compare(typ(x), typ(y)) })
	})
	proto := func(s string) uint32 { i, _ := t.Protos.ItemIndex(ProtoRef{Descriptor: s}); return i }
	t.Fields.SortFunc(func(a, b FieldRef) int {
		return cmp.Or(
			cmp.Compare(typ(a.Class), typ(b.Class)),
			cmp.Compare(str(a.Name), str(b.Name)),
			cmp.Compare(typ(a.Type), typ(b.Type)),
		)
	})
	t.Methods.SortFunc(func(a, b MethodRef) int {
		return cmp.Or(
			cmp.Compare(typ(a.Class), typ(b.Class)),
			cmp.Compare(str(a.Name), str(b.Name)),
			cmp.Compare(proto(a.Proto), proto(b.Proto)),
		)
	})
}
