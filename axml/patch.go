package axml

import (
	"github.com/waelchateur/ApkSignatureKill/fault"
)

// NameAttrID is the framework resource id of android:name.
const NameAttrID = 0x01010003

// AndroidNamespace is the URI bound to the android: prefix.
const AndroidNamespace = "http://schemas.android.com/apk/res/android"

// Mode says how InjectApplication placed the hook class.
type Mode int

const (
	// ModeRewrite retargeted an existing android:name attribute.
	ModeRewrite Mode = iota + 1
	// ModeInsert spliced a new android:name attribute into the tag.
	ModeInsert
)

func (m Mode) String() string {
	switch m {
	case ModeRewrite:
		return "rewrite"
	case ModeInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// PatchResult describes a successful InjectApplication.
type PatchResult struct {
	Mode        Mode
	PackageName string
	// OriginalApplication is the previous android:name value, empty in
	// ModeInsert.
	OriginalApplication string
	// NameIndex is the string index the hook class was appended at.
	NameIndex uint32
	// AttributeIndex is the position of the android:name record within the
	// application tag.
	AttributeIndex int
}

// InjectApplication points the application element's android:name at
// hookClass. The class string is appended to the pool; an existing
// android:name is rewritten in place, otherwise a new attribute record is
// inserted so that the attribute array stays sorted by resource id.
//
// m is only modified when the call succeeds.
func InjectApplication(m *Manifest, hookClass string) (*PatchResult, error) {
	if hookClass == "" {
		return nil, fault.New(fault.KindMalformedInput, "AXML-APP-002", "empty hook class name")
	}
	var (
		res   PatchResult
		app   Element
		found bool
	)
	err := m.Walk(func(el Element) bool {
		name, _ := m.String(el.Name)
		switch {
		case el.Depth == 1 && name == "manifest":
			res.PackageName = packageName(m, el)
		case el.Depth == 2 && name == "application":
			app, found = el, true
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fault.New(fault.KindMalformedInput, "AXML-APP-001", "manifest has no application element")
	}

	if err := checkSortedIDs(app); err != nil {
		return nil, err
	}
	newIndex := uint32(m.Pool.Size())
	res.NameIndex = newIndex

	pos := -1
	for i, a := range app.Attributes {
		if a.ResourceID == NameAttrID {
			pos = i
			break
		}
	}

	var data []byte
	if pos >= 0 {
		res.Mode = ModeRewrite
		res.AttributeIndex = pos
		orig, ok := m.Value(app.Attributes[pos])
		if !ok || app.Attributes[pos].Type != TypeString {
			return nil, fault.At(fault.KindMalformedInput, "AXML-ATTR-003", app.AttributeStart+pos*app.AttributeSize,
				"application android:name is not a string (type 0x%02x)", app.Attributes[pos].Type)
		}
		res.OriginalApplication = orig
		data = rewriteName(m.data, app, pos, newIndex)
	} else {
		anchor := m.FindResourceID(NameAttrID)
		if anchor < 0 {
			return nil, fault.Newf(fault.KindMalformedInput, "AXML-ATTR-001",
				"resource map has no entry for android:name (0x%08x)", NameAttrID)
		}
		ns := uint32(noIndex)
		if i, ok := m.Pool.Find(AndroidNamespace); ok {
			ns = uint32(i)
		}
		res.Mode = ModeInsert
		data, res.AttributeIndex, err = insertName(m.data, app, ns, uint32(anchor), newIndex)
		if err != nil {
			return nil, err
		}
	}

	idx, err := m.Pool.Append(hookClass)
	if err != nil {
		return nil, err
	}
	if uint32(idx) != newIndex {
		return nil, fault.Newf(fault.KindInternal, "AXML-POOL-011", "pool appended at %d, expected %d", idx, newIndex)
	}
	m.data = data
	return &res, nil
}

func packageName(m *Manifest, el Element) string {
	for _, a := range el.Attributes {
		if a.ResourceID != 0 {
			continue
		}
		if n, _ := m.String(a.Name); n == "package" {
			v, _ := m.Value(a)
			return v
		}
	}
	return ""
}

// checkSortedIDs rejects tags whose resource ids are not strictly ascending,
// since the insertion point would be ambiguous. Attributes without a
// resource id sort before all others and are skipped.
func checkSortedIDs(el Element) error {
	var prev uint32
	for i, a := range el.Attributes {
		if a.ResourceID == 0 {
			continue
		}
		if a.ResourceID <= prev {
			return fault.At(fault.KindMalformedInput, "AXML-ATTR-002", el.AttributeStart+i*el.AttributeSize,
				"application attribute %d resource id 0x%08x not above previous 0x%08x", i, a.ResourceID, prev)
		}
		prev = a.ResourceID
	}
	return nil
}

func rewriteName(data []byte, el Element, pos int, newIndex uint32) []byte {
	out := append([]byte(nil), data...)
	rec := out[el.AttributeStart+pos*el.AttributeSize:]
	le.PutUint32(rec[attrRawValue:], newIndex)
	le.PutUint32(rec[attrTypedSize:], stringTypedValue)
	le.PutUint32(rec[attrData:], newIndex)
	return out
}

// insertName grows the start tag at el by one attribute record and returns
// the new node stream along with the record's position.
func insertName(data []byte, el Element, ns, name, newIndex uint32) ([]byte, int, error) {
	if el.AttributeStart-el.Offset != elemAttributes || (len(el.Attributes) > 0 && el.AttributeSize != attributeSize) {
		return nil, 0, fault.At(fault.KindMalformedInput, "AXML-ELEM-004", el.Offset,
			"application tag uses a non-standard attribute layout (start %d, size %d)",
			el.AttributeStart-el.Offset, el.AttributeSize)
	}
	count := len(el.Attributes)
	if count+1 > 0xFFFF {
		return nil, 0, fault.At(fault.KindCapacityExceeded, "AXML-ELEM-005", el.Offset+elemAttrCount,
			"application tag already has %d attributes", count)
	}

	pos := count
	for i, a := range el.Attributes {
		if a.ResourceID > NameAttrID {
			pos = i
			break
		}
	}

	off := el.AttributeStart
	out := make([]byte, len(data)+attributeSize)
	copy(out, data[:off])
	copy(out[off+attributeSize:], data[off:])

	// The existing records now start one slot later; move the first pos of
	// them back so the free slot lands at pos.
	copy(out[off:], out[off+attributeSize:off+attributeSize+pos*attributeSize])

	chunk := out[el.Offset:]
	le.PutUint32(chunk[elemChunkSize:], le.Uint32(chunk[elemChunkSize:])+attributeSize)
	le.PutUint16(chunk[elemAttrSize:], attributeSize)
	le.PutUint16(chunk[elemAttrCount:], uint16(count+1))
	for _, field := range []int{elemIDIndex, elemClassIndex, elemStyleIndex} {
		// 1-based; 0 means the tag has no such attribute.
		if v := int(le.Uint16(chunk[field:])); v != 0 && v-1 >= pos {
			le.PutUint16(chunk[field:], uint16(v+1))
		}
	}

	rec := out[off+pos*attributeSize : off+(pos+1)*attributeSize]
	le.PutUint32(rec[attrNamespace:], ns)
	le.PutUint32(rec[attrName:], name)
	le.PutUint32(rec[attrRawValue:], newIndex)
	le.PutUint32(rec[attrTypedSize:], stringTypedValue)
	le.PutUint32(rec[attrData:], newIndex)
	return out, pos, nil
}
