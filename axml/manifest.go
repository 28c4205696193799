package axml

import (
	"github.com/waelchateur/ApkSignatureKill/fault"
)

// Manifest is a parsed compiled manifest. Only the string pool and the
// resource map are decoded; the node stream is kept as raw bytes and
// inspected through Walk.
type Manifest struct {
	Pool *StringPool
	// ResourceIDs maps string index i to the framework resource id of the
	// attribute name stored at that index.
	ResourceIDs []uint32

	// data holds every byte after the string pool chunk: the resource map
	// and the XML node chunks.
	data []byte
}

// Attribute is one 20-byte attribute record of a start tag.
type Attribute struct {
	Namespace uint32
	Name      uint32
	RawValue  uint32
	Type      uint8
	Data      uint32
	// ResourceID is the resource id of Name from the resource map, or 0.
	ResourceID uint32
}

// Element is a start tag as seen by Walk.
type Element struct {
	Namespace uint32
	Name      uint32
	// Offset is the chunk start relative to the node stream.
	Offset int
	// AttributeStart is the offset of the first attribute record relative
	// to the node stream.
	AttributeStart int
	AttributeSize  int
	Attributes     []Attribute
	// Depth is 1 for the root element.
	Depth int
}

// Parse decodes a compiled manifest. Any size field that disagrees with the
// buffer is reported as MalformedInput with the offending offset.
func Parse(b []byte) (*Manifest, error) {
	if len(b) < fileHeaderSize {
		return nil, fault.At(fault.KindMalformedInput, "AXML-HDR-002", 0,
			"%d bytes is too short for a compiled XML header", len(b))
	}
	if typ := le.Uint16(b); typ != chunkXML {
		return nil, fault.At(fault.KindMalformedInput, "AXML-HDR-001", 0,
			"not a compiled XML file: chunk type 0x%04x", typ)
	}
	if hs := le.Uint16(b[2:]); hs != fileHeaderSize {
		return nil, fault.At(fault.KindMalformedInput, "AXML-HDR-003", 2,
			"file header size %d, want %d", hs, fileHeaderSize)
	}
	if size := le.Uint32(b[4:]); uint64(size) != uint64(len(b)) {
		return nil, fault.At(fault.KindMalformedInput, "AXML-HDR-002", 4,
			"declared size %d does not match buffer length %d", size, len(b))
	}

	ph, err := readChunkHeader(b, fileHeaderSize, 0)
	if err != nil {
		return nil, err
	}
	pool, err := ParsePool(b[fileHeaderSize:fileHeaderSize+int(ph.size)], fileHeaderSize)
	if err != nil {
		return nil, err
	}
	dataStart := fileHeaderSize + int(ph.size)
	m := &Manifest{
		Pool: pool,
		data: append([]byte(nil), b[dataStart:]...),
	}
	if err := m.scan(dataStart); err != nil {
		return nil, err
	}
	return m, nil
}

// scan validates the framing of every chunk in the node stream and decodes
// the resource map. base is the stream's offset in the file.
func (m *Manifest) scan(base int) error {
	m.ResourceIDs = nil
	c := cursor{data: m.data}
	for !c.done() {
		h, at, err := c.next()
		if err != nil {
			return rebase(err, base)
		}
		switch h.typ {
		case chunkResourceMap:
			body := m.data[at+int(h.headerSize) : at+int(h.size)]
			if len(body)%4 != 0 {
				return fault.At(fault.KindMalformedInput, "AXML-RES-001", base+at,
					"resource map body of %d bytes is not a multiple of 4", len(body))
			}
			for i := 0; i < len(body); i += 4 {
				m.ResourceIDs = append(m.ResourceIDs, le.Uint32(body[i:]))
			}
		case chunkXMLStart:
			if _, err := decodeElement(m.data, at, h); err != nil {
				return rebase(err, base)
			}
		}
	}
	return nil
}

// Bytes re-serializes the manifest with freshly computed sizes.
func (m *Manifest) Bytes() []byte {
	pool := m.Pool.Bytes()
	total := fileHeaderSize + len(pool) + len(m.data)
	out := make([]byte, fileHeaderSize, total)
	putChunkHeader(out, chunkXML, fileHeaderSize, uint32(total))
	out = append(out, pool...)
	return append(out, m.data...)
}

// Walk calls fn for every start tag in document order until fn returns false.
func (m *Manifest) Walk(fn func(Element) bool) error {
	c := cursor{data: m.data}
	depth := 0
	for !c.done() {
		h, at, err := c.next()
		if err != nil {
			return err
		}
		switch h.typ {
		case chunkXMLStart:
			el, err := decodeElement(m.data, at, h)
			if err != nil {
				return err
			}
			depth++
			el.Depth = depth
			for i := range el.Attributes {
				el.Attributes[i].ResourceID = m.resourceID(el.Attributes[i].Name)
			}
			if !fn(el) {
				return nil
			}
		case chunkXMLEnd:
			depth--
		}
	}
	return nil
}

// Elements returns every start tag in document order.
func (m *Manifest) Elements() ([]Element, error) {
	var out []Element
	err := m.Walk(func(el Element) bool {
		out = append(out, el)
		return true
	})
	return out, err
}

// FindResourceID returns the string index whose resource id is id, or -1.
func (m *Manifest) FindResourceID(id uint32) int {
	for i, v := range m.ResourceIDs {
		if v == id {
			return i
		}
	}
	return -1
}

func (m *Manifest) resourceID(name uint32) uint32 {
	if uint64(name) < uint64(len(m.ResourceIDs)) {
		return m.ResourceIDs[name]
	}
	return 0
}

// String resolves a string index, reporting false for the no-string sentinel.
func (m *Manifest) String(ref uint32) (string, bool) {
	return m.Pool.lookup(ref)
}

// Value returns the string value of an attribute: the typed string data, or
// the raw value for records that keep one.
func (m *Manifest) Value(a Attribute) (string, bool) {
	if a.Type == TypeString {
		return m.Pool.lookup(a.Data)
	}
	return m.Pool.lookup(a.RawValue)
}

// cursor is the walk position over a node stream.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) done() bool { return c.off >= len(c.data) }

// next returns the header of the chunk at the cursor and its offset, then
// advances past it.
func (c *cursor) next() (chunkHeader, int, error) {
	at := c.off
	h, err := readChunkHeader(c.data, at, 0)
	if err != nil {
		return chunkHeader{}, at, err
	}
	c.off += int(h.size)
	return h, at, nil
}

func decodeElement(data []byte, at int, h chunkHeader) (Element, error) {
	if h.headerSize < nodeHeaderSize || h.size < minElementChunkLen {
		return Element{}, fault.At(fault.KindMalformedInput, "AXML-ELEM-001", at,
			"start tag chunk too small: header %d, size %d", h.headerSize, h.size)
	}
	ext := at + int(h.headerSize)
	if ext+20 > at+int(h.size) {
		return Element{}, fault.At(fault.KindMalformedInput, "AXML-ELEM-001", at,
			"start tag extension truncated")
	}
	attrStart := int(le.Uint16(data[ext+8:]))
	attrSize := int(le.Uint16(data[ext+10:]))
	count := int(le.Uint16(data[ext+12:]))
	el := Element{
		Namespace:      le.Uint32(data[ext:]),
		Name:           le.Uint32(data[ext+4:]),
		Offset:         at,
		AttributeStart: ext + attrStart,
		AttributeSize:  attrSize,
	}
	if count > 0 && attrSize < attributeSize {
		return Element{}, fault.At(fault.KindMalformedInput, "AXML-ELEM-002", at+elemAttrSize,
			"attribute record size %d smaller than %d", attrSize, attributeSize)
	}
	if el.AttributeStart+count*attrSize > at+int(h.size) {
		return Element{}, fault.At(fault.KindMalformedInput, "AXML-ELEM-003", at+elemAttrCount,
			"%d attributes of %d bytes overrun the start tag chunk", count, attrSize)
	}
	el.Attributes = make([]Attribute, count)
	for i := range el.Attributes {
		r := data[el.AttributeStart+i*attrSize:]
		el.Attributes[i] = Attribute{
			Namespace: le.Uint32(r[attrNamespace:]),
			Name:      le.Uint32(r[attrName:]),
			RawValue:  le.Uint32(r[attrRawValue:]),
			Type:      r[attrDataType],
			Data:      le.Uint32(r[attrData:]),
		}
	}
	return el, nil
}

// rebase shifts the offset of a structured error from stream-relative to
// file-relative.
func rebase(err error, base int) error {
	if e, ok := err.(*fault.Error); ok && e.Offset >= 0 {
		c := *e
		c.Offset += base
		return &c
	}
	return err
}
