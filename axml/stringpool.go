package axml

import (
	"errors"
	"unicode/utf16"

	"github.com/waelchateur/ApkSignatureKill/fault"
)

// String pool chunk header layout, relative to the chunk start.
const (
	poolStringCount  = 8
	poolStyleCount   = 12
	poolFlags        = 16
	poolStringsStart = 20
	poolStylesStart  = 24
	poolHeaderSize   = 28
)

const (
	flagSorted = 0x001
	flagUTF8   = 0x100
)

// Longest string each encoding can describe with its length prefix.
const (
	maxUTF8Len  = 0x7FFF
	maxUTF16Len = 0x7FFFFFFF
)

// StringPool is the ordered string table of a compiled manifest. Indices are
// stable: strings can be appended but never removed or reordered.
type StringPool struct {
	flags   uint32
	strings []string
	// encoded holds each string in its on-disk form (length prefix, data,
	// terminator) so existing entries re-serialize byte for byte.
	encoded [][]byte

	styleOffsets []uint32
	styleData    []byte

	raw   []byte
	dirty bool
}

// ParsePool decodes a string pool chunk. b must start at the chunk header;
// base is the chunk's offset in the enclosing file, used in error offsets.
func ParsePool(b []byte, base int) (*StringPool, error) {
	h, err := readChunkHeader(b, 0, base)
	if err != nil {
		return nil, err
	}
	if h.typ != chunkStringPool {
		return nil, fault.At(fault.KindMalformedInput, "AXML-POOL-001", base,
			"expected string pool chunk 0x%04x, found 0x%04x", chunkStringPool, h.typ)
	}
	if h.headerSize < poolHeaderSize {
		return nil, fault.At(fault.KindMalformedInput, "AXML-POOL-002", base,
			"string pool header size %d smaller than %d", h.headerSize, poolHeaderSize)
	}
	chunk := b[:h.size]
	size := uint64(h.size)

	stringCount := uint64(le.Uint32(chunk[poolStringCount:]))
	styleCount := uint64(le.Uint32(chunk[poolStyleCount:]))
	flags := le.Uint32(chunk[poolFlags:])
	stringsStart := uint64(le.Uint32(chunk[poolStringsStart:]))
	stylesStart := uint64(le.Uint32(chunk[poolStylesStart:]))

	tableEnd := uint64(h.headerSize) + 4*(stringCount+styleCount)
	if tableEnd > size {
		return nil, fault.At(fault.KindMalformedInput, "AXML-POOL-003", base,
			"string pool offset table (%d strings, %d styles) exceeds chunk size %d", stringCount, styleCount, size)
	}
	dataEnd := size
	if styleCount > 0 {
		if stylesStart < tableEnd || stylesStart > size {
			return nil, fault.At(fault.KindMalformedInput, "AXML-POOL-004", base+poolStylesStart,
				"styles start %d outside chunk", stylesStart)
		}
		dataEnd = stylesStart
	}
	if stringCount > 0 && (stringsStart < tableEnd || stringsStart > dataEnd) {
		return nil, fault.At(fault.KindMalformedInput, "AXML-POOL-005", base+poolStringsStart,
			"strings start %d outside chunk", stringsStart)
	}

	p := &StringPool{
		flags:   flags,
		strings: make([]string, 0, stringCount),
		encoded: make([][]byte, 0, stringCount),
		raw:     append([]byte(nil), chunk...),
	}
	utf8 := flags&flagUTF8 != 0
	offsets := chunk[h.headerSize:]
	for i := uint64(0); i < stringCount; i++ {
		rel := uint64(le.Uint32(offsets[4*i:]))
		at := stringsStart + rel
		if at >= dataEnd {
			return nil, fault.At(fault.KindMalformedInput, "AXML-POOL-006", base+int(h.headerSize)+int(4*i),
				"string %d offset %d outside string data", i, rel)
		}
		var (
			s   string
			n   int
			err error
		)
		if utf8 {
			s, n, err = decodeUTF8(chunk[at:dataEnd])
		} else {
			s, n, err = decodeUTF16(chunk[at:dataEnd])
		}
		if err != nil {
			return nil, fault.At(fault.KindMalformedInput, "AXML-POOL-007", base+int(at), "string %d: %v", i, err)
		}
		p.strings = append(p.strings, s)
		p.encoded = append(p.encoded, append([]byte(nil), chunk[at:at+uint64(n)]...))
	}
	if styleCount > 0 {
		p.styleOffsets = make([]uint32, styleCount)
		for i := range p.styleOffsets {
			p.styleOffsets[i] = le.Uint32(offsets[4*(stringCount+uint64(i)):])
		}
		p.styleData = append([]byte(nil), chunk[stylesStart:]...)
	}
	return p, nil
}

// Size returns the number of strings in the pool.
func (p *StringPool) Size() int { return len(p.strings) }

// IsUTF8 reports whether the pool stores UTF-8 strings.
func (p *StringPool) IsUTF8() bool { return p.flags&flagUTF8 != 0 }

// Get returns the string at index i.
func (p *StringPool) Get(i int) (string, error) {
	if i < 0 || i >= len(p.strings) {
		return "", fault.Newf(fault.KindMalformedInput, "AXML-POOL-008", "string index %d out of range [0,%d)", i, len(p.strings))
	}
	return p.strings[i], nil
}

// lookup is Get for a raw uint32 reference; the no-string sentinel and out of
// range indices report false.
func (p *StringPool) lookup(ref uint32) (string, bool) {
	if ref == noIndex || uint64(ref) >= uint64(len(p.strings)) {
		return "", false
	}
	return p.strings[ref], true
}

// Find returns the first index holding text.
func (p *StringPool) Find(text string) (int, bool) {
	for i, s := range p.strings {
		if s == text {
			return i, true
		}
	}
	return -1, false
}

// Strings returns a copy of the pool contents in index order.
func (p *StringPool) Strings() []string {
	return append([]string(nil), p.strings...)
}

// Append adds text at the end of the pool and returns its index, which is
// always the Size() observed before the call. Duplicates are not merged.
func (p *StringPool) Append(text string) (int, error) {
	var (
		enc []byte
		err error
	)
	if p.IsUTF8() {
		enc, err = encodeUTF8(text)
	} else {
		enc, err = encodeUTF16(text)
	}
	if err != nil {
		return 0, err
	}
	idx := len(p.strings)
	p.strings = append(p.strings, text)
	p.encoded = append(p.encoded, enc)
	// Appending invalidates any sort order the writer promised.
	p.flags &^= flagSorted
	p.dirty = true
	return idx, nil
}

// Bytes serializes the pool chunk. An unmodified pool returns its original
// bytes; a modified one is re-laid out with fresh offsets and sizes.
func (p *StringPool) Bytes() []byte {
	if !p.dirty && p.raw != nil {
		return append([]byte(nil), p.raw...)
	}
	count := len(p.encoded)
	styles := len(p.styleOffsets)
	stringsStart := poolHeaderSize + 4*(count+styles)

	var data []byte
	offsets := make([]uint32, count)
	for i, enc := range p.encoded {
		offsets[i] = uint32(len(data))
		data = append(data, enc...)
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}

	stylesStart := 0
	if styles > 0 {
		stylesStart = stringsStart + len(data)
	}
	size := stringsStart + len(data) + len(p.styleData)
	pad := (4 - size%4) % 4
	size += pad

	out := make([]byte, poolHeaderSize, size)
	putChunkHeader(out, chunkStringPool, poolHeaderSize, uint32(size))
	le.PutUint32(out[poolStringCount:], uint32(count))
	le.PutUint32(out[poolStyleCount:], uint32(styles))
	le.PutUint32(out[poolFlags:], p.flags)
	if count > 0 {
		le.PutUint32(out[poolStringsStart:], uint32(stringsStart))
	}
	le.PutUint32(out[poolStylesStart:], uint32(stylesStart))
	out = appendUint32s(out, offsets)
	out = appendUint32s(out, p.styleOffsets)
	out = append(out, data...)
	out = append(out, p.styleData...)
	out = append(out, make([]byte, pad)...)
	return out
}

func appendUint32s(b []byte, vs []uint32) []byte {
	for _, v := range vs {
		b = le.AppendUint32(b, v)
	}
	return b
}

var errTruncated = errors.New("truncated string data")

func decodeLength8(b []byte) (int, int, bool) {
	if len(b) < 1 {
		return 0, 0, false
	}
	if b[0]&0x80 == 0 {
		return int(b[0]), 1, true
	}
	if len(b) < 2 {
		return 0, 0, false
	}
	return int(b[0]&0x7F)<<8 | int(b[1]), 2, true
}

func decodeUTF8(b []byte) (string, int, error) {
	_, n1, ok := decodeLength8(b)
	if !ok {
		return "", 0, errTruncated
	}
	byteLen, n2, ok := decodeLength8(b[n1:])
	if !ok {
		return "", 0, errTruncated
	}
	start := n1 + n2
	end := start + byteLen
	if end >= len(b) {
		return "", 0, errTruncated
	}
	// The terminator is part of the stored form.
	return string(b[start:end]), end + 1, nil
}

func decodeUTF16(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, errTruncated
	}
	units := int(le.Uint16(b))
	n := 2
	if units&0x8000 != 0 {
		if len(b) < 4 {
			return "", 0, errTruncated
		}
		units = (units&0x7FFF)<<16 | int(le.Uint16(b[2:]))
		n = 4
	}
	end := n + 2*units
	if end+2 > len(b) {
		return "", 0, errTruncated
	}
	u := make([]uint16, units)
	for i := range u {
		u[i] = le.Uint16(b[n+2*i:])
	}
	return string(utf16.Decode(u)), end + 2, nil
}

func appendLength8(b []byte, n int) []byte {
	if n > 0x7F {
		return append(b, byte(0x80|n>>8), byte(n))
	}
	return append(b, byte(n))
}

func encodeUTF8(s string) ([]byte, error) {
	units := len(utf16.Encode([]rune(s)))
	if len(s) > maxUTF8Len || units > maxUTF8Len {
		return nil, fault.Newf(fault.KindCapacityExceeded, "AXML-POOL-010",
			"string of %d bytes does not fit a UTF-8 pool entry (max %d)", len(s), maxUTF8Len)
	}
	b := appendLength8(nil, units)
	b = appendLength8(b, len(s))
	b = append(b, s...)
	return append(b, 0), nil
}

func encodeUTF16(s string) ([]byte, error) {
	u := utf16.Encode([]rune(s))
	if len(u) > maxUTF16Len {
		return nil, fault.Newf(fault.KindCapacityExceeded, "AXML-POOL-010",
			"string of %d code units does not fit a UTF-16 pool entry", len(u))
	}
	b := make([]byte, 0, 4+2*len(u)+2)
	if len(u) > 0x7FFF {
		b = le.AppendUint16(b, uint16(0x8000|len(u)>>16))
	}
	b = le.AppendUint16(b, uint16(len(u)))
	for _, c := range u {
		b = append(b, byte(c), byte(c>>8))
	}
	return append(b, 0, 0), nil
}
