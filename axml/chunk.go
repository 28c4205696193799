// Package axml reads, patches and re-serializes compiled (binary) Android
// manifests.
//
// A compiled manifest is a sequence of chunks. Every chunk starts with the
// same 8-byte header:
//
//	+0  uint16 type
//	+2  uint16 header size
//	+4  uint32 chunk size (header included)
//
// The file chunk (type 0x0003) wraps a string pool chunk, an optional
// resource map chunk and a flat stream of XML node chunks. The package keeps
// the node stream as raw bytes and only touches the fields it needs; all
// integers are little-endian.
package axml

import (
	"encoding/binary"

	"github.com/waelchateur/ApkSignatureKill/fault"
)

const (
	chunkStringPool  = 0x0001
	chunkXML         = 0x0003
	chunkXMLStartNS  = 0x0100
	chunkXMLEndNS    = 0x0101
	chunkXMLStart    = 0x0102
	chunkXMLEnd      = 0x0103
	chunkXMLCData    = 0x0104
	chunkResourceMap = 0x0180

	chunkHeaderSize = 8
	fileHeaderSize  = 8
)

// Start element chunk layout, relative to the chunk start. The node header is
// 16 bytes (chunk header + line number + comment) and the attribute
// extension follows it.
const (
	elemChunkSize      = 4  // uint32 size of the whole element chunk
	elemLineNumber     = 8  // uint32
	elemComment        = 12 // uint32 string index or 0xFFFFFFFF
	elemNamespace      = 16 // uint32 string index or 0xFFFFFFFF
	elemName           = 20 // uint32 string index
	elemAttrStart      = 24 // uint16 offset of the attribute array from elemNamespace
	elemAttrSize       = 26 // uint16 width of one attribute record
	elemAttrCount      = 28 // uint16
	elemIDIndex        = 30 // uint16 1-based index of the "id" attribute, 0 if none
	elemClassIndex     = 32 // uint16 1-based index of the "class" attribute
	elemStyleIndex     = 34 // uint16 1-based index of the "style" attribute
	elemAttributes     = 36 // first attribute record
	nodeHeaderSize     = 16
	attributeSize      = 20
	minElementChunkLen = elemAttributes
)

// Attribute record layout, relative to the record start.
const (
	attrNamespace = 0  // uint32 string index or 0xFFFFFFFF
	attrName      = 4  // uint32 string index, resource id via the resource map
	attrRawValue  = 8  // uint32 string index or 0xFFFFFFFF
	attrTypedSize = 12 // uint16 always 8
	attrTypedRes0 = 14 // uint8 always 0
	attrDataType  = 15 // uint8
	attrData      = 16 // uint32
)

// Typed value data types used by the patcher.
const (
	TypeNull      = 0x00
	TypeReference = 0x01
	TypeString    = 0x03
	TypeIntDec    = 0x10
	TypeIntHex    = 0x11
	TypeIntBool   = 0x12
)

// noIndex is the "no string" sentinel for string pool references.
const noIndex = 0xFFFFFFFF

// stringTypedValue is the packed typed-value header (size 8, res0 0,
// type string) as stored at attrTypedSize.
const stringTypedValue = 0x03000008

var le = binary.LittleEndian

type chunkHeader struct {
	typ        uint16
	headerSize uint16
	size       uint32
}

// readChunkHeader reads and bounds-checks the chunk header at off. base is
// added to off in error messages so offsets refer to the whole file.
func readChunkHeader(b []byte, off, base int) (chunkHeader, error) {
	if off < 0 || off+chunkHeaderSize > len(b) {
		return chunkHeader{}, fault.At(fault.KindMalformedInput, "AXML-CHUNK-001", base+off,
			"truncated chunk header: need %d bytes, have %d", chunkHeaderSize, len(b)-off)
	}
	h := chunkHeader{
		typ:        le.Uint16(b[off:]),
		headerSize: le.Uint16(b[off+2:]),
		size:       le.Uint32(b[off+4:]),
	}
	if h.headerSize < chunkHeaderSize || uint32(h.headerSize) > h.size {
		return chunkHeader{}, fault.At(fault.KindMalformedInput, "AXML-CHUNK-002", base+off,
			"chunk 0x%04x: header size %d inconsistent with chunk size %d", h.typ, h.headerSize, h.size)
	}
	if uint64(off)+uint64(h.size) > uint64(len(b)) {
		return chunkHeader{}, fault.At(fault.KindMalformedInput, "AXML-CHUNK-003", base+off,
			"chunk 0x%04x: declared size %d exceeds remaining %d bytes", h.typ, h.size, len(b)-off)
	}
	return h, nil
}

func putChunkHeader(b []byte, typ uint16, headerSize uint16, size uint32) {
	le.PutUint16(b[0:], typ)
	le.PutUint16(b[2:], headerSize)
	le.PutUint32(b[4:], size)
}
