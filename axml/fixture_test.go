package axml

import (
	"encoding/binary"
	"unicode/utf16"
)

// Framework attribute ids used by the fixtures.
const (
	idTheme         = 0x01010000
	idLabel         = 0x01010001
	idIcon          = 0x01010002
	idName          = NameAttrID
	idDebuggable    = 0x0101000f
	idMinSdk        = 0x0101020c
	idVersionCode   = 0x0101021b
	idAllowBackup   = 0x01010280
	idSupportsRtl   = 0x010103af
	noStringFixture = 0xFFFFFFFF
)

// fxAttr describes one attribute of a fixture element. Attributes with a
// non-zero id are android: attributes whose names go in the resource map.
type fxAttr struct {
	name  string
	id    uint32
	str   string // string value, used when typ is TypeString
	typ   uint8
	data  uint32
	plain bool // no namespace
}

type fxNode struct {
	start bool
	name  string
	attrs []fxAttr
	// idIndex/classIndex/styleIndex as stored in the start tag.
	special [3]uint16
}

// fixture builds compiled manifests independently of the package's writer.
type fixture struct {
	utf8  bool
	ids   []uint32
	pool  []string
	index map[string]uint32
	nodes []fxNode
}

func newFixture(utf8 bool) *fixture {
	return &fixture{utf8: utf8, index: map[string]uint32{}}
}

func (f *fixture) start(name string, attrs ...fxAttr) *fixture {
	f.nodes = append(f.nodes, fxNode{start: true, name: name, attrs: attrs})
	return f
}

func (f *fixture) startSpecial(name string, special [3]uint16, attrs ...fxAttr) *fixture {
	f.nodes = append(f.nodes, fxNode{start: true, name: name, attrs: attrs, special: special})
	return f
}

func (f *fixture) end(name string) *fixture {
	f.nodes = append(f.nodes, fxNode{name: name})
	return f
}

func (f *fixture) intern(s string) uint32 {
	if i, ok := f.index[s]; ok {
		return i
	}
	i := uint32(len(f.pool))
	f.pool = append(f.pool, s)
	f.index[s] = i
	return i
}

func str(name string, id uint32, value string) fxAttr {
	return fxAttr{name: name, id: id, str: value, typ: TypeString}
}

func intAttr(name string, id uint32, v uint32) fxAttr {
	return fxAttr{name: name, id: id, typ: TypeIntDec, data: v}
}

func plainStr(name, value string) fxAttr {
	return fxAttr{name: name, str: value, typ: TypeString, plain: true}
}

// build lays out the pool so every resource-mapped attribute name comes
// first, as aapt does, then emits the chunks.
func (f *fixture) build() []byte {
	for _, n := range f.nodes {
		for _, a := range n.attrs {
			if a.id != 0 {
				if _, ok := f.index[a.name]; !ok {
					f.intern(a.name)
					f.ids = append(f.ids, a.id)
				}
			}
		}
	}
	f.intern("android")
	nsURI := f.intern(AndroidNamespace)
	nsPrefix := f.index["android"]
	for _, n := range f.nodes {
		f.intern(n.name)
		for _, a := range n.attrs {
			f.intern(a.name)
			if a.typ == TypeString {
				f.intern(a.str)
			}
		}
	}

	var body []byte
	body = append(body, f.resourceMap()...)
	body = append(body, nsChunk(chunkXMLStartNS, nsPrefix, nsURI)...)
	for _, n := range f.nodes {
		if n.start {
			body = append(body, f.startChunk(n, nsURI)...)
		} else {
			body = append(body, endChunk(f.index[n.name])...)
		}
	}
	body = append(body, nsChunk(chunkXMLEndNS, nsPrefix, nsURI)...)

	pool := f.poolChunk()
	out := make([]byte, 8)
	binary.LittleEndian.PutUint16(out[0:], chunkXML)
	binary.LittleEndian.PutUint16(out[2:], 8)
	binary.LittleEndian.PutUint32(out[4:], uint32(8+len(pool)+len(body)))
	out = append(out, pool...)
	return append(out, body...)
}

func (f *fixture) poolChunk() []byte {
	var data []byte
	offsets := make([]uint32, len(f.pool))
	for i, s := range f.pool {
		offsets[i] = uint32(len(data))
		if f.utf8 {
			u := len(utf16.Encode([]rune(s)))
			data = append(data, byte(u), byte(len(s)))
			data = append(data, s...)
			data = append(data, 0)
		} else {
			u := utf16.Encode([]rune(s))
			data = binary.LittleEndian.AppendUint16(data, uint16(len(u)))
			for _, c := range u {
				data = binary.LittleEndian.AppendUint16(data, c)
			}
			data = append(data, 0, 0)
		}
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	start := 28 + 4*len(f.pool)
	out := make([]byte, 28)
	binary.LittleEndian.PutUint16(out[0:], chunkStringPool)
	binary.LittleEndian.PutUint16(out[2:], 28)
	binary.LittleEndian.PutUint32(out[4:], uint32(start+len(data)))
	binary.LittleEndian.PutUint32(out[8:], uint32(len(f.pool)))
	if f.utf8 {
		binary.LittleEndian.PutUint32(out[16:], flagUTF8)
	}
	binary.LittleEndian.PutUint32(out[20:], uint32(start))
	for _, o := range offsets {
		out = binary.LittleEndian.AppendUint32(out, o)
	}
	return append(out, data...)
}

func (f *fixture) resourceMap() []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint16(out[0:], chunkResourceMap)
	binary.LittleEndian.PutUint16(out[2:], 8)
	binary.LittleEndian.PutUint32(out[4:], uint32(8+4*len(f.ids)))
	for _, id := range f.ids {
		out = binary.LittleEndian.AppendUint32(out, id)
	}
	return out
}

func nodeHeader(typ uint16, size int) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint16(out[0:], typ)
	binary.LittleEndian.PutUint16(out[2:], 16)
	binary.LittleEndian.PutUint32(out[4:], uint32(size))
	binary.LittleEndian.PutUint32(out[8:], 1)
	binary.LittleEndian.PutUint32(out[12:], noStringFixture)
	return out
}

func nsChunk(typ uint16, prefix, uri uint32) []byte {
	out := nodeHeader(typ, 24)
	out = binary.LittleEndian.AppendUint32(out, prefix)
	return binary.LittleEndian.AppendUint32(out, uri)
}

func endChunk(name uint32) []byte {
	out := nodeHeader(chunkXMLEnd, 24)
	out = binary.LittleEndian.AppendUint32(out, noStringFixture)
	return binary.LittleEndian.AppendUint32(out, name)
}

func (f *fixture) startChunk(n fxNode, nsURI uint32) []byte {
	out := nodeHeader(chunkXMLStart, 36+20*len(n.attrs))
	out = binary.LittleEndian.AppendUint32(out, noStringFixture)
	out = binary.LittleEndian.AppendUint32(out, f.index[n.name])
	out = binary.LittleEndian.AppendUint16(out, 20)
	out = binary.LittleEndian.AppendUint16(out, 20)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(n.attrs)))
	for _, v := range n.special {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	for _, a := range n.attrs {
		ns := nsURI
		if a.plain {
			ns = noStringFixture
		}
		raw := uint32(noStringFixture)
		data := a.data
		if a.typ == TypeString {
			raw = f.index[a.str]
			data = raw
		}
		out = binary.LittleEndian.AppendUint32(out, ns)
		out = binary.LittleEndian.AppendUint32(out, f.index[a.name])
		out = binary.LittleEndian.AppendUint32(out, raw)
		out = binary.LittleEndian.AppendUint16(out, 8)
		out = append(out, 0, a.typ)
		out = binary.LittleEndian.AppendUint32(out, data)
	}
	return out
}

// sampleManifest is a small but realistic manifest. The activity carries
// android:name so the resource map always has the anchor entry.
func sampleManifest(utf8 bool, appAttrs ...fxAttr) []byte {
	return newFixture(utf8).
		start("manifest", intAttr("versionCode", idVersionCode, 7), plainStr("package", "com.example.app")).
		start("uses-sdk", intAttr("minSdkVersion", idMinSdk, 21)).
		end("uses-sdk").
		start("application", appAttrs...).
		start("activity", str("name", idName, ".MainActivity")).
		end("activity").
		end("application").
		end("manifest").
		build()
}
