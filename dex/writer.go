package dex

// CodeWriter collects encoded instructions. Base is the absolute offset of
// the first byte in the output container, so alignment padding depends on
// where the code lands rather than on the buffer alone.
type CodeWriter struct {
	base int
	buf  []byte
}

func NewCodeWriter(base int) *CodeWriter {
	return &CodeWriter{base: base}
}

// Position is the absolute offset the next byte will be written at.
func (w *CodeWriter) Position() int { return w.base + len(w.buf) }

func (w *CodeWriter) Len() int { return len(w.buf) }

// CodeUnits is the length in 16-bit code units, rounded up.
func (w *CodeWriter) CodeUnits() int { return (len(w.buf) + 1) / 2 }

func (w *CodeWriter) Bytes() []byte { return append([]byte(nil), w.buf...) }

func (w *CodeWriter) commit(b []byte) { w.buf = append(w.buf, b...) }
