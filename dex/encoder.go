// Package dex encodes Dalvik bytecode instructions against symbolic
// references. Instructions name their operands (strings, types, fields,
// methods, protos); a SymbolResolver turns those into table indices while
// the Encoder lays out the bytes for the configured API profile.
package dex

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/waelchateur/ApkSignatureKill/fault"
)

// Encoder turns instructions into bytecode for one API profile.
type Encoder struct {
	profile  Profile
	resolver SymbolResolver
}

func NewEncoder(p Profile, r SymbolResolver) *Encoder {
	return &Encoder{profile: p, resolver: r}
}

func (e *Encoder) Profile() Profile { return e.profile }

// PackNibbles stores low in bits 0-3 and high in bits 4-7.
func PackNibbles(low, high int) byte {
	return byte((high&0xF)<<4 | low&0xF)
}

// UnpackNibbles is the inverse of PackNibbles.
func UnpackNibbles(b byte) (low, high int) {
	return int(b & 0xF), int(b >> 4)
}

// Decode12x reads the register pair of an encoded 12x instruction.
func Decode12x(code []byte) (a, b int, err error) {
	if len(code) < 2 {
		return 0, 0, fault.New(fault.KindMalformedInput, "DEX-DEC-001", "12x instruction needs 2 bytes")
	}
	a, b = UnpackNibbles(code[1])
	return a, b, nil
}

// Encode appends the encoding of ins to out. Nothing is appended when an
// error is returned.
func (e *Encoder) Encode(out *CodeWriter, ins Instruction) error {
	if ins == nil {
		return fault.New(fault.KindMalformedInput, "DEX-INS-001", "nil instruction")
	}
	op := ins.Opcode()
	if want := op.Format(); want != formatOf(ins) {
		return fault.Newf(fault.KindUnsupportedOperand, "DEX-OP-002",
			"instruction %s has format %s, encoded as %s", op, want, formatOf(ins))
	}
	v, err := e.profile.value(op)
	if err != nil {
		return err
	}
	b := &insnBuf{pos: out.Position()}
	if err := e.encode(b, ins, op, v); err != nil {
		return err
	}
	out.commit(b.buf)
	return nil
}

// EncodeAll encodes list in order and stops at the first failure. The
// instructions before the failing one stay in out.
func (e *Encoder) EncodeAll(out *CodeWriter, list []Instruction) error {
	for i, ins := range list {
		if err := e.Encode(out, ins); err != nil {
			name := "nil"
			if ins != nil {
				name = ins.Opcode().String()
			}
			return fmt.Errorf("instruction %d (%s): %w", i, name, err)
		}
	}
	return nil
}

func (e *Encoder) encode(b *insnBuf, ins Instruction, op Opcode, v uint16) error {
	switch i := ins.(type) {
	case Insn10t:
		b.put(byte(v))
		return b.s8(i.Offset, "offset")
	case Insn10x:
		b.put(byte(v))
		b.put(0)
	case Insn11n:
		if err := checkRange(i.A, 0, 15, "register A"); err != nil {
			return err
		}
		if err := checkRange(i.Literal, -8, 7, "literal"); err != nil {
			return err
		}
		b.put(byte(v))
		b.put(PackNibbles(i.A, i.Literal))
	case Insn11x:
		b.put(byte(v))
		return b.u8(i.A, "register A")
	case Insn12x:
		if err := checkNibbles(i.A, i.B); err != nil {
			return err
		}
		b.put(byte(v))
		b.put(PackNibbles(i.A, i.B))
	case Insn20bc:
		b.put(byte(v))
		if err := b.u8(i.ErrorType, "verification error"); err != nil {
			return err
		}
		return e.ref16(b, i.Kind, i.Ref)
	case Insn20t:
		b.put(byte(v))
		b.put(0)
		return b.s16(i.Offset, "offset")
	case Insn21c:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		return e.ref16(b, op.ReferenceKind(), i.Ref)
	case Insn21ih:
		if i.Literal&0xFFFF != 0 {
			return operandRange("literal 0x%08x has non-zero low 16 bits", i.Literal)
		}
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		b.u16raw(uint16(i.Literal >> 16))
	case Insn21lh:
		if i.Literal&0xFFFFFFFFFFFF != 0 {
			return operandRange("literal 0x%016x has non-zero low 48 bits", i.Literal)
		}
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		b.u16raw(uint16(i.Literal >> 48))
	case Insn21s:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		return b.s16(i.Literal, "literal")
	case Insn21t:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		return b.s16(i.Offset, "offset")
	case Insn22b:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		if err := b.u8(i.B, "register B"); err != nil {
			return err
		}
		return b.s8(i.Literal, "literal")
	case Insn22c:
		if err := checkNibbles(i.A, i.B); err != nil {
			return err
		}
		b.put(byte(v))
		b.put(PackNibbles(i.A, i.B))
		return e.ref16(b, op.ReferenceKind(), i.Ref)
	case Insn22cs:
		if err := checkNibbles(i.A, i.B); err != nil {
			return err
		}
		b.put(byte(v))
		b.put(PackNibbles(i.A, i.B))
		return b.u16(i.FieldOffset, "field offset")
	case Insn22s:
		if err := checkNibbles(i.A, i.B); err != nil {
			return err
		}
		b.put(byte(v))
		b.put(PackNibbles(i.A, i.B))
		return b.s16(i.Literal, "literal")
	case Insn22t:
		if err := checkNibbles(i.A, i.B); err != nil {
			return err
		}
		b.put(byte(v))
		b.put(PackNibbles(i.A, i.B))
		return b.s16(i.Offset, "offset")
	case Insn22x:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		return b.u16(i.B, "register B")
	case Insn23x:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		if err := b.u8(i.B, "register B"); err != nil {
			return err
		}
		return b.u8(i.C, "register C")
	case Insn30t:
		b.put(byte(v))
		b.put(0)
		b.u32raw(uint32(i.Offset))
	case Insn31c:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		idx, err := e.resolve(op.ReferenceKind(), i.Ref)
		if err != nil {
			return err
		}
		b.u32raw(idx)
	case Insn31i:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		b.u32raw(uint32(i.Literal))
	case Insn31t:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		b.u32raw(uint32(i.Offset))
	case Insn32x:
		b.put(byte(v))
		b.put(0)
		if err := b.u16(i.A, "register A"); err != nil {
			return err
		}
		return b.u16(i.B, "register B")
	case Insn35c:
		return e.regList(b, v, i.Registers, func() error { return e.ref16(b, op.ReferenceKind(), i.Ref) })
	case Insn35mi:
		return e.regList(b, v, i.Registers, func() error { return b.u16(i.InlineIndex, "inline index") })
	case Insn35ms:
		return e.regList(b, v, i.Registers, func() error { return b.u16(i.VtableIndex, "vtable index") })
	case Insn3rc:
		return e.regRange(b, v, i.Start, i.Count, func() error { return e.ref16(b, op.ReferenceKind(), i.Ref) })
	case Insn3rmi:
		return e.regRange(b, v, i.Start, i.Count, func() error { return b.u16(i.InlineIndex, "inline index") })
	case Insn3rms:
		return e.regRange(b, v, i.Start, i.Count, func() error { return b.u16(i.VtableIndex, "vtable index") })
	case Insn45cc:
		if err := e.regList(b, v, i.Registers, func() error { return e.ref16(b, op.ReferenceKind(), i.Ref) }); err != nil {
			return err
		}
		return e.ref16(b, op.ReferenceKind2(), i.Ref2)
	case Insn4rcc:
		if err := e.regRange(b, v, i.Start, i.Count, func() error { return e.ref16(b, op.ReferenceKind(), i.Ref) }); err != nil {
			return err
		}
		return e.ref16(b, op.ReferenceKind2(), i.Ref2)
	case Insn51l:
		b.put(byte(v))
		if err := b.u8(i.A, "register A"); err != nil {
			return err
		}
		b.buf = binary.LittleEndian.AppendUint64(b.buf, uint64(i.Literal))
	case ArrayPayload:
		return encodeArray(b, v, i)
	case PackedSwitchPayload:
		b.put(0)
		b.put(byte(v >> 8))
		if err := b.u16(len(i.Elements), "element count"); err != nil {
			return err
		}
		if len(i.Elements) == 0 {
			b.u32raw(0)
			return nil
		}
		b.u32raw(uint32(i.Elements[0].Key))
		for _, el := range i.Elements {
			b.u32raw(uint32(el.Offset))
		}
	case SparseSwitchPayload:
		b.put(0)
		b.put(byte(v >> 8))
		if err := b.u16(len(i.Elements), "element count"); err != nil {
			return err
		}
		els := slices.Clone(i.Elements)
		slices.SortStableFunc(els, func(x, y SwitchElement) int {
			switch {
			case x.Key < y.Key:
				return -1
			case x.Key > y.Key:
				return 1
			}
			return 0
		})
		for _, el := range els {
			b.u32raw(uint32(el.Key))
		}
		for _, el := range els {
			b.u32raw(uint32(el.Offset))
		}
	default:
		return fault.Newf(fault.KindUnsupportedOperand, "DEX-INS-002", "unsupported instruction type %T", ins)
	}
	return nil
}

func encodeArray(b *insnBuf, v uint16, p ArrayPayload) error {
	switch p.Width {
	case 1, 2, 4, 8:
	default:
		return operandRange("array element width %d not in {1,2,4,8}", p.Width)
	}
	b.u16raw(v)
	b.u16raw(uint16(p.Width))
	if int64(len(p.Elements)) > 0xFFFFFFFF {
		return fault.Newf(fault.KindCapacityExceeded, "DEX-ARR-001", "%d array elements", len(p.Elements))
	}
	b.u32raw(uint32(len(p.Elements)))
	for _, el := range p.Elements {
		switch p.Width {
		case 1:
			b.put(byte(el))
		case 2:
			b.u16raw(uint16(el))
		case 4:
			b.u32raw(uint32(el))
		case 8:
			b.buf = binary.LittleEndian.AppendUint64(b.buf, uint64(el))
		}
	}
	if b.position()&1 != 0 {
		b.put(0)
	}
	return nil
}

// regList writes the opcode, (count, G) nibbles, the 16-bit operand produced
// by operand, then the C..F nibbles.
func (e *Encoder) regList(b *insnBuf, v uint16, regs []int, operand func() error) error {
	if len(regs) > 5 {
		return operandRange("%d registers exceed the 5 register slots", len(regs))
	}
	var r [5]int
	for i, reg := range regs {
		if err := checkRange(reg, 0, 15, "register"); err != nil {
			return err
		}
		r[i] = reg
	}
	b.put(byte(v))
	b.put(PackNibbles(r[4], len(regs)))
	if err := operand(); err != nil {
		return err
	}
	b.put(PackNibbles(r[0], r[1]))
	b.put(PackNibbles(r[2], r[3]))
	return nil
}

func (e *Encoder) regRange(b *insnBuf, v uint16, start, count int, operand func() error) error {
	b.put(byte(v))
	if err := b.u8(count, "register count"); err != nil {
		return err
	}
	if err := operand(); err != nil {
		return err
	}
	if err := b.u16(start, "start register"); err != nil {
		return err
	}
	if start+count-1 > 0xFFFF {
		return operandRange("register range v%d..v%d exceeds v65535", start, start+count-1)
	}
	return nil
}

func (e *Encoder) resolve(kind ReferenceKind, ref Reference) (uint32, error) {
	if e.resolver == nil {
		return 0, fault.New(fault.KindInternal, "DEX-REF-004", "encoder has no symbol resolver")
	}
	return e.resolver.Resolve(kind, ref)
}

func (e *Encoder) ref16(b *insnBuf, kind ReferenceKind, ref Reference) error {
	idx, err := e.resolve(kind, ref)
	if err != nil {
		return err
	}
	if idx > 0xFFFF {
		return operandRange("%s index %d does not fit 16 bits", kind, idx)
	}
	b.u16raw(uint16(idx))
	return nil
}

func formatOf(ins Instruction) Format {
	switch ins.(type) {
	case Insn10t:
		return Format10t
	case Insn10x:
		return Format10x
	case Insn11n:
		return Format11n
	case Insn11x:
		return Format11x
	case Insn12x:
		return Format12x
	case Insn20bc:
		return Format20bc
	case Insn20t:
		return Format20t
	case Insn21c:
		return Format21c
	case Insn21ih:
		return Format21ih
	case Insn21lh:
		return Format21lh
	case Insn21s:
		return Format21s
	case Insn21t:
		return Format21t
	case Insn22b:
		return Format22b
	case Insn22c:
		return Format22c
	case Insn22cs:
		return Format22cs
	case Insn22s:
		return Format22s
	case Insn22t:
		return Format22t
	case Insn22x:
		return Format22x
	case Insn23x:
		return Format23x
	case Insn30t:
		return Format30t
	case Insn31c:
		return Format31c
	case Insn31i:
		return Format31i
	case Insn31t:
		return Format31t
	case Insn32x:
		return Format32x
	case Insn35c:
		return Format35c
	case Insn35mi:
		return Format35mi
	case Insn35ms:
		return Format35ms
	case Insn3rc:
		return Format3rc
	case Insn3rmi:
		return Format3rmi
	case Insn3rms:
		return Format3rms
	case Insn45cc:
		return Format45cc
	case Insn4rcc:
		return Format4rcc
	case Insn51l:
		return Format51l
	case ArrayPayload:
		return FormatArrayPayload
	case PackedSwitchPayload:
		return FormatPackedSwitchPayload
	case SparseSwitchPayload:
		return FormatSparseSwitchPayload
	default:
		return FormatUnknown
	}
}

// insnBuf is the scratch buffer of a single Encode call; pos is the absolute
// position of its first byte.
type insnBuf struct {
	pos int
	buf []byte
}

func (b *insnBuf) position() int { return b.pos + len(b.buf) }

func (b *insnBuf) put(v byte) { b.buf = append(b.buf, v) }

func (b *insnBuf) u16raw(v uint16) { b.buf = binary.LittleEndian.AppendUint16(b.buf, v) }

func (b *insnBuf) u32raw(v uint32) { b.buf = binary.LittleEndian.AppendUint32(b.buf, v) }

func (b *insnBuf) u8(v int, what string) error {
	if err := checkRange(v, 0, 0xFF, what); err != nil {
		return err
	}
	b.put(byte(v))
	return nil
}

func (b *insnBuf) s8(v int, what string) error {
	if err := checkRange(v, -0x80, 0x7F, what); err != nil {
		return err
	}
	b.put(byte(int8(v)))
	return nil
}

func (b *insnBuf) u16(v int, what string) error {
	if err := checkRange(v, 0, 0xFFFF, what); err != nil {
		return err
	}
	b.u16raw(uint16(v))
	return nil
}

func (b *insnBuf) s16(v int, what string) error {
	if err := checkRange(v, -0x8000, 0x7FFF, what); err != nil {
		return err
	}
	b.u16raw(uint16(int16(v)))
	return nil
}

func checkRange(v, lo, hi int, what string) error {
	if v < lo || v > hi {
		return operandRange("%s %d outside [%d, %d]", what, v, lo, hi)
	}
	return nil
}

func checkNibbles(a, b int) error {
	if err := checkRange(a, 0, 15, "register A"); err != nil {
		return err
	}
	return checkRange(b, 0, 15, "register B")
}

func operandRange(format string, args ...any) error {
	return fault.Newf(fault.KindOperandRange, "DEX-RNG-001", format, args...)
}
