package dex

// Instruction is one of the Insn* format types or a payload. The set is
// closed: Encoder.Encode handles every member.
type Instruction interface {
	Opcode() Opcode
	instruction()
}

// Registers of the 35c-style formats are listed in order (C, D, E, F, G);
// at most five.

type Insn10t struct {
	Op     Opcode
	Offset int
}

type Insn10x struct{ Op Opcode }

type Insn11n struct {
	Op      Opcode
	A       int
	Literal int
}

type Insn11x struct {
	Op Opcode
	A  int
}

type Insn12x struct {
	Op   Opcode
	A, B int
}

// Insn20bc is throw-verification-error. Kind says which table Ref belongs
// to; it is carried by the instruction rather than the opcode.
type Insn20bc struct {
	Op        Opcode
	ErrorType int
	Kind      ReferenceKind
	Ref       Reference
}

type Insn20t struct {
	Op     Opcode
	Offset int
}

type Insn21c struct {
	Op  Opcode
	A   int
	Ref Reference
}

// Insn21ih holds the full 32-bit literal; only its top 16 bits are encoded.
type Insn21ih struct {
	Op      Opcode
	A       int
	Literal int32
}

// Insn21lh holds the full 64-bit literal; only its top 16 bits are encoded.
type Insn21lh struct {
	Op      Opcode
	A       int
	Literal int64
}

type Insn21s struct {
	Op      Opcode
	A       int
	Literal int
}

type Insn21t struct {
	Op     Opcode
	A      int
	Offset int
}

type Insn22b struct {
	Op      Opcode
	A, B    int
	Literal int
}

type Insn22c struct {
	Op   Opcode
	A, B int
	Ref  Reference
}

type Insn22cs struct {
	Op          Opcode
	A, B        int
	FieldOffset int
}

type Insn22s struct {
	Op      Opcode
	A, B    int
	Literal int
}

type Insn22t struct {
	Op     Opcode
	A, B   int
	Offset int
}

type Insn22x struct {
	Op   Opcode
	A, B int
}

type Insn23x struct {
	Op      Opcode
	A, B, C int
}

type Insn30t struct {
	Op     Opcode
	Offset int32
}

type Insn31c struct {
	Op  Opcode
	A   int
	Ref Reference
}

type Insn31i struct {
	Op      Opcode
	A       int
	Literal int32
}

type Insn31t struct {
	Op     Opcode
	A      int
	Offset int32
}

type Insn32x struct {
	Op   Opcode
	A, B int
}

type Insn35c struct {
	Op        Opcode
	Registers []int
	Ref       Reference
}

type Insn35mi struct {
	Op          Opcode
	Registers   []int
	InlineIndex int
}

type Insn35ms struct {
	Op          Opcode
	Registers   []int
	VtableIndex int
}

type Insn3rc struct {
	Op    Opcode
	Start int
	Count int
	Ref   Reference
}

type Insn3rmi struct {
	Op          Opcode
	Start       int
	Count       int
	InlineIndex int
}

type Insn3rms struct {
	Op          Opcode
	Start       int
	Count       int
	VtableIndex int
}

type Insn45cc struct {
	Op        Opcode
	Registers []int
	Ref       Reference
	Ref2      Reference
}

type Insn4rcc struct {
	Op    Opcode
	Start int
	Count int
	Ref   Reference
	Ref2  Reference
}

type Insn51l struct {
	Op      Opcode
	A       int
	Literal int64
}

// ArrayPayload is the data block of fill-array-data. Width is the element
// size in bytes (1, 2, 4 or 8); elements are truncated to it.
type ArrayPayload struct {
	Width    int
	Elements []int64
}

// SwitchElement maps a case key to a branch offset in code units, relative
// to the switch instruction.
type SwitchElement struct {
	Key    int32
	Offset int32
}

// PackedSwitchPayload covers consecutive keys starting at the key of the
// first element.
type PackedSwitchPayload struct {
	Elements []SwitchElement
}

// SparseSwitchPayload elements may be given in any order; they are
// written sorted by key.
type SparseSwitchPayload struct {
	Elements []SwitchElement
}

func (i Insn10t) Opcode() Opcode           { return i.Op }
func (i Insn10x) Opcode() Opcode           { return i.Op }
func (i Insn11n) Opcode() Opcode           { return i.Op }
func (i Insn11x) Opcode() Opcode           { return i.Op }
func (i Insn12x) Opcode() Opcode           { return i.Op }
func (i Insn20bc) Opcode() Opcode          { return i.Op }
func (i Insn20t) Opcode() Opcode           { return i.Op }
func (i Insn21c) Opcode() Opcode           { return i.Op }
func (i Insn21ih) Opcode() Opcode          { return i.Op }
func (i Insn21lh) Opcode() Opcode          { return i.Op }
func (i Insn21s) Opcode() Opcode           { return i.Op }
func (i Insn21t) Opcode() Opcode           { return i.Op }
func (i Insn22b) Opcode() Opcode           { return i.Op }
func (i Insn22c) Opcode() Opcode           { return i.Op }
func (i Insn22cs) Opcode() Opcode          { return i.Op }
func (i Insn22s) Opcode() Opcode           { return i.Op }
func (i Insn22t) Opcode() Opcode           { return i.Op }
func (i Insn22x) Opcode() Opcode           { return i.Op }
func (i Insn23x) Opcode() Opcode           { return i.Op }
func (i Insn30t) Opcode() Opcode           { return i.Op }
func (i Insn31c) Opcode() Opcode           { return i.Op }
func (i Insn31i) Opcode() Opcode           { return i.Op }
func (i Insn31t) Opcode() Opcode           { return i.Op }
func (i Insn32x) Opcode() Opcode           { return i.Op }
func (i Insn35c) Opcode() Opcode           { return i.Op }
func (i Insn35mi) Opcode() Opcode          { return i.Op }
func (i Insn35ms) Opcode() Opcode          { return i.Op }
func (i Insn3rc) Opcode() Opcode           { return i.Op }
func (i Insn3rmi) Opcode() Opcode          { return i.Op }
func (i Insn3rms) Opcode() Opcode          { return i.Op }
func (i Insn45cc) Opcode() Opcode          { return i.Op }
func (i Insn4rcc) Opcode() Opcode          { return i.Op }
func (i Insn51l) Opcode() Opcode           { return i.Op }
func (ArrayPayload) Opcode() Opcode        { return OpArrayPayload }
func (PackedSwitchPayload) Opcode() Opcode { return OpPackedSwitchPayload }
func (SparseSwitchPayload) Opcode() Opcode { return OpSparseSwitchPayload }

func (Insn10t) instruction()             {}
func (Insn10x) instruction()             {}
func (Insn11n) instruction()             {}
func (Insn11x) instruction()             {}
func (Insn12x) instruction()             {}
func (Insn20bc) instruction()            {}
func (Insn20t) instruction()             {}
func (Insn21c) instruction()             {}
func (Insn21ih) instruction()            {}
func (Insn21lh) instruction()            {}
func (Insn21s) instruction()             {}
func (Insn21t) instruction()             {}
func (Insn22b) instruction()             {}
func (Insn22c) instruction()             {}
func (Insn22cs) instruction()            {}
func (Insn22s) instruction()             {}
func (Insn22t) instruction()             {}
func (Insn22x) instruction()             {}
func (Insn23x) instruction()             {}
func (Insn30t) instruction()             {}
func (Insn31c) instruction()             {}
func (Insn31i) instruction()             {}
func (Insn31t) instruction()             {}
func (Insn32x) instruction()             {}
func (Insn35c) instruction()             {}
func (Insn35mi) instruction()            {}
func (Insn35ms) instruction()            {}
func (Insn3rc) instruction()             {}
func (Insn3rmi) instruction()            {}
func (Insn3rms) instruction()            {}
func (Insn45cc) instruction()            {}
func (Insn4rcc) instruction()            {}
func (Insn51l) instruction()             {}
func (ArrayPayload) instruction()        {}
func (PackedSwitchPayload) instruction() {}
func (SparseSwitchPayload) instruction() {}
