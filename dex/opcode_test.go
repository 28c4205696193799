package dex

import "testing"

func TestOpcodeTable_Complete(t *testing.T) {
	seen := map[string]bool{}
	for op := Opcode(0); op < numOpcodes; op++ {
		name := op.String()
		if name == "" || op.Format() == FormatUnknown {
			t.Fatalf("opcode %d has no name or format", op)
		}
		if seen[name] {
			t.Fatalf("duplicate mnemonic %q", name)
		}
		seen[name] = true
		if got, ok := OpcodeByName(name); !ok || got != op {
			t.Fatalf("OpcodeByName(%q) = %v, %v", name, got, ok)
		}
	}
}

func TestOpcodeTable_ValuesUniquePerAPI(t *testing.T) {
	for api := 1; api <= 35; api++ {
		p := Profile{API: api}
		owner := map[uint16]Opcode{}
		for op := Opcode(0); op < numOpcodes; op++ {
			v, ok := p.Value(op)
			if !ok {
				continue
			}
			if prev, dup := owner[v]; dup {
				t.Fatalf("api %d: %s and %s share value 0x%02x", api, prev, op, v)
			}
			owner[v] = op
		}
	}
}

func TestProfile_StandardOpcodes(t *testing.T) {
	for _, tc := range []struct {
		op   Opcode
		want uint16
	}{
		{OpNop, 0x00},
		{OpConstString, 0x1a},
		{OpInvokeDirect, 0x70},
		{OpInvokeStaticRange, 0x77},
		{OpUshrIntLit8, 0xe2},
		{OpRsubInt, 0xd1},
		{OpArrayPayload, 0x0300},
	} {
		v, ok := DefaultProfile().Value(tc.op)
		if !ok || v != tc.want {
			t.Fatalf("%s = 0x%x, %v; want 0x%x", tc.op, v, ok, tc.want)
		}
	}
	if DefaultProfile().Supports(OpConstMethodType) {
		t.Fatalf("const-method-type should need api 28")
	}
	if !(Profile{API: 28}).Supports(OpConstMethodType) {
		t.Fatalf("const-method-type missing at api 28")
	}
	if _, err := ForAPI(0); err == nil {
		t.Fatalf("ForAPI(0) succeeded")
	}
}
