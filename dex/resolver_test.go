package dex

import (
	"slices"
	"testing"
)

func TestTable_InternIsStable(t *testing.T) {
	tab := NewTable[StringRef]()
	a := tab.Intern("b")
	b := tab.Intern("a")
	if again := tab.Intern("b"); again != a {
		t.Fatalf("re-interning changed index %d -> %d", a, again)
	}
	if tab.Len() != 2 || a != 0 || b != 1 {
		t.Fatalf("unexpected indices a=%d b=%d len=%d", a, b, tab.Len())
	}
	tab.SortFunc(func(x, y StringRef) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	})
	if i, _ := tab.ItemIndex("a"); i != 0 {
		t.Fatalf("after sort a is at %d", i)
	}
	if !slices.Equal(tab.Items(), []StringRef{"a", "b"}) {
		t.Fatalf("items = %v", tab.Items())
	}
}

func TestTables_InternClosesOverComponents(t *testing.T) {
	tabs := NewTables()
	m := MethodRef{Class: "Lcom/example/Hook;", Name: "attachBaseContext", Proto: "(Landroid/content/Context;)V"}
	if _, err := tabs.InternMethod(m); err != nil {
		t.Fatalf("InternMethod: %v", err)
	}
	for _, s := range []StringRef{"Lcom/example/Hook;", "attachBaseContext", "Landroid/content/Context;", "V", "VL"} {
		if _, ok := tabs.Strings.ItemIndex(s); !ok {
			t.Fatalf("string %q not interned", s)
		}
	}
	for _, ty := range []TypeRef{"Lcom/example/Hook;", "Landroid/content/Context;", "V"} {
		if _, ok := tabs.Types.ItemIndex(ty); !ok {
			t.Fatalf("type %q not interned", ty)
		}
	}
	if _, err := tabs.InternMethod(MethodRef{Class: "La;", Name: "x", Proto: "V"}); err == nil {
		t.Fatalf("bad proto accepted")
	}
}

func TestTables_SortOrdersByContainerRules(t *testing.T) {
	tabs := NewTables()
	tabs.InternType("Lz/Z;")
	tabs.InternType("La/A;")
	tabs.InternString("Zebra")
	tabs.InternString("apple")
	tabs.Sort()

	strs := tabs.Strings.Items()
	if !slices.IsSortedFunc(strs, func(a, b StringRef) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}) {
		t.Fatalf("strings not sorted: %v", strs)
	}
	types := tabs.Types.Items()
	if types[0] != "La/A;" || types[1] != "Lz/Z;" {
		t.Fatalf("types = %v", types)
	}
	for i, ty := range types {
		if got, _ := tabs.Resolve(RefType, ty); got != uint32(i) {
			t.Fatalf("Resolve(%s) = %d, want %d", ty, got, i)
		}
	}
}

func TestSplitProto(t *testing.T) {
	params, ret, err := SplitProto("(I[JLjava/lang/String;[[Lx;)Z")
	if err != nil {
		t.Fatalf("SplitProto: %v", err)
	}
	if !slices.Equal(params, []string{"I", "[J", "Ljava/lang/String;", "[[Lx;"}) || ret != "Z" {
		t.Fatalf("params=%v ret=%s", params, ret)
	}
	if s, _ := Shorty("(I[JLjava/lang/String;)V"); s != "VILL" {
		t.Fatalf("shorty = %s", s)
	}
	if n, _ := RegisterWords("(JIDLx;)V"); n != 6 {
		t.Fatalf("register words = %d", n)
	}
	for _, bad := range []string{"I)V", "(I", "(Lx)V", "(Q)V", "()"} {
		if _, _, err := SplitProto(bad); err == nil {
			t.Fatalf("SplitProto(%q) succeeded", bad)
		}
	}
}
