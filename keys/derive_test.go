package keys

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func testSeed(b byte) []byte {
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = b + byte(i)
	}
	return seed
}

func TestDeriveRoleSeedDeterministic(t *testing.T) {
	root := testSeed(0)
	a, err := DeriveRoleSeed(root, "receipt")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	b, err := DeriveRoleSeed(root, "receipt")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("expected deterministic derivation")
	}
	c, err := DeriveRoleSeed(root, "store")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Fatalf("different roles derived the same seed")
	}
	if _, err := DeriveRoleSeed(root[:5], "receipt"); err == nil {
		t.Fatalf("expected error for short root seed")
	}
	if _, err := DeriveRoleSeed(root, "bad role"); err == nil {
		t.Fatalf("expected error for invalid role")
	}
}

func TestSeedFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "root.key")
	seed := testSeed(7)
	if err := SaveSeedFile(path, seed, false); err != nil {
		t.Fatalf("SaveSeedFile: %v", err)
	}
	if err := SaveSeedFile(path, seed, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := SaveSeedFile(path, seed, true); err != nil {
		t.Fatalf("SaveSeedFile overwrite: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	got, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if !bytes.Equal(got, seed) {
		t.Fatalf("seed mismatch")
	}
}

func TestParseSeedHex(t *testing.T) {
	if _, err := ParseSeedHex("0x" + "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff\n"); err != nil {
		t.Fatalf("ParseSeedHex: %v", err)
	}
	for _, bad := range []string{"", "zz", "0011"} {
		if _, err := ParseSeedHex(bad); err == nil {
			t.Fatalf("ParseSeedHex(%q): expected error", bad)
		}
	}
}
