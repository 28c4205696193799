// Package keys holds the signing keys for injection receipts.
//
// A receipt key is a 32-byte seed. Ed25519 uses it directly; Dilithium3
// expands it with SHAKE-256 so one seed drives either algorithm. Role seeds
// are derived from a root seed, so one root can sign for several purposes
// without sharing a key.
package keys
