package dex

import "github.com/waelchateur/ApkSignatureKill/fault"

// DefaultAPI is the API level used when none is configured. It predates ART,
// so the Dalvik values of the odex opcodes apply.
const DefaultAPI = 20

// Profile selects the opcode numbering of one platform API level.
type Profile struct {
	API int
}

func DefaultProfile() Profile { return Profile{API: DefaultAPI} }

// ForAPI returns the profile for api, which must be positive.
func ForAPI(api int) (Profile, error) {
	if api <= 0 {
		return Profile{}, fault.Newf(fault.KindOperandRange, "DEX-API-001", "invalid api level %d", api)
	}
	return Profile{API: api}, nil
}

// Value returns the numeric value of op at this API level.
func (p Profile) Value(op Opcode) (uint16, bool) {
	if op >= numOpcodes {
		return 0, false
	}
	for _, v := range opcodes[op].values {
		if p.API >= v.minAPI && p.API <= v.maxAPI {
			return v.value, true
		}
	}
	return 0, false
}

// Supports reports whether op has a value at this API level.
func (p Profile) Supports(op Opcode) bool {
	_, ok := p.Value(op)
	return ok
}

func (p Profile) value(op Opcode) (uint16, error) {
	v, ok := p.Value(op)
	if !ok {
		return 0, fault.Newf(fault.KindUnsupportedOperand, "DEX-OP-001", "instruction %s is invalid for api %d", op, p.API)
	}
	return v, nil
}
