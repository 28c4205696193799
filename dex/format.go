package dex

// Format is an instruction encoding layout, named after the Dalvik
// format ids (size in code units, register count, operand kind).
type Format uint8

const (
	FormatUnknown Format = iota
	Format10t
	Format10x
	Format11n
	Format11x
	Format12x
	Format20bc
	Format20t
	Format21c
	Format21ih
	Format21lh
	Format21s
	Format21t
	Format22b
	Format22c
	Format22cs
	Format22s
	Format22t
	Format22x
	Format23x
	Format30t
	Format31c
	Format31i
	Format31t
	Format32x
	Format35c
	Format35mi
	Format35ms
	Format3rc
	Format3rmi
	Format3rms
	Format45cc
	Format4rcc
	Format51l
	FormatArrayPayload
	FormatPackedSwitchPayload
	FormatSparseSwitchPayload
)

var formatNames = [...]string{
	FormatUnknown:             "unknown",
	Format10t:                 "10t",
	Format10x:                 "10x",
	Format11n:                 "11n",
	Format11x:                 "11x",
	Format12x:                 "12x",
	Format20bc:                "20bc",
	Format20t:                 "20t",
	Format21c:                 "21c",
	Format21ih:                "21ih",
	Format21lh:                "21lh",
	Format21s:                 "21s",
	Format21t:                 "21t",
	Format22b:                 "22b",
	Format22c:                 "22c",
	Format22cs:                "22cs",
	Format22s:                 "22s",
	Format22t:                 "22t",
	Format22x:                 "22x",
	Format23x:                 "23x",
	Format30t:                 "30t",
	Format31c:                 "31c",
	Format31i:                 "31i",
	Format31t:                 "31t",
	Format32x:                 "32x",
	Format35c:                 "35c",
	Format35mi:                "35mi",
	Format35ms:                "35ms",
	Format3rc:                 "3rc",
	Format3rmi:                "3rmi",
	Format3rms:                "3rms",
	Format45cc:                "45cc",
	Format4rcc:                "4rcc",
	Format51l:                 "51l",
	FormatArrayPayload:        "array-payload",
	FormatPackedSwitchPayload: "packed-switch-payload",
	FormatSparseSwitchPayload: "sparse-switch-payload",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

// Size returns the encoded size in bytes of the fixed-size formats, or -1
// for the variable-size payloads.
func (f Format) Size() int {
	switch f {
	case Format10t, Format10x, Format11n, Format11x, Format12x:
		return 2
	case Format20bc, Format20t, Format21c, Format21ih, Format21lh, Format21s, Format21t,
		Format22b, Format22c, Format22cs, Format22s, Format22t, Format22x, Format23x:
		return 4
	case Format30t, Format31c, Format31i, Format31t, Format32x,
		Format35c, Format35mi, Format35ms, Format3rc, Format3rmi, Format3rms:
		return 6
	case Format45cc, Format4rcc:
		return 8
	case Format51l:
		return 10
	default:
		return -1
	}
}
