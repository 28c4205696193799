package dex

import "fmt"

// Opcode identifies an instruction independently of its numeric value,
// which depends on the Profile.
type Opcode uint16

const (
	OpNop Opcode = iota
	OpMove
	OpMoveFrom16
	OpMove16
	OpMoveWide
	OpMoveWideFrom16
	OpMoveWide16
	OpMoveObject
	OpMoveObjectFrom16
	OpMoveObject16
	OpMoveResult
	OpMoveResultWide
	OpMoveResultObject
	OpMoveException
	OpReturnVoid
	OpReturn
	OpReturnWide
	OpReturnObject
	OpConst4
	OpConst16
	OpConst
	OpConstHigh16
	OpConstWide16
	OpConstWide32
	OpConstWide
	OpConstWideHigh16
	OpConstString
	OpConstStringJumbo
	OpConstClass
	OpMonitorEnter
	OpMonitorExit
	OpCheckCast
	OpInstanceOf
	OpArrayLength
	OpNewInstance
	OpNewArray
	OpFilledNewArray
	OpFilledNewArrayRange
	OpFillArrayData
	OpThrow
	OpGoto
	OpGoto16
	OpGoto32
	OpPackedSwitch
	OpSparseSwitch
	OpCmplFloat
	OpCmpgFloat
	OpCmplDouble
	OpCmpgDouble
	OpCmpLong
	OpIfEq
	OpIfNe
	OpIfLt
	OpIfGe
	OpIfGt
	OpIfLe
	OpIfEqz
	OpIfNez
	OpIfLtz
	OpIfGez
	OpIfGtz
	OpIfLez
	OpAget
	OpAgetWide
	OpAgetObject
	OpAgetBoolean
	OpAgetByte
	OpAgetChar
	OpAgetShort
	OpAput
	OpAputWide
	OpAputObject
	OpAputBoolean
	OpAputByte
	OpAputChar
	OpAputShort
	OpIget
	OpIgetWide
	OpIgetObject
	OpIgetBoolean
	OpIgetByte
	OpIgetChar
	OpIgetShort
	OpIput
	OpIputWide
	OpIputObject
	OpIputBoolean
	OpIputByte
	OpIputChar
	OpIputShort
	OpSget
	OpSgetWide
	OpSgetObject
	OpSgetBoolean
	OpSgetByte
	OpSgetChar
	OpSgetShort
	OpSput
	OpSputWide
	OpSputObject
	OpSputBoolean
	OpSputByte
	OpSputChar
	OpSputShort
	OpInvokeVirtual
	OpInvokeSuper
	OpInvokeDirect
	OpInvokeStatic
	OpInvokeInterface
	OpInvokeVirtualRange
	OpInvokeSuperRange
	OpInvokeDirectRange
	OpInvokeStaticRange
	OpInvokeInterfaceRange
	OpNegInt
	OpNotInt
	OpNegLong
	OpNotLong
	OpNegFloat
	OpNegDouble
	OpIntToLong
	OpIntToFloat
	OpIntToDouble
	OpLongToInt
	OpLongToFloat
	OpLongToDouble
	OpFloatToInt
	OpFloatToLong
	OpFloatToDouble
	OpDoubleToInt
	OpDoubleToLong
	OpDoubleToFloat
	OpIntToByte
	OpIntToChar
	OpIntToShort
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpRemInt
	OpAndInt
	OpOrInt
	OpXorInt
	OpShlInt
	OpShrInt
	OpUshrInt
	OpAddLong
	OpSubLong
	OpMulLong
	OpDivLong
	OpRemLong
	OpAndLong
	OpOrLong
	OpXorLong
	OpShlLong
	OpShrLong
	OpUshrLong
	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat
	OpRemFloat
	OpAddDouble
	OpSubDouble
	OpMulDouble
	OpDivDouble
	OpRemDouble
	OpAddInt2Addr
	OpSubInt2Addr
	OpMulInt2Addr
	OpDivInt2Addr
	OpRemInt2Addr
	OpAndInt2Addr
	OpOrInt2Addr
	OpXorInt2Addr
	OpShlInt2Addr
	OpShrInt2Addr
	OpUshrInt2Addr
	OpAddLong2Addr
	OpSubLong2Addr
	OpMulLong2Addr
	OpDivLong2Addr
	OpRemLong2Addr
	OpAndLong2Addr
	OpOrLong2Addr
	OpXorLong2Addr
	OpShlLong2Addr
	OpShrLong2Addr
	OpUshrLong2Addr
	OpAddFloat2Addr
	OpSubFloat2Addr
	OpMulFloat2Addr
	OpDivFloat2Addr
	OpRemFloat2Addr
	OpAddDouble2Addr
	OpSubDouble2Addr
	OpMulDouble2Addr
	OpDivDouble2Addr
	OpRemDouble2Addr
	OpAddIntLit16
	OpRsubInt
	OpMulIntLit16
	OpDivIntLit16
	OpRemIntLit16
	OpAndIntLit16
	OpOrIntLit16
	OpXorIntLit16
	OpAddIntLit8
	OpRsubIntLit8
	OpMulIntLit8
	OpDivIntLit8
	OpRemIntLit8
	OpAndIntLit8
	OpOrIntLit8
	OpXorIntLit8
	OpShlIntLit8
	OpShrIntLit8
	OpUshrIntLit8
	OpIgetVolatile
	OpIputVolatile
	OpSgetVolatile
	OpSputVolatile
	OpThrowVerificationError
	OpExecuteInline
	OpExecuteInlineRange
	OpIgetQuick
	OpIgetWideQuick
	OpIgetObjectQuick
	OpIputQuick
	OpIputWideQuick
	OpIputObjectQuick
	OpInvokeVirtualQuick
	OpInvokeVirtualQuickRange
	OpInvokeSuperQuick
	OpInvokeSuperQuickRange
	OpInvokePolymorphic
	OpInvokePolymorphicRange
	OpInvokeCustom
	OpInvokeCustomRange
	OpConstMethodHandle
	OpConstMethodType
	OpPackedSwitchPayload
	OpSparseSwitchPayload
	OpArrayPayload

	numOpcodes
)

// Highest API level the quickened ART forms exist at; they were dropped
// together with the odex instruction set.
const lastQuickAPI = 30

const maxAPI = 1<<31 - 1

type apiValue struct {
	minAPI, maxAPI int
	value          uint16
}

type opcodeInfo struct {
	name   string
	format Format
	ref    ReferenceKind
	ref2   ReferenceKind
	values []apiValue
}

func always(v uint16) []apiValue { return []apiValue{{0, maxAPI, v}} }

var opcodes = [numOpcodes]opcodeInfo{
	{"nop", Format10x, RefNone, RefNone, always(0x00)},
	{"move", Format12x, RefNone, RefNone, always(0x01)},
	{"move/from16", Format22x, RefNone, RefNone, always(0x02)},
	{"move/16", Format32x, RefNone, RefNone, always(0x03)},
	{"move-wide", Format12x, RefNone, RefNone, always(0x04)},
	{"move-wide/from16", Format22x, RefNone, RefNone, always(0x05)},
	{"move-wide/16", Format32x, RefNone, RefNone, always(0x06)},
	{"move-object", Format12x, RefNone, RefNone, always(0x07)},
	{"move-object/from16", Format22x, RefNone, RefNone, always(0x08)},
	{"move-object/16", Format32x, RefNone, RefNone, always(0x09)},
	{"move-result", Format11x, RefNone, RefNone, always(0x0a)},
	{"move-result-wide", Format11x, RefNone, RefNone, always(0x0b)},
	{"move-result-object", Format11x, RefNone, RefNone, always(0x0c)},
	{"move-exception", Format11x, RefNone, RefNone, always(0x0d)},
	{"return-void", Format10x, RefNone, RefNone, always(0x0e)},
	{"return", Format11x, RefNone, RefNone, always(0x0f)},
	{"return-wide", Format11x, RefNone, RefNone, always(0x10)},
	{"return-object", Format11x, RefNone, RefNone, always(0x11)},
	{"const/4", Format11n, RefNone, RefNone, always(0x12)},
	{"const/16", Format21s, RefNone, RefNone, always(0x13)},
	{"const", Format31i, RefNone, RefNone, always(0x14)},
	{"const/high16", Format21ih, RefNone, RefNone, always(0x15)},
	{"const-wide/16", Format21s, RefNone, RefNone, always(0x16)},
	{"const-wide/32", Format31i, RefNone, RefNone, always(0x17)},
	{"const-wide", Format51l, RefNone, RefNone, always(0x18)},
	{"const-wide/high16", Format21lh, RefNone, RefNone, always(0x19)},
	{"const-string", Format21c, RefString, RefNone, always(0x1a)},
	{"const-string/jumbo", Format31c, RefString, RefNone, always(0x1b)},
	{"const-class", Format21c, RefType, RefNone, always(0x1c)},
	{"monitor-enter", Format11x, RefNone, RefNone, always(0x1d)},
	{"monitor-exit", Format11x, RefNone, RefNone, always(0x1e)},
	{"check-cast", Format21c, RefType, RefNone, always(0x1f)},
	{"instance-of", Format22c, RefType, RefNone, always(0x20)},
	{"array-length", Format12x, RefNone, RefNone, always(0x21)},
	{"new-instance", Format21c, RefType, RefNone, always(0x22)},
	{"new-array", Format22c, RefType, RefNone, always(0x23)},
	{"filled-new-array", Format35c, RefType, RefNone, always(0x24)},
	{"filled-new-array/range", Format3rc, RefType, RefNone, always(0x25)},
	{"fill-array-data", Format31t, RefNone, RefNone, always(0x26)},
	{"throw", Format11x, RefNone, RefNone, always(0x27)},
	{"goto", Format10t, RefNone, RefNone, always(0x28)},
	{"goto/16", Format20t, RefNone, RefNone, always(0x29)},
	{"goto/32", Format30t, RefNone, RefNone, always(0x2a)},
	{"packed-switch", Format31t, RefNone, RefNone, always(0x2b)},
	{"sparse-switch", Format31t, RefNone, RefNone, always(0x2c)},
	{"cmpl-float", Format23x, RefNone, RefNone, always(0x2d)},
	{"cmpg-float", Format23x, RefNone, RefNone, always(0x2e)},
	{"cmpl-double", Format23x, RefNone, RefNone, always(0x2f)},
	{"cmpg-double", Format23x, RefNone, RefNone, always(0x30)},
	{"cmp-long", Format23x, RefNone, RefNone, always(0x31)},
	{"if-eq", Format22t, RefNone, RefNone, always(0x32)},
	{"if-ne", Format22t, RefNone, RefNone, always(0x33)},
	{"if-lt", Format22t, RefNone, RefNone, always(0x34)},
	{"if-ge", Format22t, RefNone, RefNone, always(0x35)},
	{"if-gt", Format22t, RefNone, RefNone, always(0x36)},
	{"if-le", Format22t, RefNone, RefNone, always(0x37)},
	{"if-eqz", Format21t, RefNone, RefNone, always(0x38)},
	{"if-nez", Format21t, RefNone, RefNone, always(0x39)},
	{"if-ltz", Format21t, RefNone, RefNone, always(0x3a)},
	{"if-gez", Format21t, RefNone, RefNone, always(0x3b)},
	{"if-gtz", Format21t, RefNone, RefNone, always(0x3c)},
	{"if-lez", Format21t, RefNone, RefNone, always(0x3d)},
	{"aget", Format23x, RefNone, RefNone, always(0x44)},
	{"aget-wide", Format23x, RefNone, RefNone, always(0x45)},
	{"aget-object", Format23x, RefNone, RefNone, always(0x46)},
	{"aget-boolean", Format23x, RefNone, RefNone, always(0x47)},
	{"aget-byte", Format23x, RefNone, RefNone, always(0x48)},
	{"aget-char", Format23x, RefNone, RefNone, always(0x49)},
	{"aget-short", Format23x, RefNone, RefNone, always(0x4a)},
	{"aput", Format23x, RefNone, RefNone, always(0x4b)},
	{"aput-wide", Format23x, RefNone, RefNone, always(0x4c)},
	{"aput-object", Format23x, RefNone, RefNone, always(0x4d)},
	{"aput-boolean", Format23x, RefNone, RefNone, always(0x4e)},
	{"aput-byte", Format23x, RefNone, RefNone, always(0x4f)},
	{"aput-char", Format23x, RefNone, RefNone, always(0x50)},
	{"aput-short", Format23x, RefNone, RefNone, always(0x51)},
	{"iget", Format22c, RefField, RefNone, always(0x52)},
	{"iget-wide", Format22c, RefField, RefNone, always(0x53)},
	{"iget-object", Format22c, RefField, RefNone, always(0x54)},
	{"iget-boolean", Format22c, RefField, RefNone, always(0x55)},
	{"iget-byte", Format22c, RefField, RefNone, always(0x56)},
	{"iget-char", Format22c, RefField, RefNone, always(0x57)},
	{"iget-short", Format22c, RefField, RefNone, always(0x58)},
	{"iput", Format22c, RefField, RefNone, always(0x59)},
	{"iput-wide", Format22c, RefField, RefNone, always(0x5a)},
	{"iput-object", Format22c, RefField, RefNone, always(0x5b)},
	{"iput-boolean", Format22c, RefField, RefNone, always(0x5c)},
	{"iput-byte", Format22c, RefField, RefNone, always(0x5d)},
	{"iput-char", Format22c, RefField, RefNone, always(0x5e)},
	{"iput-short", Format22c, RefField, RefNone, always(0x5f)},
	{"sget", Format21c, RefField, RefNone, always(0x60)},
	{"sget-wide", Format21c, RefField, RefNone, always(0x61)},
	{"sget-object", Format21c, RefField, RefNone, always(0x62)},
	{"sget-boolean", Format21c, RefField, RefNone, always(0x63)},
	{"sget-byte", Format21c, RefField, RefNone, always(0x64)},
	{"sget-char", Format21c, RefField, RefNone, always(0x65)},
	{"sget-short", Format21c, RefField, RefNone, always(0x66)},
	{"sput", Format21c, RefField, RefNone, always(0x67)},
	{"sput-wide", Format21c, RefField, RefNone, always(0x68)},
	{"sput-object", Format21c, RefField, RefNone, always(0x69)},
	{"sput-boolean", Format21c, RefField, RefNone, always(0x6a)},
	{"sput-byte", Format21c, RefField, RefNone, always(0x6b)},
	{"sput-char", Format21c, RefField, RefNone, always(0x6c)},
	{"sput-short", Format21c, RefField, RefNone, always(0x6d)},
	{"invoke-virtual", Format35c, RefMethod, RefNone, always(0x6e)},
	{"invoke-super", Format35c, RefMethod, RefNone, always(0x6f)},
	{"invoke-direct", Format35c, RefMethod, RefNone, always(0x70)},
	{"invoke-static", Format35c, RefMethod, RefNone, always(0x71)},
	{"invoke-interface", Format35c, RefMethod, RefNone, always(0x72)},
	{"invoke-virtual/range", Format3rc, RefMethod, RefNone, always(0x74)},
	{"invoke-super/range", Format3rc, RefMethod, RefNone, always(0x75)},
	{"invoke-direct/range", Format3rc, RefMethod, RefNone, always(0x76)},
	{"invoke-static/range", Format3rc, RefMethod, RefNone, always(0x77)},
	{"invoke-interface/range", Format3rc, RefMethod, RefNone, always(0x78)},
	{"neg-int", Format12x, RefNone, RefNone, always(0x7b)},
	{"not-int", Format12x, RefNone, RefNone, always(0x7c)},
	{"neg-long", Format12x, RefNone, RefNone, always(0x7d)},
	{"not-long", Format12x, RefNone, RefNone, always(0x7e)},
	{"neg-float", Format12x, RefNone, RefNone, always(0x7f)},
	{"neg-double", Format12x, RefNone, RefNone, always(0x80)},
	{"int-to-long", Format12x, RefNone, RefNone, always(0x81)},
	{"int-to-float", Format12x, RefNone, RefNone, always(0x82)},
	{"int-to-double", Format12x, RefNone, RefNone, always(0x83)},
	{"long-to-int", Format12x, RefNone, RefNone, always(0x84)},
	{"long-to-float", Format12x, RefNone, RefNone, always(0x85)},
	{"long-to-double", Format12x, RefNone, RefNone, always(0x86)},
	{"float-to-int", Format12x, RefNone, RefNone, always(0x87)},
	{"float-to-long", Format12x, RefNone, RefNone, always(0x88)},
	{"float-to-double", Format12x, RefNone, RefNone, always(0x89)},
	{"double-to-int", Format12x, RefNone, RefNone, always(0x8a)},
	{"double-to-long", Format12x, RefNone, RefNone, always(0x8b)},
	{"double-to-float", Format12x, RefNone, RefNone, always(0x8c)},
	{"int-to-byte", Format12x, RefNone, RefNone, always(0x8d)},
	{"int-to-char", Format12x, RefNone, RefNone, always(0x8e)},
	{"int-to-short", Format12x, RefNone, RefNone, always(0x8f)},
	{"add-int", Format23x, RefNone, RefNone, always(0x90)},
	{"sub-int", Format23x, RefNone, RefNone, always(0x91)},
	{"mul-int", Format23x, RefNone, RefNone, always(0x92)},
	{"div-int", Format23x, RefNone, RefNone, always(0x93)},
	{"rem-int", Format23x, RefNone, RefNone, always(0x94)},
	{"and-int", Format23x, RefNone, RefNone, always(0x95)},
	{"or-int", Format23x, RefNone, RefNone, always(0x96)},
	{"xor-int", Format23x, RefNone, RefNone, always(0x97)},
	{"shl-int", Format23x, RefNone, RefNone, always(0x98)},
	{"shr-int", Format23x, RefNone, RefNone, always(0x99)},
	{"ushr-int", Format23x, RefNone, RefNone, always(0x9a)},
	{"add-long", Format23x, RefNone, RefNone, always(0x9b)},
	{"sub-long", Format23x, RefNone, RefNone, always(0x9c)},
	{"mul-long", Format23x, RefNone, RefNone, always(0x9d)},
	{"div-long", Format23x, RefNone, RefNone, always(0x9e)},
	{"rem-long", Format23x, RefNone, RefNone, always(0x9f)},
	{"and-long", Format23x, RefNone, RefNone, always(0xa0)},
	{"or-long", Format23x, RefNone, RefNone, always(0xa1)},
	{"xor-long", Format23x, RefNone, RefNone, always(0xa2)},
	{"shl-long", Format23x, RefNone, RefNone, always(0xa3)},
	{"shr-long", Format23x, RefNone, RefNone, always(0xa4)},
	{"ushr-long", Format23x, RefNone, RefNone, always(0xa5)},
	{"add-float", Format23x, RefNone, RefNone, always(0xa6)},
	{"sub-float", Format23x, RefNone, RefNone, always(0xa7)},
	{"mul-float", Format23x, RefNone, RefNone, always(0xa8)},
	{"div-float", Format23x, RefNone, RefNone, always(0xa9)},
	{"rem-float", Format23x, RefNone, RefNone, always(0xaa)},
	{"add-double", Format23x, RefNone, RefNone, always(0xab)},
	{"sub-double", Format23x, RefNone, RefNone, always(0xac)},
	{"mul-double", Format23x, RefNone, RefNone, always(0xad)},
	{"div-double", Format23x, RefNone, RefNone, always(0xae)},
	{"rem-double", Format23x, RefNone, RefNone, always(0xaf)},
	{"add-int/2addr", Format12x, RefNone, RefNone, always(0xb0)},
	{"sub-int/2addr", Format12x, RefNone, RefNone, always(0xb1)},
	{"mul-int/2addr", Format12x, RefNone, RefNone, always(0xb2)},
	{"div-int/2addr", Format12x, RefNone, RefNone, always(0xb3)},
	{"rem-int/2addr", Format12x, RefNone, RefNone, always(0xb4)},
	{"and-int/2addr", Format12x, RefNone, RefNone, always(0xb5)},
	{"or-int/2addr", Format12x, RefNone, RefNone, always(0xb6)},
	{"xor-int/2addr", Format12x, RefNone, RefNone, always(0xb7)},
	{"shl-int/2addr", Format12x, RefNone, RefNone, always(0xb8)},
	{"shr-int/2addr", Format12x, RefNone, RefNone, always(0xb9)},
	{"ushr-int/2addr", Format12x, RefNone, RefNone, always(0xba)},
	{"add-long/2addr", Format12x, RefNone, RefNone, always(0xbb)},
	{"sub-long/2addr", Format12x, RefNone, RefNone, always(0xbc)},
	{"mul-long/2addr", Format12x, RefNone, RefNone, always(0xbd)},
	{"div-long/2addr", Format12x, RefNone, RefNone, always(0xbe)},
	{"rem-long/2addr", Format12x, RefNone, RefNone, always(0xbf)},
	{"and-long/2addr", Format12x, RefNone, RefNone, always(0xc0)},
	{"or-long/2addr", Format12x, RefNone, RefNone, always(0xc1)},
	{"xor-long/2addr", Format12x, RefNone, RefNone, always(0xc2)},
	{"shl-long/2addr", Format12x, RefNone, RefNone, always(0xc3)},
	{"shr-long/2addr", Format12x, RefNone, RefNone, always(0xc4)},
	{"ushr-long/2addr", Format12x, RefNone, RefNone, always(0xc5)},
	{"add-float/2addr", Format12x, RefNone, RefNone, always(0xc6)},
	{"sub-float/2addr", Format12x, RefNone, RefNone, always(0xc7)},
	{"mul-float/2addr", Format12x, RefNone, RefNone, always(0xc8)},
	{"div-float/2addr", Format12x, RefNone, RefNone, always(0xc9)},
	{"rem-float/2addr", Format12x, RefNone, RefNone, always(0xca)},
	{"add-double/2addr", Format12x, RefNone, RefNone, always(0xcb)},
	{"sub-double/2addr", Format12x, RefNone, RefNone, always(0xcc)},
	{"mul-double/2addr", Format12x, RefNone, RefNone, always(0xcd)},
	{"div-double/2addr", Format12x, RefNone, RefNone, always(0xce)},
	{"rem-double/2addr", Format12x, RefNone, RefNone, always(0xcf)},
	{"add-int/lit16", Format22s, RefNone, RefNone, always(0xd0)},
	{"rsub-int", Format22s, RefNone, RefNone, always(0xd1)},
	{"mul-int/lit16", Format22s, RefNone, RefNone, always(0xd2)},
	{"div-int/lit16", Format22s, RefNone, RefNone, always(0xd3)},
	{"rem-int/lit16", Format22s, RefNone, RefNone, always(0xd4)},
	{"and-int/lit16", Format22s, RefNone, RefNone, always(0xd5)},
	{"or-int/lit16", Format22s, RefNone, RefNone, always(0xd6)},
	{"xor-int/lit16", Format22s, RefNone, RefNone, always(0xd7)},
	{"add-int/lit8", Format22b, RefNone, RefNone, always(0xd8)},
	{"rsub-int/lit8", Format22b, RefNone, RefNone, always(0xd9)},
	{"mul-int/lit8", Format22b, RefNone, RefNone, always(0xda)},
	{"div-int/lit8", Format22b, RefNone, RefNone, always(0xdb)},
	{"rem-int/lit8", Format22b, RefNone, RefNone, always(0xdc)},
	{"and-int/lit8", Format22b, RefNone, RefNone, always(0xdd)},
	{"or-int/lit8", Format22b, RefNone, RefNone, always(0xde)},
	{"xor-int/lit8", Format22b, RefNone, RefNone, always(0xdf)},
	{"shl-int/lit8", Format22b, RefNone, RefNone, always(0xe0)},
	{"shr-int/lit8", Format22b, RefNone, RefNone, always(0xe1)},
	{"ushr-int/lit8", Format22b, RefNone, RefNone, always(0xe2)},
	{"iget-volatile", Format22c, RefField, RefNone, []apiValue{{9, 20, 0xe3}}},
	{"iput-volatile", Format22c, RefField, RefNone, []apiValue{{9, 20, 0xe4}}},
	{"sget-volatile", Format21c, RefField, RefNone, []apiValue{{9, 20, 0xe5}}},
	{"sput-volatile", Format21c, RefField, RefNone, []apiValue{{9, 20, 0xe6}}},
	{"throw-verification-error", Format20bc, RefNone, RefNone, []apiValue{{5, 20, 0xed}}},
	{"execute-inline", Format35mi, RefNone, RefNone, []apiValue{{0, 20, 0xee}}},
	{"execute-inline/range", Format3rmi, RefNone, RefNone, []apiValue{{8, 20, 0xef}}},
	{"iget-quick", Format22cs, RefNone, RefNone, []apiValue{{0, 20, 0xf2}, {21, lastQuickAPI, 0xe3}}},
	{"iget-wide-quick", Format22cs, RefNone, RefNone, []apiValue{{0, 20, 0xf3}, {21, lastQuickAPI, 0xe4}}},
	{"iget-object-quick", Format22cs, RefNone, RefNone, []apiValue{{0, 20, 0xf4}, {21, lastQuickAPI, 0xe5}}},
	{"iput-quick", Format22cs, RefNone, RefNone, []apiValue{{0, 20, 0xf5}, {21, lastQuickAPI, 0xe6}}},
	{"iput-wide-quick", Format22cs, RefNone, RefNone, []apiValue{{0, 20, 0xf6}, {21, lastQuickAPI, 0xe7}}},
	{"iput-object-quick", Format22cs, RefNone, RefNone, []apiValue{{0, 20, 0xf7}, {21, lastQuickAPI, 0xe8}}},
	{"invoke-virtual-quick", Format35ms, RefNone, RefNone, []apiValue{{0, 20, 0xf8}, {21, lastQuickAPI, 0xe9}}},
	{"invoke-virtual-quick/range", Format3rms, RefNone, RefNone, []apiValue{{0, 20, 0xf9}, {21, lastQuickAPI, 0xea}}},
	{"invoke-super-quick", Format35ms, RefNone, RefNone, []apiValue{{0, 20, 0xfa}}},
	{"invoke-super-quick/range", Format3rms, RefNone, RefNone, []apiValue{{0, 20, 0xfb}}},
	{"invoke-polymorphic", Format45cc, RefMethod, RefMethodProto, []apiValue{{26, maxAPI, 0xfa}}},
	{"invoke-polymorphic/range", Format4rcc, RefMethod, RefMethodProto, []apiValue{{26, maxAPI, 0xfb}}},
	{"invoke-custom", Format35c, RefCallSite, RefNone, []apiValue{{26, maxAPI, 0xfc}}},
	{"invoke-custom/range", Format3rc, RefCallSite, RefNone, []apiValue{{26, maxAPI, 0xfd}}},
	{"const-method-handle", Format21c, RefMethodHandle, RefNone, []apiValue{{28, maxAPI, 0xfe}}},
	{"const-method-type", Format21c, RefMethodProto, RefNone, []apiValue{{28, maxAPI, 0xff}}},
	{"packed-switch-payload", FormatPackedSwitchPayload, RefNone, RefNone, always(0x0100)},
	{"sparse-switch-payload", FormatSparseSwitchPayload, RefNone, RefNone, always(0x0200)},
	{"array-payload", FormatArrayPayload, RefNone, RefNone, always(0x0300)},
}

// String returns the smali mnemonic.
func (o Opcode) String() string {
	if o < numOpcodes {
		return opcodes[o].name
	}
	return fmt.Sprintf("opcode(%d)", uint16(o))
}

// Format returns the encoding format of o.
func (o Opcode) Format() Format {
	if o < numOpcodes {
		return opcodes[o].format
	}
	return FormatUnknown
}

// ReferenceKind returns the kind of the first reference operand of o.
func (o Opcode) ReferenceKind() ReferenceKind {
	if o < numOpcodes {
		return opcodes[o].ref
	}
	return RefNone
}

// ReferenceKind2 returns the kind of the second reference operand of o, for
// the dual-reference formats.
func (o Opcode) ReferenceKind2() ReferenceKind {
	if o < numOpcodes {
		return opcodes[o].ref2
	}
	return RefNone
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for i := range opcodes {
		m[opcodes[i].name] = Opcode(i)
	}
	return m
}()

// OpcodeByName looks up an opcode by its smali mnemonic.
func OpcodeByName(name string) (Opcode, bool) {
	o, ok := opcodesByName[name]
	return o, ok
}
