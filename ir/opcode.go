package ir

import "strconv"

// Opcode identifies the operation of an instruction or constant expression.
type Opcode uint8

const (
	Ret Opcode = iota + 1
	Br
	Switch
	IndirectBr
	Invoke
	Resume
	Unreachable

	Add
	FAdd
	Sub
	FSub
	Mul
	FMul
	UDiv
	SDiv
	FDiv
	URem
	SRem
	FRem
	Shl
	LShr
	AShr
	And
	Or
	Xor

	Alloca
	Load
	Store
	GetElementPtr
	Fence
	AtomicCmpXchg
	AtomicRMW

	Trunc
	ZExt
	SExt
	FPToUI
	FPToSI
	UIToFP
	SIToFP
	FPTrunc
	FPExt
	PtrToInt
	IntToPtr
	BitCast
	AddrSpaceCast

	ICmp
	FCmp
	PHI
	Call
	Select
	VAArg
	ExtractElement
	InsertElement
	ShuffleVector
	ExtractValue
	InsertValue
	LandingPad
)

var opcodeNames = map[Opcode]string{
	Ret: "ret", Br: "br", Switch: "switch", IndirectBr: "indirectbr",
	Invoke: "invoke", Resume: "resume", Unreachable: "unreachable",
	Add: "add", FAdd: "fadd", Sub: "sub", FSub: "fsub", Mul: "mul",
	FMul: "fmul", UDiv: "udiv", SDiv: "sdiv", FDiv: "fdiv", URem: "urem",
	SRem: "srem", FRem: "frem", Shl: "shl", LShr: "lshr", AShr: "ashr",
	And: "and", Or: "or", Xor: "xor",
	Alloca: "alloca", Load: "load", Store: "store",
	GetElementPtr: "getelementptr", Fence: "fence",
	AtomicCmpXchg: "cmpxchg", AtomicRMW: "atomicrmw",
	Trunc: "trunc", ZExt: "zext", SExt: "sext", FPToUI: "fptoui",
	FPToSI: "fptosi", UIToFP: "uitofp", SIToFP: "sitofp",
	FPTrunc: "fptrunc", FPExt: "fpext", PtrToInt: "ptrtoint",
	IntToPtr: "inttoptr", BitCast: "bitcast", AddrSpaceCast: "addrspacecast",
	ICmp: "icmp", FCmp: "fcmp", PHI: "phi", Call: "call", Select: "select",
	VAArg: "va_arg", ExtractElement: "extractelement",
	InsertElement: "insertelement", ShuffleVector: "shufflevector",
	ExtractValue: "extractvalue", InsertValue: "insertvalue",
	LandingPad: "landingpad",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "opcode(" + strconv.Itoa(int(op)) + ")"
}

func (op Opcode) IsTerminator() bool { return op >= Ret && op <= Unreachable }
func (op Opcode) IsBinaryOp() bool   { return op >= Add && op <= Xor }
func (op Opcode) IsCast() bool       { return op >= Trunc && op <= AddrSpaceCast }

// IsShift is true for shl, lshr and ashr.
func (op Opcode) IsShift() bool { return op == Shl || op == LShr || op == AShr }

// IsFPBinaryOp is true for the floating point arithmetic operators.
func (op Opcode) IsFPBinaryOp() bool {
	switch op {
	case FAdd, FSub, FMul, FDiv, FRem:
		return true
	}
	return false
}

// Predicate is the condition of an icmp or fcmp.
type Predicate uint8

const (
	FCmpFalse Predicate = iota
	FCmpOEQ
	FCmpOGT
	FCmpOGE
	FCmpOLT
	FCmpOLE
	FCmpONE
	FCmpORD
	FCmpUNO
	FCmpUEQ
	FCmpUGT
	FCmpUGE
	FCmpULT
	FCmpULE
	FCmpUNE
	FCmpTrue
)

const (
	ICmpEQ Predicate = iota + 32
	ICmpNE
	ICmpUGT
	ICmpUGE
	ICmpULT
	ICmpULE
	ICmpSGT
	ICmpSGE
	ICmpSLT
	ICmpSLE
)

var predicateNames = [...]string{
	FCmpFalse: "false", FCmpOEQ: "oeq", FCmpOGT: "ogt", FCmpOGE: "oge",
	FCmpOLT: "olt", FCmpOLE: "ole", FCmpONE: "one", FCmpORD: "ord",
	FCmpUNO: "uno", FCmpUEQ: "ueq", FCmpUGT: "ugt", FCmpUGE: "uge",
	FCmpULT: "ult", FCmpULE: "ule", FCmpUNE: "une", FCmpTrue: "true",
	ICmpEQ: "eq", ICmpNE: "ne", ICmpUGT: "ugt", ICmpUGE: "uge",
	ICmpULT: "ult", ICmpULE: "ule", ICmpSGT: "sgt", ICmpSGE: "sge",
	ICmpSLT: "slt", ICmpSLE: "sle",
}

func (p Predicate) String() string {
	if int(p) < len(predicateNames) && predicateNames[p] != "" {
		return predicateNames[p]
	}
	return "pred(" + strconv.Itoa(int(p)) + ")"
}

func (p Predicate) IsFP() bool  { return p <= FCmpTrue }
func (p Predicate) IsInt() bool { return p >= ICmpEQ && p <= ICmpSLE }

// BinaryFlags are the poison-generating flags of integer operators.
type BinaryFlags uint8

const (
	NoUnsignedWrap BinaryFlags = 1 << iota
	NoSignedWrap
	Exact
)

// FastMathFlags relax floating point semantics. The bit layout matches the
// bitcode encoding.
type FastMathFlags uint8

const (
	UnsafeAlgebra FastMathFlags = 1 << iota
	NoNaNs
	NoInfs
	NoSignedZeros
	AllowReciprocal
)

// AtomicOrdering is the memory ordering of an atomic operation.
type AtomicOrdering uint8

const (
	NotAtomic              AtomicOrdering = 0
	Unordered              AtomicOrdering = 1
	Monotonic              AtomicOrdering = 2
	Acquire                AtomicOrdering = 4
	Release                AtomicOrdering = 5
	AcquireRelease         AtomicOrdering = 6
	SequentiallyConsistent AtomicOrdering = 7
)

func (o AtomicOrdering) String() string {
	switch o {
	case Unordered:
		return "unordered"
	case Monotonic:
		return "monotonic"
	case Acquire:
		return "acquire"
	case Release:
		return "release"
	case AcquireRelease:
		return "acq_rel"
	case SequentiallyConsistent:
		return "seq_cst"
	}
	return "notatomic"
}

// SynchScope says whether an atomic synchronizes with other threads.
type SynchScope uint8

const (
	SingleThread SynchScope = iota
	CrossThread
)

// AtomicRMWOp is the operation of an atomicrmw.
type AtomicRMWOp uint8

const (
	RMWXchg AtomicRMWOp = iota
	RMWAdd
	RMWSub
	RMWAnd
	RMWNand
	RMWOr
	RMWXor
	RMWMax
	RMWMin
	RMWUMax
	RMWUMin
)

var rmwNames = [...]string{"xchg", "add", "sub", "and", "nand", "or", "xor", "max", "min", "umax", "umin"}

func (op AtomicRMWOp) String() string {
	if int(op) < len(rmwNames) {
		return rmwNames[op]
	}
	return "rmw(" + strconv.Itoa(int(op)) + ")"
}

// TailCallKind marks call sites that may or must be tail calls.
type TailCallKind uint8

const (
	TailCallNone TailCallKind = iota
	TailCallTail
	TailCallMustTail
)
