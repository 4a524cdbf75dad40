package bitcode

import (
	"github.com/chazu/dilithium/ir"
)

// decodeBinaryOpcode maps a bitcode BINOP code to an opcode for operands of
// type t. It returns false for codes that are invalid on t.
func decodeBinaryOpcode(code uint64, t *ir.Type) (ir.Opcode, bool) {
	isFP := t.IsFPOrFPVector()
	if !isFP && !t.IsIntOrIntVector() {
		return 0, false
	}
	pick := func(i, f ir.Opcode) (ir.Opcode, bool) {
		if isFP {
			return f, f != 0
		}
		return i, i != 0
	}
	switch code {
	case 0:
		return pick(ir.Add, ir.FAdd)
	case 1:
		return pick(ir.Sub, ir.FSub)
	case 2:
		return pick(ir.Mul, ir.FMul)
	case 3:
		return pick(ir.UDiv, 0)
	case 4:
		return pick(ir.SDiv, ir.FDiv)
	case 5:
		return pick(ir.URem, 0)
	case 6:
		return pick(ir.SRem, ir.FRem)
	case 7:
		return pick(ir.Shl, 0)
	case 8:
		return pick(ir.LShr, 0)
	case 9:
		return pick(ir.AShr, 0)
	case 10:
		return pick(ir.And, 0)
	case 11:
		return pick(ir.Or, 0)
	case 12:
		return pick(ir.Xor, 0)
	}
	return 0, false
}

var castOpcodes = [...]ir.Opcode{
	ir.Trunc, ir.ZExt, ir.SExt, ir.FPToUI, ir.FPToSI, ir.UIToFP, ir.SIToFP,
	ir.FPTrunc, ir.FPExt, ir.PtrToInt, ir.IntToPtr, ir.BitCast, ir.AddrSpaceCast,
}

func decodeCastOpcode(code uint64) (ir.Opcode, bool) {
	if code >= uint64(len(castOpcodes)) {
		return 0, false
	}
	return castOpcodes[code], true
}

// decodeBinaryFlags reads the optional flags operand of a binary operator.
func decodeBinaryFlags(op ir.Opcode, v uint64) ir.BinaryFlags {
	var flags ir.BinaryFlags
	switch op {
	case ir.Add, ir.Sub, ir.Mul, ir.Shl:
		if v&(1<<oboNoSignedWrap) != 0 {
			flags |= ir.NoSignedWrap
		}
		if v&(1<<oboNoUnsignedWrap) != 0 {
			flags |= ir.NoUnsignedWrap
		}
	case ir.SDiv, ir.UDiv, ir.LShr, ir.AShr:
		if v&(1<<peoExact) != 0 {
			flags |= ir.Exact
		}
	}
	return flags
}

func decodeFastMathFlags(v uint64) ir.FastMathFlags {
	return ir.FastMathFlags(v) & (ir.UnsafeAlgebra | ir.NoNaNs | ir.NoInfs | ir.NoSignedZeros | ir.AllowReciprocal)
}

// decodeOrdering maps the bitcode atomic ordering, which skips the value
// reserved for consume.
func decodeOrdering(v uint64) ir.AtomicOrdering {
	switch v {
	case 0:
		return ir.NotAtomic
	case 1:
		return ir.Unordered
	case 2:
		return ir.Monotonic
	case 3:
		return ir.Acquire
	case 4:
		return ir.Release
	case 5:
		return ir.AcquireRelease
	}
	return ir.SequentiallyConsistent
}

func decodeSynchScope(v uint64) ir.SynchScope {
	if v == 0 {
		return ir.SingleThread
	}
	return ir.CrossThread
}

func decodeRMWOp(v uint64) (ir.AtomicRMWOp, bool) {
	if v > uint64(ir.RMWUMin) {
		return 0, false
	}
	return ir.AtomicRMWOp(v), true
}

// strongestFailureOrdering is the failure ordering implied by a success
// ordering in cmpxchg records that predate the explicit field.
func strongestFailureOrdering(success ir.AtomicOrdering) ir.AtomicOrdering {
	switch success {
	case ir.AcquireRelease, ir.Acquire:
		return ir.Acquire
	case ir.Release, ir.Monotonic:
		return ir.Monotonic
	case ir.SequentiallyConsistent:
		return ir.SequentiallyConsistent
	}
	return ir.NotAtomic
}
