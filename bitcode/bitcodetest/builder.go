// Package bitcodetest writes small LLVM 3.7 bitcode modules for tests.
package bitcodetest

import (
	"encoding/binary"

	"github.com/chazu/dilithium/bitstream"
)

// Block IDs.
const (
	ModuleBlock       = 8
	ParamAttrBlock    = 9
	ConstantsBlock    = 11
	FunctionBlock     = 12
	VSTBlock          = 14
	MetadataBlock     = 15
	MDAttachBlock     = 16
	TypeBlock         = 17
	UseListBlock      = 18
	MetadataKindBlock = 22
)

// Record codes, grouped by block.
const (
	ModuleVersion   = 1
	ModuleTriple    = 2
	ModuleGlobalVar = 7
	ModuleFunction  = 8

	TypeNumEntry = 1
	TypeVoid     = 2
	TypeLabel    = 5
	TypeInteger  = 7
	TypePointer  = 8
	TypeArray    = 11
	TypeMetadata = 16
	TypeFunction = 21

	CstSetType      = 1
	CstNull         = 2
	CstUndef        = 3
	CstInteger      = 4
	CstAggregate    = 7
	CstString       = 8
	CstBlockAddress = 21

	FuncDeclareBlocks = 1
	FuncBinop         = 2
	FuncCast          = 3
	FuncShuffleVec    = 8
	FuncRet           = 10
	FuncBr            = 11
	FuncSwitch        = 12
	FuncInvoke        = 13
	FuncUnreachable   = 15
	FuncPHI           = 16
	FuncAlloca        = 19
	FuncLoad          = 20
	FuncCmp2          = 28
	FuncCall          = 34
	FuncDebugLoc      = 35
	FuncFence         = 36
	FuncStore         = 44

	VSTEntry   = 1
	VSTBBEntry = 2

	MDString    = 1
	MDValue     = 2
	MDNode      = 3
	MDName      = 4
	MDKind      = 6
	MDNamedNode = 10
	MDAttach    = 11

	UseListDefault = 1
)

// Builder emits a bitcode stream. Blocks use a fixed 4-bit abbreviation
// width and every record is unabbreviated.
type Builder struct {
	w *bitstream.Writer
}

// New starts a stream with the 'BC' 0xC0DE magic.
func New() *Builder {
	w := bitstream.NewWriter()
	w.Emit('B', 8)
	w.Emit('C', 8)
	w.Emit(0x0, 4)
	w.Emit(0xC, 4)
	w.Emit(0xE, 4)
	w.Emit(0xD, 4)
	return &Builder{w: w}
}

// Block wraps the records written by body in block id.
func (b *Builder) Block(id uint32, body func()) *Builder {
	b.w.EnterSubblock(id, 4)
	body()
	b.w.ExitBlock()
	return b
}

// Record writes an unabbreviated record.
func (b *Builder) Record(code uint32, ops ...uint64) *Builder {
	b.w.EmitRecord(code, ops, 0)
	return b
}

// StringRecord writes ops followed by one operand per character of s.
func (b *Builder) StringRecord(code uint32, s string, ops ...uint64) *Builder {
	vals := append([]uint64(nil), ops...)
	for i := 0; i < len(s); i++ {
		vals = append(vals, uint64(s[i]))
	}
	return b.Record(code, vals...)
}

// Bytes returns the stream, padded to a 32-bit boundary.
func (b *Builder) Bytes() []byte {
	return b.w.Bytes()
}

// Signed sign-rotates v the way bitcode encodes signed operands.
func Signed(v int64) uint64 {
	if v < 0 {
		return uint64(-v)<<1 | 1
	}
	return uint64(v) << 1
}

// Wrap prepends the 20-byte bitcode wrapper header to bc.
func Wrap(bc []byte) []byte {
	out := make([]byte, 20, 20+len(bc))
	binary.LittleEndian.PutUint32(out[0:], 0x0B17C0DE)
	binary.LittleEndian.PutUint32(out[8:], 20)
	binary.LittleEndian.PutUint32(out[12:], uint32(len(bc)))
	return append(out, bc...)
}

// ---------------------------------------------------------------------------
// Canned modules
// ---------------------------------------------------------------------------

// VoidMainModule is `define void @main() { ret void }`.
func VoidMainModule() []byte {
	b := New()
	return b.Block(ModuleBlock, func() {
		b.Record(ModuleVersion, 1)
		b.Block(TypeBlock, func() {
			b.Record(TypeNumEntry, 3)
			b.Record(TypeVoid)           // 0
			b.Record(TypeFunction, 0, 0) // 1: void ()
			b.Record(TypePointer, 1, 0)  // 2
		})
		b.Record(ModuleFunction, 2, 0, 0, 0, 0, 0, 0, 0)
		b.Block(VSTBlock, func() {
			b.StringRecord(VSTEntry, "main", 0)
		})
		b.Block(FunctionBlock, func() {
			b.Record(FuncDeclareBlocks, 1)
			b.Record(FuncRet)
		})
	}).Bytes()
}

// CountModule is a counting loop exercising forward references:
//
//	define i32 @count(i32 %n) {
//	entry:
//	  br label %loop
//	loop:
//	  %i = phi i32 [ 0, %entry ], [ %next, %loop ]
//	  %next = add i32 %i, 1
//	  %done = icmp eq i32 %next, %n
//	  br i1 %done, label %exit, label %loop
//	exit:
//	  ret i32 %next
//	}
func CountModule() []byte {
	return countModule(nil)
}

// CountModuleWithUseList is CountModule with a use-list order recorded for
// %next. order holds the target position of each use in current list order.
func CountModuleWithUseList(order ...uint64) []byte {
	return countModule(order)
}

func countModule(useOrder []uint64) []byte {
	b := New()
	return b.Block(ModuleBlock, func() {
		b.Record(ModuleVersion, 1)
		b.Block(TypeBlock, func() {
			b.Record(TypeNumEntry, 3)
			b.Record(TypeInteger, 32)       // 0: i32
			b.Record(TypeFunction, 0, 0, 0) // 1: i32 (i32)
			b.Record(TypePointer, 1, 0)     // 2
		})
		b.Record(ModuleFunction, 2, 0, 0, 0, 0, 0, 0, 0) // #0
		b.Block(VSTBlock, func() {
			b.StringRecord(VSTEntry, "count", 0)
		})
		b.Block(FunctionBlock, func() {
			// %n is #1
			b.Record(FuncDeclareBlocks, 3)
			b.Block(ConstantsBlock, func() {
				b.Record(CstSetType, 0)
				b.Record(CstInteger, Signed(0)) // #2
				b.Record(CstInteger, Signed(1)) // #3
			})
			b.Record(FuncBr, 1)
			b.Record(FuncPHI, 0, Signed(4-2), 0, Signed(4-5), 1) // #4
			b.Record(FuncBinop, 5-4, 5-3, 0)                     // #5
			b.Record(FuncCmp2, 6-5, 6-1, 32)                     // #6
			b.Record(FuncBr, 2, 1, 7-6)
			b.Record(FuncRet, 7-5)
			b.Block(VSTBlock, func() {
				b.StringRecord(VSTEntry, "n", 1)
				b.StringRecord(VSTEntry, "i", 4)
				b.StringRecord(VSTEntry, "next", 5)
				b.StringRecord(VSTBBEntry, "entry", 0)
				b.StringRecord(VSTBBEntry, "loop", 1)
				b.StringRecord(VSTBBEntry, "exit", 2)
			})
			if useOrder != nil {
				b.Block(UseListBlock, func() {
					b.Record(UseListDefault, append(append([]uint64(nil), useOrder...), 5)...)
				})
			}
		})
	}).Bytes()
}

// BlockAddressModule has @f return the address of a block of @g, whose
// body comes later in the stream:
//
//	define i8* @f() {
//	  ret i8* blockaddress(@g, %next)
//	}
//	define void @g() {
//	  br label %next
//	next:
//	  ret void
//	}
func BlockAddressModule() []byte {
	b := New()
	return b.Block(ModuleBlock, func() {
		b.Record(ModuleVersion, 1)
		b.Block(TypeBlock, func() {
			b.Record(TypeNumEntry, 7)
			b.Record(TypeInteger, 8)     // 0: i8
			b.Record(TypePointer, 0, 0)  // 1: i8*
			b.Record(TypeFunction, 0, 1) // 2: i8* ()
			b.Record(TypePointer, 2, 0)  // 3
			b.Record(TypeVoid)           // 4
			b.Record(TypeFunction, 0, 4) // 5: void ()
			b.Record(TypePointer, 5, 0)  // 6
		})
		b.Record(ModuleFunction, 3, 0, 0, 0, 0, 0, 0, 0) // #0 @f
		b.Record(ModuleFunction, 6, 0, 0, 0, 0, 0, 0, 0) // #1 @g
		b.Block(VSTBlock, func() {
			b.StringRecord(VSTEntry, "f", 0)
			b.StringRecord(VSTEntry, "g", 1)
		})
		b.Block(FunctionBlock, func() {
			b.Record(FuncDeclareBlocks, 1)
			b.Block(ConstantsBlock, func() {
				b.Record(CstSetType, 1)
				b.Record(CstBlockAddress, 6, 1, 1) // #2
			})
			b.Record(FuncRet, 3-2)
		})
		b.Block(FunctionBlock, func() {
			b.Record(FuncDeclareBlocks, 2)
			b.Record(FuncBr, 1)
			b.Record(FuncRet)
			b.Block(VSTBlock, func() {
				b.StringRecord(VSTBBEntry, "next", 1)
			})
		})
	}).Bytes()
}

// MetadataModule holds a named node whose tuple refers forward to a string:
//
//	!named = !{!0}
//	!0 = !{!"x"}
func MetadataModule() []byte {
	b := New()
	return b.Block(ModuleBlock, func() {
		b.Record(ModuleVersion, 1)
		b.Block(MetadataBlock, func() {
			b.Record(MDNode, 1+1)
			b.StringRecord(MDString, "x")
			b.StringRecord(MDName, "named")
			b.Record(MDNamedNode, 0)
		})
	}).Bytes()
}

// FunctionModule wraps records in the body of `define void @f()`. Values
// are numbered from 1 and the type table is i32, void, void (), void ()*,
// i1.
func FunctionModule(body func(b *Builder)) []byte {
	b := New()
	return b.Block(ModuleBlock, func() {
		b.Record(ModuleVersion, 1)
		b.Block(TypeBlock, func() {
			b.Record(TypeNumEntry, 5)
			b.Record(TypeInteger, 32)
			b.Record(TypeVoid)
			b.Record(TypeFunction, 0, 1)
			b.Record(TypePointer, 2, 0)
			b.Record(TypeInteger, 1)
		})
		b.Record(ModuleFunction, 3, 0, 0, 0, 0, 0, 0, 0)
		b.Block(VSTBlock, func() {
			b.StringRecord(VSTEntry, "f", 0)
		})
		b.Block(FunctionBlock, func() { body(b) })
	}).Bytes()
}
