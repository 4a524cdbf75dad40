package ir

// BasicBlock is a straight-line sequence of instructions ending in a
// terminator. Its type is label.
type BasicBlock struct {
	valueBase
	parent *Function
	insts  []Instruction
}

// NewBasicBlock creates a detached block. Add it to a function with
// Function.AppendBlock.
func NewBasicBlock(ctx *Context, name string) *BasicBlock {
	bb := &BasicBlock{}
	bb.typ = ctx.LabelType()
	bb.name = name
	return bb
}

func (bb *BasicBlock) Parent() *Function           { return bb.parent }
func (bb *BasicBlock) Instructions() []Instruction { return bb.insts }
func (bb *BasicBlock) Len() int                    { return len(bb.insts) }

// Append adds inst at the end of bb.
func (bb *BasicBlock) Append(inst Instruction) {
	if inst.Parent() != nil {
		panic("ir: instruction already belongs to a block")
	}
	inst.inst().parent = bb
	bb.insts = append(bb.insts, inst)
}

// Terminator returns the last instruction if it is a terminator.
func (bb *BasicBlock) Terminator() Instruction {
	if len(bb.insts) == 0 {
		return nil
	}
	last := bb.insts[len(bb.insts)-1]
	if !last.Opcode().IsTerminator() {
		return nil
	}
	return last
}

// Successors returns the blocks the terminator can branch to.
func (bb *BasicBlock) Successors() []*BasicBlock {
	term := bb.Terminator()
	if term == nil {
		return nil
	}
	var out []*BasicBlock
	for _, op := range term.Operands() {
		if succ, ok := op.Get().(*BasicBlock); ok {
			out = append(out, succ)
		}
	}
	return out
}

// Index returns the position of bb in its function, or -1.
func (bb *BasicBlock) Index() int {
	if bb.parent == nil {
		return -1
	}
	for i, b := range bb.parent.blocks {
		if b == bb {
			return i
		}
	}
	return -1
}
