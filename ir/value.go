package ir

import "fmt"

// Value is anything with a type that can be used as an operand. Every value
// heads the list of Uses that reference it.
type Value interface {
	Type() *Type
	Name() string
	SetName(name string)
	Uses() []*Use
	NumUses() int
	base() *valueBase
}

type valueBase struct {
	typ  *Type
	name string

	// uses is the head of the intrusive use list.
	uses    *Use
	numUses int

	// gen is bumped when the value is released so WeakHandles can tell.
	gen      uint32
	released bool
}

func (v *valueBase) base() *valueBase { return v }

func (v *valueBase) Type() *Type          { return v.typ }
func (v *valueBase) Name() string         { return v.name }
func (v *valueBase) SetName(name string)  { v.name = name }
func (v *valueBase) HasName() bool        { return v.name != "" }
func (v *valueBase) NumUses() int         { return v.numUses }
func (v *valueBase) UseEmpty() bool       { return v.uses == nil }
func (v *valueBase) HasOneUse() bool      { return v.numUses == 1 }
func (v *valueBase) FirstUse() *Use       { return v.uses }
func (v *valueBase) mutateType(typ *Type) { v.typ = typ }

// Uses returns the uses of v in list order, most recently added first.
func (v *valueBase) Uses() []*Use {
	out := make([]*Use, 0, v.numUses)
	for u := v.uses; u != nil; u = u.next {
		out = append(out, u)
	}
	return out
}

// Users returns the user of each use, in use-list order. A user that
// references v more than once appears more than once.
func (v *valueBase) Users() []User {
	out := make([]User, 0, v.numUses)
	for u := v.uses; u != nil; u = u.next {
		out = append(out, u.user)
	}
	return out
}

func (v *valueBase) addUse(u *Use) {
	u.next = v.uses
	if u.next != nil {
		u.next.prev = &u.next
	}
	u.prev = &v.uses
	v.uses = u
	v.numUses++
}

// ---------------------------------------------------------------------------
// Use
// ---------------------------------------------------------------------------

// Use is one operand slot of a User. It is linked into the use list of the
// value it currently refers to.
type Use struct {
	val  Value
	user User
	next *Use
	prev **Use
}

func (u *Use) Get() Value { return u.val }
func (u *Use) User() User { return u.user }
func (u *Use) Next() *Use { return u.next }

// OperandNo returns the index of u in its user's operand list.
func (u *Use) OperandNo() int {
	for i, op := range u.user.Operands() {
		if op == u {
			return i
		}
	}
	return -1
}

// Set points u at v, moving it from the old value's use list to v's.
// A nil v leaves the slot empty.
func (u *Use) Set(v Value) {
	if u.val != nil {
		u.removeFromList()
	}
	u.val = v
	if v != nil {
		v.base().addUse(u)
	}
}

func (u *Use) removeFromList() {
	*u.prev = u.next
	if u.next != nil {
		u.next.prev = u.prev
	}
	u.next = nil
	u.prev = nil
	u.val.base().numUses--
}

// ---------------------------------------------------------------------------
// User
// ---------------------------------------------------------------------------

// User is a value that references other values through its operands.
type User interface {
	Value
	NumOperands() int
	Operand(i int) Value
	SetOperand(i int, v Value)
	OperandUse(i int) *Use
	Operands() []*Use
}

type userBase struct {
	valueBase
	ops []*Use
}

// initOperands allocates one Use per value, owned by self.
func (u *userBase) initOperands(self User, vals ...Value) {
	u.ops = make([]*Use, len(vals))
	for i, v := range vals {
		u.ops[i] = &Use{user: self}
		u.ops[i].Set(v)
	}
}

// appendOperand grows the operand list by one slot.
func (u *userBase) appendOperand(self User, v Value) {
	use := &Use{user: self}
	use.Set(v)
	u.ops = append(u.ops, use)
}

func (u *userBase) NumOperands() int          { return len(u.ops) }
func (u *userBase) Operand(i int) Value       { return u.ops[i].val }
func (u *userBase) SetOperand(i int, v Value) { u.ops[i].Set(v) }
func (u *userBase) OperandUse(i int) *Use     { return u.ops[i] }
func (u *userBase) Operands() []*Use          { return u.ops }

// OperandValues returns the current operand values.
func (u *userBase) OperandValues() []Value {
	out := make([]Value, len(u.ops))
	for i, op := range u.ops {
		out[i] = op.val
	}
	return out
}

// DropAllReferences clears every operand, unlinking the uses.
func (u *userBase) DropAllReferences() {
	for _, op := range u.ops {
		op.Set(nil)
	}
}

// ---------------------------------------------------------------------------
// Graph operations
// ---------------------------------------------------------------------------

// ReplaceAllUsesWith redirects every use of v to newV, leaving v with an
// empty use list. The two values must have the same type. Metadata wrapping
// v follows it to newV.
func ReplaceAllUsesWith(v, newV Value) {
	if v == newV {
		panic("ir: ReplaceAllUsesWith of a value with itself")
	}
	if v.Type() != newV.Type() {
		panic(fmt.Sprintf("ir: ReplaceAllUsesWith type mismatch: %s vs %s", v.Type(), newV.Type()))
	}

	b := v.base()
	for b.uses != nil {
		b.uses.Set(newV)
	}

	v.Type().ctx.handleRAUW(v, newV)
}

// ReleaseValue marks v as dead. It must have no uses left; a live use means
// something still points at v and is a bug in the caller. Operands of a
// released User are dropped and WeakHandles to v stop resolving.
func ReleaseValue(v Value) {
	b := v.base()
	if b.uses != nil {
		panic(fmt.Sprintf("ir: releasing %s value %q with %d live uses", v.Type(), v.Name(), b.numUses))
	}
	if u, ok := v.(interface{ DropAllReferences() }); ok {
		u.DropAllReferences()
	}
	b.released = true
	b.gen++
	if ctx := v.Type().ctx; ctx != nil {
		ctx.handleRelease(v)
	}
}

// IsReleased reports whether ReleaseValue has been called on v.
func IsReleased(v Value) bool {
	return v.base().released
}

// SortUseList reorders the use list of v with a stable merge sort. less
// reports whether a should come before b.
func SortUseList(v Value, less func(a, b *Use) bool) {
	b := v.base()
	if b.uses == nil || b.uses.next == nil {
		return
	}
	b.uses = mergeSortUses(b.uses, less)

	// Rebuild the back links.
	prev := &b.uses
	for u := b.uses; u != nil; u = u.next {
		u.prev = prev
		prev = &u.next
	}
}

func mergeSortUses(head *Use, less func(a, b *Use) bool) *Use {
	if head == nil || head.next == nil {
		return head
	}
	// Split in half with a slow/fast walk.
	slow, fast := head, head.next
	for fast != nil && fast.next != nil {
		slow = slow.next
		fast = fast.next.next
	}
	second := slow.next
	slow.next = nil

	return mergeUses(mergeSortUses(head, less), mergeSortUses(second, less), less)
}

func mergeUses(l, r *Use, less func(a, b *Use) bool) *Use {
	var head *Use
	tail := &head
	for l != nil && r != nil {
		// Take from the right only when strictly less, keeping ties stable.
		if less(r, l) {
			*tail = r
			r = r.next
		} else {
			*tail = l
			l = l.next
		}
		tail = &(*tail).next
	}
	if l != nil {
		*tail = l
	} else {
		*tail = r
	}
	return head
}

// ---------------------------------------------------------------------------
// WeakHandle
// ---------------------------------------------------------------------------

// WeakHandle refers to a value without keeping it alive in the graph sense:
// once the value is released the handle resolves to nil.
type WeakHandle struct {
	v   Value
	gen uint32
}

// NewWeakHandle returns a handle to v. A nil v gives an empty handle.
func NewWeakHandle(v Value) WeakHandle {
	if v == nil {
		return WeakHandle{}
	}
	return WeakHandle{v: v, gen: v.base().gen}
}

// Get returns the value, or nil if the handle is empty or the value has
// been released since the handle was made.
func (h WeakHandle) Get() Value {
	if h.v == nil || h.v.base().gen != h.gen {
		return nil
	}
	return h.v
}

// IsEmpty reports whether Get would return nil.
func (h WeakHandle) IsEmpty() bool {
	return h.Get() == nil
}
