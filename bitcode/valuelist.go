package bitcode

import (
	"sort"

	"github.com/chazu/dilithium/ir"
)

// valueList maps value IDs to values. Slots hold weak handles so that a
// placeholder released after resolution reads back as empty.
type valueList struct {
	ctx   *ir.Context
	slots []ir.WeakHandle

	// constant placeholders whose slot has since been assigned, resolved
	// together at the end of each constants block
	resolveConstants []pendingConstant
}

type pendingConstant struct {
	placeholder *ir.ConstantPlaceholder
	idx         uint32
}

func newValueList(ctx *ir.Context) *valueList {
	return &valueList{ctx: ctx}
}

func (l *valueList) size() uint32 { return uint32(len(l.slots)) }

func (l *valueList) push(v ir.Value) { l.slots = append(l.slots, ir.NewWeakHandle(v)) }

func (l *valueList) get(idx uint32) ir.Value {
	if idx >= l.size() {
		return nil
	}
	return l.slots[idx].Get()
}

func (l *valueList) resize(n uint32) {
	if n <= l.size() {
		return
	}
	l.slots = append(l.slots, make([]ir.WeakHandle, n-l.size())...)
}

// shrinkTo drops every slot from n on. Function-local values are trimmed
// this way once a body has been read.
func (l *valueList) shrinkTo(n uint32) {
	if n < l.size() {
		clear(l.slots[n:])
		l.slots = l.slots[:n]
	}
}

// assign stores v at idx. A non-constant forward reference occupying the
// slot is replaced everywhere and released at once; a constant placeholder
// is queued for resolveConstantForwardRefs.
func (l *valueList) assign(v ir.Value, idx uint32) error {
	if idx == l.size() {
		l.push(v)
		return nil
	}
	l.resize(idx + 1)
	old := l.slots[idx].Get()
	l.slots[idx] = ir.NewWeakHandle(v)
	switch ph := old.(type) {
	case nil:
	case *ir.ConstantPlaceholder:
		l.resolveConstants = append(l.resolveConstants, pendingConstant{ph, idx})
	case *ir.ForwardRef:
		if ph.Type() != v.Type() {
			return errTypeMismatch
		}
		ir.ReplaceAllUsesWith(ph, v)
		ir.ReleaseValue(ph)
	default:
		return errRedefinedValue
	}
	return nil
}

// constantFwdRef returns the constant at idx, creating a placeholder of type
// t when the slot is empty.
func (l *valueList) constantFwdRef(idx uint32, t *ir.Type) (ir.Constant, error) {
	if idx == ^uint32(0) {
		return nil, errInvalidValueID
	}
	l.resize(idx + 1)
	if v := l.slots[idx].Get(); v != nil {
		c, ok := v.(ir.Constant)
		if !ok || v.Type() != t {
			return nil, errTypeMismatch
		}
		return c, nil
	}
	ph := ir.NewConstantPlaceholder(t)
	l.slots[idx] = ir.NewWeakHandle(ph)
	return ph, nil
}

// valueFwdRef returns the value at idx. For an empty slot it creates a
// forward reference of type t; with t nil the reference is invalid and nil
// is returned. A present value of a different type than t is also invalid.
func (l *valueList) valueFwdRef(idx uint32, t *ir.Type) ir.Value {
	if idx == ^uint32(0) {
		return nil
	}
	l.resize(idx + 1)
	if v := l.slots[idx].Get(); v != nil {
		if t != nil && v.Type() != t {
			return nil
		}
		return v
	}
	if t == nil {
		return nil
	}
	fr := ir.NewForwardRef(t)
	l.slots[idx] = ir.NewWeakHandle(fr)
	return fr
}

// resolveConstantForwardRefs replaces every queued constant placeholder by
// the constant finally assigned to its slot.
func (l *valueList) resolveConstantForwardRefs() error {
	sort.Slice(l.resolveConstants, func(i, j int) bool {
		return l.resolveConstants[i].idx < l.resolveConstants[j].idx
	})
	for len(l.resolveConstants) > 0 {
		last := l.resolveConstants[len(l.resolveConstants)-1]
		l.resolveConstants = l.resolveConstants[:len(l.resolveConstants)-1]

		resolved := l.get(last.idx)
		if resolved == nil || resolved.Type() != last.placeholder.Type() {
			return errTypeMismatch
		}
		ir.ReplaceAllUsesWith(last.placeholder, resolved)
		ir.ReleaseValue(last.placeholder)
	}
	return nil
}

// unresolved returns the forward references still present from slot start
// on. Each one was used by an instruction but never defined.
func (l *valueList) unresolved(start uint32) []*ir.ForwardRef {
	var out []*ir.ForwardRef
	for i := start; i < l.size(); i++ {
		if fr, ok := l.slots[i].Get().(*ir.ForwardRef); ok {
			out = append(out, fr)
		}
	}
	return out
}
