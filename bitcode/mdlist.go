package bitcode

import (
	"github.com/chazu/dilithium/ir"
)

// metadataList maps metadata IDs to nodes. References to IDs not read yet
// get an *ir.MDPlaceholder that resolve swaps for the real node.
type metadataList struct {
	ctx      *ir.Context
	slots    []ir.Metadata
	fwdRefs  int
	tracked  []ir.Metadata // nodes outside the list that may hold placeholders
	replaced map[*ir.MDPlaceholder]bool
}

func newMetadataList(ctx *ir.Context) *metadataList {
	return &metadataList{ctx: ctx, replaced: make(map[*ir.MDPlaceholder]bool)}
}

func (l *metadataList) size() uint32 { return uint32(len(l.slots)) }

func (l *metadataList) hasFwdRefs() bool { return l.fwdRefs > 0 }

func (l *metadataList) resize(n uint32) {
	if n > l.size() {
		l.slots = append(l.slots, make([]ir.Metadata, n-l.size())...)
	}
}

func (l *metadataList) shrinkTo(n uint32) {
	if n < l.size() {
		for _, md := range l.slots[n:] {
			if _, ok := md.(*ir.MDPlaceholder); ok {
				l.fwdRefs--
			}
		}
		clear(l.slots[n:])
		l.slots = l.slots[:n]
	}
}

func (l *metadataList) get(idx uint32) ir.Metadata {
	if idx >= l.size() {
		return nil
	}
	return l.slots[idx]
}

// fwdRef returns the metadata at idx or a placeholder standing for it.
func (l *metadataList) fwdRef(idx uint32) ir.Metadata {
	l.resize(idx + 1)
	if md := l.slots[idx]; md != nil {
		return md
	}
	ph := ir.NewMDPlaceholder(idx)
	l.slots[idx] = ph
	l.fwdRefs++
	return ph
}

// assign stores md at idx, remembering any placeholder it displaces.
func (l *metadataList) assign(md ir.Metadata, idx uint32) {
	if idx == l.size() {
		l.slots = append(l.slots, md)
		return
	}
	l.resize(idx + 1)
	if ph, ok := l.slots[idx].(*ir.MDPlaceholder); ok {
		l.replaced[ph] = true
		l.fwdRefs--
	}
	l.slots[idx] = md
}

// track registers a node built outside the list, such as an instruction's
// debug location, for placeholder replacement.
func (l *metadataList) track(md ir.Metadata) {
	l.tracked = append(l.tracked, md)
}

// resolve replaces every placeholder whose slot has been filled. It walks
// node operands, debug locations, the named metadata of m and the tracked
// nodes. Placeholders still unfilled are left in place.
func (l *metadataList) resolve(m *ir.Module) {
	if len(l.replaced) == 0 {
		return
	}
	swap := func(md ir.Metadata) ir.Metadata {
		ph, ok := md.(*ir.MDPlaceholder)
		if !ok || !l.replaced[ph] || ph.ID >= l.size() {
			return md
		}
		return l.slots[ph.ID]
	}
	fix := func(md ir.Metadata) {
		switch n := md.(type) {
		case *ir.MDNode:
			for i, op := range n.Operands() {
				n.SetOperand(i, swap(op))
			}
		case *ir.DILocation:
			n.Scope = swap(n.Scope)
			n.InlinedAt = swap(n.InlinedAt)
		}
	}
	for _, md := range l.slots {
		fix(md)
	}
	for _, md := range l.tracked {
		fix(md)
	}
	if m != nil {
		for _, nmd := range m.NamedMetadataList() {
			for i, op := range nmd.Operands() {
				nmd.SetOperand(i, swap(op))
			}
		}
	}
	for ph := range l.replaced {
		if ph.ID < l.size() {
			l.ctx.ReplaceMetadataAsValue(ph, l.slots[ph.ID])
		}
	}
	clear(l.replaced)
	if l.fwdRefs == 0 {
		l.tracked = l.tracked[:0]
	}
}
