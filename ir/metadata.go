package ir

import "strconv"

// Metadata is any node of the metadata graph.
type Metadata interface {
	isMetadata()
}

type mdBase struct{}

func (mdBase) isMetadata() {}

// MDString is an interned string in the metadata graph.
type MDString struct {
	mdBase
	s string
}

// MDString returns the interned metadata string s.
func (c *Context) MDString(s string) *MDString {
	if m, ok := c.mdStrings[s]; ok {
		return m
	}
	m := &MDString{s: s}
	c.mdStrings[s] = m
	return m
}

func (m *MDString) String() string { return m.s }

// MDNode is a tuple of metadata operands. Operands may be nil.
type MDNode struct {
	mdBase
	ops      []Metadata
	distinct bool
}

// NewMDTuple creates a node with the given operands.
func NewMDTuple(ops []Metadata) *MDNode {
	return &MDNode{ops: append([]Metadata(nil), ops...)}
}

// NewDistinctMDNode creates a node that is never merged with an equal one.
func NewDistinctMDNode(ops []Metadata) *MDNode {
	return &MDNode{ops: append([]Metadata(nil), ops...), distinct: true}
}

func (n *MDNode) NumOperands() int              { return len(n.ops) }
func (n *MDNode) Operand(i int) Metadata        { return n.ops[i] }
func (n *MDNode) SetOperand(i int, md Metadata) { n.ops[i] = md }
func (n *MDNode) Operands() []Metadata          { return n.ops }
func (n *MDNode) IsDistinct() bool              { return n.distinct }

// ValueAsMetadata wraps a value so metadata can refer to it.
type ValueAsMetadata struct {
	mdBase
	val Value
}

// ValueAsMetadata returns the interned wrapper of v.
func (c *Context) ValueAsMetadata(v Value) *ValueAsMetadata {
	if m, ok := c.valueMD[v]; ok {
		return m
	}
	m := &ValueAsMetadata{val: v}
	c.valueMD[v] = m
	return m
}

// Value returns the wrapped value; nil once the value has been released.
func (m *ValueAsMetadata) Value() Value { return m.val }

// IsLocal is true when the wrapped value is not a constant: an argument
// or instruction of some function.
func (m *ValueAsMetadata) IsLocal() bool {
	_, isConst := m.val.(Constant)
	return m.val != nil && !isConst
}

// MetadataAsValue wraps metadata so it can be an operand, for example of a
// call to a debug intrinsic. Its type is metadata.
type MetadataAsValue struct {
	valueBase
	md Metadata
}

// MetadataAsValue returns the interned wrapper of md.
func (c *Context) MetadataAsValue(md Metadata) *MetadataAsValue {
	if v, ok := c.mdValues[md]; ok {
		return v
	}
	v := &MetadataAsValue{md: md}
	v.typ = c.MetadataType()
	c.mdValues[md] = v
	return v
}

func (v *MetadataAsValue) Metadata() Metadata { return v.md }

// MDPlaceholder stands for metadata referenced by ID before it is read.
// Readers replace every placeholder once the metadata block is done.
type MDPlaceholder struct {
	mdBase
	ID uint32
}

// NewMDPlaceholder creates a placeholder for metadata ID id.
func NewMDPlaceholder(id uint32) *MDPlaceholder {
	return &MDPlaceholder{ID: id}
}

// NamedMDNode is a module-level named list of metadata nodes, such as
// !llvm.ident.
type NamedMDNode struct {
	name string
	ops  []Metadata
}

func (n *NamedMDNode) Name() string                  { return n.name }
func (n *NamedMDNode) Operands() []Metadata          { return n.ops }
func (n *NamedMDNode) NumOperands() int              { return len(n.ops) }
func (n *NamedMDNode) Operand(i int) Metadata        { return n.ops[i] }
func (n *NamedMDNode) SetOperand(i int, md Metadata) { n.ops[i] = md }
func (n *NamedMDNode) AddOperand(md Metadata)        { n.ops = append(n.ops, md) }

// ---------------------------------------------------------------------------
// Debug info
// ---------------------------------------------------------------------------

// DILocation is a source position attached to instructions.
type DILocation struct {
	mdBase
	Line      uint32
	Column    uint32
	Scope     Metadata
	InlinedAt Metadata
	Distinct  bool
}

// DIKind is the record code a debug-info node was read from.
type DIKind uint32

const (
	DIGenericDebug DIKind = iota + 12
	DISubrange
	DIEnumerator
	DIBasicType
	DIFile
	DIDerivedType
	DICompositeType
	DISubroutineType
	DICompileUnit
	DISubprogram
	DILexicalBlock
	DILexicalBlockFile
	DINamespace
	DITemplateTypeParameter
	DITemplateValueParameter
	DIGlobalVariable
	DILocalVariable
	DIExpression
	DIObjCProperty
	DIImportedEntity
	DIModule
)

var diKindNames = map[DIKind]string{
	DIGenericDebug:           "GenericDINode",
	DISubrange:               "DISubrange",
	DIEnumerator:             "DIEnumerator",
	DIBasicType:              "DIBasicType",
	DIFile:                   "DIFile",
	DIDerivedType:            "DIDerivedType",
	DICompositeType:          "DICompositeType",
	DISubroutineType:         "DISubroutineType",
	DICompileUnit:            "DICompileUnit",
	DISubprogram:             "DISubprogram",
	DILexicalBlock:           "DILexicalBlock",
	DILexicalBlockFile:       "DILexicalBlockFile",
	DINamespace:              "DINamespace",
	DITemplateTypeParameter:  "DITemplateTypeParameter",
	DITemplateValueParameter: "DITemplateValueParameter",
	DIGlobalVariable:         "DIGlobalVariable",
	DILocalVariable:          "DILocalVariable",
	DIExpression:             "DIExpression",
	DIObjCProperty:           "DIObjCProperty",
	DIImportedEntity:         "DIImportedEntity",
	DIModule:                 "DIModule",
}

func (k DIKind) String() string {
	if s, ok := diKindNames[k]; ok {
		return s
	}
	return "DIKind(" + strconv.Itoa(int(k)) + ")"
}

// DINode is a debug-info node. Its fields are kept as read; fields that
// refer to other metadata hold the metadata ID plus one, zero meaning none.
type DINode struct {
	mdBase
	Kind     DIKind
	Distinct bool
	Fields   []uint64
}

// ---------------------------------------------------------------------------
// Tracking
// ---------------------------------------------------------------------------

// handleRAUW moves the metadata wrapper of v over to newV.
func (c *Context) handleRAUW(v, newV Value) {
	m, ok := c.valueMD[v]
	if !ok {
		return
	}
	delete(c.valueMD, v)
	m.val = newV
	if _, exists := c.valueMD[newV]; !exists {
		c.valueMD[newV] = m
	}
}

// handleRelease drops the metadata wrapper of a released value.
func (c *Context) handleRelease(v Value) {
	if m, ok := c.valueMD[v]; ok {
		delete(c.valueMD, v)
		m.val = nil
	}
}

// ReplaceMetadataAsValue points the value wrapper of old, if any, at md.
// Readers call it when a metadata forward reference is resolved.
func (c *Context) ReplaceMetadataAsValue(old, md Metadata) {
	v, ok := c.mdValues[old]
	if !ok {
		return
	}
	delete(c.mdValues, old)
	v.md = md
	if _, exists := c.mdValues[md]; !exists {
		c.mdValues[md] = v
	}
}
