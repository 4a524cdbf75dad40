package ir

// Linkage describes how a global is linked across modules.
type Linkage uint8

const (
	ExternalLinkage Linkage = iota
	AvailableExternallyLinkage
	LinkOnceAnyLinkage
	LinkOnceODRLinkage
	WeakAnyLinkage
	WeakODRLinkage
	AppendingLinkage
	InternalLinkage
	PrivateLinkage
	ExternalWeakLinkage
	CommonLinkage
)

var linkageNames = [...]string{
	ExternalLinkage:            "external",
	AvailableExternallyLinkage: "available_externally",
	LinkOnceAnyLinkage:         "linkonce",
	LinkOnceODRLinkage:         "linkonce_odr",
	WeakAnyLinkage:             "weak",
	WeakODRLinkage:             "weak_odr",
	AppendingLinkage:           "appending",
	InternalLinkage:            "internal",
	PrivateLinkage:             "private",
	ExternalWeakLinkage:        "extern_weak",
	CommonLinkage:              "common",
}

func (l Linkage) String() string {
	if int(l) < len(linkageNames) {
		return linkageNames[l]
	}
	return "unknown"
}

// IsLocal is true for internal and private linkage.
func (l Linkage) IsLocal() bool {
	return l == InternalLinkage || l == PrivateLinkage
}

type Visibility uint8

const (
	DefaultVisibility Visibility = iota
	HiddenVisibility
	ProtectedVisibility
)

func (v Visibility) String() string {
	switch v {
	case HiddenVisibility:
		return "hidden"
	case ProtectedVisibility:
		return "protected"
	}
	return "default"
}

type DLLStorageClass uint8

const (
	DefaultStorageClass DLLStorageClass = iota
	DLLImportStorageClass
	DLLExportStorageClass
)

type ThreadLocalMode uint8

const (
	NotThreadLocal ThreadLocalMode = iota
	GeneralDynamicTLSModel
	LocalDynamicTLSModel
	InitialExecTLSModel
	LocalExecTLSModel
)

// GlobalValue is a module-level constant: a function or global variable.
type GlobalValue interface {
	Constant
	Parent() *Module
	global() *globalBase
}

// globalBase holds what functions and variables share. Its exported fields
// are promoted onto both.
type globalBase struct {
	constantBase
	parent    *Module
	valueType *Type

	Linkage         Linkage
	Visibility      Visibility
	DLLStorageClass DLLStorageClass
	ThreadLocal     ThreadLocalMode
	UnnamedAddr     bool
	Section         string
	Align           uint32
}

func (g *globalBase) global() *globalBase { return g }

func (g *globalBase) Parent() *Module { return g.parent }

// ValueType returns the type of the object the global points to.
func (g *globalBase) ValueType() *Type { return g.valueType }

// AddressSpace returns the address space of the global's pointer type.
func (g *globalBase) AddressSpace() uint32 { return g.typ.AddressSpace() }

// ---------------------------------------------------------------------------
// GlobalVariable
// ---------------------------------------------------------------------------

// GlobalVariable is a module-level variable. Its initializer, if any, is its
// only operand.
type GlobalVariable struct {
	globalBase
	IsConstant            bool
	ExternallyInitialized bool
}

// NewGlobalVariable creates a global of the given value type. It is not
// added to any module.
func NewGlobalVariable(valueType *Type, addrSpace uint32, name string) *GlobalVariable {
	g := &GlobalVariable{}
	g.typ = valueType.ctx.PointerType(valueType, addrSpace)
	g.valueType = valueType
	g.name = name
	return g
}

func (g *GlobalVariable) HasInitializer() bool { return len(g.ops) != 0 && g.ops[0].val != nil }

// Initializer returns the initializer, or nil for a declaration.
func (g *GlobalVariable) Initializer() Constant {
	if len(g.ops) == 0 {
		return nil
	}
	c, _ := g.ops[0].val.(Constant)
	return c
}

// SetInitializer sets or, with nil, clears the initializer.
func (g *GlobalVariable) SetInitializer(c Constant) {
	if c == nil {
		g.DropAllReferences()
		g.ops = nil
		return
	}
	if len(g.ops) == 0 {
		g.initOperands(g, c)
		return
	}
	g.ops[0].Set(c)
}

// IsDeclaration is true for globals without an initializer.
func (g *GlobalVariable) IsDeclaration() bool { return !g.HasInitializer() }

// ---------------------------------------------------------------------------
// Function
// ---------------------------------------------------------------------------

// MaterializationState tracks whether a function body has been read.
type MaterializationState uint8

const (
	// NotMaterializable functions have no body to read: declarations, and
	// functions built directly in memory.
	NotMaterializable MaterializationState = iota
	// Deferred functions have a body in the input that has not been read.
	Deferred
	// Materialized functions have had their body read.
	Materialized
)

func (s MaterializationState) String() string {
	switch s {
	case Deferred:
		return "deferred"
	case Materialized:
		return "materialized"
	}
	return "not-materializable"
}

// CallingConv is an LLVM calling convention number.
type CallingConv uint32

const (
	CallingConvC    CallingConv = 0
	CallingConvFast CallingConv = 8
	CallingConvCold CallingConv = 9
)

// Function is a function declaration or definition.
type Function struct {
	globalBase
	args   []*Argument
	blocks []*BasicBlock
	state  MaterializationState
	md     []MDAttachment

	CallingConv CallingConv
	Attributes  AttributeList
	GC          string
}

// NewFunction creates a function of function type fnType and, if m is not
// nil, appends it to m.
func NewFunction(fnType *Type, linkage Linkage, name string, m *Module) *Function {
	if !fnType.IsFunction() {
		panic("ir: NewFunction with non-function type " + fnType.String())
	}
	f := &Function{}
	f.typ = fnType.ctx.PointerType(fnType, 0)
	f.valueType = fnType
	f.name = name
	f.Linkage = linkage

	for i, p := range fnType.Params() {
		a := &Argument{parent: f, argNo: i}
		a.typ = p
		f.args = append(f.args, a)
	}
	if m != nil {
		m.AddFunction(f)
	}
	return f
}

// FunctionType returns the signature of f.
func (f *Function) FunctionType() *Type { return f.valueType }
func (f *Function) ReturnType() *Type   { return f.valueType.ReturnType() }

func (f *Function) Args() []*Argument     { return f.args }
func (f *Function) Arg(i int) *Argument   { return f.args[i] }
func (f *Function) Blocks() []*BasicBlock { return f.blocks }
func (f *Function) NumBlocks() int        { return len(f.blocks) }

// EntryBlock returns the first block, or nil for a declaration.
func (f *Function) EntryBlock() *BasicBlock {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// AppendBlock adds bb at the end of f.
func (f *Function) AppendBlock(bb *BasicBlock) {
	if bb.parent != nil {
		panic("ir: basic block already belongs to a function")
	}
	bb.parent = f
	f.blocks = append(f.blocks, bb)
}

func (f *Function) MaterializationState() MaterializationState { return f.state }

func (f *Function) SetMaterializationState(s MaterializationState) { f.state = s }

// IsMaterializable is true when f has a body that has not been read yet.
func (f *Function) IsMaterializable() bool { return f.state == Deferred }

// IsDeclaration is true when f has no body, neither in memory nor waiting
// to be read.
func (f *Function) IsDeclaration() bool {
	return len(f.blocks) == 0 && f.state != Deferred
}

// DropBody removes every block. Instructions drop their operands first so
// that values used across blocks can be released.
func (f *Function) DropBody() {
	for _, bb := range f.blocks {
		for _, inst := range bb.insts {
			if d, ok := inst.(interface{ DropAllReferences() }); ok {
				d.DropAllReferences()
			}
		}
	}
	for _, bb := range f.blocks {
		bb.parent = nil
	}
	f.blocks = nil
}

// Metadata returns the function attachment of the given kind, or nil.
func (f *Function) Metadata(kind uint32) Metadata {
	for _, a := range f.md {
		if a.Kind == kind {
			return a.Node
		}
	}
	return nil
}

// SetMetadata attaches md to the function under kind.
func (f *Function) SetMetadata(kind uint32, md Metadata) {
	for j := range f.md {
		if f.md[j].Kind == kind {
			f.md[j].Node = md
			return
		}
	}
	f.md = append(f.md, MDAttachment{Kind: kind, Node: md})
}

func (f *Function) MetadataAttachments() []MDAttachment { return f.md }

// Argument is a formal parameter of a function.
type Argument struct {
	valueBase
	parent *Function
	argNo  int
}

func (a *Argument) Parent() *Function { return a.parent }
func (a *Argument) ArgNo() int        { return a.argNo }
