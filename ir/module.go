package ir

// Materializer reads bodies that were left in the input when a module was
// loaded lazily.
type Materializer interface {
	// Materialize reads the body of gv if it has not been read yet.
	Materialize(gv GlobalValue) error
	// MaterializeModule reads everything still pending.
	MaterializeModule() error
	// MaterializeMetadata reads module-level metadata that was skipped.
	MaterializeMetadata() error
}

// Module is the top-level container of functions, globals and metadata.
type Module struct {
	ctx *Context
	id  string

	triple     string
	dataLayout string
	asm        []string

	globals []*GlobalVariable
	funcs   []*Function
	named   []*NamedMDNode

	materializer Materializer
}

// NewModule creates an empty module.
func NewModule(id string, ctx *Context) *Module {
	return &Module{ctx: ctx, id: id}
}

func (m *Module) Context() *Context    { return m.ctx }
func (m *Module) ID() string           { return m.id }
func (m *Module) TargetTriple() string { return m.triple }
func (m *Module) DataLayout() string   { return m.dataLayout }

func (m *Module) SetTargetTriple(t string) { m.triple = t }
func (m *Module) SetDataLayout(dl string)  { m.dataLayout = dl }

// InlineAsm returns the module-level inline assembly, one entry per line.
func (m *Module) InlineAsm() []string { return m.asm }

func (m *Module) AppendInlineAsm(lines ...string) { m.asm = append(m.asm, lines...) }

// Size returns the number of functions.
func (m *Module) Size() int { return len(m.funcs) }

func (m *Module) Functions() []*Function     { return m.funcs }
func (m *Module) Globals() []*GlobalVariable { return m.globals }

// AddFunction appends f to the module.
func (m *Module) AddFunction(f *Function) {
	f.parent = m
	m.funcs = append(m.funcs, f)
}

// AddGlobal appends g to the module.
func (m *Module) AddGlobal(g *GlobalVariable) {
	g.parent = m
	m.globals = append(m.globals, g)
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for _, f := range m.funcs {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Global returns the global variable with the given name, or nil.
func (m *Module) Global(name string) *GlobalVariable {
	for _, g := range m.globals {
		if g.name == name {
			return g
		}
	}
	return nil
}

// NamedMetadata returns the named node, or nil.
func (m *Module) NamedMetadata(name string) *NamedMDNode {
	for _, n := range m.named {
		if n.name == name {
			return n
		}
	}
	return nil
}

// GetOrInsertNamedMetadata returns the named node, creating it if needed.
func (m *Module) GetOrInsertNamedMetadata(name string) *NamedMDNode {
	if n := m.NamedMetadata(name); n != nil {
		return n
	}
	n := &NamedMDNode{name: name}
	m.named = append(m.named, n)
	return n
}

func (m *Module) NamedMetadataList() []*NamedMDNode { return m.named }

// ---------------------------------------------------------------------------
// Materialization
// ---------------------------------------------------------------------------

func (m *Module) SetMaterializer(mat Materializer) { m.materializer = mat }
func (m *Module) Materializer() Materializer       { return m.materializer }

// Materialize reads the body of gv if it is still pending. Without a
// materializer there is nothing to read.
func (m *Module) Materialize(gv GlobalValue) error {
	if m.materializer == nil {
		return nil
	}
	return m.materializer.Materialize(gv)
}

// MaterializeAll reads every pending body and then drops the materializer.
func (m *Module) MaterializeAll() error {
	if m.materializer == nil {
		return nil
	}
	if err := m.materializer.MaterializeModule(); err != nil {
		return err
	}
	m.materializer = nil
	return nil
}

// MaterializeMetadata reads module-level metadata that was skipped.
func (m *Module) MaterializeMetadata() error {
	if m.materializer == nil {
		return nil
	}
	return m.materializer.MaterializeMetadata()
}
