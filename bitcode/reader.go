package bitcode

import (
	"encoding/binary"

	"github.com/tliron/commonlog"

	"github.com/chazu/dilithium/bitstream"
	"github.com/chazu/dilithium/ir"
)

var log = commonlog.GetLogger("dilithium.bitcode")

// ---------------------------------------------------------------------------
// Reader
// ---------------------------------------------------------------------------

// Options tune how a module is read.
type Options struct {
	// LazyMetadata defers module-level metadata blocks until a function
	// body or the metadata itself is materialized.
	LazyMetadata bool
}

// State is the progress of a Reader through its module.
type State uint8

const (
	StateUnparsed State = iota
	StateParsingModule
	// StateSuspended means module records up to the first function body
	// have been read and bodies are waiting to be materialized.
	StateSuspended
	StateMaterializing
	StateModuleDone
)

func (s State) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateParsingModule:
		return "parsing-module"
	case StateSuspended:
		return "suspended"
	case StateMaterializing:
		return "materializing"
	case StateModuleDone:
		return "module-done"
	}
	return "unknown"
}

// Reader decodes an LLVM 3.7 bitcode module into the in-memory IR. It
// stays attached to the module as its materializer so function bodies and
// metadata can be read on demand.
type Reader struct {
	ctx    *ir.Context
	buf    []byte
	opts   Options
	module *ir.Module

	stream *bitstream.Reader
	cursor *bitstream.Cursor
	state  State

	types           []*ir.Type
	values          *valueList
	mds             *metadataList
	mdKindMap       map[uint64]uint32
	attributes      []ir.AttributeList
	attributeGroups map[uint64]ir.AttributeSet
	sectionTable    []string
	gcTable         []string
	globalInits     []pendingInit

	useRelativeIDs        bool
	seenValueSymbolTable  bool
	seenFirstFunctionBody bool
	nextUnreadBit         uint64
	moduleDone            bool

	// functions with bodies, in reverse order of their bodies until the
	// first body is seen
	functionsWithBodies  []*ir.Function
	deferredFunctionInfo map[*ir.Function]uint64
	deferredMetadata     []uint64
	metadataMaterialized bool

	// blocks referenced through blockaddress before their function body was
	// read, keyed by function and block number
	blockFwdRefs      map[*ir.Function][]*ir.BasicBlock
	blockFwdRefQueue  []*ir.Function
	materializeAllFwd bool

	// per function body
	functionBlocks  []*ir.BasicBlock
	instructionList []ir.Instruction
}

type pendingInit struct {
	gv    *ir.GlobalVariable
	valID uint32
}

// NewReader creates a reader over buf. Nothing is read until
// ParseBitcodeInto.
func NewReader(ctx *ir.Context, buf []byte, opts Options) *Reader {
	return &Reader{
		ctx:                  ctx,
		buf:                  buf,
		opts:                 opts,
		values:               newValueList(ctx),
		mds:                  newMetadataList(ctx),
		mdKindMap:            make(map[uint64]uint32),
		attributeGroups:      make(map[uint64]ir.AttributeSet),
		deferredFunctionInfo: make(map[*ir.Function]uint64),
		blockFwdRefs:         make(map[*ir.Function][]*ir.BasicBlock),
	}
}

// State returns how far the reader has progressed.
func (r *Reader) State() State { return r.state }

// Module returns the module being read, or nil before ParseBitcodeInto.
func (r *Reader) Module() *ir.Module { return r.module }

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// GetLazyModule reads the module-level records of buf and returns a module
// whose function bodies are deferred. The reader is installed as the
// module's materializer.
func GetLazyModule(ctx *ir.Context, buf []byte, name string, opts Options) (*ir.Module, error) {
	m := ir.NewModule(name, ctx)
	r := NewReader(ctx, buf, opts)
	m.SetMaterializer(r)
	if err := r.ParseBitcodeInto(m); err != nil {
		return nil, err
	}
	if err := r.materializeForwardReferencedFunctions(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseModule reads buf completely, materializing every function body.
func ParseModule(ctx *ir.Context, buf []byte, name string, opts Options) (*ir.Module, error) {
	m, err := GetLazyModule(ctx, buf, name, opts)
	if err != nil {
		return nil, err
	}
	if err := m.MaterializeAll(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseBitcodeInto reads the module records of the buffer into m. Reading
// stops at the first function body when the value symbol table has already
// been seen; the rest is read by materialization.
func (r *Reader) ParseBitcodeInto(m *ir.Module) error {
	if r.state != StateUnparsed {
		return r.error("reader already used")
	}
	data, err := r.initStream()
	if err != nil {
		return err
	}
	r.stream = bitstream.NewReader(data)
	r.cursor = r.stream.NewCursor()
	if err := r.readSignature(); err != nil {
		return err
	}
	r.state = StateParsingModule

	for {
		if r.cursor.AtEndOfStream() {
			return r.error("malformed IR file: no module block")
		}
		entry, err := r.cursor.Advance(bitstream.AdvanceDontAutoprocessAbbrevs)
		if err != nil {
			return r.streamError(err, "reading top-level block")
		}
		if entry.Kind != bitstream.EntrySubBlock {
			return r.error("malformed block at top level")
		}
		switch entry.ID {
		case moduleBlockID:
			log.Debugf("reading module %q", m.ID())
			r.module = m
			if err := r.parseModule(false); err != nil {
				return err
			}
			r.state = StateSuspended
			return nil
		case bitstream.BlockInfoBlockID:
			if err := r.cursor.ReadBlockInfoBlock(); err != nil {
				return r.streamError(err, "reading BLOCKINFO")
			}
		default:
			if err := r.cursor.SkipBlock(); err != nil {
				return r.streamError(err, "skipping top-level block")
			}
		}
	}
}

// initStream checks the buffer length and strips a wrapper header.
func (r *Reader) initStream() ([]byte, error) {
	buf := r.buf
	if len(buf)%4 != 0 {
		return nil, &Error{Code: InvalidBitcodeSignature, Msg: "buffer length is not a multiple of 4"}
	}
	if len(buf) >= 4 && binary.LittleEndian.Uint32(buf) == wrapperMagic {
		if len(buf) < wrapperHeaderSize {
			return nil, &Error{Code: InvalidBitcodeSignature, Msg: "invalid bitcode wrapper header"}
		}
		offset := uint64(binary.LittleEndian.Uint32(buf[wrapperOffsetField:]))
		size := uint64(binary.LittleEndian.Uint32(buf[wrapperSizeField:]))
		if offset+size > uint64(len(buf)) {
			return nil, &Error{Code: InvalidBitcodeSignature, Msg: "invalid bitcode wrapper header"}
		}
		buf = buf[offset : offset+size]
	}
	return buf, nil
}

// readSignature consumes the 'BC' 0xC0DE magic.
func (r *Reader) readSignature() error {
	for _, want := range []struct {
		width uint
		val   uint64
	}{{8, 'B'}, {8, 'C'}, {4, 0x0}, {4, 0xC}, {4, 0xE}, {4, 0xD}} {
		got, err := r.cursor.Read(want.width)
		if err != nil || got != want.val {
			return &Error{Code: InvalidBitcodeSignature, Msg: "missing 'BC' 0xC0DE magic"}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// typeByID returns type id, creating an identified struct for a forward
// reference. IDs past the declared table size are invalid.
func (r *Reader) typeByID(id uint64) *ir.Type {
	if id >= uint64(len(r.types)) {
		return nil
	}
	if t := r.types[id]; t != nil {
		return t
	}
	t := r.ctx.NewStructType("")
	r.types[id] = t
	return t
}

// attributesByID returns PARAMATTR entry id; zero means none.
func (r *Reader) attributesByID(id uint64) ir.AttributeList {
	if id == 0 || id-1 >= uint64(len(r.attributes)) {
		return ir.AttributeList{}
	}
	return r.attributes[id-1]
}

func (r *Reader) basicBlock(id uint64) *ir.BasicBlock {
	if id >= uint64(len(r.functionBlocks)) {
		return nil
	}
	return r.functionBlocks[id]
}

// recordString decodes ops[start:] as one character per element.
func recordString(ops []uint64, start int) (string, bool) {
	if start > len(ops) {
		return "", false
	}
	b := make([]byte, 0, len(ops)-start)
	for _, v := range ops[start:] {
		b = append(b, byte(v))
	}
	return string(b), true
}

// decodeSignRotated undoes the sign rotation used for signed VBR fields:
// the sign sits in bit 0 and the magnitude above it.
func decodeSignRotated(v uint64) uint64 {
	if v&1 == 0 {
		return v >> 1
	}
	if v != 1 {
		return -(v >> 1)
	}
	return 1 << 63
}

// decodeAlignment turns an encoded alignment into bytes.
func (r *Reader) decodeAlignment(exponent uint64) (uint32, error) {
	if exponent > 30 {
		return 0, r.error("invalid alignment value")
	}
	return uint32((uint64(1) << exponent) >> 1), nil
}
