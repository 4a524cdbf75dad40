package bitcode

import (
	"github.com/chazu/dilithium/bitstream"
	"github.com/chazu/dilithium/ir"
)

// readRecord reads the record for abbrev id with blobs unpacked into ops.
func (r *Reader) readRecord(abbrevID uint32) (bitstream.Record, error) {
	rec, err := r.cursor.ReadRecord(abbrevID, false)
	if err != nil {
		return rec, r.streamError(err, "reading record")
	}
	return rec, nil
}

// parseModule reads MODULE_BLOCK. With resume it continues from
// nextUnreadBit after a suspension at a function body.
func (r *Reader) parseModule(resume bool) error {
	if resume {
		if err := r.cursor.JumpToBit(r.nextUnreadBit); err != nil {
			return r.streamError(err, "resuming module")
		}
	} else if _, err := r.cursor.EnterSubBlock(moduleBlockID); err != nil {
		return r.streamError(err, "entering module block")
	}

	for {
		entry, err := r.cursor.Advance(0)
		if err != nil {
			return r.streamError(err, "reading module block")
		}
		switch entry.Kind {
		case bitstream.EntryEndBlock:
			r.moduleDone = true
			r.nextUnreadBit = 0
			return r.globalCleanup()
		case bitstream.EntrySubBlock:
			suspend, err := r.parseModuleSubBlock(entry.ID)
			if err != nil {
				return err
			}
			if suspend {
				r.nextUnreadBit = r.cursor.CurrentBitNo()
				r.state = StateSuspended
				log.Debugf("suspending module read at bit %d", r.nextUnreadBit)
				return nil
			}
			continue
		}

		rec, err := r.readRecord(entry.ID)
		if err != nil {
			return err
		}
		if err := r.parseModuleRecord(rec); err != nil {
			return err
		}
	}
}

// parseModuleSubBlock dispatches one nested block of the module. It returns
// true when reading should suspend after a function body was skipped.
func (r *Reader) parseModuleSubBlock(id uint32) (bool, error) {
	switch id {
	case bitstream.BlockInfoBlockID:
		if err := r.cursor.ReadBlockInfoBlock(); err != nil {
			return false, r.streamError(err, "reading BLOCKINFO")
		}
	case paramAttrBlockID:
		return false, r.parseAttributeBlock()
	case paramAttrGroupBlockID:
		return false, r.parseAttributeGroupBlock()
	case typeBlockIDNew:
		return false, r.parseTypeTable()
	case valueSymtabBlockID:
		if r.seenValueSymbolTable {
			if err := r.cursor.SkipBlock(); err != nil {
				return false, r.streamError(err, "skipping value symbol table")
			}
			return false, nil
		}
		if err := r.parseValueSymbolTable(); err != nil {
			return false, err
		}
		r.seenValueSymbolTable = true
	case constantsBlockID:
		if err := r.parseConstants(); err != nil {
			return false, err
		}
		return false, r.resolveGlobalInits()
	case metadataBlockID:
		if r.opts.LazyMetadata && !r.metadataMaterialized {
			r.deferredMetadata = append(r.deferredMetadata, r.cursor.CurrentBitNo())
			if err := r.cursor.SkipBlock(); err != nil {
				return false, r.streamError(err, "skipping metadata block")
			}
			return false, nil
		}
		return false, r.parseMetadata()
	case metadataKindBlockID:
		return false, r.parseMetadataKinds()
	case functionBlockID:
		if !r.seenFirstFunctionBody {
			reverseFunctions(r.functionsWithBodies)
			if err := r.globalCleanup(); err != nil {
				return false, err
			}
			r.seenFirstFunctionBody = true
		}
		if err := r.rememberAndSkipFunctionBody(); err != nil {
			return false, err
		}
		// Old files put the symbol table after the bodies; read on so that
		// names are known before anything is materialized.
		return r.seenValueSymbolTable, nil
	case uselistBlockID:
		return false, r.parseUseLists()
	default:
		if err := r.cursor.SkipBlock(); err != nil {
			return false, r.streamError(err, "skipping unknown block")
		}
	}
	return false, nil
}

func reverseFunctions(fs []*ir.Function) {
	for i, j := 0, len(fs)-1; i < j; i, j = i+1, j-1 {
		fs[i], fs[j] = fs[j], fs[i]
	}
}

func (r *Reader) parseModuleRecord(rec bitstream.Record) error {
	ops := rec.Ops
	switch rec.Code {
	case moduleCodeVersion:
		if len(ops) < 1 {
			return r.error("invalid VERSION record")
		}
		switch ops[0] {
		case 0:
			r.useRelativeIDs = false
		case 1:
			r.useRelativeIDs = true
		default:
			return r.errorf("unsupported module version %d", ops[0])
		}
	case moduleCodeTriple, moduleCodeDatalayout, moduleCodeAsm, moduleCodeSectionName, moduleCodeGCName:
		s, ok := recordString(ops, 0)
		if !ok {
			return r.error("invalid string record")
		}
		switch rec.Code {
		case moduleCodeTriple:
			r.module.SetTargetTriple(s)
		case moduleCodeDatalayout:
			r.module.SetDataLayout(s)
		case moduleCodeAsm:
			r.module.AppendInlineAsm(s)
		case moduleCodeSectionName:
			r.sectionTable = append(r.sectionTable, s)
		case moduleCodeGCName:
			r.gcTable = append(r.gcTable, s)
		}
	case moduleCodeGlobalVar:
		return r.parseGlobalVar(ops)
	case moduleCodeFunction:
		return r.parseFunctionRecord(ops)
	case moduleCodeAlias, moduleCodeAliasOld:
		return r.notImplemented("global aliases")
	case moduleCodeComdat:
		return r.notImplemented("comdats")
	case moduleCodePurgeVals:
		if len(ops) < 1 || ops[0] > uint64(r.values.size()) {
			return r.error("invalid PURGEVALS record")
		}
		r.values.shrinkTo(uint32(ops[0]))
	}
	return nil
}

// GLOBALVAR: [pointer type, isconst, initid, linkage, alignment, section,
// visibility, threadlocal, unnamed_addr, externally_initialized,
// dllstorageclass, comdat]
func (r *Reader) parseGlobalVar(ops []uint64) error {
	if len(ops) < 6 {
		return r.error("invalid GLOBALVAR record")
	}
	t := r.typeByID(ops[0])
	if t == nil {
		return r.error("invalid GLOBALVAR type")
	}
	isConst := ops[1]&1 != 0
	var addrSpace uint32
	if ops[1]&2 != 0 {
		addrSpace = uint32(ops[1] >> 2)
	} else {
		if !t.IsPointer() {
			return r.error("invalid type for global variable")
		}
		addrSpace = t.AddressSpace()
		t = t.ElementType()
	}
	align, err := r.decodeAlignment(ops[4])
	if err != nil {
		return err
	}
	gv := ir.NewGlobalVariable(t, addrSpace, "")
	gv.IsConstant = isConst
	gv.Linkage = decodeLinkage(ops[3])
	gv.Align = align
	if ops[5] != 0 {
		if ops[5]-1 >= uint64(len(r.sectionTable)) {
			return r.error("invalid section ID")
		}
		gv.Section = r.sectionTable[ops[5]-1]
	}
	if len(ops) > 6 && !gv.Linkage.IsLocal() {
		gv.Visibility = decodeVisibility(ops[6])
	}
	if len(ops) > 7 {
		gv.ThreadLocal = decodeThreadLocal(ops[7])
	}
	if len(ops) > 8 {
		gv.UnnamedAddr = ops[8] != 0
	}
	if len(ops) > 9 {
		gv.ExternallyInitialized = ops[9] != 0
	}
	if len(ops) > 10 {
		gv.DLLStorageClass = decodeDLLStorageClass(ops[10])
	} else {
		gv.DLLStorageClass = upgradeDLLLinkage(ops[3])
	}
	if len(ops) > 11 && ops[11] != 0 {
		return r.notImplemented("comdats")
	}
	r.module.AddGlobal(gv)
	r.values.push(gv)
	if ops[2] != 0 {
		r.globalInits = append(r.globalInits, pendingInit{gv: gv, valID: uint32(ops[2] - 1)})
	}
	return nil
}

// FUNCTION: [type, callingconv, isproto, linkage, paramattr, alignment,
// section, visibility, gc, unnamed_addr, prologuedata, dllstorageclass,
// comdat, prefixdata, personalityfn]
func (r *Reader) parseFunctionRecord(ops []uint64) error {
	if len(ops) < 8 {
		return r.error("invalid FUNCTION record")
	}
	t := r.typeByID(ops[0])
	if t == nil {
		return r.error("invalid FUNCTION type")
	}
	if t.IsPointer() {
		t = t.ElementType()
	}
	if !t.IsFunction() {
		return r.error("invalid type for function")
	}
	f := ir.NewFunction(t, ir.ExternalLinkage, "", r.module)
	f.CallingConv = ir.CallingConv(ops[1])
	isProto := ops[2] != 0
	f.Linkage = decodeLinkage(ops[3])
	f.Attributes = r.attributesByID(ops[4])
	align, err := r.decodeAlignment(ops[5])
	if err != nil {
		return err
	}
	f.Align = align
	if ops[6] != 0 {
		if ops[6]-1 >= uint64(len(r.sectionTable)) {
			return r.error("invalid section ID")
		}
		f.Section = r.sectionTable[ops[6]-1]
	}
	if !f.Linkage.IsLocal() {
		f.Visibility = decodeVisibility(ops[7])
	}
	if len(ops) > 8 && ops[8] != 0 {
		if ops[8]-1 >= uint64(len(r.gcTable)) {
			return r.error("invalid GC ID")
		}
		f.GC = r.gcTable[ops[8]-1]
	}
	if len(ops) > 9 {
		f.UnnamedAddr = ops[9] != 0
	}
	if len(ops) > 10 && ops[10] != 0 {
		return r.notImplemented("function prologue data")
	}
	if len(ops) > 11 {
		f.DLLStorageClass = decodeDLLStorageClass(ops[11])
	} else {
		f.DLLStorageClass = upgradeDLLLinkage(ops[3])
	}
	if len(ops) > 12 && ops[12] != 0 {
		return r.notImplemented("comdats")
	}
	if len(ops) > 13 && ops[13] != 0 {
		return r.notImplemented("function prefix data")
	}
	if len(ops) > 14 && ops[14] != 0 {
		return r.notImplemented("personality functions")
	}
	r.values.push(f)
	if !isProto {
		f.SetMaterializationState(ir.Deferred)
		r.functionsWithBodies = append(r.functionsWithBodies, f)
		r.deferredFunctionInfo[f] = 0
	}
	return nil
}

// resolveGlobalInits sets the initializers whose constants have been read.
// The rest stay queued for a later constants block.
func (r *Reader) resolveGlobalInits() error {
	worklist := r.globalInits
	r.globalInits = nil
	for i := len(worklist) - 1; i >= 0; i-- {
		p := worklist[i]
		if p.valID >= r.values.size() {
			r.globalInits = append(r.globalInits, p)
			continue
		}
		c, ok := r.values.get(p.valID).(ir.Constant)
		if !ok {
			return r.error("expected a constant global initializer")
		}
		p.gv.SetInitializer(c)
	}
	return nil
}

// globalCleanup runs once all globals and their constants are known.
func (r *Reader) globalCleanup() error {
	if err := r.resolveGlobalInits(); err != nil {
		return err
	}
	if len(r.globalInits) != 0 {
		return r.error("malformed global initializer set")
	}
	r.globalInits = nil
	return nil
}

// ---------------------------------------------------------------------------
// Enum decoding
// ---------------------------------------------------------------------------

func decodeLinkage(v uint64) ir.Linkage {
	switch v {
	case 0, 5, 6, 15:
		return ir.ExternalLinkage
	case 2:
		return ir.AppendingLinkage
	case 3:
		return ir.InternalLinkage
	case 7:
		return ir.ExternalWeakLinkage
	case 8:
		return ir.CommonLinkage
	case 9, 13, 14:
		return ir.PrivateLinkage
	case 12:
		return ir.AvailableExternallyLinkage
	case 1, 16:
		return ir.WeakAnyLinkage
	case 10, 17:
		return ir.WeakODRLinkage
	case 4, 18:
		return ir.LinkOnceAnyLinkage
	case 11, 19:
		return ir.LinkOnceODRLinkage
	}
	return ir.ExternalLinkage
}

func decodeVisibility(v uint64) ir.Visibility {
	switch v {
	case 1:
		return ir.HiddenVisibility
	case 2:
		return ir.ProtectedVisibility
	}
	return ir.DefaultVisibility
}

func decodeDLLStorageClass(v uint64) ir.DLLStorageClass {
	switch v {
	case 1:
		return ir.DLLImportStorageClass
	case 2:
		return ir.DLLExportStorageClass
	}
	return ir.DefaultStorageClass
}

// upgradeDLLLinkage maps the obsolete dllimport and dllexport linkages.
func upgradeDLLLinkage(linkage uint64) ir.DLLStorageClass {
	switch linkage {
	case 5:
		return ir.DLLImportStorageClass
	case 6:
		return ir.DLLExportStorageClass
	}
	return ir.DefaultStorageClass
}

func decodeThreadLocal(v uint64) ir.ThreadLocalMode {
	switch v {
	case 0:
		return ir.NotThreadLocal
	case 2:
		return ir.LocalDynamicTLSModel
	case 3:
		return ir.InitialExecTLSModel
	case 4:
		return ir.LocalExecTLSModel
	}
	return ir.GeneralDynamicTLSModel
}
