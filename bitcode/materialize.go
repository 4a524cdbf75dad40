package bitcode

import (
	"github.com/chazu/dilithium/ir"
)

var _ ir.Materializer = (*Reader)(nil)

// ---------------------------------------------------------------------------
// Materialization
// ---------------------------------------------------------------------------

// rememberAndSkipFunctionBody records where the next function body starts
// and skips over it. Bodies appear in the same order as the function
// records that declared them.
func (r *Reader) rememberAndSkipFunctionBody() error {
	if len(r.functionsWithBodies) == 0 {
		return r.error("insufficient function protos")
	}
	last := len(r.functionsWithBodies) - 1
	f := r.functionsWithBodies[last]
	r.functionsWithBodies = r.functionsWithBodies[:last]

	r.deferredFunctionInfo[f] = r.cursor.CurrentBitNo()
	if err := r.cursor.SkipBlock(); err != nil {
		return r.streamError(err, "skipping function body")
	}
	return nil
}

// findFunctionInStream resumes module parsing until the body of f has been
// located.
func (r *Reader) findFunctionInStream(f *ir.Function) error {
	for r.deferredFunctionInfo[f] == 0 {
		if r.moduleDone || r.cursor.AtEndOfStream() {
			return r.errorf("could not find body of function %q in stream", f.Name())
		}
		if err := r.parseModule(true); err != nil {
			return err
		}
	}
	return nil
}

// Materialize reads the body of gv. Anything other than a function still
// waiting for its body is left alone.
func (r *Reader) Materialize(gv ir.GlobalValue) error {
	if err := r.MaterializeMetadata(); err != nil {
		return err
	}
	f, ok := gv.(*ir.Function)
	if !ok || !f.IsMaterializable() {
		return nil
	}
	pos, ok := r.deferredFunctionInfo[f]
	if !ok {
		return r.errorf("no deferred body for function %q", f.Name())
	}
	if pos == 0 {
		if err := r.findFunctionInStream(f); err != nil {
			return err
		}
		pos = r.deferredFunctionInfo[f]
	}

	log.Debugf("materializing %q at bit %d", f.Name(), pos)
	if err := r.cursor.JumpToBit(pos); err != nil {
		return r.streamError(err, "seeking to function body")
	}
	if err := r.parseFunctionBody(f); err != nil {
		return err
	}
	f.SetMaterializationState(ir.Materialized)
	return r.materializeForwardReferencedFunctions()
}

// materializeForwardReferencedFunctions reads the bodies of functions whose
// blocks were named by blockaddress constants, so that the placeholder
// blocks are adopted.
func (r *Reader) materializeForwardReferencedFunctions() error {
	if r.materializeAllFwd {
		return nil
	}
	r.materializeAllFwd = true
	for len(r.blockFwdRefQueue) > 0 {
		f := r.blockFwdRefQueue[0]
		r.blockFwdRefQueue = r.blockFwdRefQueue[1:]
		if _, pending := r.blockFwdRefs[f]; !pending {
			continue
		}
		if !f.IsMaterializable() {
			return r.errorf("never resolved function %q from blockaddress", f.Name())
		}
		if err := r.Materialize(f); err != nil {
			return err
		}
	}
	r.materializeAllFwd = false
	return nil
}

// MaterializeModule reads every function body and whatever module records
// follow the last one.
func (r *Reader) MaterializeModule() error {
	if r.state == StateModuleDone {
		return nil
	}
	if err := r.MaterializeMetadata(); err != nil {
		return err
	}
	r.state = StateMaterializing
	r.materializeAllFwd = true
	for _, f := range r.module.Functions() {
		if err := r.Materialize(f); err != nil {
			return err
		}
	}
	if !r.moduleDone && r.nextUnreadBit != 0 {
		if err := r.parseModule(true); err != nil {
			return err
		}
	}
	if len(r.blockFwdRefs) != 0 {
		return r.error("never resolved function from blockaddress")
	}
	r.materializeAllFwd = false
	r.state = StateModuleDone
	log.Debugf("module %q fully materialized", r.module.ID())
	return nil
}

// MaterializeMetadata reads the module-level metadata blocks skipped by a
// lazy read.
func (r *Reader) MaterializeMetadata() error {
	for _, pos := range r.deferredMetadata {
		if err := r.cursor.JumpToBit(pos); err != nil {
			return r.streamError(err, "seeking to metadata block")
		}
		if err := r.parseMetadata(); err != nil {
			return err
		}
	}
	r.deferredMetadata = nil
	r.metadataMaterialized = true
	return nil
}
