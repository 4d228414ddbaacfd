package engine

import (
	"encoding/binary"
	"sync"

	"github.com/wazerothread/tvm/api"
	"github.com/wazerothread/tvm/internal/diagnostics"
)

// stackEntryThresholdBytes is the entry-allocation cutover (spec.md §4.6):
// a locals frame at or under this size gets a fresh make'd slice for the
// call; larger ones are taken from a pooled arena and returned to it when
// the call ends.
const stackEntryThresholdBytes = 1024

var localsArenaPool = sync.Pool{
	New: func() interface{} { return make([]byte, 0, 4096) },
}

// CompiledFunction is the translator's (C5) output for one local-defined
// function: a fused/threaded op stream plus the layout metadata the
// dispatch loop needs to run it (spec.md §4.4, §4.5).
type CompiledFunction struct {
	ModuleID    uint32
	FuncIndex   uint32
	Name        string
	Signature   api.Signature
	LocalsBytes uint32 // packed frame size: params followed by declared locals
	MaxStack    uint32 // operand-stack depth budget computed at translation time
	Ops         []byte
}

func (cf *CompiledFunction) newLocalsBuffer() []byte {
	if cf.LocalsBytes <= stackEntryThresholdBytes {
		return make([]byte, cf.LocalsBytes)
	}
	buf := localsArenaPool.Get().([]byte)
	if cap(buf) < int(cf.LocalsBytes) {
		return make([]byte, cf.LocalsBytes)
	}
	buf = buf[:cf.LocalsBytes]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (cf *CompiledFunction) releaseLocalsBuffer(buf []byte) {
	if cf.LocalsBytes > stackEntryThresholdBytes {
		localsArenaPool.Put(buf[:0]) //nolint:staticcheck // pooled []byte, not a pointer-like type
	}
}

// run drives the byref dispatch loop (C6) over cf's op stream: each op
// mutates s in place and returns, and the loop re-reads the next opcode
// until it hits the end-of-function sentinel or a trap is recorded. Traps
// are never recovered from here; they propagate to the caller untouched.
func run(ce *callEngine, cf *CompiledFunction, paramBuf []byte) ([]byte, *diagnostics.TrapError) {
	locals := cf.newLocalsBuffer()
	defer cf.releaseLocalsBuffer(locals)
	copy(locals, paramBuf)

	var mem = ce.store.Modules[cf.ModuleID].Memory

	s := &execState{
		ops:      cf.Ops,
		stack:    make([]uint64, cf.MaxStack),
		locals:   locals,
		moduleID: cf.ModuleID,
		mem:      mem,
		ce:       ce,
	}

	for {
		op := s.readOpcode()
		if op == opEnd {
			break
		}
		opExec[op](s)
		if s.trap != nil {
			return nil, s.trap
		}
	}

	resultBuf := make([]byte, cf.Signature.ResultBytes)
	packResults(s, cf.Signature, resultBuf)
	return resultBuf, nil
}

// packResults copies the first len(sig.Results) operand-stack slots into buf
// in declared order. These are the result values when exactly that many
// live slots remain at the end sentinel. Neither this function nor the
// translator checks that count: the translator only rejects stack underflow.
func packResults(s *execState, sig api.Signature, buf []byte) {
	off := uint32(0)
	for i, t := range sig.Results {
		v := s.stack[i]
		switch t {
		case api.ValueTypeI32, api.ValueTypeF32:
			binary.LittleEndian.PutUint32(buf[off:], uint32(v))
			off += 4
		case api.ValueTypeI64, api.ValueTypeF64:
			binary.LittleEndian.PutUint64(buf[off:], v)
			off += 8
		}
	}
}
