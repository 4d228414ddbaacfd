package diagnostics

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// CompileRule discriminates why the translator (C5) rejected a function
// body. A validated body should never reach the translator in a way that
// trips one of these; when it does, it is treated as an internal bug
// (spec.md §4.5), not a normal user-facing validation failure.
type CompileRule int

const (
	// RuleInternal marks a body that passed the external validator but
	// still confused the translator: a bug in this repository, not in the
	// guest module.
	RuleInternal CompileRule = iota
	RuleBranchMisalignment
	RuleLocalsOverflow
	RuleUnknownWindowKind
)

func (r CompileRule) String() string {
	switch r {
	case RuleInternal:
		return "internal"
	case RuleBranchMisalignment:
		return "branch target not at op boundary"
	case RuleLocalsOverflow:
		return "locals frame exceeds addressable range"
	case RuleUnknownWindowKind:
		return "unrecognized stack-top window kind"
	}
	return "unknown"
}

// CompileError is returned by the translator (C5) for a malformed function
// body. ByteOffset is the offset within the original Wasm code section,
// when known.
type CompileError struct {
	FuncName   string
	ByteOffset int
	Rule       CompileRule
	Detail     string
}

func (e *CompileError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("compile error in %q at offset 0x%x: %s: %s", e.FuncName, e.ByteOffset, e.Rule, e.Detail)
	}
	return fmt.Sprintf("compile error in %q at offset 0x%x: %s", e.FuncName, e.ByteOffset, e.Rule)
}

// TrapKind identifies why execution became fatal (spec.md §7). Traps are
// never recoverable from inside the guest; a TrapKind exists only to
// render a precise diagnostic before the process terminates.
type TrapKind int

const (
	TrapUnreachable TrapKind = iota
	TrapInvalidConversionToInteger
	TrapIntegerDivideByZero
	TrapIntegerOverflow
	TrapCallIndirectTableOutOfBounds
	TrapCallIndirectNullElement
	TrapCallIndirectTypeMismatch
	TrapMemoryOutOfBounds
	// TrapUncatchedExceptionTag is reserved for a future exception-handling
	// proposal; it is currently handled identically to any other trap.
	TrapUncatchedExceptionTag
)

func (k TrapKind) String() string {
	switch k {
	case TrapUnreachable:
		return "unreachable"
	case TrapInvalidConversionToInteger:
		return "invalid_conversion_to_integer"
	case TrapIntegerDivideByZero:
		return "integer_divide_by_zero"
	case TrapIntegerOverflow:
		return "integer_overflow"
	case TrapCallIndirectTableOutOfBounds:
		return "call_indirect_table_out_of_bounds"
	case TrapCallIndirectNullElement:
		return "call_indirect_null_element"
	case TrapCallIndirectTypeMismatch:
		return "call_indirect_type_mismatch"
	case TrapMemoryOutOfBounds:
		return "memory_out_of_bounds"
	case TrapUncatchedExceptionTag:
		return "uncatched_exception_tag"
	}
	return "unknown_trap"
}

// MemoryTrapDetail carries the precise operand tuple spec.md §4.2 requires
// for an out-of-bounds memory access.
type MemoryTrapDetail struct {
	StaticOffset   uint32
	Address        uint32
	EffectiveOffset uint64
	MemoryLength   uint32
	Width          uint32
}

// Frame is one entry of the reconstructable call stack (spec.md §3's
// "call-stack trace"), most-recent-first when rendered.
type Frame struct {
	ModuleName   string
	FunctionName string
	FunctionIndex uint32
}

// TrapError is the single-producer fatal event described in spec.md §7. It
// is never wrapped and never recovered from: the producing op constructs
// one and the call bridge's dispatch loop propagates it transparently to
// the top, where the embedder's reporter renders it and the process exits.
type TrapError struct {
	Kind   TrapKind
	Memory *MemoryTrapDetail
	Frames []Frame // most-recent-first
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("wasm trap: %s", e.Kind)
}

// Log records the trap at error level on the package logger, one field per
// call-stack frame, matching the teacher's split between "something to log"
// and "something that terminates the process" (spec.md §7's fatal-but-not-
// in-guest-catchable model).
func (e *TrapError) Log() {
	fields := make([]zap.Field, 0, len(e.Frames)+1)
	fields = append(fields, zap.String("kind", e.Kind.String()))
	if e.Memory != nil {
		fields = append(fields, zap.Uint32("static_offset", e.Memory.StaticOffset),
			zap.Uint32("address", e.Memory.Address),
			zap.Uint64("effective_offset", e.Memory.EffectiveOffset),
			zap.Uint32("memory_length", e.Memory.MemoryLength),
			zap.Uint32("width", e.Memory.Width))
	}
	for i, f := range e.Frames {
		name := f.FunctionName
		if name == "" {
			name = fmt.Sprintf("$%d", f.FunctionIndex)
		}
		fields = append(fields, zap.String(fmt.Sprintf("frame[%d]", i), f.ModuleName+"."+name))
	}
	Logger().Error("wasm trap", fields...)
}

// Fatal logs e and terminates the process, exactly as spec.md §7 describes
// a trap's externally observable effect. It is a convenience entrypoint for
// an embedder that wants the reference behavior; CallFunction itself only
// ever returns the *TrapError, leaving the decision of whether to exit to
// the caller (e.g. a host running a test harness should not os.Exit).
func (e *TrapError) Fatal() {
	e.Log()
	os.Exit(1)
}

// Report renders the trap exactly as spec.md §7 describes: the trap kind,
// then each call-stack frame in most-recent-first order.
func (e *TrapError) Report() string {
	s := "trap: " + e.Kind.String()
	if e.Memory != nil {
		m := e.Memory
		s += fmt.Sprintf(" {static_offset=0x%x, address=0x%x, effective=0x%x, length=0x%x, width=%d}",
			m.StaticOffset, m.Address, m.EffectiveOffset, m.MemoryLength, m.Width)
	}
	for _, f := range e.Frames {
		name := f.FunctionName
		if name == "" {
			name = fmt.Sprintf("$%d", f.FunctionIndex)
		}
		s += fmt.Sprintf("\n\tat %s.%s", f.ModuleName, name)
	}
	return s
}
