// Package wasm holds the runtime module storage (spec.md §3): the
// immutable, read-only-to-the-core shape produced by the out-of-scope
// binary-format parser/validator and module loader/linker. Nothing in this
// repository parses a .wasm binary; tests and embedders build these types
// directly, exactly as spec.md §1 scopes the loader out as an external
// collaborator.
package wasm

import "github.com/wazerothread/tvm/api"

// LinkState is the closed tagged union spec.md §3 assigns to every
// imported-function entry, describing how (if at all) it currently
// resolves.
type LinkState int

const (
	LinkUnresolved LinkState = iota
	// LinkImported is an alias into another module's import slot.
	LinkImported
	// LinkDefined resolves to a local-defined function in another module.
	LinkDefined
	// LinkLocalImported resolves into a second-class in-process module
	// with a call-by-index entrypoint.
	LinkLocalImported
	// LinkDl resolves to a dynamically loaded native function.
	LinkDl
	// LinkWeakSymbol resolves to a statically known weak symbol.
	LinkWeakSymbol
)

func (s LinkState) String() string {
	switch s {
	case LinkUnresolved:
		return "unresolved"
	case LinkImported:
		return "imported"
	case LinkDefined:
		return "defined"
	case LinkLocalImported:
		return "local_imported"
	case LinkDl:
		return "dl"
	case LinkWeakSymbol:
		return "weak_symbol"
	}
	return "invalid"
}

// HostIndexTarget is the entrypoint a LinkLocalImported target invokes:
// a second-class in-process module addressed by index (spec.md §6).
type HostIndexTarget interface {
	CallByIndex(index uint32, resultBuf, paramBuf []byte) error
}

// HostTarget is the C-ABI-shaped entrypoint a LinkDl or LinkWeakSymbol
// target invokes (spec.md §6): "(result_buffer*, parameter_buffer*) -> void"
// with ABI packing per spec.md §4.1, reduced to an error return since Go
// has no void-returning-but-may-trap convention.
type HostTarget interface {
	Invoke(resultBuf, paramBuf []byte) error
}

// ImportedFunction is one entry of a module's imported-function vector.
type ImportedFunction struct {
	Name      string
	Signature api.Signature
	State     LinkState

	// AliasModuleID/AliasImportIndex are valid when State == LinkImported:
	// the slot this entry is an alias of.
	AliasModuleID    uint32
	AliasImportIndex uint32

	// TargetModuleID/TargetFuncIndex are valid when State == LinkDefined.
	TargetModuleID  uint32
	TargetFuncIndex uint32

	// LocalImported is valid when State == LinkLocalImported.
	LocalImported HostIndexTarget
	LocalIndex    uint32

	// Host is valid when State == LinkDl or State == LinkWeakSymbol.
	Host HostTarget
}

// FunctionInstance is one entry of a module's local-defined-function
// vector. Body holds the validated instruction bytes; the translator (C5)
// does not read it, since Translate takes a decoded []SourceInstr instead.
// Compiled holds the translator's output once the caller stores it there,
// and is nil until then.
type FunctionInstance struct {
	ModuleID  uint32
	Index     uint32
	Name      string
	Signature api.Signature
	Body      []byte

	// LocalKinds is the declared-locals vector, in index order, following
	// the parameters (spec.md §4.1/§4.5): local index len(Signature.Params)
	// is LocalKinds[0], and so on. The translator (C5) uses it to assign
	// each local a byte offset into the packed frame.
	LocalKinds []api.ValueType

	Compiled interface{} // *engine.CompiledFunction; untyped to avoid an import cycle
}

// FuncrefKind discriminates what a table slot currently holds.
type FuncrefKind int

const (
	FuncrefNull FuncrefKind = iota
	FuncrefLocal
	FuncrefImported
)

// FuncrefElement is one slot of a table (spec.md §3): null, or a reference
// to a local-defined function in some module, or a reference to an
// imported-function slot in some module.
type FuncrefElement struct {
	Kind        FuncrefKind
	ModuleID    uint32
	FuncOrImportIndex uint32
}

// TableAlias marks a Table as an imported-table alias, resolved by
// following (ModuleID, TableIndex) — possibly itself an alias.
type TableAlias struct {
	ModuleID   uint32
	TableIndex uint32
}

// Table is a dense sequence of funcref elements, or an alias to another
// module's table (spec.md §3).
type Table struct {
	Alias    *TableAlias
	Elements []FuncrefElement
}

// Module is the runtime storage for one loaded Wasm module (spec.md §3).
type Module struct {
	ID   uint32
	Name string

	Types             []api.Signature
	ImportedFunctions []ImportedFunction
	Functions         []*FunctionInstance
	Tables            []*Table
	Memory            *LinearMemory

	// importCache is the per-module import dispatch cache (spec.md §3),
	// built once by Store.BuildImportDispatchCache before any guest
	// execution and read-only thereafter.
	importCache []ResolvedImport
}

// ResolvedImport is one entry of the import dispatch cache: the terminal,
// non-LinkImported target an imported-function entry resolves to, together
// with everything the call bridge (C7) needs to invoke it without
// re-walking the alias chain.
type ResolvedImport struct {
	State     LinkState // LinkDefined, LinkLocalImported, LinkDl, or LinkWeakSymbol
	Signature api.Signature

	// DisplayModuleID/DisplayFuncIndex name the target for trace rendering.
	DisplayModuleID  uint32
	DisplayFuncIndex uint32

	TargetModuleID  uint32 // valid when State == LinkDefined
	TargetFuncIndex uint32 // valid when State == LinkDefined

	LocalImported HostIndexTarget // valid when State == LinkLocalImported
	LocalIndex    uint32
	Host          HostTarget // valid when State == LinkDl or LinkWeakSymbol
}
