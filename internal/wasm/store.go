package wasm

import "fmt"

// maxChainHops bounds import-alias and table-alias chain walks. spec.md §3
// treats a chain longer than this as a hard internal bug, not a normal
// error: the external loader is responsible for guaranteeing termination.
const maxChainHops = 8192

// Store is the process-wide, built-once-after-load table of every compiled
// module, addressed by the dense module_id assigned in load order
// (spec.md §9 "global state": modules[], module_name→id, import_call_cache
// folded into one context object instead of ambient globals).
type Store struct {
	Modules  []*Module
	nameToID map[string]uint32
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{nameToID: map[string]uint32{}}
}

// AddModule assigns m the next module_id in load order and registers it.
func (s *Store) AddModule(m *Module) uint32 {
	id := uint32(len(s.Modules))
	m.ID = id
	s.Modules = append(s.Modules, m)
	s.nameToID[m.Name] = id
	return id
}

// ModuleByName looks up a module's id by its display name.
func (s *Store) ModuleByName(name string) (uint32, bool) {
	id, ok := s.nameToID[name]
	return id, ok
}

// BuildImportDispatchCache resolves every imported-function entry in every
// module to its terminal ResolvedImport, per spec.md §3. It must run once,
// after all modules are in the Store and before any guest execution; the
// resulting caches are read-only for the lifetime of the Store.
func (s *Store) BuildImportDispatchCache() error {
	for _, m := range s.Modules {
		m.importCache = make([]ResolvedImport, len(m.ImportedFunctions))
		for i := range m.ImportedFunctions {
			resolved, err := s.resolveImport(m.ID, uint32(i), 0)
			if err != nil {
				return err
			}
			m.importCache[i] = resolved
		}
	}
	return nil
}

func (s *Store) resolveImport(moduleID, importIndex uint32, hops int) (ResolvedImport, error) {
	if hops > maxChainHops {
		return ResolvedImport{}, fmt.Errorf("wasm: import alias chain exceeds %d hops starting at module %d import %d: internal bug", maxChainHops, moduleID, importIndex)
	}
	mod := s.Modules[moduleID]
	entry := mod.ImportedFunctions[importIndex]
	switch entry.State {
	case LinkUnresolved:
		return ResolvedImport{}, fmt.Errorf("wasm: unresolved import %q in module %q", entry.Name, mod.Name)
	case LinkImported:
		return s.resolveImport(entry.AliasModuleID, entry.AliasImportIndex, hops+1)
	case LinkDefined:
		return ResolvedImport{
			State:            LinkDefined,
			Signature:        entry.Signature,
			DisplayModuleID:  entry.TargetModuleID,
			DisplayFuncIndex: entry.TargetFuncIndex,
			TargetModuleID:   entry.TargetModuleID,
			TargetFuncIndex:  entry.TargetFuncIndex,
		}, nil
	case LinkLocalImported:
		return ResolvedImport{
			State:            LinkLocalImported,
			Signature:        entry.Signature,
			DisplayModuleID:  moduleID,
			DisplayFuncIndex: importIndex,
			LocalImported:    entry.LocalImported,
			LocalIndex:       entry.LocalIndex,
		}, nil
	case LinkDl, LinkWeakSymbol:
		return ResolvedImport{
			State:            entry.State,
			Signature:        entry.Signature,
			DisplayModuleID:  moduleID,
			DisplayFuncIndex: importIndex,
			Host:             entry.Host,
		}, nil
	default:
		return ResolvedImport{}, fmt.Errorf("wasm: unknown link state %d", entry.State)
	}
}

// ResolvedImportAt returns the cached resolution for the importIndex-th
// imported function of m, built by BuildImportDispatchCache.
func (m *Module) ResolvedImportAt(importIndex uint32) ResolvedImport {
	return m.importCache[importIndex]
}

// ResolveTable follows a table's alias chain (if any) to the module and
// table that actually own the dense funcref element vector, bounded by
// maxChainHops as an internal-bug guard.
func (s *Store) ResolveTable(moduleID, tableIndex uint32) (*Module, *Table, error) {
	for hops := 0; ; hops++ {
		if hops > maxChainHops {
			return nil, nil, fmt.Errorf("wasm: table alias chain exceeds %d hops starting at module %d table %d: internal bug", maxChainHops, moduleID, tableIndex)
		}
		mod := s.Modules[moduleID]
		t := mod.Tables[tableIndex]
		if t.Alias == nil {
			return mod, t, nil
		}
		moduleID, tableIndex = t.Alias.ModuleID, t.Alias.TableIndex
	}
}
