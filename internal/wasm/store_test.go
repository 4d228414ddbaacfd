package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wazerothread/tvm/api"
)

func TestBuildImportDispatchCacheResolvesAliasChain(t *testing.T) {
	s := NewStore()

	target := &Module{Name: "target", Functions: []*FunctionInstance{
		{Index: 0, Name: "add", Signature: api.NewSignature([]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32})},
	}}
	s.AddModule(target)

	middle := &Module{Name: "middle", ImportedFunctions: []ImportedFunction{
		{Name: "add", State: LinkDefined, TargetModuleID: target.ID, TargetFuncIndex: 0},
	}}
	s.AddModule(middle)

	leaf := &Module{Name: "leaf", ImportedFunctions: []ImportedFunction{
		{Name: "add", State: LinkImported, AliasModuleID: middle.ID, AliasImportIndex: 0},
	}}
	s.AddModule(leaf)

	require.NoError(t, s.BuildImportDispatchCache())

	resolved := leaf.ResolvedImportAt(0)
	require.Equal(t, LinkDefined, resolved.State)
	require.Equal(t, target.ID, resolved.TargetModuleID)
	require.Equal(t, uint32(0), resolved.TargetFuncIndex)
}

func TestBuildImportDispatchCacheChainTooLong(t *testing.T) {
	s := NewStore()
	// Build a self-referential chain that never terminates, simulating a
	// loader bug: the core must refuse rather than loop forever.
	m := &Module{Name: "cyclic"}
	m.ImportedFunctions = []ImportedFunction{{Name: "x", State: LinkImported, AliasModuleID: 0, AliasImportIndex: 0}}
	s.AddModule(m)

	err := s.BuildImportDispatchCache()
	require.Error(t, err)
}

func TestResolveTableAlias(t *testing.T) {
	s := NewStore()
	owner := &Module{Name: "owner", Tables: []*Table{{Elements: []FuncrefElement{{Kind: FuncrefNull}}}}}
	s.AddModule(owner)
	aliasMod := &Module{Name: "aliaser", Tables: []*Table{{Alias: &TableAlias{ModuleID: owner.ID, TableIndex: 0}}}}
	s.AddModule(aliasMod)

	mod, table, err := s.ResolveTable(aliasMod.ID, 0)
	require.NoError(t, err)
	require.Equal(t, owner.ID, mod.ID)
	require.Len(t, table.Elements, 1)
}

func TestSignatureEquality(t *testing.T) {
	a := api.NewSignature([]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32})
	b := api.NewSignature([]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32})
	c := api.NewSignature([]api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI32})

	require.True(t, a.Equal(a)) // reflexive
	require.True(t, a.Equal(b))
	require.True(t, b.Equal(a)) // symmetric
	require.False(t, a.Equal(c))

	require.Equal(t, uint32(8), a.ParamBytes)
	require.Equal(t, uint32(4), a.ResultBytes)
}
