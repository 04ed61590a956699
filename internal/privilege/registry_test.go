package privilege_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corewell/noderepo/internal/privilege"
	"github.com/corewell/noderepo/internal/rerr"
)

func TestLoadRejectsCyclicDefinitions(t *testing.T) {
	r := privilege.NewRegistry()

	err := r.Load([]privilege.Definition{
		{Name: "test", Abstract: true, DeclaredAggregateNames: []string{"test2"}},
		{Name: "test2", Abstract: true, DeclaredAggregateNames: []string{"test4"}},
		{Name: "test4", Abstract: true, DeclaredAggregateNames: []string{"test5"}},
		{Name: "test5", Abstract: true, DeclaredAggregateNames: []string{"test3"}},
		{Name: "test3", Abstract: true, DeclaredAggregateNames: []string{"test"}},
	})

	require.Error(t, err)
	var cyclic *rerr.CyclicDefinitions
	require.ErrorAs(t, err, &cyclic)

	_, ok := r.Get("test")
	require.False(t, ok, "failed Load must not leave partial state")
}

func TestLoadRejectsEquivalentDefinitions(t *testing.T) {
	r := privilege.NewRegistry()

	err := r.Load([]privilege.Definition{
		{Name: "test2"},
		{Name: "test3"},
		{Name: "test5"},
		{Name: "test", Abstract: true, DeclaredAggregateNames: []string{"test2", "test3"}},
		{Name: "test6", Abstract: true, DeclaredAggregateNames: []string{"test3", "test2"}},
	})

	require.Error(t, err)
	var equiv *rerr.EquivalentDefinitions
	require.ErrorAs(t, err, &equiv)

	_, ok := r.Get("test6")
	require.False(t, ok)
}

func TestLoadRejectsAggregationOfBuiltins(t *testing.T) {
	r := privilege.NewRegistry()

	err := r.Load([]privilege.Definition{
		{Name: "customWrite", Abstract: true, DeclaredAggregateNames: []string{"jcr:addChildNodes", "jcr:removeNode"}},
	})

	require.Error(t, err)
	var unsupported *rerr.AggregationNotSupported
	require.ErrorAs(t, err, &unsupported)
}

func TestRegisterManyCustomPrivileges(t *testing.T) {
	r := privilege.NewRegistry()

	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("custom:priv%d", i)
		require.NoError(t, r.RegisterDefinition(name, false, nil))
	}

	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("custom:priv%d", i)
		p, ok := r.Get(name)
		require.True(t, ok)
		require.Equal(t, name, p.Name)
		require.Equal(t, []string{name}, p.LeafSet)
	}
}

func TestRegisterDefinitionRejectsDuplicateName(t *testing.T) {
	r := privilege.NewRegistry()

	require.NoError(t, r.RegisterDefinition("custom:once", false, nil))
	err := r.RegisterDefinition("custom:once", false, nil)

	require.Error(t, err)
	var dup *rerr.DuplicateName
	require.ErrorAs(t, err, &dup)
}

func TestAggregatePrivilegeResolvesTransitiveLeafSet(t *testing.T) {
	r := privilege.NewRegistry()

	require.NoError(t, r.Load([]privilege.Definition{
		{Name: "custom:a"},
		{Name: "custom:b"},
		{Name: "custom:c"},
		{Name: "custom:inner", Abstract: true, DeclaredAggregateNames: []string{"custom:a", "custom:c"}},
		{Name: "custom:outer", Abstract: true, DeclaredAggregateNames: []string{"custom:inner", "custom:b"}},
	}))

	outer, ok := r.Get("custom:outer")
	require.True(t, ok)
	require.ElementsMatch(t, []string{"custom:a", "custom:b", "custom:c"}, outer.LeafSet)
}
