package data

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWorlds(t *testing.T) {
	table, err := LoadWorlds()
	require.NoError(t, err)
	require.Equal(t, 77, table.Count())
}

func TestWorldTableBijection(t *testing.T) {
	table, err := LoadWorlds()
	require.NoError(t, err)

	cases := []struct {
		id   uint16
		name string
	}{
		{21, "Ravana"},
		{22, "Bismarck"},
		{83, "Louisoix"},
		{99, "Sargatanas"},
		{400, "Sagittarius"},
		{403, "Raiden"},
	}
	for _, c := range cases {
		name, ok := table.NameForID(c.id)
		require.True(t, ok, "id %d", c.id)
		require.Equal(t, c.name, name)

		id, ok := table.IDForName(c.name)
		require.True(t, ok, "name %s", c.name)
		require.Equal(t, c.id, id)
	}
}

func TestWorldTableUnknown(t *testing.T) {
	table, err := LoadWorlds()
	require.NoError(t, err)

	// 84 and 89 are gaps in the id space
	if _, ok := table.NameForID(84); ok {
		t.Fatal("id 84 should not resolve")
	}
	if _, ok := table.NameForID(0); ok {
		t.Fatal("id 0 should not resolve")
	}
	if _, ok := table.IDForName("Gaia"); ok {
		t.Fatal("unknown world name should not resolve")
	}
}
