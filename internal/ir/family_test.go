package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFamilyTableLookup(t *testing.T) {
	table := NewFamilyTable([]Family{
		{Name: "PKS_KS", Accession: "smart00825", Type: "KS", Length: 298},
		{Name: "PKS_AT", Type: "AT"},
	})

	f, ok := table.Lookup("PKS_KS")
	assert.True(t, ok)
	assert.Equal(t, "KS", f.Type)

	f, ok = table.Lookup("smart00825")
	assert.True(t, ok)
	assert.Equal(t, "PKS_KS", f.Name)

	_, ok = table.Lookup("TESTING")
	assert.False(t, ok)

	_, ok = table.Lookup("")
	assert.False(t, ok)

	f, ok = table.LookupHit(Hit{Family: "unknown", Accession: "smart00825"})
	assert.True(t, ok)
	assert.Equal(t, 298, f.Length)
}

func TestFamilyTableNil(t *testing.T) {
	var table *FamilyTable
	_, ok := table.Lookup("PKS_KS")
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Families())
	assert.Empty(t, table.Types())
}

func TestFamilyTableTypes(t *testing.T) {
	table := NewFamilyTable([]Family{
		{Name: "PKS_KS", Type: "KS"},
		{Name: "CLF", Type: "KS"},
		{Name: "PKS_AT", Type: "AT"},
	})
	assert.Equal(t, []string{"AT", "KS"}, table.Types())
	assert.Equal(t, []string{"PKS_KS", "CLF"}, table.ByType()["KS"])
}
