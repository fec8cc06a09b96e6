package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrugBySlug(t *testing.T) {
	d, err := DrugBySlug(" Cocaine ")
	require.NoError(t, err)
	assert.Equal(t, "cocaine", d.ID)
	assert.Equal(t, "Cocaine", d.Name)

	_, err = DrugBySlug("aspirin")
	assert.Error(t, err)
}

func TestLocationBySlug(t *testing.T) {
	l, err := LocationBySlug("bronx")
	require.NoError(t, err)
	assert.Equal(t, "The Bronx", l.Name)

	_, err = LocationBySlug("")
	assert.Error(t, err)
}

func TestByID(t *testing.T) {
	for _, d := range Drugs {
		got, err := DrugByID(d.ID)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	for _, l := range Locations {
		got, err := LocationByID(l.ID)
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	_, err := DrugByID("ACID")
	assert.Error(t, err)
	_, err = LocationByID("mars")
	assert.Error(t, err)
}

func TestCatalog_UniqueSlugs(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Drugs {
		assert.False(t, seen[d.Slug], "duplicate slug %s", d.Slug)
		seen[d.Slug] = true
	}
	seen = map[string]bool{}
	for _, l := range Locations {
		assert.False(t, seen[l.Slug], "duplicate slug %s", l.Slug)
		seen[l.Slug] = true
	}
}
