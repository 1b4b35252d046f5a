package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/merge"
	"github.com/roach88/synthase/internal/resolve"
)

func TestDefault(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 0.9, s.Overlap.Threshold)
	assert.Equal(t, resolve.ByEValue, s.Metric())
	assert.Equal(t, merge.DefaultOptions(), s.MergeOptions())
	assert.Nil(t, s.Adjacency)
}

func TestLoadEmptyPath(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestParseOverridesDefaults(t *testing.T) {
	s, err := Parse([]byte(`
[overlap]
threshold = 0.75

[resolve]
rank = "bitscore"

[merge]
discard = true

[engine]
workers = 4

[[adjacency]]
name = "epimerization"
representative = "C"
candidate = "E"
candidate_shorter = true
target = "E"
`))
	require.NoError(t, err)
	assert.Equal(t, 0.75, s.Overlap.Threshold)
	assert.Equal(t, resolve.ByBitScore, s.Metric())
	assert.True(t, s.Merge.Discard)
	assert.Equal(t, 0.5, s.Merge.Coverage, "unset keys keep defaults")
	assert.Equal(t, 4, s.Engine.Workers)
	assert.Equal(t, []ir.AdjacencyRule{ir.Epimerization}, s.Adjacency)
}

func TestParseEmptyDocument(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "[overlap]\nthreshhold = 0.8\n", "unknown settings key"},
		{"bad syntax", "[overlap\n", "parse settings"},
		{"threshold range", "[overlap]\nthreshold = 1.5\n", "overlap threshold"},
		{"rank enum", "[resolve]\nrank = \"coverage\"\n", "unknown rank metric"},
		{"merge range", "[merge]\ncoverage = 0.0\n", "merge coverage"},
		{"workers", "[engine]\nworkers = -1\n", "engine workers"},
		{"adjacency", "[[adjacency]]\nrepresentative = \"C\"\n", "adjacency[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synthase.toml")
	require.NoError(t, os.WriteFile(path, []byte("[resolve]\nrank = \"length\"\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, resolve.ByLength, s.Metric())

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
