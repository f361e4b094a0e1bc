package feedload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedload.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadImportOpts(t *testing.T) {
	path := writeConfig(t, `
forceValid: true
keepEPrefix: true
skipInvalidRecords: true
ignoreFields:
  stops: [parent_station, wheelchair_boarding]
  trips: [wheelchair_accessible]
`)
	opts, err := LoadImportOpts(path)
	require.NoError(t, err)

	assert.True(t, opts.ForceValid)
	assert.False(t, opts.IgnoreInvalid)
	assert.True(t, opts.KeepEPrefix)
	assert.True(t, opts.SkipInvalidRecords)
	assert.Equal(t, map[Kind][]string{
		Stops: {"parent_station", "wheelchair_boarding"},
		Trips: {"wheelchair_accessible"},
	}, opts.ignoreFields())
	assert.Equal(t, CoerceOptions{KeepEPrefix: true}, opts.coerceOptions())
}

func TestLoadImportOptsEmpty(t *testing.T) {
	opts, err := LoadImportOpts(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, &ImportOpts{}, opts)
}

func TestLoadImportOptsInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"unknown table": "ignoreFields:\n  agency: [agency_phone]\n",
		"empty field":   "ignoreFields:\n  stops: ['']\n",
		"unknown key":   "forceValdi: true\n",
		"not yaml":      "ignoreFields: [",
		"key field":     "ignoreFields:\n  stops: [stop_id]\n",
		"remapped key":  "ignoreFields:\n  trips: [service_id]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadImportOpts(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestLoadImportOptsMissingFile(t *testing.T) {
	_, err := LoadImportOpts(filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
