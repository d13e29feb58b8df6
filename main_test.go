package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-dispenser/services"
)

func TestParseIngestEntriesList(t *testing.T) {
	entries, err := parseIngestEntries([]byte(`
- secret: "alice:pw"
  categories: ["Portal 2", "Half-Life"]
- secret: "bob:pw"
  categories: [tf2]
`))
	require.NoError(t, err)
	assert.Equal(t, []services.IngestEntry{
		{Secret: "alice:pw", Categories: []string{"Portal 2", "Half-Life"}},
		{Secret: "bob:pw", Categories: []string{"tf2"}},
	}, entries)
}

func TestParseIngestEntriesDocumentAndJSON(t *testing.T) {
	entries, err := parseIngestEntries([]byte(`{"entries":[{"secret":"a:1","categories":["x"]}]}`))
	require.NoError(t, err)
	assert.Equal(t, []services.IngestEntry{{Secret: "a:1", Categories: []string{"x"}}}, entries)

	entries, err = parseIngestEntries([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = parseIngestEntries([]byte("entries: [\n"))
	require.Error(t, err)
}

func TestLoadIngestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entries:\n  - secret: a:1\n    categories: [portal]\n"), 0o600))

	entries, err := loadIngestFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a:1", entries[0].Secret)

	_, err = loadIngestFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
