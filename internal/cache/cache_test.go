package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cache.json"))

	records := store.Load()
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	records := NewStore(path).Load()
	assert.Empty(t, records)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "cache.json"))

	records := map[string]*Record{
		"m1": {
			ID: "m1",
			Headers: []Header{
				{Name: "From", Value: "alice@example.com"},
				{Name: "Subject", Value: "Hello"},
			},
			LabelIDs: []string{"UNREAD", "CATEGORY_UPDATES"},
		},
		"m2": {ID: "m2"},
	}
	require.NoError(t, store.Save(records))

	loaded := store.Load()
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice@example.com", loaded["m1"].Header("From", "Unknown"))
	assert.True(t, loaded["m1"].HasLabel("UNREAD"))
	assert.False(t, loaded["m2"].HasLabel("UNREAD"))
}

func TestHeaderDefault(t *testing.T) {
	record := &Record{Headers: []Header{{Name: "Subject", Value: "hi"}}}

	assert.Equal(t, "hi", record.Header("Subject", "No Subject"))
	assert.Equal(t, "Unknown", record.Header("From", "Unknown"))
}

func TestPrune(t *testing.T) {
	records := map[string]*Record{
		"keep1": {ID: "keep1"},
		"keep2": {ID: "keep2"},
		"gone1": {ID: "gone1"},
		"gone2": {ID: "gone2"},
	}
	keep := map[string]struct{}{"keep1": {}, "keep2": {}}

	pruned := Prune(records, keep)
	assert.Equal(t, 2, pruned)
	assert.Len(t, records, 2)
	assert.Contains(t, records, "keep1")
	assert.Contains(t, records, "keep2")

	// Second prune is a no-op.
	assert.Equal(t, 0, Prune(records, keep))
	assert.Len(t, records, 2)
}
