package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	naragerr "github.com/naragtive/naragtive/internal/errors"
	"github.com/naragtive/naragtive/internal/store"
)

// newIndexFile creates a small index file on disk and returns its path.
func newIndexFile(t *testing.T, records int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scenes.col")
	idx, err := store.Create(path, 3)
	require.NoError(t, err)

	batch := make([]store.DocumentRecord, records)
	for i := range batch {
		batch[i] = store.DocumentRecord{
			ID:        string(rune('a' + i)),
			Text:      "scene",
			Embedding: []float32{1, 0, 0},
			Metadata:  store.Metadata{Location: "Bridge"},
		}
	}
	if records > 0 {
		_, err = idx.Append(batch, false)
		require.NoError(t, err)
	}
	return path
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(t.TempDir())
	require.NoError(t, err)
	return r
}

func TestRegister_RecordsMetadata(t *testing.T) {
	r := newTestRegistry(t)
	path := newIndexFile(t, 3)

	meta, err := r.Register("voyage", path, "markdown", "first draft")
	require.NoError(t, err)

	assert.Equal(t, "voyage", meta.Name)
	assert.Equal(t, path, meta.Path)
	assert.Equal(t, 3, meta.RecordCount)
	assert.False(t, meta.CreatedAt.IsZero())

	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "voyage", list[0].Name)
}

func TestRegister_DuplicateNameLeavesFileUnchanged(t *testing.T) {
	// Given: a registered store
	r := newTestRegistry(t)
	path := newIndexFile(t, 2)
	_, err := r.Register("voyage", path, "markdown", "")
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(r.Dir(), "registry.json"))
	require.NoError(t, err)

	// When: registering the same name again
	_, err = r.Register("voyage", newIndexFile(t, 1), "markdown", "")

	// Then: DuplicateNameError and a byte-identical registry file
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeDuplicateName, naragerr.GetCode(err))

	after, err := os.ReadFile(filepath.Join(r.Dir(), "registry.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRegister_MissingIndexFile(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Register("voyage", filepath.Join(t.TempDir(), "nope.col"), "markdown", "")
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeFileNotFound, naragerr.GetCode(err))
}

func TestSetDefault_UnknownNameLeavesDefaultUnchanged(t *testing.T) {
	// Given: a store set as default
	r := newTestRegistry(t)
	_, err := r.Register("voyage", newIndexFile(t, 1), "markdown", "")
	require.NoError(t, err)
	require.NoError(t, r.SetDefault("voyage"))

	// When: pointing the default at a missing store
	err = r.SetDefault("missing")

	// Then: NotFoundError, existing default unchanged
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeStoreNotFound, naragerr.GetCode(err))

	def, ok := r.DefaultName()
	require.True(t, ok)
	assert.Equal(t, "voyage", def)
}

func TestGet_ResolvesDefaultAlias(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register("voyage", newIndexFile(t, 2), "markdown", "")
	require.NoError(t, err)
	require.NoError(t, r.SetDefault("voyage"))

	idx, err := r.Get("default")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Count())

	// Empty name resolves the same way.
	same, err := r.Get("")
	require.NoError(t, err)
	assert.Same(t, idx, same)
}

func TestGet_NoDefaultSet(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register("voyage", newIndexFile(t, 1), "markdown", "")
	require.NoError(t, err)

	_, err = r.Get("default")
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeNoDefaultStore, naragerr.GetCode(err))
}

func TestGet_CachesHandle(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register("voyage", newIndexFile(t, 1), "markdown", "")
	require.NoError(t, err)

	first, err := r.Get("voyage")
	require.NoError(t, err)
	second, err := r.Get("voyage")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestDelete_UnsetsDefaultWithoutReassigning(t *testing.T) {
	// Given: two stores, one of them the default
	r := newTestRegistry(t)
	_, err := r.Register("voyage", newIndexFile(t, 1), "markdown", "")
	require.NoError(t, err)
	_, err = r.Register("mutiny", newIndexFile(t, 1), "markdown", "")
	require.NoError(t, err)
	require.NoError(t, r.SetDefault("voyage"))

	// When: deleting the default store
	require.NoError(t, r.Delete("voyage"))

	// Then: the entry is gone and the default is unset, not moved
	_, err = r.Lookup("voyage")
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeStoreNotFound, naragerr.GetCode(err))

	_, ok := r.DefaultName()
	assert.False(t, ok)
}

func TestDelete_UnknownName(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Delete("ghost")
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeStoreNotFound, naragerr.GetCode(err))
}

func TestRename_CarriesDefaultPointer(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register("voyage", newIndexFile(t, 1), "markdown", "")
	require.NoError(t, err)
	require.NoError(t, r.SetDefault("voyage"))

	require.NoError(t, r.Rename("voyage", "odyssey"))

	def, ok := r.DefaultName()
	require.True(t, ok)
	assert.Equal(t, "odyssey", def)

	_, err = r.Lookup("voyage")
	assert.Equal(t, naragerr.ErrCodeStoreNotFound, naragerr.GetCode(err))
	meta, err := r.Lookup("odyssey")
	require.NoError(t, err)
	assert.Equal(t, "odyssey", meta.Name)
}

func TestRename_TargetTaken(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register("voyage", newIndexFile(t, 1), "markdown", "")
	require.NoError(t, err)
	_, err = r.Register("mutiny", newIndexFile(t, 1), "markdown", "")
	require.NoError(t, err)

	err = r.Rename("voyage", "mutiny")
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeDuplicateName, naragerr.GetCode(err))
}

func TestOpen_CorruptRegistryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.json"), []byte("{truncated"), 0o644))

	_, err := Open(dir)
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeRegistryCorrupt, naragerr.GetCode(err))
}

func TestRegister_ReservedName(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Register("default", newIndexFile(t, 1), "markdown", "")
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeInvalidInput, naragerr.GetCode(err))
}
