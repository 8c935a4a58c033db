package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongtap/mongtap/internal/model"
)

func sampleModel() *model.Model {
	return &model.Model{Type: model.TypeObject, Properties: map[string]*model.Model{
		"a": {Type: model.TypeInteger},
	}}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 10, nil)
	require.NoError(t, err)

	require.NoError(t, s.Save("testdb", "widgets", sampleModel()))

	loaded, ok, err := s.Load("testdb", "widgets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.TypeObject, loaded.Type)
	assert.Contains(t, loaded.Properties, "a")

	assert.FileExists(t, filepath.Join(dir, "testdb", "widgets.json"))
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 10, nil)
	require.NoError(t, err)

	_, ok, err := s.Load("testdb", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDropRemovesFileAndCacheEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 10, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("testdb", "widgets", sampleModel()))

	require.NoError(t, s.Drop("testdb", "widgets"))

	_, ok, err := s.Load("testdb", "widgets")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListCollectionsAndDatabases(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 10, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("testdb", "widgets", sampleModel()))
	require.NoError(t, s.Save("testdb", "gadgets", sampleModel()))

	dbs, err := s.ListDatabases()
	require.NoError(t, err)
	assert.Contains(t, dbs, "testdb")

	cols, err := s.ListCollections("testdb")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"widgets", "gadgets"}, cols)
}
