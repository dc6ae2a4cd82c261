package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Load(), "load should not fail")
	assert.Equal(t, "", store.Get("port-a"), "should return empty string for absent key")
	store.Set("port-a", "5")
	assert.Equal(t, "5", store.Get("port-a"), "should return set value")
	store.Set("port-a", "7")
	assert.Equal(t, "7", store.Get("port-a"), "should upsert")
	store.Remove("port-a")
	assert.Equal(t, "", store.Get("port-a"), "should remove key")
	// Removing an absent key must be a no-op.
	store.Remove("port-a")
	require.NoError(t, store.Save(), "save should not fail")
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port_patchings.json")
	logger := zap.New(zapcore.NewNopCore())
	store := NewFileStore(logger, path)
	require.NoError(t, store.Load(), "load with missing file should not fail")
	store.Set("port-a", "5")
	store.Set("port-b", "0")
	store.Remove("port-b")
	require.NoError(t, store.Save(), "save should not fail")
	// Reload into a fresh store.
	reloaded := NewFileStore(logger, path)
	require.NoError(t, reloaded.Load(), "load should not fail")
	assert.Equal(t, "5", reloaded.Get("port-a"), "should restore persisted value")
	assert.Equal(t, "", reloaded.Get("port-b"), "should not restore removed key")
}

func TestFileStoreLoadCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port_patchings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644), "write corrupted file should not fail")
	store := NewFileStore(zap.New(zapcore.NewNopCore()), path)
	require.NoError(t, store.Load(), "load with corrupted file should degrade, not fail")
	assert.Equal(t, "", store.Get("port-a"), "should start empty")
	// Save must recover the file.
	store.Set("port-a", "5")
	require.NoError(t, store.Save(), "save should not fail")
	reloaded := NewFileStore(zap.New(zapcore.NewNopCore()), path)
	require.NoError(t, reloaded.Load(), "load should not fail")
	assert.Equal(t, "5", reloaded.Get("port-a"), "should have recovered the file")
}

func TestFileStoreSaveCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "port_patchings.json")
	store := NewFileStore(zap.New(zapcore.NewNopCore()), path)
	require.NoError(t, store.Load(), "load should not fail")
	store.Set("port-a", "1")
	require.NoError(t, store.Save(), "save should create missing directories")
	_, err := os.Stat(path)
	assert.NoError(t, err, "file should exist")
}
