// Package prefs provides the string key/value preferences stores that the
// daemon uses for durable configuration like port patchings.
package prefs

// Store is a string-keyed, string-valued preferences store. An empty string
// returned by Get means the key is absent.
type Store interface {
	// Load populates the in-memory state from durable storage. Called once
	// before the store is used.
	Load() error
	// Save flushes the in-memory state to durable storage.
	Save() error
	// Get returns the value for the given key or an empty string if the key is
	// absent.
	Get(key string) string
	// Set upserts the value for the given key.
	Set(key string, value string)
	// Remove deletes the entry for the given key. Removing an absent key is a
	// no-op.
	Remove(key string)
}

// MemoryStore implements Store without durable backing. Load and Save are
// no-ops. Used in tests and for ephemeral daemon runs.
type MemoryStore struct {
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Load() error {
	return nil
}

func (s *MemoryStore) Save() error {
	return nil
}

func (s *MemoryStore) Get(key string) string {
	return s.values[key]
}

func (s *MemoryStore) Set(key string, value string) {
	s.values[key] = value
}

func (s *MemoryStore) Remove(key string) {
	delete(s.values, key)
}
