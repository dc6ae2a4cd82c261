package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/lumicore/lumid/errors"
	"go.uber.org/zap"
)

// FileStore implements Store backed by a JSON file. All Get/Set/Remove
// operations work on in-memory state, only Load and Save touch the file.
type FileStore struct {
	logger *zap.Logger
	// path is the location of the backing JSON file.
	path   string
	values map[string]string
}

// NewFileStore creates a FileStore backed by the file at the given path. Call
// Load before use.
func NewFileStore(logger *zap.Logger, path string) *FileStore {
	return &FileStore{
		logger: logger,
		path:   path,
		values: make(map[string]string),
	}
}

// Load reads the backing file. A missing file is not an error, the store
// starts empty. A corrupted file is logged and the store starts empty as
// well, it will be overwritten on the next Save.
func (s *FileStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewInternalErrorFromErr(err, "read preferences file", errors.Details{"path": s.path})
	}
	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		errors.Log(s.logger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindDecodeJSON,
			Err:     err,
			Message: "corrupted preferences file, starting empty",
			Details: errors.Details{"path": s.path},
		})
		return nil
	}
	s.values = values
	return nil
}

// Save writes the in-memory state to the backing file via a temporary file
// and rename so that a crash mid-write never leaves a half-written file.
func (s *FileStore) Save() error {
	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "marshal preferences",
			Details: errors.Details{"path": s.path},
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.NewInternalErrorFromErr(err, "create preferences dir", errors.Details{"path": s.path})
	}
	tmpPath := fmt.Sprintf("%s.%s.tmp", s.path, uuid.New().String())
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return errors.NewInternalErrorFromErr(err, "write temp preferences file", errors.Details{"path": tmpPath})
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		// Best effort cleanup of the temp file.
		_ = os.Remove(tmpPath)
		return errors.NewInternalErrorFromErr(err, "rename temp preferences file", errors.Details{
			"tmp_path": tmpPath,
			"path":     s.path,
		})
	}
	return nil
}

func (s *FileStore) Get(key string) string {
	return s.values[key]
}

func (s *FileStore) Set(key string, value string) {
	s.values[key] = value
}

func (s *FileStore) Remove(key string) {
	delete(s.values, key)
}
