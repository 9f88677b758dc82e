package token

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// FileStore persists the stage token cache as a JSON file. The wire format
// is one top-level key per stage name, each value either null or a token
// pair object.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path. The file is
// created lazily on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the cache file. A missing or corrupt file is treated as an
// empty cache so a stale or hand-damaged file never blocks authorization.
func (s *FileStore) Load() (StageTokens, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debugf("token filestore: read %s failed: %v, treating as empty", s.path, err)
		}
		return NewStageTokens(), nil
	}
	tokens := make(StageTokens)
	if err = json.Unmarshal(data, &tokens); err != nil {
		log.Warnf("token filestore: %s is not a valid token cache, treating as empty: %v", s.path, err)
		return NewStageTokens(), nil
	}
	tokens.Normalize()
	return tokens, nil
}

// Save writes the full cache, replacing any previous contents. Token files
// are written owner-readable only.
func (s *FileStore) Save(tokens StageTokens) error {
	tokens.Normalize()
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("token filestore: marshal failed: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err = os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("token filestore: create dir failed: %w", err)
		}
	}
	if err = os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("token filestore: write %s failed: %w", s.path, err)
	}
	return nil
}

// Clear overwrites the file with an all-unset cache.
func (s *FileStore) Clear() error {
	return s.Save(NewStageTokens())
}
