package choreo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore persists the signature as a small YAML document. Default
// Store implementation for hosts without their own persistence layer
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save implements Store. Writes via a temp file and rename so a crash
// mid-write cannot truncate the previous snapshot
func (s *FileStore) Save(sig Signature) error {
	data, err := yaml.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signature: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create signature dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write signature: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace signature: %w", err)
	}
	return nil
}

// Load implements Store. A missing file yields the default signature
func (s *FileStore) Load() (Signature, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSignature(), nil
		}
		return DefaultSignature(), fmt.Errorf("read signature: %w", err)
	}

	sig := DefaultSignature()
	if err := yaml.Unmarshal(data, &sig); err != nil {
		return DefaultSignature(), fmt.Errorf("parse signature: %w", err)
	}
	return sig, nil
}
