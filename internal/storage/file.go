package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// fileState is the on-disk YAML layout. A section missing from the file keeps
// its default.
type fileState struct {
	Inventory *Inventory `yaml:"inventory,omitempty"`
	Settings  *Settings  `yaml:"settings,omitempty"`
}

// FileStorage keeps state in memory and rewrites a YAML file after every save.
type FileStorage struct {
	mu   sync.Mutex
	path string
	mem  *MemoryStorage
}

// OpenFileStorage loads state from path. A missing file yields the defaults;
// the file is created on the first save.
func OpenFileStorage(path string) (*FileStorage, error) {
	fs := &FileStorage{
		path: path,
		mem:  NewMemoryStorage(),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state fileState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if state.Inventory != nil {
		if err := fs.mem.SaveInventory(*state.Inventory); err != nil {
			return nil, fmt.Errorf("load inventory: %w", err)
		}
	}
	if state.Settings != nil {
		if err := fs.mem.SaveSettings(*state.Settings); err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
	}

	return fs, nil
}

// Path returns the file backing the storage.
func (s *FileStorage) Path() string {
	return s.path
}

// GetInventory returns a defensive copy of the stored inventory.
func (s *FileStorage) GetInventory() (Inventory, error) {
	return s.mem.GetInventory()
}

// SaveInventory writes the file and then stores inv. A failed write leaves the
// previous inventory in place.
func (s *FileStorage) SaveInventory(inv Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeInventory(inv)
	if err != nil {
		return err
	}
	settings, _ := s.mem.GetSettings()
	if err := s.write(fileState{Inventory: &normalized, Settings: &settings}); err != nil {
		return err
	}
	return s.mem.SaveInventory(normalized)
}

// GetSettings returns the stored settings.
func (s *FileStorage) GetSettings() (Settings, error) {
	return s.mem.GetSettings()
}

// SaveSettings writes the file and then stores settings. A failed write
// leaves the previous settings in place.
func (s *FileStorage) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeSettings(settings)
	if err != nil {
		return err
	}
	inv, _ := s.mem.GetInventory()
	if err := s.write(fileState{Inventory: &inv, Settings: &normalized}); err != nil {
		return err
	}
	return s.mem.SaveSettings(normalized)
}

// write replaces the file with state. It must be called with s.mu held.
func (s *FileStorage) write(state fileState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
