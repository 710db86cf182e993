package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrInvalidInventory indicates the provided inventory rows violate validation rules.
	ErrInvalidInventory = errors.New("inventory rows must have unique ids")
	// ErrInvalidSettings indicates the provided settings hold an unknown value.
	ErrInvalidSettings = errors.New("font size must be one of normal, large, xlarge")
)

var defaultRows = []Row{
	{Denomination: "84", Stock: "5"},
	{Denomination: "63", Stock: "3"},
	{Denomination: "10", Stock: "10"},
	{Denomination: "1", Stock: "50"},
}

// Storage persists the stamp inventory and the application settings.
type Storage interface {
	GetInventory() (Inventory, error)
	SaveInventory(inv Inventory) error
	GetSettings() (Settings, error)
	SaveSettings(settings Settings) error
}

// MemoryStorage keeps state in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu        sync.RWMutex
	inventory Inventory
	settings  Settings
}

// NewMemoryStorage initialises storage with the default inventory and settings.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		inventory: DefaultInventory(),
		settings:  DefaultSettings(),
	}
}

// DefaultInventory returns a fresh copy of the sample stamp inventory with new row ids.
func DefaultInventory() Inventory {
	inv := Inventory{Rows: make([]Row, len(defaultRows))}
	copy(inv.Rows, defaultRows)
	for i := range inv.Rows {
		inv.Rows[i].ID = uuid.NewString()
	}
	return inv
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{FontSize: FontSizeNormal}
}

// GetInventory returns a defensive copy of the stored inventory.
func (s *MemoryStorage) GetInventory() (Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.inventory.clone(), nil
}

// SaveInventory validates and stores inv. Rows without an id get a new one.
func (s *MemoryStorage) SaveInventory(inv Inventory) error {
	normalized, err := normalizeInventory(inv)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.inventory = normalized
	s.mu.Unlock()

	return nil
}

// GetSettings returns the stored settings.
func (s *MemoryStorage) GetSettings() (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings, nil
}

// SaveSettings validates and stores settings. An empty font size keeps the default.
func (s *MemoryStorage) SaveSettings(settings Settings) error {
	normalized, err := normalizeSettings(settings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = normalized
	s.mu.Unlock()

	return nil
}

func normalizeInventory(inv Inventory) (Inventory, error) {
	out := inv.clone()
	seen := make(map[string]struct{}, len(out.Rows))
	for i := range out.Rows {
		if out.Rows[i].ID == "" {
			out.Rows[i].ID = uuid.NewString()
		}
		if _, dup := seen[out.Rows[i].ID]; dup {
			return Inventory{}, fmt.Errorf("%w: duplicate id %q", ErrInvalidInventory, out.Rows[i].ID)
		}
		seen[out.Rows[i].ID] = struct{}{}
	}
	return out, nil
}

func normalizeSettings(settings Settings) (Settings, error) {
	if settings.FontSize == "" {
		settings.FontSize = FontSizeNormal
	}
	if !settings.FontSize.Valid() {
		return Settings{}, ErrInvalidSettings
	}
	return settings, nil
}
