package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"wot-clan-dashboard/internal/model"
)

// TankCache persists encyclopedia metadata between runs so the sync only asks
// the remote API for tank ids it has never seen. Entries are keyed by the
// string form of the tank id and are never expired: vehicle definitions are
// treated as immutable for the lifetime of the process.
//
// The cache is not locked. Only the sync coordinator mutates it, and sync
// runs are mutually exclusive.
type TankCache struct {
	path string
}

// NewTankCache creates a cache backed by the given JSON file.
func NewTankCache(path string) *TankCache {
	return &TankCache{path: path}
}

// Load reads the cache file. Any read or decode error degrades to an empty
// map: the sync then simply refetches metadata.
func (c *TankCache) Load() map[string]model.VehicleMeta {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return map[string]model.VehicleMeta{}
	}

	entries := map[string]model.VehicleMeta{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return map[string]model.VehicleMeta{}
	}
	return entries
}

// Save writes the full mapping back to disk, creating the parent directory
// when needed. Callers log failures but never abort on them; the in-memory
// state stays authoritative for the rest of the run.
func (c *TankCache) Save(entries map[string]model.VehicleMeta) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tank cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tank cache: %w", err)
	}
	return nil
}
