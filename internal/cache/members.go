package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wot-clan-dashboard/internal/model"
)

// membersFile is the on-disk shape of the roster cache.
type membersFile struct {
	TS      int64          `json:"ts"`
	Members []model.Member `json:"members"`
}

// MembersCache keeps the last fetched clan roster on disk with a bounded TTL.
// A fresh entry short-circuits the remote call entirely; a stale entry is
// still returned as a fallback when the remote call fails.
type MembersCache struct {
	path string
	ttl  time.Duration
}

// NewMembersCache creates a roster cache at path with the given TTL.
func NewMembersCache(path string, ttl time.Duration) *MembersCache {
	return &MembersCache{path: path, ttl: ttl}
}

// Get returns the cached roster and whether it is still fresh.
// Missing or unreadable cache yields (nil, false).
func (c *MembersCache) Get() ([]model.Member, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}

	var f membersFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false
	}
	if len(f.Members) == 0 {
		return nil, false
	}

	fresh := time.Since(time.Unix(f.TS, 0)) < c.ttl
	return f.Members, fresh
}

// Put stores the roster with the current timestamp.
func (c *MembersCache) Put(members []model.Member) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(membersFile{TS: time.Now().Unix(), Members: members}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode members cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write members cache: %w", err)
	}
	return nil
}
