package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wot-clan-dashboard/internal/model"
)

func TestTankCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tank_cache.json")
	c := NewTankCache(path)

	entries := map[string]model.VehicleMeta{
		"1": {TankID: 1, Name: "T-34-85", Tier: 6, Nation: "ussr", Type: "mediumTank"},
		"2": {TankID: 2, Name: "IS-3", Tier: 8, Nation: "ussr", Type: "heavyTank", IsPremium: true},
	}
	require.NoError(t, c.Save(entries))

	loaded := c.Load()
	require.Equal(t, entries, loaded)
}

func TestTankCacheLoadMissingFile(t *testing.T) {
	c := NewTankCache(filepath.Join(t.TempDir(), "absent.json"))

	loaded := c.Load()
	require.NotNil(t, loaded)
	require.Empty(t, loaded)
}

func TestTankCacheLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tank_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	loaded := NewTankCache(path).Load()
	require.NotNil(t, loaded)
	require.Empty(t, loaded)
}

func TestMembersCacheFreshness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members_cache.json")
	members := []model.Member{
		{AccountID: 42, Nickname: "alpha"},
		{AccountID: 43, Nickname: "bravo"},
	}

	c := NewMembersCache(path, 10*time.Minute)
	require.NoError(t, c.Put(members))

	got, fresh := c.Get()
	require.True(t, fresh)
	require.Equal(t, members, got)

	// A zero TTL makes the same entry stale, but it is still returned as a
	// fallback for failed remote calls.
	stale := NewMembersCache(path, 0)
	got, fresh = stale.Get()
	require.False(t, fresh)
	require.Equal(t, members, got)
}

func TestMembersCacheMissing(t *testing.T) {
	c := NewMembersCache(filepath.Join(t.TempDir(), "absent.json"), time.Minute)

	got, fresh := c.Get()
	require.False(t, fresh)
	require.Nil(t, got)
}
