package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wot-clan-dashboard/internal/config"
	"wot-clan-dashboard/internal/model"
)

// newTestStore opens a real SQLite database in a temp dir. The pure Go
// driver keeps these tests CGO-free.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func tank(accountID, tankID int64, name string, tier int, battles, wins int64) model.GarageTank {
	return model.GarageTank{
		AccountID:   accountID,
		TankID:      tankID,
		TankName:    name,
		Tier:        tier,
		Battles:     battles,
		Wins:        wins,
		Nation:      "ussr",
		Type:        "mediumTank",
		ImageURL:    "http://img/x.png",
		RawJSON:     []byte(`{"tank_id":` + name + `}`),
		LastUpdated: time.Now().UTC(),
	}
}

func TestPlayerUpsertIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	players := NewPlayerRepository(store)
	ctx := context.Background()

	require.NoError(t, players.Upsert(ctx, model.Player{AccountID: 42, Nickname: "alpha"}))
	require.NoError(t, players.Upsert(ctx, model.Player{AccountID: 42, Nickname: "alpha_renamed"}))

	list, err := players.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "alpha_renamed", list[0].Nickname)
}

func TestPlayerFindByNickname(t *testing.T) {
	store := newTestStore(t)
	players := NewPlayerRepository(store)
	ctx := context.Background()

	require.NoError(t, players.Upsert(ctx, model.Player{AccountID: 42, Nickname: "AlphaWolf"}))
	require.NoError(t, players.Upsert(ctx, model.Player{AccountID: 43, Nickname: "bravo"}))

	// Exact match wins regardless of case.
	p, err := players.FindByNickname(ctx, "alphawolf")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, int64(42), p.AccountID)

	// Substring fallback.
	p, err = players.FindByNickname(ctx, "Wolf")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, int64(42), p.AccountID)

	p, err = players.FindByNickname(ctx, "charlie")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestReplaceAccountTanksIsAtomicPerAccount(t *testing.T) {
	store := newTestStore(t)
	garage := NewGarageRepository(store)
	ctx := context.Background()

	require.NoError(t, garage.ReplaceAccountTanks(ctx, 42, []model.GarageTank{
		tank(42, 1, "1", 6, 10, 5),
		tank(42, 2, "2", 8, 20, 10),
	}))
	require.NoError(t, garage.ReplaceAccountTanks(ctx, 43, []model.GarageTank{
		tank(43, 3, "3", 10, 30, 15),
	}))

	// Replacing account 42 leaves account 43 untouched.
	require.NoError(t, garage.ReplaceAccountTanks(ctx, 42, []model.GarageTank{
		tank(42, 9, "9", 10, 1, 1),
	}))

	total, err := garage.CountAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	n, err := garage.Count(ctx, model.GarageFilter{AccountID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = garage.Count(ctx, model.GarageFilter{AccountID: 43})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestReplaceAccountTanksEmptySetClears(t *testing.T) {
	store := newTestStore(t)
	garage := NewGarageRepository(store)
	ctx := context.Background()

	require.NoError(t, garage.ReplaceAccountTanks(ctx, 42, []model.GarageTank{tank(42, 1, "1", 6, 1, 0)}))
	require.NoError(t, garage.ReplaceAccountTanks(ctx, 42, nil))

	n, err := garage.Count(ctx, model.GarageFilter{AccountID: 42})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestGarageListFiltersAndOrder(t *testing.T) {
	store := newTestStore(t)
	garage := NewGarageRepository(store)
	players := NewPlayerRepository(store)
	ctx := context.Background()

	require.NoError(t, players.Upsert(ctx, model.Player{AccountID: 42, Nickname: "alpha"}))
	require.NoError(t, players.Upsert(ctx, model.Player{AccountID: 43, Nickname: "bravo"}))

	french := tank(43, 4, "4", 8, 40, 20)
	french.Nation = "france"
	french.Type = "heavyTank"
	require.NoError(t, garage.ReplaceAccountTanks(ctx, 42, []model.GarageTank{
		tank(42, 1, "1", 6, 10, 5),
		tank(42, 2, "2", 10, 20, 10),
	}))
	require.NoError(t, garage.ReplaceAccountTanks(ctx, 43, []model.GarageTank{french}))

	rows, err := garage.List(ctx, model.GarageFilter{}, 25, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// Nickname ascending, tier descending within one player.
	require.Equal(t, "alpha", rows[0].Nickname)
	require.Equal(t, 10, rows[0].Tier)
	require.Equal(t, 6, rows[1].Tier)
	require.Equal(t, "bravo", rows[2].Nickname)

	rows, err = garage.List(ctx, model.GarageFilter{Tier: 8}, 25, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(4), rows[0].TankID)

	rows, err = garage.List(ctx, model.GarageFilter{Nation: "france", Type: "heavyTank"}, 25, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Pagination.
	rows, err = garage.List(ctx, model.GarageFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestGarageAggregate(t *testing.T) {
	store := newTestStore(t)
	garage := NewGarageRepository(store)
	ctx := context.Background()

	require.NoError(t, garage.ReplaceAccountTanks(ctx, 42, []model.GarageTank{
		tank(42, 1, "1", 6, 100, 60),
		tank(42, 2, "2", 10, 300, 120),
	}))

	stats, err := garage.Aggregate(ctx, model.GarageFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(400), stats.TotalBattles)
	require.Equal(t, int64(180), stats.TotalWins)
	require.InDelta(t, 200.0, stats.AvgBattles, 0.001)
	require.InDelta(t, 45.0, stats.WinPct, 0.001)

	// Empty filtered set yields zeroes, not division errors.
	stats, err = garage.Aggregate(ctx, model.GarageFilter{Tier: 8})
	require.NoError(t, err)
	require.Zero(t, stats.TotalBattles)
	require.Zero(t, stats.AvgBattles)
	require.Zero(t, stats.WinPct)
}

func TestGarageDistinctValues(t *testing.T) {
	store := newTestStore(t)
	garage := NewGarageRepository(store)
	ctx := context.Background()

	a := tank(42, 1, "1", 6, 1, 0)
	b := tank(42, 2, "2", 8, 1, 0)
	b.Nation = "germany"
	b.Type = "heavyTank"
	c := tank(42, 3, "3", 10, 1, 0)
	c.Nation = "" // unresolved rows stay out of the dropdowns
	c.Type = ""
	require.NoError(t, garage.ReplaceAccountTanks(ctx, 42, []model.GarageTank{a, b, c}))

	nations, err := garage.DistinctNations(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"germany", "ussr"}, nations)

	types, err := garage.DistinctTypes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"heavyTank", "mediumTank"}, types)
}

func TestGarageMissingMetaAndUpdate(t *testing.T) {
	store := newTestStore(t)
	garage := NewGarageRepository(store)
	ctx := context.Background()

	bare := model.GarageTank{AccountID: 42, TankID: 7, TankName: "Tank 7", Tier: 6, LastUpdated: time.Now()}
	full := tank(42, 8, "8", 8, 1, 0)
	require.NoError(t, garage.ReplaceAccountTanks(ctx, 42, []model.GarageTank{bare, full}))

	missing, err := garage.MissingMeta(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.Equal(t, int64(7), missing[0].TankID)

	row := missing[0]
	row.TankName = "T-34-85"
	row.Nation = "ussr"
	row.Type = "mediumTank"
	row.ImageURL = "http://img/t3485.png"
	require.NoError(t, garage.UpdateMeta(ctx, row))

	missing, err = garage.MissingMeta(ctx)
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestUserCreateAndRoles(t *testing.T) {
	store := newTestStore(t)
	users := NewUserRepository(store)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, model.User{
		Username: "alice", PasswordHash: "h1", Role: model.RoleMember, AccountID: 42,
	}))
	require.NoError(t, users.Create(ctx, model.User{
		Username: "boss", PasswordHash: "h2", Role: model.RoleCommander, AccountID: 1,
	}))

	err := users.Create(ctx, model.User{Username: "alice", PasswordHash: "h3"})
	require.ErrorIs(t, err, ErrUserExists)

	u, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, model.RoleMember, u.Role)
	require.False(t, u.IsCommander())

	byID, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, "alice", byID.Username)

	pending, err := users.ListByRole(ctx, model.RoleMember)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, users.UpdateRole(ctx, u.ID, model.RoleCommander))
	u, err = users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, u.IsCommander())

	pending, err = users.ListByRole(ctx, model.RoleMember)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestUserUnknownLookups(t *testing.T) {
	store := newTestStore(t)
	users := NewUserRepository(store)
	ctx := context.Background()

	u, err := users.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	require.Nil(t, u)

	u, err = users.GetByID(ctx, 12345)
	require.NoError(t, err)
	require.Nil(t, u)
}

func TestRoleChangeAudit(t *testing.T) {
	store := newTestStore(t)
	users := NewUserRepository(store)
	ctx := context.Background()

	err := users.InsertRoleChange(ctx, model.RoleChange{
		UserID:    1,
		OldRole:   model.RoleMember,
		NewRole:   model.RoleCommander,
		ChangedBy: "boss",
		TS:        time.Now(),
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM role_changes`).Scan(&count))
	require.Equal(t, int64(1), count)
}
