package repository

import (
	"context"

	"wot-clan-dashboard/internal/model"
)

// PlayerRepository defines roster data access methods.
type PlayerRepository interface {
	// Upsert inserts a player or updates the nickname of an existing one.
	Upsert(ctx context.Context, p model.Player) error

	// FindByNickname resolves a nickname to a player, exact match first,
	// then case-insensitive substring.
	FindByNickname(ctx context.Context, nickname string) (*model.Player, error)

	// List returns all known players ordered by nickname.
	List(ctx context.Context) ([]model.Player, error)
}

// GarageRepository defines garage data access methods.
type GarageRepository interface {
	// ReplaceAccountTanks atomically swaps an account's rows for the given
	// set: delete all, insert all, one transaction.
	ReplaceAccountTanks(ctx context.Context, accountID int64, tanks []model.GarageTank) error

	// CountAll returns the total number of garage rows.
	CountAll(ctx context.Context) (int64, error)

	// Count returns the number of rows matching the filter.
	Count(ctx context.Context, f model.GarageFilter) (int64, error)

	// List returns one report page matching the filter, ordered by owner
	// nickname then tier descending.
	List(ctx context.Context, f model.GarageFilter, limit, offset int) ([]model.GarageRow, error)

	// Aggregate computes report totals over the full filtered set.
	Aggregate(ctx context.Context, f model.GarageFilter) (model.GarageStats, error)

	// DistinctNations and DistinctTypes feed the report filter dropdowns.
	DistinctNations(ctx context.Context) ([]string, error)
	DistinctTypes(ctx context.Context) ([]string, error)

	// MissingMeta returns rows whose descriptive columns are still empty.
	MissingMeta(ctx context.Context) ([]model.GarageTank, error)

	// UpdateMeta backfills the descriptive columns of one row.
	UpdateMeta(ctx context.Context, t model.GarageTank) error
}

// UserRepository defines dashboard account data access methods.
type UserRepository interface {
	Create(ctx context.Context, u model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	ListByRole(ctx context.Context, role string) ([]model.User, error)
	UpdateRole(ctx context.Context, id int64, role string) error

	// InsertRoleChange writes a promotion audit row. Best-effort: callers log
	// the returned error but never propagate it.
	InsertRoleChange(ctx context.Context, rc model.RoleChange) error
}
