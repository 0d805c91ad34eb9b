package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wot-clan-dashboard/internal/model"
)

// SQLPlayerRepository implements PlayerRepository on the shared store.
type SQLPlayerRepository struct {
	store *Store
}

// NewPlayerRepository creates a player repository.
func NewPlayerRepository(store *Store) *SQLPlayerRepository {
	return &SQLPlayerRepository{store: store}
}

// Upsert inserts a player or updates the nickname of an existing one.
func (r *SQLPlayerRepository) Upsert(ctx context.Context, p model.Player) error {
	var query string
	if r.store.driver == "mysql" {
		query = `INSERT INTO players (account_id, nickname) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE nickname = VALUES(nickname)`
	} else {
		query = `INSERT INTO players (account_id, nickname) VALUES (?, ?)
			ON CONFLICT(account_id) DO UPDATE SET nickname = excluded.nickname`
	}

	if _, err := r.store.db.ExecContext(ctx, query, p.AccountID, p.Nickname); err != nil {
		return fmt.Errorf("failed to upsert player %d: %w", p.AccountID, err)
	}
	return nil
}

// FindByNickname resolves a nickname, exact case-insensitive match first,
// then substring as a fallback.
func (r *SQLPlayerRepository) FindByNickname(ctx context.Context, nickname string) (*model.Player, error) {
	exact := `SELECT account_id, nickname FROM players WHERE LOWER(nickname) = LOWER(?) LIMIT 1`
	p, err := r.scanOne(ctx, exact, nickname)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	substring := `SELECT account_id, nickname FROM players WHERE nickname LIKE ? LIMIT 1`
	return r.scanOne(ctx, substring, "%"+nickname+"%")
}

func (r *SQLPlayerRepository) scanOne(ctx context.Context, query string, arg interface{}) (*model.Player, error) {
	var p model.Player
	err := r.store.db.QueryRowContext(ctx, query, arg).Scan(&p.AccountID, &p.Nickname)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query player: %w", err)
	}
	return &p, nil
}

// List returns all known players ordered by nickname.
func (r *SQLPlayerRepository) List(ctx context.Context) ([]model.Player, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT account_id, nickname FROM players ORDER BY nickname`)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.AccountID, &p.Nickname); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Ensure SQLPlayerRepository implements PlayerRepository
var _ PlayerRepository = (*SQLPlayerRepository)(nil)
