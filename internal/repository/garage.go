package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"wot-clan-dashboard/internal/model"
)

// SQLGarageRepository implements GarageRepository on the shared store.
type SQLGarageRepository struct {
	store *Store
}

// NewGarageRepository creates a garage repository.
func NewGarageRepository(store *Store) *SQLGarageRepository {
	return &SQLGarageRepository{store: store}
}

// ReplaceAccountTanks swaps an account's rows for the given set inside one
// transaction. A failure rolls the whole account back; rows for other
// accounts are never touched.
func (r *SQLGarageRepository) ReplaceAccountTanks(ctx context.Context, accountID int64, tanks []model.GarageTank) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM garage_tanks WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("failed to delete tanks for account %d: %w", accountID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO garage_tanks
			(account_id, tank_id, tank_name, tier, battles, wins, mark_of_mastery,
			 is_premium, nation, type, image_url, raw_json, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tanks {
		_, err := stmt.ExecContext(ctx,
			accountID, t.TankID, t.TankName, t.Tier, t.Battles, t.Wins, t.MarkOfMastery,
			t.IsPremium, t.Nation, t.Type, t.ImageURL, string(t.RawJSON), t.LastUpdated)
		if err != nil {
			return fmt.Errorf("failed to insert tank %d for account %d: %w", t.TankID, accountID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// whereClause builds the filter fragment shared by Count, List and Aggregate.
func whereClause(f model.GarageFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Tier != 0 {
		conds = append(conds, "g.tier = ?")
		args = append(args, f.Tier)
	}
	if f.AccountID != 0 {
		conds = append(conds, "g.account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Nation != "" {
		conds = append(conds, "g.nation = ?")
		args = append(args, f.Nation)
	}
	if f.Type != "" {
		conds = append(conds, "g.type = ?")
		args = append(args, f.Type)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CountAll returns the total number of garage rows.
func (r *SQLGarageRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM garage_tanks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count garage tanks: %w", err)
	}
	return count, nil
}

// Count returns the number of rows matching the filter.
func (r *SQLGarageRepository) Count(ctx context.Context, f model.GarageFilter) (int64, error) {
	where, args := whereClause(f)
	var count int64
	query := `SELECT COUNT(*) FROM garage_tanks g` + where
	if err := r.store.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count filtered tanks: %w", err)
	}
	return count, nil
}

// List returns one report page joined with the owner's nickname.
func (r *SQLGarageRepository) List(ctx context.Context, f model.GarageFilter, limit, offset int) ([]model.GarageRow, error) {
	where, args := whereClause(f)
	query := `
		SELECT g.id, g.account_id, g.tank_id, g.tank_name, g.tier, g.battles, g.wins,
		       g.mark_of_mastery, g.is_premium, g.nation, g.type, g.image_url,
		       g.last_updated, p.nickname
		FROM garage_tanks g
		JOIN players p ON g.account_id = p.account_id` + where + `
		ORDER BY p.nickname, g.tier DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list garage tanks: %w", err)
	}
	defer rows.Close()

	var out []model.GarageRow
	for rows.Next() {
		var row model.GarageRow
		var lastUpdated sql.NullTime
		err := rows.Scan(&row.ID, &row.AccountID, &row.TankID, &row.TankName, &row.Tier,
			&row.Battles, &row.Wins, &row.MarkOfMastery, &row.IsPremium,
			&row.Nation, &row.Type, &row.ImageURL, &lastUpdated, &row.Nickname)
		if err != nil {
			return nil, fmt.Errorf("failed to scan garage row: %w", err)
		}
		if lastUpdated.Valid {
			row.LastUpdated = lastUpdated.Time
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Aggregate computes totals over the full filtered set, not just one page.
func (r *SQLGarageRepository) Aggregate(ctx context.Context, f model.GarageFilter) (model.GarageStats, error) {
	where, args := whereClause(f)
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(g.battles), 0),
		       COALESCE(SUM(g.wins), 0),
		       COALESCE(SUM(g.mark_of_mastery), 0)
		FROM garage_tanks g` + where

	var count int64
	var stats model.GarageStats
	err := r.store.db.QueryRowContext(ctx, query, args...).
		Scan(&count, &stats.TotalBattles, &stats.TotalWins, &stats.TotalMarks)
	if err != nil {
		return model.GarageStats{}, fmt.Errorf("failed to aggregate garage tanks: %w", err)
	}

	if count > 0 {
		stats.AvgBattles = float64(stats.TotalBattles) / float64(count)
	}
	if stats.TotalBattles > 0 {
		stats.WinPct = float64(stats.TotalWins) / float64(stats.TotalBattles) * 100
	}
	return stats, nil
}

// DistinctNations returns non-empty nations present in the garage.
func (r *SQLGarageRepository) DistinctNations(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "nation")
}

// DistinctTypes returns non-empty vehicle types present in the garage.
func (r *SQLGarageRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "type")
}

func (r *SQLGarageRepository) distinct(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT TRIM(%s) FROM garage_tanks WHERE TRIM(%s) != '' ORDER BY 1`, column, column)

	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// MissingMeta returns rows whose descriptive columns are still empty, for the
// cache rehydrate backfill.
func (r *SQLGarageRepository) MissingMeta(ctx context.Context) ([]model.GarageTank, error) {
	query := `
		SELECT id, account_id, tank_id, tank_name, tier, is_premium, nation, type, image_url
		FROM garage_tanks
		WHERE nation = '' OR type = '' OR image_url = '' OR tank_name LIKE 'Tank %'`

	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows missing metadata: %w", err)
	}
	defer rows.Close()

	var out []model.GarageTank
	for rows.Next() {
		var t model.GarageTank
		err := rows.Scan(&t.ID, &t.AccountID, &t.TankID, &t.TankName, &t.Tier,
			&t.IsPremium, &t.Nation, &t.Type, &t.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan garage tank: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateMeta backfills the descriptive columns of one row.
func (r *SQLGarageRepository) UpdateMeta(ctx context.Context, t model.GarageTank) error {
	query := `
		UPDATE garage_tanks
		SET tank_name = ?, is_premium = ?, nation = ?, type = ?, image_url = ?
		WHERE id = ?`
	if _, err := r.store.db.ExecContext(ctx, query,
		t.TankName, t.IsPremium, t.Nation, t.Type, t.ImageURL, t.ID); err != nil {
		return fmt.Errorf("failed to update metadata for tank row %d: %w", t.ID, err)
	}
	return nil
}

// Ensure SQLGarageRepository implements GarageRepository
var _ GarageRepository = (*SQLGarageRepository)(nil)
