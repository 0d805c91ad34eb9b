package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wot-clan-dashboard/internal/model"
)

// ErrUserExists is returned when a username is already taken.
var ErrUserExists = errors.New("username already exists")

// SQLUserRepository implements UserRepository on the shared store.
type SQLUserRepository struct {
	store *Store
}

// NewUserRepository creates a user repository.
func NewUserRepository(store *Store) *SQLUserRepository {
	return &SQLUserRepository{store: store}
}

// Create inserts a new user. Returns ErrUserExists on a duplicate username.
func (r *SQLUserRepository) Create(ctx context.Context, u model.User) error {
	existing, err := r.GetByUsername(ctx, u.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUserExists
	}

	query := `INSERT INTO users (username, password_hash, role, account_id) VALUES (?, ?, ?, ?)`
	if _, err := r.store.db.ExecContext(ctx, query, u.Username, u.PasswordHash, u.Role, u.AccountID); err != nil {
		return fmt.Errorf("failed to create user %s: %w", u.Username, err)
	}
	return nil
}

// GetByUsername returns a user or nil when not found.
func (r *SQLUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT id, username, password_hash, role, account_id FROM users WHERE username = ? LIMIT 1`
	return r.scanOne(ctx, query, username)
}

// GetByID returns a user or nil when not found.
func (r *SQLUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, username, password_hash, role, account_id FROM users WHERE id = ? LIMIT 1`
	return r.scanOne(ctx, query, id)
}

func (r *SQLUserRepository) scanOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var u model.User
	err := r.store.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// ListByRole returns users with the given role ordered by username.
func (r *SQLUserRepository) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	query := `SELECT id, username, password_hash, role, account_id FROM users WHERE role = ? ORDER BY username`
	rows, err := r.store.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateRole changes a user's role.
func (r *SQLUserRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	query := `UPDATE users SET role = ? WHERE id = ?`
	if _, err := r.store.db.ExecContext(ctx, query, role, id); err != nil {
		return fmt.Errorf("failed to update role for user %d: %w", id, err)
	}
	return nil
}

// InsertRoleChange writes a promotion audit row.
func (r *SQLUserRepository) InsertRoleChange(ctx context.Context, rc model.RoleChange) error {
	query := `INSERT INTO role_changes (user_id, old_role, new_role, changed_by, ts) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.store.db.ExecContext(ctx, query, rc.UserID, rc.OldRole, rc.NewRole, rc.ChangedBy, rc.TS); err != nil {
		return fmt.Errorf("failed to insert role change audit: %w", err)
	}
	return nil
}

// Ensure SQLUserRepository implements UserRepository
var _ UserRepository = (*SQLUserRepository)(nil)
