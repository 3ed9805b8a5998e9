// ABOUTME: Known-user lookup and synchronization for the messaging store
// ABOUTME: User rows are owned by the external account service; ids are opaque foreign keys

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetUser retrieves a user by id. Returns ErrNotFound if the id is unknown.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, username, role FROM users WHERE id = ?`

	user := &User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// UpsertUser inserts or updates a user row. Called by the account-sync path
// and the adduser CLI command; the gateway itself never invents users.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *User) error {
	if user.ID == "" || user.Username == "" {
		return fmt.Errorf("%w: user id and username are required", ErrValidation)
	}
	role := user.Role
	if role == "" {
		role = RoleCustomer
	}
	switch role {
	case RoleCustomer, RoleCaretaker, RoleVocationalSchool, RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	query := `
		INSERT INTO users (id, username, role) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, role = excluded.role
	`
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Username, role); err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}

	s.logger.Debug("user upserted", "user_id", user.ID, "role", role)
	return nil
}

// userExists reports whether the given id references a known user.
func (s *SQLiteStore) userExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return true, nil
}
