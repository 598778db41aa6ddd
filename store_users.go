package penpost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UsernameExists reports whether a user with exactly this username exists.
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM users WHERE username = ?`), username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.wrapErr(err)
	}
	return true, nil
}

// CreateUser inserts u. A username collision at the index returns
// ErrDuplicateUsername.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.exec(ctx, `INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, toMillis(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindUserByUsername returns ErrNotFound when no user has that username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (User, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	var u User
	var created int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`), username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, s.wrapErr(err)
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}
