package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Account struct {
	UserID       int64
	Username     string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    time.Time
}

type AccountStore interface {
	GetByUsername(ctx context.Context, username string) (*Account, error)
	Create(ctx context.Context, a *Account) (int64, error)
	SetDisabled(ctx context.Context, userID int64, disabled bool) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

// GetByUsername returns (nil, nil) when no such account exists.
func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	const q = `
SELECT user_id, username, password_hash, role, is_disabled, created_at
FROM users
WHERE username = ?
LIMIT 1
`
	var a Account
	err := s.db.QueryRowContext(ctx, q, username).Scan(
		&a.UserID,
		&a.Username,
		&a.PasswordHash,
		&a.Role,
		&a.IsDisabled,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) (int64, error) {
	const q = `
INSERT INTO users (username, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, FALSE, NOW(6))
`
	res, err := s.db.ExecContext(ctx, q, a.Username, a.PasswordHash, a.Role)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) SetDisabled(ctx context.Context, userID int64, disabled bool) (int64, error) {
	const q = `UPDATE users SET is_disabled = ? WHERE user_id = ?`
	res, err := s.db.ExecContext(ctx, q, disabled, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
