package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// UserRepository provides access to the users table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository returns a UserRepository bound to the given database.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills in the generated ID.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users (full_name, email, password_hash, role) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, u.FullName, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		// 1062 is MySQL's duplicate-entry error; the unique index is on email.
		if strings.Contains(err.Error(), "1062") {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// ByEmail looks a user up by email. Returns (nil, nil) when absent.
func (r *UserRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, full_name, email, password_hash, role, created_at, updated_at
	           FROM users WHERE email = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email))
}

// ByID looks a user up by primary key. Returns (nil, nil) when absent.
func (r *UserRepository) ByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT id, full_name, email, password_hash, role, created_at, updated_at
	           FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepository) scanOne(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// RefreshTokenRepository stores hashed refresh tokens.
type RefreshTokenRepository struct {
	db *sql.DB
}

// NewRefreshTokenRepository returns a RefreshTokenRepository bound to
// the given database.
func NewRefreshTokenRepository(db *sql.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Store saves a token hash for the user, replacing any previous one so a
// user has at most one live refresh token.
func (r *RefreshTokenRepository) Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID); err != nil {
		return err
	}
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, userID, tokenHash, expiresAt.UTC().Format(mysqlTimeFormat))
	return err
}

// Lookup returns the stored token row matching the hash, or (nil, nil)
// when the hash is unknown or expired.
func (r *RefreshTokenRepository) Lookup(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, created_at
	           FROM refresh_tokens WHERE token_hash = ? AND expires_at > UTC_TIMESTAMP()`
	var t model.RefreshToken
	err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Delete removes a token hash, used on logout and rotation.
func (r *RefreshTokenRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, tokenHash)
	return err
}

// DeleteForUser removes every refresh token of a user, ending all of
// their sessions.
func (r *RefreshTokenRepository) DeleteForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}
