package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// CredentialsRecord carries the password hash alongside the user for login.
type CredentialsRecord struct {
	User         model.User
	PasswordHash string
}

func (r *UserRepo) Create(ctx context.Context, email, passwordHash string, now time.Time) (model.User, error) {
	email = normalizeEmail(email)
	if email == "" || passwordHash == "" {
		return model.User{}, fmt.Errorf("invalid user payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (email, password_hash, role, suspended, created_at, updated_at)
VALUES ($1, $2, 'user', FALSE, $3, $3)
RETURNING id, email, role, suspended, created_at
`, email, passwordHash, now.UTC()).Scan(&user.ID, &user.Email, &user.Role, &user.Suspended, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (CredentialsRecord, error) {
	email = normalizeEmail(email)
	if email == "" {
		return CredentialsRecord{}, fmt.Errorf("invalid email")
	}

	var rec CredentialsRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, email, role, suspended, created_at, password_hash
FROM users
WHERE email = $1
`, email).Scan(
		&rec.User.ID,
		&rec.User.Email,
		&rec.User.Role,
		&rec.User.Suspended,
		&rec.User.CreatedAt,
		&rec.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CredentialsRecord{}, ErrUserNotFound
		}
		return CredentialsRecord{}, fmt.Errorf("find user by email: %w", err)
	}

	return rec, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
SELECT id, email, role, suspended, created_at
FROM users
WHERE id = $1
`, userID).Scan(&user.ID, &user.Email, &user.Role, &user.Suspended, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) SetSuspended(ctx context.Context, tx pgx.Tx, userID int64, suspended bool, now time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := tx.Exec(ctx, `
UPDATE users
SET suspended = $2, updated_at = $3
WHERE id = $1
`, userID, suspended, now.UTC())
	if err != nil {
		return fmt.Errorf("set user suspended: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) SetRole(ctx context.Context, userID int64, role enums.Role) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE users
SET role = $2, updated_at = NOW()
WHERE id = $1
`, userID, string(role))
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
