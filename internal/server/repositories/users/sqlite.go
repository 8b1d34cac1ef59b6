package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/dbx"
	"github.com/dmitrijs2005/authservice/internal/server/models"
	"github.com/dmitrijs2005/authservice/internal/timex"
)

// SQLiteRepository stores users in SQLite. Timestamps are unix millis.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check user email: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `
		SELECT id, email, password_hash, enabled, role, version, created_at
		FROM users WHERE email = ?`, email)
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `
		SELECT id, email, password_hash, enabled, role, version, created_at
		FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u := &models.User{}
	var (
		role      string
		enabled   int64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &enabled, &role, &u.Version, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Enabled = enabled != 0
	u.Role = models.Role(role)
	u.CreatedAt = timex.FromMillis(createdAt)
	return u, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, enabled, role, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, boolToInt(user.Enabled), string(user.Role),
		user.Version, timex.ToMillis(user.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, user *models.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, password_hash = ?, enabled = ?, role = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		user.Email, user.PasswordHash, boolToInt(user.Enabled), string(user.Role), user.ID, user.Version)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	n, err := dbx.RowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		var count int
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, user.ID).Scan(&count); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if count == 0 {
			return common.ErrNotFound
		}
		return common.ErrConflict
	}
	user.Version++
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
