package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/dbx"
	"github.com/dmitrijs2005/authservice/internal/server/models"
	"github.com/dmitrijs2005/authservice/internal/timex"
)

// SQLiteRepository stores refresh tokens in SQLite with expiry as unix millis.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	revoked := 0
	if token.Revoked {
		revoked = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expiry_date, revoked)
		VALUES (?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.Token, timex.ToMillis(token.ExpiryDate), revoked)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{}
	var expiry, revoked int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expiry_date, revoked
		FROM refresh_tokens WHERE token = ?`, token).
		Scan(&rt.ID, &rt.UserID, &rt.Token, &expiry, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	rt.ExpiryDate = timex.FromMillis(expiry)
	rt.Revoked = revoked != 0
	return rt, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, token *models.RefreshToken) error {
	revoked := 0
	if token.Revoked {
		revoked = 1
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = MAX(revoked, ?) WHERE id = ?`, revoked, token.ID)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user refresh tokens: %w", err)
	}
	return dbx.RowsAffected(res)
}

func (r *SQLiteRepository) DeleteAllExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expiry_date <= ?`, timex.ToMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return dbx.RowsAffected(res)
}
