package refreshtokens

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/server/models"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/sqlitetest"
)

func setupSQLite(t *testing.T, userIDs ...string) (*SQLiteRepository, *sql.DB) {
	t.Helper()
	db := sqlitetest.Open(t)
	for _, id := range userIDs {
		_, err := db.Exec(
			`INSERT INTO users (id, email, password_hash, role, created_at) VALUES (?, ?, 'h', 'ROLE_USER', 0)`,
			id, id+"@example.com")
		require.NoError(t, err)
	}
	return NewSQLiteRepository(db), db
}

func TestSQLite_CreateFindRevoke(t *testing.T) {
	r, _ := setupSQLite(t, "u1")
	ctx := context.Background()

	rt := sampleToken()
	require.NoError(t, r.Create(ctx, rt))

	got, err := r.FindByToken(ctx, "tok123")
	require.NoError(t, err)
	assert.Equal(t, rt, got)

	got.Revoked = true
	require.NoError(t, r.Update(ctx, got))

	again, err := r.FindByToken(ctx, "tok123")
	require.NoError(t, err)
	assert.True(t, again.Revoked)
	assert.True(t, expiry.Equal(again.ExpiryDate), "expiry is unchanged by revocation")
}

func TestSQLite_RevocationIsMonotonic(t *testing.T) {
	r, _ := setupSQLite(t, "u1")
	ctx := context.Background()

	rt := sampleToken()
	require.NoError(t, r.Create(ctx, rt))

	rt.Revoked = true
	require.NoError(t, r.Update(ctx, rt))
	require.NoError(t, r.Update(ctx, rt), "revoking twice is fine")

	rt.Revoked = false
	require.NoError(t, r.Update(ctx, rt))

	got, err := r.FindByToken(ctx, rt.Token)
	require.NoError(t, err)
	assert.True(t, got.Revoked, "a revoked token never becomes valid again")
}

func TestSQLite_DuplicateTokenConflicts(t *testing.T) {
	r, _ := setupSQLite(t, "u1")
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, sampleToken()))

	dup := sampleToken()
	dup.ID = "rt-2"
	require.ErrorIs(t, r.Create(ctx, dup), common.ErrConflict)
}

func TestSQLite_FindAndUpdateMissing(t *testing.T) {
	r, _ := setupSQLite(t)
	ctx := context.Background()

	_, err := r.FindByToken(ctx, "nope")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, r.Update(ctx, &models.RefreshToken{ID: "nope", Revoked: true}), common.ErrNotFound)
}

func TestSQLite_DeleteByUserID(t *testing.T) {
	r, _ := setupSQLite(t, "u1", "u2")
	ctx := context.Background()

	for i, tok := range []string{"a", "b", "c"} {
		require.NoError(t, r.Create(ctx, &models.RefreshToken{
			ID: "rt-" + tok, UserID: "u1", Token: tok, ExpiryDate: expiry.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, r.Create(ctx, &models.RefreshToken{ID: "rt-d", UserID: "u2", Token: "d", ExpiryDate: expiry}))

	n, err := r.DeleteByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = r.FindByToken(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.FindByToken(ctx, "d")
	assert.NoError(t, err, "other users keep their tokens")

	n, err = r.DeleteByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_DeleteAllExpired_BoundaryAndIdempotence(t *testing.T) {
	r, _ := setupSQLite(t, "u1")
	ctx := context.Background()
	cutoff := expiry

	tokens := []*models.RefreshToken{
		{ID: "1", UserID: "u1", Token: "past", ExpiryDate: cutoff.Add(-time.Hour)},
		{ID: "2", UserID: "u1", Token: "exact", ExpiryDate: cutoff},
		{ID: "3", UserID: "u1", Token: "past-revoked", ExpiryDate: cutoff.Add(-time.Minute), Revoked: true},
		{ID: "4", UserID: "u1", Token: "future", ExpiryDate: cutoff.Add(time.Millisecond)},
		{ID: "5", UserID: "u1", Token: "future-revoked", ExpiryDate: cutoff.Add(time.Hour), Revoked: true},
	}
	for _, tok := range tokens {
		require.NoError(t, r.Create(ctx, tok))
	}

	n, err := r.DeleteAllExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = r.DeleteAllExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep at the same instant deletes nothing")

	for _, tok := range []string{"future", "future-revoked"} {
		_, err := r.FindByToken(ctx, tok)
		assert.NoError(t, err, tok)
	}
}

func TestSQLite_UserDeleteCascades(t *testing.T) {
	r, db := setupSQLite(t, "u1")
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, sampleToken()))
	_, err := db.Exec(`DELETE FROM users WHERE id = 'u1'`)
	require.NoError(t, err)

	_, err = r.FindByToken(ctx, "tok123")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
