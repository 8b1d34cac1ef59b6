package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server/models"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/refreshtokens"
)

// RefreshTokenService owns the refresh token lifecycle. It is the only
// component that talks to the refresh token repository.
type RefreshTokenService struct {
	repo     refreshtokens.Repository
	validity time.Duration
	now      func() time.Time
	newToken func() (string, error)
	newID    func() string
	tracer   trace.Tracer
	log      logging.Logger
}

// NewRefreshTokenService builds the service. A non-positive validity
// falls back to common.RefreshTokenValidity.
func NewRefreshTokenService(repo refreshtokens.Repository, validity time.Duration, log logging.Logger) *RefreshTokenService {
	if validity <= 0 {
		validity = common.RefreshTokenValidity
	}
	return &RefreshTokenService{
		repo:     repo,
		validity: validity,
		now:      time.Now,
		newToken: func() (string, error) { return common.MakeRandHexString(common.RefreshTokenBytes) },
		newID:    uuid.NewString,
		tracer:   defaultTracer(),
		log:      log.With("module", "refreshtokens"),
	}
}

// WithRepository returns a copy of s that uses repo, typically one bound
// to a transaction.
func (s *RefreshTokenService) WithRepository(repo refreshtokens.Repository) *RefreshTokenService {
	c := *s
	c.repo = repo
	return &c
}

// Create issues and stores a fresh token for userID. A token string
// collision surfaces as common.ErrConflict and is not retried.
func (s *RefreshTokenService) Create(ctx context.Context, userID string) (*models.RefreshToken, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, internalErr("generate refresh token", err)
	}

	// Stored precision is milliseconds on every backend.
	now := s.now().UTC().Truncate(time.Millisecond)
	rt := &models.RefreshToken{
		ID:         s.newID(),
		UserID:     userID,
		Token:      token,
		ExpiryDate: now.Add(s.validity),
		Revoked:    false,
	}

	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, passThrough("create refresh token", err, common.ErrConflict)
	}
	return rt, nil
}

// Find returns the stored record whatever its state.
func (s *RefreshTokenService) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, passThrough("find refresh token", err, common.ErrNotFound)
	}
	return rt, nil
}

// Verify returns the record for token if it is neither revoked nor
// expired. It never mutates anything.
func (s *RefreshTokenService) Verify(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, err := s.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	if !rt.IsUsable(s.now()) {
		return nil, common.ErrExpiredOrRevoked
	}
	return rt, nil
}

// Revoke marks rt revoked. Revoking twice is a no-op.
func (s *RefreshTokenService) Revoke(ctx context.Context, rt *models.RefreshToken) error {
	rt.Revoked = true
	if err := s.repo.Update(ctx, rt); err != nil {
		return passThrough("revoke refresh token", err, common.ErrNotFound)
	}
	return nil
}

// RevokeAllByUser deletes every token of userID and returns how many.
func (s *RefreshTokenService) RevokeAllByUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, internalErr("delete user refresh tokens", err)
	}
	return n, nil
}

// CleanupExpiredTokens deletes every token whose expiry is at or before
// now, revoked or not.
func (s *RefreshTokenService) CleanupExpiredTokens(ctx context.Context) (n int64, err error) {
	ctx, span := s.tracer.Start(ctx, "RefreshTokenService.CleanupExpiredTokens")
	defer func() { endSpan(span, err) }()

	cutoff := s.now().UTC()
	n, err = s.repo.DeleteAllExpired(ctx, cutoff)
	if err != nil {
		return 0, internalErr("delete expired refresh tokens", err)
	}
	span.SetAttributes(attribute.Int64("tokens.deleted", n))
	s.log.Info(ctx, "expired refresh tokens deleted", "count", n, "cutoff", cutoff)
	return n, nil
}

// isLookupMiss reports whether err means the token simply is not usable.
func isLookupMiss(err error) bool {
	return errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrExpiredOrRevoked)
}
