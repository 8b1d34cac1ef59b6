package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server/events"
	"github.com/dmitrijs2005/authservice/internal/server/models"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/repomanager"
)

// UserAdminService carries the operator actions on accounts. User
// mutations go through the version check of the users repository; a
// concurrent change yields common.ErrConflict and is not retried.
type UserAdminService struct {
	store  repomanager.RepositoryManager
	tokens *RefreshTokenService
	events events.Publisher
	log    logging.Logger
	now    func() time.Time
}

func NewUserAdminService(store repomanager.RepositoryManager, tokens *RefreshTokenService, pub events.Publisher, log logging.Logger) *UserAdminService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &UserAdminService{
		store:  store,
		tokens: tokens,
		events: pub,
		log:    log.With("module", "admin"),
		now:    time.Now,
	}
}

func (s *UserAdminService) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, passThrough("find user", err, common.ErrNotFound)
	}
	return u, nil
}

func (s *UserAdminService) SetRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, common.ErrValidation
	}
	return s.mutate(ctx, userID, func(u *models.User) { u.Role = role })
}

func (s *UserAdminService) SetEnabled(ctx context.Context, userID string, enabled bool) (*models.User, error) {
	return s.mutate(ctx, userID, func(u *models.User) { u.Enabled = enabled })
}

// RevokeSessions deletes every refresh token of userID. Access tokens
// already issued stay valid until they expire.
func (s *UserAdminService) RevokeSessions(ctx context.Context, userID string) (int64, error) {
	n, err := s.tokens.RevokeAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "sessions revoked", "user_id", userID, "count", n)
	publishEvent(ctx, s.events, s.log, s.now, events.Event{Type: events.SessionsRevoked, UserID: userID, Count: n})
	return n, nil
}

// RevokeToken marks a single refresh token revoked.
func (s *UserAdminService) RevokeToken(ctx context.Context, token string) error {
	rt, err := s.tokens.Find(ctx, token)
	if err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, rt); err != nil {
		return err
	}
	s.log.Info(ctx, "refresh token revoked", "user_id", rt.UserID, "token_id", rt.ID)
	return nil
}

func (s *UserAdminService) mutate(ctx context.Context, userID string, change func(*models.User)) (*models.User, error) {
	users := s.store.Users()

	u, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, passThrough("find user", err, common.ErrNotFound)
	}

	change(u)

	if err := users.Update(ctx, u); err != nil {
		return nil, passThrough("update user", err, common.ErrNotFound, common.ErrConflict)
	}
	return u, nil
}
