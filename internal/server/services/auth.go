package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server/auth"
	"github.com/dmitrijs2005/authservice/internal/server/config"
	"github.com/dmitrijs2005/authservice/internal/server/events"
	"github.com/dmitrijs2005/authservice/internal/server/models"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/repomanager"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService registers users, logs them in and exchanges refresh tokens
// for new access tokens. Refresh tokens are handled through
// RefreshTokenService only.
type AuthService struct {
	store       repomanager.RepositoryManager
	hasher      auth.Hasher
	signer      auth.Signer
	tokens      *RefreshTokenService
	events      events.Publisher
	log         logging.Logger
	accessTTL   time.Duration
	defaultRole models.Role
	now         func() time.Time
	newID       func() string
	tracer      trace.Tracer
}

func NewAuthService(
	store repomanager.RepositoryManager,
	hasher auth.Hasher,
	signer auth.Signer,
	tokens *RefreshTokenService,
	pub events.Publisher,
	cfg *config.Config,
	log logging.Logger,
) (*AuthService, error) {
	role, err := models.ParseRole(cfg.DefaultRole)
	if err != nil {
		return nil, fmt.Errorf("default role: %w", err)
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &AuthService{
		store:       store,
		hasher:      hasher,
		signer:      signer,
		tokens:      tokens,
		events:      pub,
		log:         log.With("module", "auth"),
		accessTTL:   cfg.AccessTokenValidityDuration,
		defaultRole: role,
		now:         time.Now,
		newID:       uuid.NewString,
		tracer:      defaultTracer(),
	}, nil
}

// Register creates a user with the default role and returns its first
// token pair. The user row and the refresh token are written in one
// transaction.
func (s *AuthService) Register(ctx context.Context, email, password string) (pair *TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	exists, err := s.store.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, internalErr("check email", err)
	}
	if exists {
		return nil, common.ErrAlreadyRegistered
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internalErr("hash password", err)
	}

	user := &models.User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: digest,
		Enabled:      true,
		Role:         s.defaultRole,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}

	var refresh *models.RefreshToken
	err = s.store.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := repos.Users().Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrConflict) {
				return common.ErrAlreadyRegistered
			}
			return err
		}
		var err error
		refresh, err = s.tokens.WithRepository(repos.RefreshTokens()).Create(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, passThrough("register", err, common.ErrAlreadyRegistered, common.ErrConflict)
	}

	access, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	s.publish(ctx, events.Event{Type: events.UserRegistered, UserID: user.ID, Email: user.Email})

	return &TokenPair{AccessToken: access, RefreshToken: refresh.Token}, nil
}

// Login checks the password and issues a new token pair. Earlier refresh
// tokens of the user stay valid.
func (s *AuthService) Login(ctx context.Context, email, password string) (pair *TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, passThrough("find user", err, common.ErrNotFound)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, internalErr("verify password", err)
	}
	if !ok {
		s.log.Info(ctx, "login rejected", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	refresh, err := s.tokens.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	access, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.UserLoggedIn, UserID: user.ID, Email: user.Email})

	return &TokenPair{AccessToken: access, RefreshToken: refresh.Token}, nil
}

// Refresh issues a new access token for a valid refresh token. The same
// refresh token is handed back; it is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer func() { endSpan(span, err) }()

	rt, err := s.tokens.Verify(ctx, refreshToken)
	if err != nil {
		if isLookupMiss(err) {
			s.log.Info(ctx, "refresh rejected", "reason", err.Error())
		}
		return nil, err
	}

	user, err := s.store.Users().FindByID(ctx, rt.UserID)
	if err != nil {
		return nil, passThrough("find user", err, common.ErrNotFound)
	}

	access, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.TokenRefreshed, UserID: user.ID})

	return &TokenPair{AccessToken: access, RefreshToken: rt.Token}, nil
}

// Authenticate resolves a bearer access token to its user. Token kinds
// from the signer are returned as is; an unknown or disabled user, or a
// token not matching the user, is common.ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.signer.ParseClaims(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByEmail(ctx, claims.Subject)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("unknown subject: %w", common.ErrInvalidToken)
	}
	if err != nil {
		return nil, internalErr("find user", err)
	}

	if !s.signer.IsValid(accessToken, user.Email) {
		return nil, common.ErrInvalidToken
	}
	if !user.Enabled {
		return nil, fmt.Errorf("user disabled: %w", common.ErrInvalidToken)
	}
	return user, nil
}

// --- helpers below ---

func (s *AuthService) issueAccessToken(user *models.User) (string, error) {
	token, err := s.signer.Issue(user.Email, auth.Extra{UserID: user.ID, Role: string(user.Role)}, s.accessTTL)
	if err != nil {
		return "", internalErr("issue access token", err)
	}
	return token, nil
}

func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	publishEvent(ctx, s.events, s.log, s.now, ev)
}

func publishEvent(ctx context.Context, pub events.Publisher, log logging.Logger, now func() time.Time, ev events.Event) {
	ev.OccurredAt = now().UTC()
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn(ctx, "event not published", "type", ev.Type, "error", err)
	}
}

func validateCredentials(email, password string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("email is not a valid address: %w", common.ErrValidation)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password is required: %w", common.ErrValidation)
	}
	if len(password) > auth.MaxPasswordBytes {
		return fmt.Errorf("password is longer than %d bytes: %w", auth.MaxPasswordBytes, common.ErrValidation)
	}
	return nil
}
