package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/authservice/internal/common"
)

// Signer mints and checks access tokens. It keeps no state per token, so
// an issued token stays valid until it expires.
type Signer interface {
	Issue(subject string, extra Extra, ttl time.Duration) (string, error)

	// ParseSubject returns the subject of a well-formed, correctly signed,
	// unexpired token. Failures are common.ErrTokenMalformed,
	// common.ErrTokenBadSignature, common.ErrTokenExpired or
	// common.ErrInvalidToken.
	ParseSubject(token string) (string, error)

	// ParseClaims is ParseSubject returning every claim.
	ParseClaims(token string) (*Claims, error)

	// IsValid reports whether token parses and belongs to expectedSubject.
	IsValid(token, expectedSubject string) bool
}

// Extra carries the non-registered claims written into a token.
type Extra struct {
	UserID string
	Role   string
}

// Claims is the access token payload. The subject is the user's email.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid,omitempty"`
	Role   string `json:"role,omitempty"`
}

type JWTSigner struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	now       func() time.Time
}

// NewHS256Signer signs with a shared HMAC secret.
func NewHS256Signer(secret []byte, issuer string) (*JWTSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	return &JWTSigner{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		issuer:    issuer,
		now:       time.Now,
	}, nil
}

// NewRS256Signer signs with key and verifies with its public half.
func NewRS256Signer(key *rsa.PrivateKey, issuer string) (*JWTSigner, error) {
	if key == nil {
		return nil, errors.New("rs256 requires a private key")
	}
	return &JWTSigner{
		method:    jwt.SigningMethodRS256,
		signKey:   key,
		verifyKey: &key.PublicKey,
		issuer:    issuer,
		now:       time.Now,
	}, nil
}

// LoadRSAPrivateKey reads a PEM encoded PKCS#1 or PKCS#8 RSA key.
func LoadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rsa key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("parse rsa key: %w", err)
	}
	return key, nil
}

func (s *JWTSigner) Issue(subject string, extra Extra, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: extra.UserID,
		Role:   extra.Role,
	}

	token, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *JWTSigner) ParseClaims(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.verifyKey, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTSigner) ParseSubject(tokenString string) (string, error) {
	claims, err := s.ParseClaims(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *JWTSigner) IsValid(tokenString, expectedSubject string) bool {
	subject, err := s.ParseSubject(tokenString)
	return err == nil && subject == expectedSubject
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrTokenMalformed
	default:
		return common.ErrInvalidToken
	}
}
