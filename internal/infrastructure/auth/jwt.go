package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the bearer token claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID   string   `json:"company_id"`
	DisplayName string   `json:"name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// Actor converts the claims into the principal the core acts as
func (c *Claims) Actor() (identity.Actor, error) {
	role, err := identity.ParseRole(c.Role)
	if err != nil {
		return identity.Actor{}, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	actor := identity.Actor{
		UserID:      c.Subject,
		DisplayName: c.DisplayName,
		CompanyID:   c.CompanyID,
		Role:        role,
		Permissions: identity.ParseCapabilities(c.Permissions),
	}
	if err := actor.Validate(); err != nil {
		return identity.Actor{}, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	return actor, nil
}

// RemainingTTL returns how long the token stays valid
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if ttl := c.ExpiresAt.Sub(now); ttl > 0 {
		return ttl
	}
	return 0
}

// JWTService issues and verifies HS256 bearer tokens
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	revocation Revocation
	now        func() time.Time
}

// Option configures a JWTService
type Option func(*JWTService)

// WithRevocation rejects tokens revoked in r and enables Revoke
func WithRevocation(r Revocation) Option {
	return func(s *JWTService) { s.revocation = r }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig, opts ...Option) *JWTService {
	expiration := cfg.AccessTokenExpiration
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	s := &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: expiration,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for actor
func (s *JWTService) Issue(actor identity.Actor) (string, time.Time, error) {
	if err := actor.Validate(); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   actor.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CompanyID:   actor.CompanyID,
		DisplayName: actor.DisplayName,
		Role:        actor.Role.String(),
		Permissions: actor.Permissions.Strings(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies signature, issuer, validity window and revocation
func (s *JWTService) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || claims.CompanyID == "" {
		return nil, ErrInvalidClaims
	}

	if s.revocation != nil {
		var issuedAt time.Time
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
		revoked, err := s.revocation.IsRevoked(ctx, claims.ID, claims.Subject, issuedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Authenticate parses the token and resolves its actor
func (s *JWTService) Authenticate(ctx context.Context, tokenString string) (identity.Actor, *Claims, error) {
	claims, err := s.Parse(ctx, tokenString)
	if err != nil {
		return identity.Actor{}, nil, err
	}
	actor, err := claims.Actor()
	if err != nil {
		return identity.Actor{}, nil, err
	}
	return actor, claims, nil
}

// Revoke invalidates one token until it would have expired anyway
func (s *JWTService) Revoke(ctx context.Context, claims *Claims) error {
	if s.revocation == nil {
		return errors.New("token revocation is not configured")
	}
	ttl := claims.RemainingTTL(s.now())
	if ttl == 0 {
		return nil
	}
	return s.revocation.RevokeToken(ctx, claims.ID, ttl)
}

// RevokeUser invalidates every token issued to userID so far
func (s *JWTService) RevokeUser(ctx context.Context, userID string) error {
	if s.revocation == nil {
		return errors.New("token revocation is not configured")
	}
	return s.revocation.RevokeUser(ctx, userID, s.now(), s.expiration)
}
