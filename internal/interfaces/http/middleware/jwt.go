package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/infrastructure/auth"
	"github.com/bizops/backend/internal/infrastructure/logger"
	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	ActorKey      = "actor"
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Authenticator resolves a bearer token into the acting principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.Actor, *auth.Claims, error)
}

// JWTConfig holds configuration for the JWT middleware
type JWTConfig struct {
	Authenticator Authenticator
	// QueryParam, when set, is read if the Authorization header is absent.
	// EventSource clients cannot set headers, so the stream route uses it.
	QueryParam string
	Logger     *zap.Logger
}

// JWTAuth rejects requests without a valid bearer token and stores the
// resolved actor and claims on the context
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c, cfg.QueryParam)
		if !ok {
			abort(c, dto.ErrCodeUnauthorized, "Missing bearer token")
			return
		}

		actor, claims, err := cfg.Authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			code, message := authErrorCode(err)
			if code == dto.ErrCodeInternal {
				cfg.Logger.Error("Token verification failed", zap.Error(err))
			} else {
				cfg.Logger.Debug("JWT authentication failed",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
				)
			}
			abort(c, code, message)
			return
		}

		c.Set(ActorKey, actor)
		c.Set(JWTClaimsKey, claims)
		c.Set(logger.GinTenantIDKey, actor.CompanyID)
		c.Set(logger.GinUserIDKey, actor.UserID)

		ctx := logger.WithTenantID(c.Request.Context(), actor.CompanyID)
		ctx = logger.WithUserID(ctx, actor.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(c *gin.Context, queryParam string) (string, bool) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		token, found := strings.CutPrefix(header, BearerPrefix)
		return token, found && token != ""
	}
	if queryParam != "" {
		if token := c.Query(queryParam); token != "" {
			return token, true
		}
	}
	return "", false
}

func authErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeTokenInvalid, "Invalid token"
	default:
		return dto.ErrCodeInternal, "Unable to verify token"
	}
}

// GetActor returns the actor stored by JWTAuth
func GetActor(c *gin.Context) (identity.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return identity.Actor{}, false
	}
	actor, ok := v.(identity.Actor)
	return actor, ok
}

// GetJWTClaims returns the claims stored by JWTAuth
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
