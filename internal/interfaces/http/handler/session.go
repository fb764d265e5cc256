package handler

import (
	"context"
	"strconv"

	"github.com/bizops/backend/internal/infrastructure/auth"
	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/bizops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenRevoker invalidates bearer tokens
type TokenRevoker interface {
	Revoke(ctx context.Context, claims *auth.Claims) error
	RevokeUser(ctx context.Context, userID string) error
}

// SessionHandler handles session endpoints
type SessionHandler struct {
	BaseHandler
	revoker  TokenRevoker
	registry *StreamRegistry
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(revoker TokenRevoker, registry *StreamRegistry, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{revoker: revoker, registry: registry, logger: logger}
}

// Logout godoc
//
//	@Summary		Log out
//	@Description	Revokes the bearer token, or with all=true every token issued to the caller so far. Open streams of the revoked tokens receive a logout event and close.
//	@Tags			session
//	@Produce		json
//	@Param			all	query		bool	false	"Revoke every session of the caller"
//	@Success		200	{object}	dto.Response{data=dto.LogoutResponse}
//	@Failure		401	{object}	dto.Response
//	@Security			BearerAuth
//	@Router			/session/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	all := false
	if raw := c.Query("all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "Query parameter all must be a boolean")
			return
		}
		all = v
	}

	ctx := c.Request.Context()
	tokenID := claims.ID
	var err error
	if all {
		tokenID = ""
		err = h.revoker.RevokeUser(ctx, actor.UserID)
	} else {
		err = h.revoker.Revoke(ctx, claims)
	}
	if err != nil {
		h.logger.Error("Failed to revoke session",
			zap.String("user_id", actor.UserID),
			zap.Bool("all", all),
			zap.Error(err),
		)
		h.ErrorWithCode(c, dto.ErrCodeStoreUnavailable, "Could not revoke the session")
		return
	}

	notified := h.registry.Logout(actor.UserID, tokenID)
	h.logger.Info("Session logged out",
		zap.String("user_id", actor.UserID),
		zap.String("tenant_id", actor.CompanyID),
		zap.Bool("all", all),
		zap.Int("streams_notified", notified),
	)
	h.Success(c, dto.LogoutResponse{AllSessions: all, StreamsNotified: notified})
}
