package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizops/backend/internal/infrastructure/auth"
	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/bizops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tidwall/gjson"
)

// MockTokenRevoker implements TokenRevoker for testing
type MockTokenRevoker struct {
	mock.Mock
}

func (m *MockTokenRevoker) Revoke(ctx context.Context, claims *auth.Claims) error {
	return m.Called(ctx, claims).Error(0)
}

func (m *MockTokenRevoker) RevokeUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func sessionRouter(revoker TokenRevoker, registry *StreamRegistry, claims *auth.Claims) *gin.Engine {
	router := gin.New()
	router.Use(fakeAuth, func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.JWTClaimsKey, claims)
		}
		c.Next()
	})
	router.POST("/session/logout", NewSessionHandler(revoker, registry, nil).Logout)
	return router
}

func postLogout(router *gin.Engine, query string) (*httptest.ResponseRecorder, gjson.Result) {
	w := httptest.NewRecorder()
	req := withActor(httptest.NewRequest(http.MethodPost, "/session/logout"+query, nil), owner)
	router.ServeHTTP(w, req)
	return w, gjson.Parse(w.Body.String())
}

func ownerClaims() *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1", Subject: owner.UserID},
		CompanyID:        owner.CompanyID,
		Role:             owner.Role.String(),
	}
}

func TestSessionHandler_Logout(t *testing.T) {
	claims := ownerClaims()
	revoker := new(MockTokenRevoker)
	revoker.On("Revoke", mock.Anything, claims).Return(nil)

	w, body := postLogout(sessionRouter(revoker, NewStreamRegistry(), claims), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, body.Get("data.all_sessions").Bool())
	assert.Zero(t, body.Get("data.streams_notified").Int())
	revoker.AssertExpectations(t)
	revoker.AssertNotCalled(t, "RevokeUser", mock.Anything, mock.Anything)
}

func TestSessionHandler_LogoutAll(t *testing.T) {
	revoker := new(MockTokenRevoker)
	revoker.On("RevokeUser", mock.Anything, owner.UserID).Return(nil)

	w, body := postLogout(sessionRouter(revoker, NewStreamRegistry(), ownerClaims()), "?all=1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Get("data.all_sessions").Bool())
	revoker.AssertExpectations(t)
}

func TestSessionHandler_LogoutRejections(t *testing.T) {
	revoker := new(MockTokenRevoker)

	w, body := postLogout(sessionRouter(revoker, NewStreamRegistry(), ownerClaims()), "?all=maybe")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, errorCode(body))

	w, body = postLogout(sessionRouter(revoker, NewStreamRegistry(), nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(body))

	revoker.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestSessionHandler_RevocationStoreDown(t *testing.T) {
	claims := ownerClaims()
	revoker := new(MockTokenRevoker)
	revoker.On("Revoke", mock.Anything, claims).Return(errors.New("redis: connection refused"))

	w, body := postLogout(sessionRouter(revoker, NewStreamRegistry(), claims), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeStoreUnavailable, errorCode(body))
}
