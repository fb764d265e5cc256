package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/infrastructure/auth"
	"github.com/bizops/backend/internal/infrastructure/config"
	"github.com/bizops/backend/internal/infrastructure/logger"
	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTService(opts ...auth.Option) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "middleware-test-secret-at-least-32-chars",
		Issuer:                "bizops-test",
		AccessTokenExpiration: time.Hour,
	}, opts...)
}

func testActor() identity.Actor {
	return identity.Actor{
		UserID:      "u-1",
		DisplayName: "Olu",
		CompanyID:   "acme",
		Role:        identity.RoleOwner,
		Permissions: identity.Capabilities{identity.CapRecordPayments},
	}
}

func issue(t *testing.T, svc *auth.JWTService) string {
	t.Helper()
	token, _, err := svc.Issue(testActor())
	require.NoError(t, err)
	return token
}

type captured struct {
	actor    identity.Actor
	hasActor bool
	claims   *auth.Claims
	tenant   string
	user     string
}

func jwtRouter(cfg JWTConfig, got *captured) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuth(cfg))
	router.GET("/test", func(c *gin.Context) {
		got.actor, got.hasActor = GetActor(c)
		got.claims = GetJWTClaims(c)
		got.tenant = logger.GetTenantID(c.Request.Context())
		got.user = logger.GetUserID(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return router
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
	return resp.Error.Code
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := testJWTService()
	var got captured
	router := jwtRouter(JWTConfig{Authenticator: svc}, &got)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+issue(t, svc))
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, got.hasActor)
	assert.Equal(t, testActor(), got.actor)
	require.NotNil(t, got.claims)
	assert.Equal(t, "u-1", got.claims.Subject)
	assert.Equal(t, "acme", got.tenant)
	assert.Equal(t, "u-1", got.user)
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := testJWTService()
	expired := auth.NewJWTService(config.JWTConfig{
		Secret: "middleware-test-secret-at-least-32-chars",
		Issuer: "bizops-test",
	}, auth.WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) }))

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeUnauthorized},
		{"empty bearer", "Bearer ", dto.ErrCodeUnauthorized},
		{"garbage token", "Bearer not-a-jwt", dto.ErrCodeTokenInvalid},
		{"expired token", "Bearer " + issue(t, expired), dto.ErrCodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got captured
			router := jwtRouter(JWTConfig{Authenticator: svc}, &got)
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := serve(router, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
			assert.False(t, got.hasActor)
		})
	}
}

func TestJWTAuth_RevokedToken(t *testing.T) {
	svc := testJWTService(auth.WithRevocation(auth.NewInMemoryRevocation()))
	token := issue(t, svc)
	claims, err := svc.Parse(context.Background(), token)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), claims))

	var got captured
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := serve(jwtRouter(JWTConfig{Authenticator: svc}, &got), req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, errorCode(t, w))
}

func TestJWTAuth_QueryParam(t *testing.T) {
	svc := testJWTService()
	token := issue(t, svc)

	t.Run("accepted when configured", func(t *testing.T) {
		var got captured
		router := jwtRouter(JWTConfig{Authenticator: svc, QueryParam: "access_token"}, &got)
		w := serve(router, httptest.NewRequest(http.MethodGet, "/test?access_token="+token, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, got.hasActor)
	})

	t.Run("ignored otherwise", func(t *testing.T) {
		var got captured
		router := jwtRouter(JWTConfig{Authenticator: svc}, &got)
		w := serve(router, httptest.NewRequest(http.MethodGet, "/test?access_token="+token, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

type failingAuthenticator struct{}

func (failingAuthenticator) Authenticate(context.Context, string) (identity.Actor, *auth.Claims, error) {
	return identity.Actor{}, nil, errors.New("redis: connection refused")
}

func TestJWTAuth_VerificationFailureIsInternal(t *testing.T) {
	var got captured
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, "Bearer anything")
	w := serve(jwtRouter(JWTConfig{Authenticator: failingAuthenticator{}}, &got), req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrCodeInternal, errorCode(t, w))
}

func TestGetActor_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetActor(c)
	assert.False(t, ok)
	assert.Nil(t, GetJWTClaims(c))
}
