package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body HealthResponse
	envelope(t, w, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "up", body.Database)

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeServiceUnavailable, envelope(t, w, nil).Error.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, uuid.New())

	w := s.do(t, http.MethodGet, "/api/v1/orders", nil, withToken(token))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil, withToken(token))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	// the same token is now refused everywhere
	w = s.do(t, http.MethodGet, "/api/v1/orders", nil, withToken(token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", envelope(t, w, nil).Error.Message)

	// and a guest cannot log out
	w = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	claims, err := s.jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Greater(t, claims.GetRemainingTTL(), 50*time.Minute)
}

func TestBaseHandler_HandleErrorUnknown(t *testing.T) {
	s := newTestServer(t)
	var h BaseHandler
	s.engine.GET("/boom", func(c *gin.Context) {
		h.HandleError(c, assert.AnError)
	})

	w := s.do(t, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := envelope(t, w, nil)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	assert.NotEmpty(t, resp.Error.RequestID)
}
