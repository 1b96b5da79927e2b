package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"petchat/internal/infrastructure/realtime"
	chat "petchat/internal/pkg/chat/application/domain"
	"petchat/internal/pkg/chat/application/usecase"
	"petchat/internal/pkg/chat/persistence/repository/adapter"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{chat.ErrNotFound, http.StatusNotFound},
		{chat.ErrNotParticipant, http.StatusForbidden},
		{chat.ErrEmptyMessage, http.StatusBadRequest},
		{chat.ErrInvalidStatus, http.StatusBadRequest},
		{fmt.Errorf("%w: limit", usecase.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: boom", usecase.ErrPersistence), http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.org"})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.org/api/v1/ws", nil)
	assert.True(t, check(req), "no Origin header")

	req.Header.Set("Origin", "https://app.example.org")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://api.example.org")
	assert.True(t, check(req), "same host")

	req.Header.Set("Origin", "https://evil.example.net")
	assert.False(t, check(req))
}

func TestHealthController(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(p Pinger) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/healthz", NewHealthController(adapter.NewMemoryChatRepository(), p, realtime.NewRouter()).Handle())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		return w
	}

	w := serve(pingerFunc(func(context.Context) error { return nil }))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","checks":{"store":"ok","broker":"ok"},"sessions":0}`, w.Body.String())

	w = serve(pingerFunc(func(context.Context) error { return errors.New("redis down") }))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "DEGRADED")
	assert.Contains(t, w.Body.String(), "redis down")
}
