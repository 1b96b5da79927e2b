package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"petchat/internal/infrastructure/logger"
	chat "petchat/internal/pkg/chat/application/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

func echoViewer(c *gin.Context) {
	v, ok := ViewerFrom(c)
	if !ok {
		c.Status(http.StatusTeapot)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": v.UserID, "role": v.Role, "shelter_id": v.ShelterID})
}

func authEngine() *gin.Engine {
	r := gin.New()
	r.GET("/me", Auth(secret), echoViewer)
	return r
}

func TestAuthAcceptsBearerAndQueryToken(t *testing.T) {
	staff := chat.Viewer{UserID: "u1", Role: chat.RoleShelter, ShelterID: "s1"}
	token, err := SignViewerToken(secret, staff, time.Hour)
	require.NoError(t, err)
	r := authEngine()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u1","role":"shelter","shelter_id":"s1"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRejects(t *testing.T) {
	valid, err := SignViewerToken(secret, chat.Viewer{UserID: "u1", Role: chat.RoleAdopter}, time.Hour)
	require.NoError(t, err)
	expired, err := SignViewerToken(secret, chat.Viewer{UserID: "u1", Role: chat.RoleAdopter}, -time.Minute)
	require.NoError(t, err)
	forged, err := SignViewerToken("other-secret", chat.Viewer{UserID: "u1", Role: chat.RoleAdopter}, time.Hour)
	require.NoError(t, err)
	noShelter, err := SignViewerToken(secret, chat.Viewer{UserID: "u1", Role: chat.RoleShelter}, time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"missing":       "",
		"wrong scheme":  "Basic " + valid,
		"expired":       "Bearer " + expired,
		"bad signature": "Bearer " + forged,
		"shelter no id": "Bearer " + noShelter,
		"garbage":       "Bearer not-a-jwt",
		"empty bearer":  "Bearer ",
	}
	r := authEngine()
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRateLimitPerViewer(t *testing.T) {
	limiter := NewKeyedRateLimiter(0.001, 2)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		SetViewer(c, chat.Viewer{UserID: c.Query("u"), Role: chat.RoleAdopter})
	}, RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?u=a", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?u=b", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiterSweepsIdleKeys(t *testing.T) {
	limiter := NewKeyedRateLimiter(1, 1)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	limiter.Allow("b")
	assert.Equal(t, 2, limiter.size())

	now = now.Add(limiterIdleTTL + limiterSweepEvery + time.Second)
	limiter.Allow("c")
	assert.Equal(t, 1, limiter.size())
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(2 * time.Second))
	r.GET("/t", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		if !ok || time.Until(deadline) > 2*time.Second {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
