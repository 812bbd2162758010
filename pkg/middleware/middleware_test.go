package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pollbox/pollbox/internal/security"
)

func callerEcho(t *testing.T) (*gin.Engine, *security.Caller, *bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var got security.Caller
	var cookieAuth bool
	r := gin.New()
	r.Use(CallerExtractor("pollbox_session"))
	r.GET("/echo", func(c *gin.Context) {
		got = GetCaller(c)
		cookieAuth = IsCookieAuth(c)
		c.JSON(200, gin.H{"ok": true})
	})
	return r, &got, &cookieAuth
}

func TestCallerExtractorBearer(t *testing.T) {
	r, got, cookieAuth := callerEcho(t)

	req := httptest.NewRequest("GET", "/echo", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "tok-123", got.Token)
	require.False(t, *cookieAuth)
}

func TestCallerExtractorCookie(t *testing.T) {
	r, got, cookieAuth := callerEcho(t)

	req := httptest.NewRequest("GET", "/echo", nil)
	req.AddCookie(&http.Cookie{Name: "pollbox_session", Value: "sess-456"})
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "sess-456", got.Token)
	require.True(t, *cookieAuth)
}

func TestCallerExtractorAnonymous(t *testing.T) {
	r, got, cookieAuth := callerEcho(t)

	req := httptest.NewRequest("GET", "/echo", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Empty(t, got.Token)
	require.False(t, *cookieAuth)
	require.NotEmpty(t, got.Addr)
}

func TestRateLimitMiddlewareBlocksFlood(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny budget so the second request is rejected
	r.Use(RateLimitMiddleware(0.01, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
	require.Equal(t, "1", w2.Header().Get("Retry-After"))
}
