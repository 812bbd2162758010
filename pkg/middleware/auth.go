package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pollbox/pollbox/internal/security"
)

const (
	callerKey     = "caller"
	cookieAuthKey = "caller_cookie"
)

// CallerExtractor pulls the caller token (Bearer header or session cookie)
// and the client address into the gin context. No authorization happens
// here: the service layer re-resolves the security context on every guard,
// so a revoked session is caught even mid-flight.
func CallerExtractor(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := security.Caller{Addr: c.ClientIP()}
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			caller.Token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		} else if cookieName != "" {
			if tok, err := c.Cookie(cookieName); err == nil && tok != "" {
				caller.Token = tok
				c.Set(cookieAuthKey, true)
			}
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// GetCaller returns the caller recorded by CallerExtractor.
func GetCaller(c *gin.Context) security.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok2 := v.(security.Caller); ok2 {
			return caller
		}
	}
	return security.Caller{Addr: c.ClientIP()}
}

// IsCookieAuth reports whether the caller token came from the session
// cookie. Only those requests need a CSRF token on state-changing calls;
// header-token clients are not CSRF-able.
func IsCookieAuth(c *gin.Context) bool {
	return c.GetBool(cookieAuthKey)
}
