package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	pollsvc "github.com/pollbox/pollbox/internal/poll/service"
	"github.com/pollbox/pollbox/internal/ratelimit"
	"github.com/pollbox/pollbox/internal/security"
	"github.com/pollbox/pollbox/internal/users"
	"github.com/pollbox/pollbox/internal/validate"
	"github.com/pollbox/pollbox/pkg/logger"
)

// writeError is the single boundary where service failures become HTTP
// responses. Every branch returns a short fixed message; stack traces and
// collaborator errors are logged, never surfaced.
func writeError(c *gin.Context, err error) {
	var violations *validate.Violations
	var limited *ratelimit.Error

	switch {
	case errors.As(err, &violations):
		c.JSON(http.StatusBadRequest, gin.H{"error": violations.Error()})
	case errors.As(err, &limited):
		secs := int(limited.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", fmt.Sprintf("%d", secs))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": limited.Error()})
	case errors.Is(err, security.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": security.ErrAuthRequired.Error()})
	case errors.Is(err, security.ErrAdminRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": security.ErrAdminRequired.Error()})
	case errors.Is(err, security.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": security.ErrAccessDenied.Error()})
	case errors.Is(err, pollsvc.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": pollsvc.ErrNotFound.Error()})
	case errors.Is(err, pollsvc.ErrInvalidOption):
		c.JSON(http.StatusBadRequest, gin.H{"error": pollsvc.ErrInvalidOption.Error()})
	case errors.Is(err, pollsvc.ErrDuplicateVote), errors.Is(err, pollsvc.ErrDuplicateVoteAddr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": users.ErrInvalidCredentials.Error()})
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": users.ErrEmailTaken.Error()})
	default:
		logger.Errorf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
