package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pollsvc "github.com/pollbox/pollbox/internal/poll/service"
	"github.com/pollbox/pollbox/internal/ratelimit"
	"github.com/pollbox/pollbox/internal/sessions"
	"github.com/pollbox/pollbox/internal/validate"
	"github.com/pollbox/pollbox/pkg/metrics"
	"github.com/pollbox/pollbox/pkg/middleware"
)

type VoteRequest struct {
	OptionIndex int `json:"optionIndex"`
}

// VoteHandler exposes vote submission and the public results endpoint.
type VoteHandler struct {
	svc      *pollsvc.Service
	sessions *sessions.Service
}

func NewVoteHandler(svc *pollsvc.Service, s *sessions.Service) *VoteHandler {
	return &VoteHandler{svc: svc, sessions: s}
}

// Register routes under /polls
func (h *VoteHandler) Register(rg *gin.RouterGroup) {
	p := rg.Group("/polls")
	p.POST("/:id/vote", h.Submit)
	p.GET("/:id/results", h.Results)
}

func (h *VoteHandler) Submit(c *gin.Context) {
	if middleware.IsCookieAuth(c) {
		caller := middleware.GetCaller(c)
		ok, err := h.sessions.VerifyCSRF(c.Request.Context(), caller.Token, c.GetHeader("X-CSRF-Token"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid csrf token"})
			return
		}
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	v, err := h.svc.SubmitVote(c.Request.Context(), middleware.GetCaller(c), c.Param("id"), req.OptionIndex)
	if err != nil {
		metrics.VotesRejected.WithLabelValues(voteRejectReason(err)).Inc()
		writeError(c, err)
		return
	}
	metrics.VotesAccepted.Inc()
	c.JSON(http.StatusCreated, gin.H{"vote": v})
}

func (h *VoteHandler) Results(c *gin.Context) {
	r, err := h.svc.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": r})
}

func voteRejectReason(err error) string {
	var violations *validate.Violations
	var limited *ratelimit.Error
	switch {
	case errors.As(err, &limited):
		return "rate_limited"
	case errors.As(err, &violations):
		return "validation"
	case errors.Is(err, pollsvc.ErrNotFound):
		return "not_found"
	case errors.Is(err, pollsvc.ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, pollsvc.ErrDuplicateVote), errors.Is(err, pollsvc.ErrDuplicateVoteAddr):
		return "duplicate"
	}
	return "error"
}
