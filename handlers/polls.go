package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pollsvc "github.com/pollbox/pollbox/internal/poll/service"
	"github.com/pollbox/pollbox/internal/sessions"
	"github.com/pollbox/pollbox/pkg/middleware"
)

type PollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// PollHandler exposes poll CRUD, listings and the admin surface.
type PollHandler struct {
	svc      *pollsvc.Service
	sessions *sessions.Service
}

func NewPollHandler(svc *pollsvc.Service, s *sessions.Service) *PollHandler {
	return &PollHandler{svc: svc, sessions: s}
}

// Register routes under /polls, /me and /admin
func (h *PollHandler) Register(rg *gin.RouterGroup) {
	p := rg.Group("/polls")
	p.POST("", h.Create)
	p.GET("/:id", h.Get)
	p.GET("/:id/edit", h.GetForEdit)
	p.PUT("/:id", h.Update)
	p.DELETE("/:id", h.Delete)

	rg.GET("/me/polls", h.Mine)

	a := rg.Group("/admin")
	a.GET("/polls", h.AdminList)
	a.GET("/polls/:id/votes", h.AdminVotes)
	a.DELETE("/polls/:id", h.AdminDelete)
}

// checkCSRF enforces the opaque-token equality check for cookie-based
// callers on state-changing requests. Header-token clients skip it.
func (h *PollHandler) checkCSRF(c *gin.Context) bool {
	if !middleware.IsCookieAuth(c) {
		return true
	}
	caller := middleware.GetCaller(c)
	ok, err := h.sessions.VerifyCSRF(c.Request.Context(), caller.Token, c.GetHeader("X-CSRF-Token"))
	if err != nil {
		writeError(c, err)
		return false
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid csrf token"})
		return false
	}
	return true
}

func (h *PollHandler) Create(c *gin.Context) {
	if !h.checkCSRF(c) {
		return
	}
	var req PollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := h.svc.CreatePoll(c.Request.Context(), middleware.GetCaller(c), req.Question, req.Options)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"poll": p})
}

func (h *PollHandler) Get(c *gin.Context) {
	p, err := h.svc.GetPoll(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll": p})
}

func (h *PollHandler) GetForEdit(c *gin.Context) {
	p, err := h.svc.GetPollForEdit(c.Request.Context(), middleware.GetCaller(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll": p})
}

func (h *PollHandler) Update(c *gin.Context) {
	if !h.checkCSRF(c) {
		return
	}
	var req PollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := h.svc.UpdatePoll(c.Request.Context(), middleware.GetCaller(c), c.Param("id"), req.Question, req.Options)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll": p})
}

func (h *PollHandler) Delete(c *gin.Context) {
	if !h.checkCSRF(c) {
		return
	}
	if err := h.svc.DeletePoll(c.Request.Context(), middleware.GetCaller(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "poll deleted"})
}

func (h *PollHandler) Mine(c *gin.Context) {
	polls, err := h.svc.UserPolls(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"polls": polls})
}

func (h *PollHandler) AdminList(c *gin.Context) {
	polls, err := h.svc.AllPolls(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"polls": polls})
}

func (h *PollHandler) AdminVotes(c *gin.Context) {
	votes, err := h.svc.PollVotes(c.Request.Context(), middleware.GetCaller(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}

func (h *PollHandler) AdminDelete(c *gin.Context) {
	if !h.checkCSRF(c) {
		return
	}
	if err := h.svc.AdminDeletePoll(c.Request.Context(), middleware.GetCaller(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "poll deleted"})
}
