package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pollbox/pollbox/internal/config"
	"github.com/pollbox/pollbox/internal/security"
	"github.com/pollbox/pollbox/internal/sessions"
	"github.com/pollbox/pollbox/internal/tokens"
	"github.com/pollbox/pollbox/internal/users"
	"github.com/pollbox/pollbox/pkg/middleware"
)

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg      *config.Config
	users    *users.Service
	sessions *sessions.Service
	resolver *security.Resolver
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, r *security.Resolver) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: u, sessions: s, resolver: r}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/register", h.RegisterAccount)
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)
	a.GET("/csrf", h.CSRFToken)
	a.GET("/me", h.Me)
}

// RegisterAccount creates an account and logs it in right away.
func (h *AuthHandler) RegisterAccount(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	u, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		writeError(c, err)
		return
	}
	h.issueSession(c, u.ID, http.StatusCreated, gin.H{"user": u})
}

// Login verifies credentials and issues a session plus an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	access, err := tokens.GenerateAccessToken(h.cfg.Auth.JWTSecret, u, h.cfg.Auth.AccessTokenTTL)
	if err != nil {
		writeError(c, err)
		return
	}
	h.issueSession(c, u.ID, http.StatusOK, gin.H{
		"user":        u,
		"accessToken": access,
		"expiresIn":   int(h.cfg.Auth.AccessTokenTTL.Seconds()),
	})
}

func (h *AuthHandler) issueSession(c *gin.Context, userID string, status int, body gin.H) {
	sess, err := h.sessions.Create(c.Request.Context(), userID, h.cfg.Auth.SessionTTL)
	if err != nil {
		writeError(c, err)
		return
	}
	secure := h.cfg.Server.Environment == "production"
	c.SetCookie(h.cfg.Auth.SessionCookie, sess.Token, int(h.cfg.Auth.SessionTTL.Seconds()), "/", "", secure, true)
	body["sessionToken"] = sess.Token
	body["csrfToken"] = sess.CSRFToken
	c.JSON(status, body)
}

// Logout drops the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	caller := middleware.GetCaller(c)
	if caller.Token != "" {
		if err := h.sessions.Delete(c.Request.Context(), caller.Token); err != nil {
			writeError(c, err)
			return
		}
	}
	c.SetCookie(h.cfg.Auth.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// CSRFToken returns the token browser clients must echo on mutating calls.
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	caller := middleware.GetCaller(c)
	sess, err := h.sessions.Validate(c.Request.Context(), caller.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess == nil {
		writeError(c, security.ErrAuthRequired)
		return
	}
	c.JSON(http.StatusOK, gin.H{"csrfToken": sess.CSRFToken})
}

// Me returns the resolved security context for the caller.
func (h *AuthHandler) Me(c *gin.Context) {
	caller := middleware.GetCaller(c)
	sc := h.resolver.Resolve(c.Request.Context(), caller.Token)
	if !sc.Authenticated {
		writeError(c, security.ErrAuthRequired)
		return
	}
	u, err := h.users.GetByID(c.Request.Context(), sc.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	if u == nil {
		writeError(c, security.ErrAuthRequired)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "role": sc.Role, "permissions": sc.Permissions})
}
