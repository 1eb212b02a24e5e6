package http

import (
	"net/http"
	"time"

	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/security"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(username, password string) (security.User, error)
}

type TokenIssuer interface {
	Generate(username string, roles []string) (string, time.Time, error)
}

type AuthHandler struct {
	users  Authenticator
	tokens TokenIssuer
}

func NewAuthHandler(users Authenticator, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login POST /api/auth/login. Bad credentials get a bare 401.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		logging.From(c).Warn("login failed", "username", req.Username)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	token, exp, err := h.tokens.Generate(u.Username, u.Roles)
	if err != nil {
		handleError(c, err)
		return
	}
	logging.From(c).Info("login succeeded", "username", u.Username)
	c.JSON(http.StatusOK, loginResp{Token: token, ExpiresAt: exp.UTC()})
}

// Logout POST /api/auth/logout. Tokens are stateless; clients drop them.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
