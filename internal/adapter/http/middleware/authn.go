package middleware

import (
	"net/http"
	"strings"

	"github.com/aq2208/bookstore-api/internal/adapter/http/apierror"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/security"
	"github.com/gin-gonic/gin"
)

const userKey = "username"

type TokenValidator interface {
	Validate(raw string) (string, error)
}

type UserLookup interface {
	Lookup(username string) (security.User, bool)
}

type Authn struct {
	tokens TokenValidator
	users  UserLookup
}

func NewAuthn(tokens TokenValidator, users UserLookup) *Authn {
	return &Authn{tokens: tokens, users: users}
}

// Require rejects requests without a valid bearer token for a known user.
func (a *Authn) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "Authentication is required to access this resource.")
			return
		}

		sub, err := a.tokens.Validate(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
		if err != nil {
			logging.From(c).Debug("token rejected", "err", err)
			unauth(c, "invalid_token", "Invalid or expired authentication token.")
			return
		}

		if _, ok := a.users.Lookup(sub); !ok {
			unauth(c, "invalid_token", "You are not authorized to access this resource.")
			return
		}

		c.Set(userKey, sub)
		logging.With(c, logging.From(c).With("user", sub))
		c.Next()
	}
}

// Username is the authenticated subject, empty on public routes.
func Username(c *gin.Context) string {
	return c.GetString(userKey)
}

func unauth(c *gin.Context, code, msg string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`"`)
	apierror.Abort(c, http.StatusUnauthorized, apierror.CodeUnauthorized, msg)
}
