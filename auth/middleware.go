package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserKey is the gin context key holding the authenticated
// username.
const ContextUserKey = "auth.username"

// Middleware returns a gin handler that requires a valid bearer token
// belonging to an active user.
func Middleware(tokens *TokenService, users *UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(c)
			return
		}

		username, err := tokens.Verify(token)
		if err != nil {
			unauthorized(c)
			return
		}

		user, found := users.Lookup(username)
		if !found || user.Disabled {
			unauthorized(c)
			return
		}

		c.Set(ContextUserKey, username)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "could not validate credentials",
		"code":  http.StatusUnauthorized,
	})
}
