package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ownerKey is the gin context key the verified owner id is stored under.
const ownerKey = "ownerID"

// Middleware extracts and verifies the bearer token, aborting with 401 when
// it is missing or bad. Handlers downstream read the identity with OwnerID.
func (m Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing authorization header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authorization header must be a bearer token"})
			return
		}

		userID, err := m.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": ErrInvalidToken.Error()})
			return
		}

		c.Set(ownerKey, userID)
		c.Next()
	}
}

// OwnerID returns the verified owner id set by Middleware.
func OwnerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ownerKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
