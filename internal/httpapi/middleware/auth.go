package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/gemini-chat/internal/auth"
	"github.com/suPer8Hu/gemini-chat/internal/common"
)

const IdentityKey = "identity"

// AuthRequired verifies the bearer token and stores the caller's
// auth.Identity. Admin rights are looked up per request from policy.
func AuthRequired(signer *auth.Signer, policy auth.AdminPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			common.Fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userID, email, err := signer.Parse(token)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		c.Set(IdentityKey, auth.Identity{
			UserID:  userID,
			Email:   email,
			IsAdmin: policy != nil && policy.IsAdmin(email),
		})
		c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthRequired.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
