package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const guestSessionKey = "guest_id"

// HolderMiddleware resolves the caller's holder id and stores it in the
// context under utils.ContextHolderID. A valid Bearer token yields
// "user:<id>"; otherwise the guest id kept in the cookie session is used,
// minted on first visit.
func HolderMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				utils.LogWarn("Invalid Bearer token format")
				utils.Unauthorized(c, "Please login for access")
				c.Abort()
				return
			}
			userID, err := utils.ParseUserToken(tokenString, jwtSecret)
			if err != nil {
				utils.LogWarn("Invalid token: %v", err)
				utils.Unauthorized(c, "Please login for access")
				c.Abort()
				return
			}
			c.Set(utils.ContextHolderID, "user:"+userID)
			c.Next()
			return
		}

		session := sessions.Default(c)
		guestID, _ := session.Get(guestSessionKey).(string)
		if guestID == "" {
			guestID = uuid.NewString()
			session.Set(guestSessionKey, guestID)
			if err := session.Save(); err != nil {
				utils.LogError("Failed to save guest session: %v", err)
				utils.InternalServerError(c)
				c.Abort()
				return
			}
			utils.LogDebug("New guest session %s", guestID)
		}
		c.Set(utils.ContextHolderID, "guest:"+guestID)
		c.Next()
	}
}

// HolderID returns the holder resolved by HolderMiddleware.
func HolderID(c *gin.Context) string {
	return c.GetString(utils.ContextHolderID)
}

// ResolveHolder reconciles a client-supplied holder id with the resolved one.
// An empty claim means the resolved holder; a different one is rejected.
func ResolveHolder(c *gin.Context, claimed string) (string, bool) {
	resolved := HolderID(c)
	if claimed == "" || claimed == resolved {
		return resolved, resolved != ""
	}
	return "", false
}

// InternalTokenMiddleware guards internal and admin routes. An empty
// configured token rejects every request.
func InternalTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(utils.InternalTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			utils.LogWarn("Rejected internal call to %s from %s", c.Request.URL.Path, c.ClientIP())
			utils.Forbidden(c, "Internal access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
