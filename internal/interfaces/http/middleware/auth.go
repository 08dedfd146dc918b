// Package middleware holds gin middleware shared across the gateway's
// client-facing endpoints.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientUserKey is the gin context key ClientAuth stores the resolved
// caller identity under.
const clientUserKey = "relay_client_user"

// ClientAuth accepts either `Authorization: Bearer <key>` or
// `x-api-key: <key>` per spec.md §6 and stores the presented key as
// the caller's identity. There is no separate client-key-to-user
// mapping table in this system's persisted state (§6 lists only the
// credential and external-API-account tables) — the presented key
// itself is the routing identity the allocator uses to find a
// caller's private credentials and external accounts, exactly as
// those tables' user_id column is an opaque string the operator
// assigns meaning to.
func ClientAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractKey(c.Request.Header)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing Authorization or x-api-key header", "type": "authentication_error"},
			})
			return
		}
		c.Set(clientUserKey, key)
		c.Next()
	}
}

func extractKey(h http.Header) string {
	if v := h.Get("x-api-key"); v != "" {
		return v
	}
	if v := h.Get("Authorization"); v != "" {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return ""
}

// UserID returns the caller identity ClientAuth resolved for this request.
func UserID(c *gin.Context) string {
	v, _ := c.Get(clientUserKey)
	s, _ := v.(string)
	return s
}
