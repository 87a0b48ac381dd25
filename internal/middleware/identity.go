package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"coopledger/internal/handlers/business"
	"coopledger/internal/models"

	"github.com/gin-gonic/gin"
)

// Headers set by the identity collaborator in front of the ledger
const (
	HeaderMemberID   = "X-Member-ID"
	HeaderMemberRole = "X-Member-Role"

	actorKey = "ledger_actor"
)

// Identity reads the trusted identity headers into the request context.
// Requests without them continue anonymously.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderMemberID))
		if raw == "" {
			c.Next()
			return
		}

		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid " + HeaderMemberID + " header"})
			return
		}

		role := models.MemberRole(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderMemberRole))))
		if role != models.MemberRoleAdmin {
			role = models.MemberRoleMember
		}

		c.Set(actorKey, business.Actor{ID: uint(id), Role: role})
		c.Next()
	}
}

// ActorFrom returns the identity attached by Identity
func ActorFrom(c *gin.Context) (business.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return business.Actor{}, false
	}
	actor, ok := v.(business.Actor)
	return actor, ok
}

// RequireMember rejects anonymous requests
func RequireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ActorFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing " + HeaderMemberID + " header"})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous and non-admin requests
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing " + HeaderMemberID + " header"})
			return
		}
		if !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin capability required", "kind": business.KindForbidden})
			return
		}
		c.Next()
	}
}
