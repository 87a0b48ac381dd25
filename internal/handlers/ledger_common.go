package handlers

import (
	"net/http"
	"strconv"

	"coopledger/internal/handlers/business"
	"coopledger/internal/middleware"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var ledger *business.Ledger

// UseLedger sets the ledger every handler operates on
func UseLedger(l *business.Ledger) {
	ledger = l
}

var kindStatus = map[business.Kind]int{
	business.KindNotFound:          http.StatusNotFound,
	business.KindInvalidState:      http.StatusConflict,
	business.KindInvalidAmount:     http.StatusBadRequest,
	business.KindInsufficientFunds: http.StatusUnprocessableEntity,
	business.KindConflict:          http.StatusConflict,
	business.KindForbidden:         http.StatusForbidden,
	business.KindInvalidInput:      http.StatusBadRequest,
}

// respondError maps ledger failures onto HTTP statuses. Anything without a
// ledger kind is an infrastructure failure and is logged.
func respondError(c *gin.Context, err error) {
	kind := business.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": err.Error(), "kind": kind}
	if allowed := business.AllowedOf(err); len(allowed) > 0 {
		body["allowed"] = allowed
	}
	c.JSON(status, body)
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return uint(id), true
}

// pageParams reads page and page_size query parameters
func pageParams(c *gin.Context) (int, int) {
	page := 1
	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	pageSize := 20
	if ps := c.Query("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= 100 {
			pageSize = parsed
		}
	}
	return page, pageSize
}

func paginated(c *gin.Context, data interface{}, page, pageSize int, total int64) {
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"pagination": gin.H{
			"current_page": page,
			"page_size":    pageSize,
			"total_pages":  totalPages,
			"total_count":  total,
			"has_next":     page < int(totalPages),
			"has_prev":     page > 1,
		},
	})
}

// currentActor is only called behind RequireMember or RequireAdmin
func currentActor(c *gin.Context) business.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}

// allowSelfOrAdmin lets members read their own records and admins read any
func allowSelfOrAdmin(c *gin.Context, memberID uint) bool {
	actor := currentActor(c)
	if actor.IsAdmin() || actor.ID == memberID {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "Access to another member's records is not allowed", "kind": business.KindForbidden})
	return false
}

// bindOptionalJSON binds a body that may be absent entirely
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
