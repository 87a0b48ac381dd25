package handlers

import (
	"net/http"
	"strconv"

	"coopledger/internal/events"
	"coopledger/internal/handlers/business"

	"github.com/gin-gonic/gin"
)

// RunReconciliation audits campaign totals and wallet balances on demand
func RunReconciliation(c *gin.Context) {
	report, err := ledger.Reconciler.Run()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListAuditLogs returns paginated admin actions with optional entity, entity_id
// and actor_id filters
func ListAuditLogs(c *gin.Context) {
	page, pageSize := pageParams(c)

	filter := business.AuditFilter{
		Entity:   c.Query("entity"),
		Page:     page,
		PageSize: pageSize,
	}
	if id, err := strconv.ParseUint(c.Query("entity_id"), 10, 64); err == nil {
		filter.EntityID = uint(id)
	}
	if id, err := strconv.ParseUint(c.Query("actor_id"), 10, 64); err == nil {
		filter.ActorID = uint(id)
	}

	logs, total, err := ledger.Audit.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, logs, page, pageSize, total)
}

// StreamEvents upgrades to a websocket carrying live ledger events
func StreamEvents(hub *events.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	}
}
