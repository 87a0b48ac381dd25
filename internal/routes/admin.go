package routes

import (
	"coopledger/internal/events"
	"coopledger/internal/handlers"
	"coopledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes sets up campaign administration, payment callbacks,
// withdrawal processing and the live event feed
func SetupAdminRoutes(r *gin.Engine, hub *events.Hub) {
	admin := r.Group("/admin", middleware.RequireAdmin())
	{
		admin.POST("/members", handlers.CreateAdmin)
		admin.POST("/campaigns", handlers.CreateCampaign)
		admin.PUT("/campaigns/:id/status", handlers.UpdateCampaignStatus)
		admin.POST("/investments/:id/confirm", handlers.ConfirmPayment)
		admin.POST("/investments/:id/fail", handlers.FailPayment)
		admin.GET("/withdrawals/pending", handlers.ListPendingWithdrawals)
		admin.POST("/withdrawals/:id/complete", handlers.CompleteWithdrawal)
		admin.POST("/withdrawals/:id/reject", handlers.RejectWithdrawal)
		admin.POST("/reconcile", handlers.RunReconciliation)
		admin.GET("/audit-logs", handlers.ListAuditLogs)
	}

	if hub != nil {
		r.GET("/ws/events", middleware.RequireAdmin(), handlers.StreamEvents(hub))
	}
}
