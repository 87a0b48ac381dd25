package routes

import (
	"coopledger/internal/handlers"
	"coopledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWalletRoutes sets up wallet and withdrawal routes for the current member
func SetupWalletRoutes(r *gin.Engine, limiter gin.HandlerFunc) {
	wallet := r.Group("/wallet", middleware.RequireMember())
	{
		wallet.GET("", handlers.GetWallet)
		wallet.GET("/withdrawals", handlers.ListWithdrawals)
		wallet.POST("/withdrawals", limiter, handlers.RequestWithdrawal)
	}
}
