package routes

import (
	"coopledger/internal/handlers"
	"coopledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupInvestmentRoutes sets up member investment routes
func SetupInvestmentRoutes(r *gin.Engine, limiter gin.HandlerFunc) {
	investments := r.Group("/investments", middleware.RequireMember())
	{
		investments.GET("", handlers.ListInvestments)
		investments.GET("/:id", handlers.GetInvestment)
		investments.POST("", limiter, handlers.CreateInvestment)
		investments.POST("/:id/claim", limiter, handlers.ClaimProfit)
		investments.POST("/:id/withdraw-early", limiter, handlers.WithdrawEarly)
	}
}
