package routes

import (
	"coopledger/internal/handlers"
	"coopledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupMemberRoutes sets up registration and referral tree routes
func SetupMemberRoutes(r *gin.Engine) {
	members := r.Group("/members")
	{
		members.POST("", handlers.RegisterMember)
		members.GET("/:id", middleware.RequireMember(), handlers.GetMember)
		members.GET("/:id/downline", middleware.RequireMember(), handlers.GetDownline)
		members.GET("/:id/commissions", middleware.RequireMember(), handlers.ListCommissions)
	}
}
