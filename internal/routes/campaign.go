package routes

import (
	"coopledger/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupCampaignRoutes sets up the public campaign listing routes
func SetupCampaignRoutes(r *gin.Engine) {
	campaigns := r.Group("/campaigns")
	{
		campaigns.GET("", handlers.ListCampaigns)
		campaigns.GET("/:id", handlers.GetCampaign)
	}
}
