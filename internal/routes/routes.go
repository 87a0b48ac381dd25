package routes

import (
	"os"
	"strconv"
	"strings"

	"coopledger/internal/events"
	"coopledger/internal/handlers"
	"coopledger/internal/handlers/business"
	"coopledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(ledger *business.Ledger, hub *events.Hub) *gin.Engine {
	handlers.UseLedger(ledger)

	r := gin.Default()

	// Add health check endpoint
	r.Any("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})

	allowedOrigins := parseOrigins(os.Getenv("ALLOWED_ORIGINS"))

	// Configure CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowedOrigins[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With, "+middleware.HeaderMemberID+", "+middleware.HeaderMemberRole)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.Use(middleware.Identity())

	// money-moving endpoints share one per-member budget
	moneyLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: envFloat("RATE_LIMIT_RPS", 2),
		Burst:             envInt("RATE_LIMIT_BURST", 5),
	})

	// Setup routes for each module
	SetupMemberRoutes(r)
	SetupCampaignRoutes(r)
	SetupInvestmentRoutes(r, moneyLimiter)
	SetupWalletRoutes(r, moneyLimiter)
	SetupAdminRoutes(r, hub)

	return r
}

// parseOrigins splits a comma-separated list, e.g. "http://localhost:3000,http://localhost:3001"
func parseOrigins(raw string) map[string]bool {
	origins := make(map[string]bool)
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins[trimmed] = true
		}
	}
	return origins
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
