package handlers

import (
	"net/http"
	"time"

	"coopledger/internal/handlers/business"
	"coopledger/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateCampaignRequest represents the request payload for creating a campaign
type CreateCampaignRequest struct {
	Title             string     `json:"title" binding:"required"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	RiskLevel         string     `json:"risk_level"` // low, medium, high
	TargetAmount      int64      `json:"target_amount"`
	MinimumInvestment int64      `json:"minimum_investment"`
	RoiPercentage     float64    `json:"roi_percentage"`
	DurationMonths    int        `json:"duration_months"`
	StartDate         *time.Time `json:"start_date"` // defaults to now
}

// UpdateCampaignStatusRequest represents the admin status override payload
type UpdateCampaignStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListCampaigns returns paginated campaigns with optional status and category filters
func ListCampaigns(c *gin.Context) {
	page, pageSize := pageParams(c)

	campaigns, total, err := ledger.Campaigns.List(business.CampaignFilter{
		Status:   models.CampaignStatus(c.Query("status")),
		Category: c.Query("category"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, campaigns, page, pageSize, total)
}

// GetCampaign returns a campaign by ID
func GetCampaign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	campaign, err := ledger.Campaigns.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// CreateCampaign opens a new campaign
func CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := business.CreateCampaignInput{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		RiskLevel:         req.RiskLevel,
		TargetAmount:      req.TargetAmount,
		MinimumInvestment: req.MinimumInvestment,
		RoiPercentage:     req.RoiPercentage,
		DurationMonths:    req.DurationMonths,
	}
	if req.StartDate != nil {
		in.StartDate = req.StartDate.UTC()
	}

	campaign, err := ledger.Campaigns.Create(in, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// UpdateCampaignStatus applies an administrative status override
func UpdateCampaignStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateCampaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign, err := business.WithRetry(c.Request.Context(), ledger.Settings.ConflictRetries, func() (*business.CampaignView, error) {
		return ledger.Campaigns.SetStatus(id, models.CampaignStatus(req.Status), currentActor(c))
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}
