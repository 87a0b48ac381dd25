package handlers

import (
	"net/http"
	"strconv"

	"coopledger/internal/handlers/business"
	"coopledger/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateInvestmentRequest represents the request payload for a new investment.
// ROI and duration are the campaign's and cannot be chosen by the member.
type CreateInvestmentRequest struct {
	CampaignID uint  `json:"campaign_id" binding:"required"`
	Amount     int64 `json:"amount"`
}

// PaymentOutcomeRequest is sent by the payment collaborator
type PaymentOutcomeRequest struct {
	Reference string `json:"reference"`
}

// CreateInvestment stakes an amount in a campaign for the current member
func CreateInvestment(c *gin.Context) {
	var req CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := ledger.Lifecycle.CreateInvestment(business.CreateInvestmentInput{
		UserID:     currentActor(c).ID,
		CampaignID: req.CampaignID,
		Amount:     req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// ListInvestments returns the current member's investments. Admins may list
// any member's investments with the user_id filter.
func ListInvestments(c *gin.Context) {
	page, pageSize := pageParams(c)
	actor := currentActor(c)

	filter := business.InvestmentFilter{
		UserID:        actor.ID,
		Status:        models.InvestmentStatus(c.Query("status")),
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		Page:          page,
		PageSize:      pageSize,
	}
	if actor.IsAdmin() {
		filter.UserID = 0
		if uid, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
			filter.UserID = uint(uid)
		}
	}
	if cid, err := strconv.ParseUint(c.Query("campaign_id"), 10, 64); err == nil {
		filter.CampaignID = uint(cid)
	}

	investments, total, err := ledger.Investments.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, investments, page, pageSize, total)
}

// GetInvestment returns an investment with its accrual as of now
func GetInvestment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	inv, err := ledger.Investments.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !allowSelfOrAdmin(c, inv.UserID) {
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ClaimProfit settles a matured investment into the member's wallet
func ClaimProfit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := business.WithRetry(c.Request.Context(), ledger.Settings.ConflictRetries, func() (*business.ClaimResult, error) {
		return ledger.Lifecycle.ClaimProfit(id, currentActor(c))
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// WithdrawEarly exits an active investment with the early withdrawal penalty
func WithdrawEarly(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := business.WithRetry(c.Request.Context(), ledger.Settings.ConflictRetries, func() (*business.EarlyWithdrawal, error) {
		return ledger.Lifecycle.WithdrawEarly(id, currentActor(c))
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConfirmPayment records a confirmed payment. Duplicate calls return 200 with
// already_confirmed set.
func ConfirmPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req PaymentOutcomeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := business.WithRetry(c.Request.Context(), ledger.Settings.ConflictRetries, func() (*business.ConfirmResult, error) {
		return ledger.Lifecycle.ConfirmPayment(id, req.Reference)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"investment":        result.Investment,
		"campaign":          result.Campaign,
		"already_confirmed": result.AlreadyConfirmed,
	}
	if result.Cascade != nil && result.Cascade.Warning != nil {
		resp["warning"] = result.Cascade.Warning.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// FailPayment records a failed payment
func FailPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req PaymentOutcomeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	inv, err := business.WithRetry(c.Request.Context(), ledger.Settings.ConflictRetries, func() (*models.Investment, error) {
		return ledger.Lifecycle.FailPayment(id, req.Reference)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
