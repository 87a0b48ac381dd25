package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WithdrawalRequestPayload represents a member's withdrawal request
type WithdrawalRequestPayload struct {
	Amount int64 `json:"amount"`
}

// RejectWithdrawalRequest carries the admin's reason for a rejection
type RejectWithdrawalRequest struct {
	Note string `json:"note"`
}

// GetWallet returns the current member's wallet
func GetWallet(c *gin.Context) {
	wallet, err := ledger.Wallets.Get(currentActor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet":         wallet,
		"total_earnings": wallet.TotalEarnings(),
	})
}

// RequestWithdrawal reserves part of the available balance for payout
func RequestWithdrawal(c *gin.Context) {
	var req WithdrawalRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := ledger.Wallets.RequestWithdrawal(currentActor(c).ID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// ListWithdrawals returns the current member's withdrawal history
func ListWithdrawals(c *gin.Context) {
	requests, err := ledger.Wallets.History(currentActor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ListPendingWithdrawals returns every withdrawal awaiting processing
func ListPendingWithdrawals(c *gin.Context) {
	requests, err := ledger.Wallets.Pending()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// CompleteWithdrawal marks a pending withdrawal as paid out
func CompleteWithdrawal(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	request, err := ledger.Wallets.CompleteWithdrawal(id, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// RejectWithdrawal returns a pending withdrawal's amount to the member
func RejectWithdrawal(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req RejectWithdrawalRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	request, err := ledger.Wallets.RejectWithdrawal(id, currentActor(c), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}
