package handlers

import (
	"net/http"

	"coopledger/internal/handlers/business"
	"coopledger/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterMemberRequest represents the request payload for a new member
type RegisterMemberRequest struct {
	Username     string `json:"username" binding:"required"`
	ReferralCode string `json:"referral_code"`
}

// CreateAdminRequest represents the request payload for a new admin account
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required"`
}

// RegisterMember creates a member, optionally under a referrer
func RegisterMember(c *gin.Context) {
	var req RegisterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := ledger.Members.Register(business.RegisterInput{
		Username:     req.Username,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"member": reg.Member}
	if reg.Cascade != nil {
		resp["commissions"] = reg.Cascade.Payouts
		if reg.Cascade.Warning != nil {
			resp["warning"] = reg.Cascade.Warning.Error()
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// CreateAdmin registers a member with admin capability
func CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := ledger.Members.Register(business.RegisterInput{
		Username: req.Username,
		Role:     models.MemberRoleAdmin,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg.Member)
}

// GetMember returns a member with its wallet
func GetMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !allowSelfOrAdmin(c, id) {
		return
	}

	member, err := ledger.Members.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// GetDownline returns the three-level referral tree below a member
func GetDownline(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !allowSelfOrAdmin(c, id) {
		return
	}

	downline, err := ledger.Members.Downline(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, downline)
}

// ListCommissions returns the commission records paid to a member
func ListCommissions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !allowSelfOrAdmin(c, id) {
		return
	}

	records, err := ledger.Cascade.Received(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
