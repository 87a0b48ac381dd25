package business

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coopledger/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CampaignStore persists campaigns and drives their funding state machine
type CampaignStore struct {
	db        *gorm.DB
	clock     *ledgerClock
	publisher EventPublisher
}

// CreateCampaignInput is the admin payload for a new campaign
type CreateCampaignInput struct {
	Title             string
	Description       string
	Category          string
	RiskLevel         string
	TargetAmount      int64
	MinimumInvestment int64
	RoiPercentage     float64
	DurationMonths    int
	StartDate         time.Time
}

// CampaignView is a campaign with the read-only fields computed at access time
type CampaignView struct {
	models.Campaign
	ProgressPercent float64 `json:"progress_percent"`
	IsExpired       bool    `json:"is_expired"`
	IsFullyFunded   bool    `json:"is_fully_funded"`
	StatusDisplay   string  `json:"status_display"`
}

// CampaignFilter narrows campaign listings
type CampaignFilter struct {
	Status   models.CampaignStatus
	Category string
	Page     int
	PageSize int
}

// Create opens a new active campaign. end_date is start_date plus the duration.
func (s *CampaignStore) Create(in CreateCampaignInput, actor Actor) (*CampaignView, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("creating campaigns requires admin capability")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalidInput("title is required")
	}
	if in.TargetAmount <= 0 {
		return nil, invalidAmount("target amount must be positive")
	}
	if in.MinimumInvestment < 0 {
		return nil, invalidAmount("minimum investment must not be negative")
	}
	if in.MinimumInvestment > in.TargetAmount {
		return nil, invalidAmount("minimum investment %d exceeds target %d", in.MinimumInvestment, in.TargetAmount)
	}
	if in.RoiPercentage < 0 {
		return nil, invalidAmount("roi percentage must not be negative")
	}
	if in.DurationMonths < 1 {
		return nil, invalidInput("duration must be at least one month")
	}

	start := in.StartDate
	if start.IsZero() {
		start = s.clock.now()
	}
	riskLevel := in.RiskLevel
	if riskLevel == "" {
		riskLevel = "medium"
	}

	campaign := models.Campaign{
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Category:          in.Category,
		RiskLevel:         riskLevel,
		TargetAmount:      in.TargetAmount,
		MinimumInvestment: in.MinimumInvestment,
		RoiPercentage:     in.RoiPercentage,
		DurationMonths:    in.DurationMonths,
		StartDate:         start,
		EndDate:           start.AddDate(0, in.DurationMonths, 0),
		Status:            models.CampaignStatusActive,
		Version:           1,
		CreatedBy:         actor.ID,
	}
	if err := s.db.Create(&campaign).Error; err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	log.WithFields(log.Fields{
		"campaign_id": campaign.ID,
		"target":      campaign.TargetAmount,
		"end_date":    campaign.EndDate,
		"actor_id":    actor.ID,
	}).Info("Campaign created")

	return s.view(&campaign), nil
}

// Get loads one campaign, closing it first when it expired unfunded
func (s *CampaignStore) Get(id uint) (*CampaignView, error) {
	campaign, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.closeIfExpired(campaign); err != nil {
		return nil, err
	}
	return s.view(campaign), nil
}

// List returns campaigns newest first together with the total count
func (s *CampaignStore) List(filter CampaignFilter) ([]CampaignView, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	query := s.db.Model(&models.Campaign{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	var campaigns []models.Campaign
	if err := query.Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&campaigns).Error; err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}

	views := make([]CampaignView, 0, len(campaigns))
	for i := range campaigns {
		if err := s.closeIfExpired(&campaigns[i]); err != nil {
			return nil, 0, err
		}
		views = append(views, *s.view(&campaigns[i]))
	}
	return views, total, nil
}

// RecordConfirmedInvestment adds a confirmed amount to the campaign and
// re-evaluates its status.
func (s *CampaignStore) RecordConfirmedInvestment(campaignID uint, amount int64) (*CampaignView, error) {
	var campaign *models.Campaign
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		campaign, err = s.recordConfirmedInvestmentTx(tx, campaignID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignStatusActive {
		s.publishStatus(campaign, models.CampaignStatusActive)
	}
	return s.view(campaign), nil
}

// recordConfirmedInvestmentTx increments current_amount and participants in a
// single status-guarded UPDATE so concurrent confirmations never lose updates.
// The fully-funded check runs before the expiry check.
func (s *CampaignStore) recordConfirmedInvestmentTx(tx *gorm.DB, campaignID uint, amount int64) (*models.Campaign, error) {
	if amount <= 0 {
		return nil, invalidAmount("confirmed amount must be positive")
	}

	res := tx.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaignID, models.CampaignStatusActive).
		Updates(map[string]interface{}{
			"current_amount": gorm.Expr("current_amount + ?", amount),
			"participants":   gorm.Expr("participants + ?", 1),
			"version":        gorm.Expr("version + ?", 1),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("increment campaign %d: %w", campaignID, res.Error)
	}

	campaign, err := s.load(tx, campaignID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, invalidState("campaign %d is %s, not active", campaignID, campaign.Status)
	}

	now := s.clock.now()
	switch {
	case campaign.IsFullyFunded():
		if _, err := s.transitionTx(tx, campaign, models.CampaignStatusActive, models.CampaignStatusCompleted); err != nil {
			return nil, err
		}
	case campaign.IsExpired(now):
		if _, err := s.transitionTx(tx, campaign, models.CampaignStatusActive, models.CampaignStatusClosed); err != nil {
			return nil, err
		}
	}
	return campaign, nil
}

// SetStatus is the administrative override path. Any known status is accepted
// without consulting the transition table; every change is audited.
func (s *CampaignStore) SetStatus(campaignID uint, newStatus models.CampaignStatus, actor Actor) (*CampaignView, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("changing campaign status requires admin capability")
	}
	if !newStatus.Valid() {
		return nil, &LedgerError{
			Kind:    KindInvalidState,
			Reason:  fmt.Sprintf("unknown campaign status %q", newStatus),
			Allowed: statusNames(models.CampaignStatuses),
		}
	}

	var campaign *models.Campaign
	var previous models.CampaignStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		campaign, err = s.load(tx, campaignID)
		if err != nil {
			return err
		}
		if campaign.Status == newStatus {
			return &LedgerError{
				Kind:    KindInvalidState,
				Reason:  fmt.Sprintf("campaign %d is already %s", campaignID, newStatus),
				Allowed: statusNames(allowedTargets(campaign.Status)),
			}
		}
		previous = campaign.Status

		res := tx.Model(&models.Campaign{}).
			Where("id = ? AND version = ?", campaign.ID, campaign.Version).
			Updates(map[string]interface{}{
				"status":  newStatus,
				"version": gorm.Expr("version + ?", 1),
			})
		if res.Error != nil {
			return fmt.Errorf("update campaign %d status: %w", campaignID, res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("campaign %d was modified concurrently", campaignID)
		}
		campaign.Status = newStatus
		campaign.Version++

		audit := models.AuditLog{
			ActorID:  actor.ID,
			Action:   "campaign.set_status",
			Entity:   "campaign",
			EntityID: campaign.ID,
			Message:  fmt.Sprintf("status %s -> %s", previous, newStatus),
			Meta: models.JSONMap{
				"from":     string(previous),
				"to":       string(newStatus),
				"override": previous.Terminal(),
			},
		}
		return recordAudit(tx, audit)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"campaign_id": campaignID,
		"from":        previous,
		"to":          newStatus,
		"actor_id":    actor.ID,
	}).Warn("Campaign status changed by admin")

	s.publishStatus(campaign, previous)
	return s.view(campaign), nil
}

// closeIfExpired lazily applies the active -> closed expiry transition
func (s *CampaignStore) closeIfExpired(campaign *models.Campaign) error {
	if campaign.Status != models.CampaignStatusActive || campaign.IsFullyFunded() || !campaign.IsExpired(s.clock.now()) {
		return nil
	}
	changed, err := s.transitionTx(s.db, campaign, models.CampaignStatusActive, models.CampaignStatusClosed)
	if err != nil {
		return err
	}
	if changed {
		s.publishStatus(campaign, models.CampaignStatusActive)
	}
	return nil
}

// transitionTx flips status with a compare-and-swap guarded by the expected
// current status. Losing the race reloads the winner's status.
func (s *CampaignStore) transitionTx(tx *gorm.DB, campaign *models.Campaign, from, to models.CampaignStatus) (bool, error) {
	res := tx.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaign.ID, from).
		Updates(map[string]interface{}{
			"status":  to,
			"version": gorm.Expr("version + ?", 1),
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition campaign %d: %w", campaign.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		fresh, err := s.load(tx, campaign.ID)
		if err != nil {
			return false, err
		}
		*campaign = *fresh
		return false, nil
	}

	campaign.Status = to
	campaign.Version++
	log.WithFields(log.Fields{
		"campaign_id": campaign.ID,
		"from":        from,
		"to":          to,
		"current":     campaign.CurrentAmount,
		"target":      campaign.TargetAmount,
	}).Info("Campaign status transition")
	return true, nil
}

func (s *CampaignStore) load(tx *gorm.DB, id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := tx.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("campaign %d not found", id)
		}
		return nil, fmt.Errorf("load campaign %d: %w", id, err)
	}
	return &campaign, nil
}

func (s *CampaignStore) view(c *models.Campaign) *CampaignView {
	now := s.clock.now()
	return &CampaignView{
		Campaign:        *c,
		ProgressPercent: c.ProgressPercent(),
		IsExpired:       c.IsExpired(now),
		IsFullyFunded:   c.IsFullyFunded(),
		StatusDisplay:   c.StatusDisplay(now),
	}
}

func (s *CampaignStore) publishStatus(c *models.Campaign, from models.CampaignStatus) {
	evt := newEvent(EventCampaignStatus, s.clock.now())
	evt.CampaignID = c.ID
	evt.Amount = c.CurrentAmount
	evt.Data = map[string]interface{}{
		"from": string(from),
		"to":   string(c.Status),
	}
	s.publisher.Publish(evt)
}

// allowedTargets lists every status other than the current one
func allowedTargets(current models.CampaignStatus) []models.CampaignStatus {
	var targets []models.CampaignStatus
	for _, st := range models.CampaignStatuses {
		if st != current {
			targets = append(targets, st)
		}
	}
	return targets
}

func statusNames(statuses []models.CampaignStatus) []string {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return names
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
