package business

import (
	"errors"
	"fmt"
	"strings"

	"coopledger/internal/models"
	"coopledger/pkg/config"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MemberRegistry registers members and exposes their referral tree
type MemberRegistry struct {
	db        *gorm.DB
	clock     *ledgerClock
	settings  config.LedgerSettings
	cascade   *CommissionCascade
	publisher EventPublisher
}

// RegisterInput is the payload of a new member registration
type RegisterInput struct {
	Username     string
	ReferralCode string
	Role         models.MemberRole
}

// Registration is the outcome of Register. Cascade is nil when no commission ran.
type Registration struct {
	Member  *models.Member `json:"member"`
	Cascade *CascadeResult `json:"cascade,omitempty"`
}

// MemberSummary is a downline entry
type MemberSummary struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	ReferredBy uint   `json:"referred_by"`
}

// Downline groups the members below one referrer by level
type Downline struct {
	Level1 []MemberSummary `json:"level1"`
	Level2 []MemberSummary `json:"level2"`
	Level3 []MemberSummary `json:"level3"`
}

// Register creates a member with a zero wallet. The referral code may be a
// member's referral code or username. Cascade failures never fail registration.
func (r *MemberRegistry) Register(in RegisterInput) (*Registration, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, invalidInput("username is required")
	}
	role := in.Role
	if role == "" {
		role = models.MemberRoleMember
	}
	if role != models.MemberRoleMember && role != models.MemberRoleAdmin {
		return nil, invalidInput("unknown role %q", role)
	}

	member := models.Member{
		Username:     username,
		ReferralCode: newReferralCode(),
		Role:         role,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Member{}).Where("username = ?", username).Count(&taken).Error; err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken > 0 {
			return invalidInput("username %q is already registered", username)
		}

		if code := strings.TrimSpace(in.ReferralCode); code != "" {
			var referrer models.Member
			err := tx.Where("referral_code = ? OR username = ?", strings.ToUpper(code), code).First(&referrer).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("referral code %q not found", code)
				}
				return fmt.Errorf("resolve referral code: %w", err)
			}
			member.ReferredBy = &referrer.ID
		}

		return insertMember(tx, &member)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"member_id":   member.ID,
		"username":    member.Username,
		"referred_by": member.ReferredBy,
	}).Info("Member registered")

	evt := newEvent(EventMemberRegistered, r.clock.now())
	evt.MemberID = member.ID
	r.publisher.Publish(evt)

	reg := &Registration{Member: &member}
	if member.ReferredBy != nil && r.settings.CommissionTrigger == models.TriggerRegistration {
		reg.Cascade = r.cascade.Run(member.ID, TriggerKey(models.TriggerRegistration, 0))
	}
	return reg, nil
}

// insertMember creates the row. A registration that raced past the username
// check trips the unique index and is reported like the check itself.
func insertMember(tx *gorm.DB, member *models.Member) error {
	if err := tx.Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return invalidInput("username %q is already registered", member.Username)
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// Get loads a member with its wallet
func (r *MemberRegistry) Get(id uint) (*models.Member, error) {
	return loadMember(r.db, id)
}

// Downline returns the referral tree below a member, three levels deep
func (r *MemberRegistry) Downline(id uint) (*Downline, error) {
	if _, err := loadMember(r.db, id); err != nil {
		return nil, err
	}

	levels := make([][]MemberSummary, MaxCascadeLevels)
	parents := []uint{id}
	for depth := 0; depth < MaxCascadeLevels && len(parents) > 0; depth++ {
		var members []models.Member
		if err := r.db.Where("referred_by IN ?", parents).Order("id asc").Find(&members).Error; err != nil {
			return nil, fmt.Errorf("load downline level %d: %w", depth+1, err)
		}
		parents = parents[:0]
		for _, m := range members {
			levels[depth] = append(levels[depth], MemberSummary{ID: m.ID, Username: m.Username, ReferredBy: *m.ReferredBy})
			parents = append(parents, m.ID)
		}
	}

	return &Downline{Level1: levels[0], Level2: levels[1], Level3: levels[2]}, nil
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
