package business

import (
	"errors"
	"strings"
	"testing"

	"coopledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberRegistry(t *testing.T) {
	t.Run("Register Starts With Zero Wallet", func(t *testing.T) {
		tl := newTestLedger(t)
		reg, err := tl.Members.Register(RegisterInput{Username: "  alice  "})
		require.NoError(t, err)

		m := reg.Member
		assert.Equal(t, "alice", m.Username)
		assert.Equal(t, models.MemberRoleMember, m.Role)
		assert.Len(t, m.ReferralCode, 10)
		assert.Equal(t, strings.ToUpper(m.ReferralCode), m.ReferralCode)
		assert.Nil(t, m.ReferredBy)
		assert.Nil(t, reg.Cascade)
		assert.Equal(t, models.Wallet{}, m.Wallet)
		assert.Len(t, tl.events.ofType(EventMemberRegistered), 2) // root + alice
	})

	t.Run("Referral Resolves By Code Or Username", func(t *testing.T) {
		tl := newTestLedger(t)
		a := tl.member(t, "alice", "")

		byCode := tl.member(t, "bob", strings.ToLower(a.ReferralCode))
		require.NotNil(t, byCode.ReferredBy)
		assert.Equal(t, a.ID, *byCode.ReferredBy)

		byName := tl.member(t, "carol", "alice")
		require.NotNil(t, byName.ReferredBy)
		assert.Equal(t, a.ID, *byName.ReferredBy)
	})

	t.Run("Unknown Referral Code", func(t *testing.T) {
		tl := newTestLedger(t)

		_, err := tl.Members.Register(RegisterInput{Username: "bob", ReferralCode: "NOPE"})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Duplicate Or Empty Username", func(t *testing.T) {
		tl := newTestLedger(t)
		tl.member(t, "alice", "")

		_, err := tl.Members.Register(RegisterInput{Username: "alice"})
		assert.True(t, errors.Is(err, ErrInvalidInput))

		_, err = tl.Members.Register(RegisterInput{Username: " "})
		assert.True(t, errors.Is(err, ErrInvalidInput))

		_, err = tl.Members.Register(RegisterInput{Username: "eve", Role: "owner"})
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("Username Race Loser Gets Invalid Input", func(t *testing.T) {
		tl := newTestLedger(t)
		winner := tl.member(t, "alice", "")

		// the username check already passed for the loser
		err := insertMember(tl.Members.db, &models.Member{Username: winner.Username, ReferralCode: "LATECOMER1"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))

		var count int64
		require.NoError(t, tl.Members.db.Model(&models.Member{}).Where("username = ?", "alice").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Downline Three Levels Deep", func(t *testing.T) {
		tl := newTestLedger(t)
		a := tl.member(t, "a", "")
		b1 := tl.member(t, "b1", "a")
		tl.member(t, "b2", "a")
		c := tl.member(t, "c", "b1")
		d := tl.member(t, "d", "c")
		tl.member(t, "e", "d")

		down, err := tl.Members.Downline(a.ID)
		require.NoError(t, err)
		require.Len(t, down.Level1, 2)
		assert.Equal(t, "b1", down.Level1[0].Username)
		require.Len(t, down.Level2, 1)
		assert.Equal(t, c.ID, down.Level2[0].ID)
		assert.Equal(t, b1.ID, down.Level2[0].ReferredBy)
		require.Len(t, down.Level3, 1)
		assert.Equal(t, d.ID, down.Level3[0].ID)

		_, err = tl.Members.Downline(999)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}
