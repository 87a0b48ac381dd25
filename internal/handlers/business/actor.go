package business

import (
	"time"

	"coopledger/internal/models"
)

// Actor is the authenticated identity supplied by the session collaborator.
// The ledger trusts it and does not re-verify credentials.
type Actor struct {
	ID   uint
	Role models.MemberRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.MemberRoleAdmin
}

// Clock returns the wall-clock time used for accrual and expiry
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// ledgerClock is shared by every store of one Ledger
type ledgerClock struct {
	now Clock
}
