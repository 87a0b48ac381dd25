package business

import (
	"math"
	"time"

	"coopledger/internal/models"
)

// Accrual is the time-proportional state of an investment at one instant
type Accrual struct {
	Progress         int
	CurrentProfit    int64
	CanWithdrawEarly bool
	Matured          bool
}

// ComputeAccrual derives progress and profit from the investment terms and now.
// Profit accrues linearly with no compounding; it is rounded once here.
func ComputeAccrual(amount, expectedReturn int64, start, maturity, now time.Time, lock time.Duration) Accrual {
	elapsed := now.Sub(start)
	total := maturity.Sub(start)

	progress := 100
	if total > 0 {
		ratio := float64(elapsed) / float64(total)
		progress = int(math.Round(100 * ratio))
		if progress > 100 {
			progress = 100
		}
		if progress < 0 {
			progress = 0
		}
	}

	return Accrual{
		Progress:         progress,
		CurrentProfit:    PercentOf(expectedReturn-amount, int64(progress)),
		CanWithdrawEarly: elapsed > lock,
		Matured:          !now.Before(maturity),
	}
}

// accrualFor applies ComputeAccrual to a stored investment
func accrualFor(inv *models.Investment, now time.Time, lock time.Duration) Accrual {
	return ComputeAccrual(inv.Amount, inv.ExpectedReturn, inv.InvestmentDate, inv.MaturityDate, now, lock)
}
