package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"stayly/internal/domain/shared/money"
)

const (
	PolicyFlexible = "flexible"
	PolicyModerate = "moderate"
	PolicyStrict   = "strict"
)

// CancellationPolicySnapshot is copied onto the booking so later policy edits do not apply.
type CancellationPolicySnapshot struct {
	PolicyID                  string
	FreeCancellationUntil     time.Time
	PreCheckInPenaltyPercent  int
	PostCheckInPenaltyPercent int
}

// SnapshotPolicy resolves a named policy relative to the stay's check-in.
func SnapshotPolicy(policyID string, checkIn time.Time) CancellationPolicySnapshot {
	switch policyID {
	case PolicyFlexible:
		return CancellationPolicySnapshot{PolicyID: policyID, FreeCancellationUntil: checkIn.Add(-24 * time.Hour), PreCheckInPenaltyPercent: 0, PostCheckInPenaltyPercent: 50}
	case PolicyModerate:
		return CancellationPolicySnapshot{PolicyID: policyID, FreeCancellationUntil: checkIn.AddDate(0, 0, -5), PreCheckInPenaltyPercent: 50, PostCheckInPenaltyPercent: 100}
	case PolicyStrict:
		return CancellationPolicySnapshot{PolicyID: policyID, FreeCancellationUntil: checkIn.AddDate(0, 0, -14), PreCheckInPenaltyPercent: 50, PostCheckInPenaltyPercent: 100}
	default:
		return CancellationPolicySnapshot{}
	}
}

// CalculateRefund splits total into refund and penalty. An empty policy refunds in full.
func (c CancellationPolicySnapshot) CalculateRefund(total money.Money, cancelAt, checkIn time.Time) (refund money.Money, penalty money.Money, err error) {
	if cancelAt.IsZero() {
		cancelAt = time.Now().UTC()
	}
	percent := 0
	switch {
	case c.PolicyID == "":
		percent = 0
	case cancelAt.Before(checkIn):
		if !c.FreeCancellationUntil.IsZero() && cancelAt.Before(c.FreeCancellationUntil) {
			percent = 0
		} else {
			percent = clampPercent(c.PreCheckInPenaltyPercent)
		}
	default:
		percent = clampPercent(c.PostCheckInPenaltyPercent)
	}
	penalty = total.Percent(decimal.NewFromInt(int64(percent)))
	refund, err = total.Sub(penalty)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return refund, penalty, nil
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
