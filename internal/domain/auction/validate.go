package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// IncrementDefaults are the global minimum-increment settings applied
// when an auction carries no overrides.
type IncrementDefaults struct {
	Abs int64
	Pct int64
}

// MinimumNextBid computes the smallest admissible bid:
//
//	current + max(floor(current * pct / 100), abs)
//
// Per-auction overrides win over the defaults, except that the absolute
// increment is never allowed below the global floor. Equal-to-current
// bids are always rejected because the margin is at least one coin.
func MinimumNextBid(current values.Money, incAbs, incPct *int64, defaults IncrementDefaults) values.Money {
	pct := defaults.Pct
	if incPct != nil {
		pct = *incPct
	}
	abs := defaults.Abs
	if incAbs != nil && *incAbs > defaults.Abs {
		abs = *incAbs
	}

	pctInc := current.PercentFloor(pct)
	return current.Add(pctInc.Max(values.NewCoins(abs)))
}

// ValidateBid decides whether a proposed bid is admissible. It is
// side-effect free; callers check funds availability separately.
func ValidateBid(a *Auction, bidder uuid.UUID, amount values.Money, now time.Time, defaults IncrementDefaults) error {
	if !amount.IsPositive() {
		return errors.NewValidationError("INVALID_BID_AMOUNT", "bid amount must be positive")
	}
	if a.Status != StatusActive {
		return errors.ErrAuctionNotActive
	}
	if a.Due(now) {
		return errors.ErrAuctionEnded
	}
	if a.SellerID == bidder {
		return errors.NewForbiddenError("cannot bid on your own auction")
	}

	minNext := MinimumNextBid(a.CurrentPrice, a.MinIncrementAbs, a.MinIncrementPct, defaults)
	if amount.LessThan(minNext) {
		return errors.NewBusinessError("BID_TOO_LOW", fmt.Sprintf("bid too low: minimum is %s", minNext))
	}
	return nil
}
