package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// Auction is a timed sale listing for exactly one pet. CurrentPrice is
// monotonically non-decreasing while active and tracks the highest
// accepted bid, or StartPrice before any bid. Version backs optimistic
// concurrency on top of the row lock taken during mutation.
type Auction struct {
	ID               uuid.UUID     `json:"id"`
	PetID            uuid.UUID     `json:"pet_id"`
	SellerID         uuid.UUID     `json:"seller_id"`
	StartPrice       values.Money  `json:"start_price"`
	CurrentPrice     values.Money  `json:"current_price"`
	BuyNowPrice      *values.Money `json:"buy_now_price,omitempty"`
	MinIncrementAbs  *int64        `json:"min_increment_abs,omitempty"`
	MinIncrementPct  *int64        `json:"min_increment_pct,omitempty"`
	SoftCloseSeconds int64         `json:"soft_close_seconds"`
	Status           Status        `json:"status"`
	CurrentWinnerID  *uuid.UUID    `json:"current_winner_id,omitempty"`
	Version          int64         `json:"-"`
	CreatedAt        time.Time     `json:"created_at"`
	EndTime          time.Time     `json:"end_time"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Params carries optional per-auction overrides for NewAuction. Zero
// values fall back to configured defaults.
type Params struct {
	Duration         time.Duration
	BuyNowPrice      *values.Money
	MinIncrementAbs  *int64
	MinIncrementPct  *int64
	SoftCloseSeconds int64
}

// NewAuction creates an active auction ending at now + duration.
// Ownership and sellability preconditions are the caller's job.
func NewAuction(petID, sellerID uuid.UUID, startPrice values.Money, now time.Time, p Params) *Auction {
	return &Auction{
		ID:               uuid.New(),
		PetID:            petID,
		SellerID:         sellerID,
		StartPrice:       startPrice,
		CurrentPrice:     startPrice,
		BuyNowPrice:      p.BuyNowPrice,
		MinIncrementAbs:  p.MinIncrementAbs,
		MinIncrementPct:  p.MinIncrementPct,
		SoftCloseSeconds: p.SoftCloseSeconds,
		Status:           StatusActive,
		Version:          1,
		CreatedAt:        now,
		EndTime:          now.Add(p.Duration),
		UpdatedAt:        now,
	}
}

// IsTerminal reports whether the auction has reached a final state.
// Terminal states never transition again; this is the idempotency gate
// for settlement.
func (a *Auction) IsTerminal() bool {
	return a.Status != StatusActive
}

// HasBids reports whether any bid has ever been accepted.
func (a *Auction) HasBids() bool {
	return a.CurrentWinnerID != nil
}

// Due reports whether the auction's end time has passed.
func (a *Auction) Due(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// ApplyBid records an accepted bid: price and leader move, and a bid
// inside the soft-close window pushes the end time out to now +
// soft-close (every qualifying late bid extends again; there is no cap).
// Validation must have happened already.
func (a *Auction) ApplyBid(bidder uuid.UUID, amount values.Money, now time.Time, defaultSoftClose time.Duration) {
	a.CurrentPrice = amount
	bidderCopy := bidder
	a.CurrentWinnerID = &bidderCopy

	softClose := time.Duration(a.SoftCloseSeconds) * time.Second
	if softClose <= 0 {
		softClose = defaultSoftClose
	}
	if a.EndTime.Sub(now) <= softClose {
		a.EndTime = now.Add(softClose)
	}

	a.Version++
	a.UpdatedAt = now
}

// Complete transitions the auction to its terminal sold state.
func (a *Auction) Complete(now time.Time) {
	a.Status = StatusCompleted
	a.Version++
	a.UpdatedAt = now
}

// Cancel transitions the auction to cancelled.
func (a *Auction) Cancel(now time.Time) {
	a.Status = StatusCancelled
	a.Version++
	a.UpdatedAt = now
}

// Expire transitions the auction to expired (ended with no bids).
func (a *Auction) Expire(now time.Time) {
	a.Status = StatusExpired
	a.Version++
	a.UpdatedAt = now
}

type Status int

const (
	StatusActive Status = iota
	StatusCompleted
	StatusCancelled
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored string into a Status.
func ParseStatus(s string) Status {
	switch s {
	case "completed":
		return StatusCompleted
	case "cancelled":
		return StatusCancelled
	case "expired":
		return StatusExpired
	default:
		return StatusActive
	}
}
