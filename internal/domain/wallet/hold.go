package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// Hold is a reservation of funds against one auction. At most one
// active hold exists per (user, auction): a higher bid from the same
// user releases the old hold and creates a new one.
type Hold struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	AuctionID  uuid.UUID    `json:"auction_id"`
	Amount     values.Money `json:"amount"`
	Status     HoldStatus   `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	ReleasedAt *time.Time   `json:"released_at,omitempty"`
	CapturedAt *time.Time   `json:"captured_at,omitempty"`
}

// NewHold creates an active hold.
func NewHold(userID, auctionID uuid.UUID, amount values.Money) *Hold {
	return &Hold{
		ID:        uuid.New(),
		UserID:    userID,
		AuctionID: auctionID,
		Amount:    amount,
		Status:    HoldStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

// Release marks the hold released. Releasing a non-active hold is an
// InvalidHoldState error, not a crash.
func (h *Hold) Release() error {
	if h.Status != HoldStatusActive {
		return errors.ErrInvalidHoldState
	}
	now := time.Now().UTC()
	h.Status = HoldStatusReleased
	h.ReleasedAt = &now
	return nil
}

// Capture marks the hold captured.
func (h *Hold) Capture() error {
	if h.Status != HoldStatusActive {
		return errors.ErrInvalidHoldState
	}
	now := time.Now().UTC()
	h.Status = HoldStatusCaptured
	h.CapturedAt = &now
	return nil
}

type HoldStatus int

const (
	HoldStatusActive HoldStatus = iota
	HoldStatusReleased
	HoldStatusCaptured
)

func (s HoldStatus) String() string {
	switch s {
	case HoldStatusActive:
		return "active"
	case HoldStatusReleased:
		return "released"
	case HoldStatusCaptured:
		return "captured"
	default:
		return "unknown"
	}
}

// ParseHoldStatus converts a stored string into a HoldStatus.
func ParseHoldStatus(s string) HoldStatus {
	switch s {
	case "released":
		return HoldStatusReleased
	case "captured":
		return HoldStatusCaptured
	default:
		return HoldStatusActive
	}
}
