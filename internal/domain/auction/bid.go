package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// Bid is an immutable record of one accepted funds commitment. Bids are
// append-only: amounts are strictly increasing per auction, so the bid
// log doubles as the auction's price history.
type Bid struct {
	ID        uuid.UUID    `json:"id"`
	AuctionID uuid.UUID    `json:"auction_id"`
	BidderID  uuid.UUID    `json:"bidder_id"`
	Amount    values.Money `json:"amount"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewBid creates a bid record for an accepted amount.
func NewBid(auctionID, bidderID uuid.UUID, amount values.Money, now time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
}
