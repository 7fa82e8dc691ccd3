package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// Kind identifies a domain event emitted by the market core.
type Kind string

const (
	KindBidAccepted    Kind = "auction.bid_accepted"
	KindOutbid         Kind = "auction.outbid"
	KindAuctionWon     Kind = "auction.won"
	KindPetSold        Kind = "auction.sold"
	KindAuctionExpired Kind = "auction.expired"
	KindSettled        Kind = "auction.settled"
)

// Event is an outbox row. Events are written in the same transaction as
// the state change they describe; the dispatcher delivers them
// afterwards, so notification failures can never roll back settlement.
// UserID is nil for purely observational events.
type Event struct {
	ID           uuid.UUID       `json:"id"`
	Kind         Kind            `json:"kind"`
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	DispatchedAt *time.Time      `json:"dispatched_at,omitempty"`
}

// New builds an outbox event addressed to a user. The payload must be
// JSON-marshalable; a marshal failure is a programming error.
func New(kind Kind, userID *uuid.UUID, payload interface{}) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return &Event{
		ID:        uuid.New(),
		Kind:      kind,
		UserID:    userID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// BidAcceptedPayload accompanies KindBidAccepted.
type BidAcceptedPayload struct {
	AuctionID uuid.UUID    `json:"auction_id"`
	BidderID  uuid.UUID    `json:"bidder_id"`
	Amount    values.Money `json:"amount"`
	EndTime   time.Time    `json:"end_time"`
}

// OutbidPayload accompanies KindOutbid; addressed to the displaced
// leader.
type OutbidPayload struct {
	AuctionID uuid.UUID    `json:"auction_id"`
	NewAmount values.Money `json:"new_amount"`
}

// WonPayload accompanies KindAuctionWon; addressed to the winner.
type WonPayload struct {
	AuctionID  uuid.UUID    `json:"auction_id"`
	PetID      uuid.UUID    `json:"pet_id"`
	FinalPrice values.Money `json:"final_price"`
}

// SoldPayload accompanies KindPetSold; addressed to the seller.
type SoldPayload struct {
	AuctionID uuid.UUID    `json:"auction_id"`
	PetID     uuid.UUID    `json:"pet_id"`
	SellerNet values.Money `json:"seller_net"`
	BuyerName string       `json:"buyer_name"`
}

// ExpiredPayload accompanies KindAuctionExpired; addressed to the
// seller of an auction that ended without bids.
type ExpiredPayload struct {
	AuctionID uuid.UUID `json:"auction_id"`
	PetID     uuid.UUID `json:"pet_id"`
}

// SettledPayload accompanies KindSettled, the observational record of a
// completed settlement.
type SettledPayload struct {
	AuctionID  uuid.UUID    `json:"auction_id"`
	PetID      uuid.UUID    `json:"pet_id"`
	SellerID   uuid.UUID    `json:"seller_id"`
	WinnerID   uuid.UUID    `json:"winner_id"`
	FinalPrice values.Money `json:"final_price"`
	Fee        values.Money `json:"fee"`
	BuyNow     bool         `json:"buy_now"`
}
