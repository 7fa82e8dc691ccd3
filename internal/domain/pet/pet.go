package pet

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// Pet is the creature being raised and traded. The market only cares
// about identity, ownership and whether the pet is in a sellable state;
// growth and health ticking happen elsewhere.
type Pet struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	Name      string     `json:"name"`
	Stage     Stage      `json:"stage"`
	Status    LifeStatus `json:"status"`
	Health    int        `json:"health"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Sellable reports whether the pet may be listed on the market.
// Only living pets can be sold.
func (p *Pet) Sellable() bool {
	return p.Status == LifeStatusAlive
}

type LifeStatus int

const (
	LifeStatusAlive LifeStatus = iota
	LifeStatusDead
)

func (s LifeStatus) String() string {
	switch s {
	case LifeStatusAlive:
		return "alive"
	case LifeStatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ParseLifeStatus converts a stored string into a LifeStatus.
func ParseLifeStatus(s string) LifeStatus {
	if s == "dead" {
		return LifeStatusDead
	}
	return LifeStatusAlive
}

// Stage is the pet's growth stage. Carried for display; the market does
// not branch on it.
type Stage string

const (
	StageEgg   Stage = "egg"
	StageBaby  Stage = "baby"
	StageChild Stage = "child"
	StageAdult Stage = "adult"
)

// OwnershipRecord is an append-only entry of a pet changing hands.
// AuctionID is nil for transfers that did not go through the market.
type OwnershipRecord struct {
	ID         uuid.UUID    `json:"id"`
	PetID      uuid.UUID    `json:"pet_id"`
	FromUserID uuid.UUID    `json:"from_user_id"`
	ToUserID   uuid.UUID    `json:"to_user_id"`
	Price      values.Money `json:"price"`
	AuctionID  *uuid.UUID   `json:"auction_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewOwnershipRecord builds a market-transfer history entry.
func NewOwnershipRecord(petID, from, to uuid.UUID, price values.Money, auctionID *uuid.UUID) *OwnershipRecord {
	return &OwnershipRecord{
		ID:         uuid.New(),
		PetID:      petID,
		FromUserID: from,
		ToUserID:   to,
		Price:      price,
		AuctionID:  auctionID,
		CreatedAt:  time.Now().UTC(),
	}
}
