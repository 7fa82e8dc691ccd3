package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	"github.com/tamaverse/pet-auction-backend/internal/domain/pet"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
	"github.com/tamaverse/pet-auction-backend/internal/domain/wallet"
)

// AuctionBuilder builds test auctions with sensible defaults.
type AuctionBuilder struct {
	a *auction.Auction
}

func NewAuctionBuilder() *AuctionBuilder {
	now := time.Now().UTC()
	return &AuctionBuilder{a: &auction.Auction{
		ID:               uuid.New(),
		PetID:            uuid.New(),
		SellerID:         uuid.New(),
		StartPrice:       values.NewCoins(100),
		CurrentPrice:     values.NewCoins(100),
		SoftCloseSeconds: 60,
		Status:           auction.StatusActive,
		Version:          1,
		CreatedAt:        now,
		EndTime:          now.Add(time.Hour),
		UpdatedAt:        now,
	}}
}

func (b *AuctionBuilder) WithID(id uuid.UUID) *AuctionBuilder {
	b.a.ID = id
	return b
}

func (b *AuctionBuilder) WithPet(petID uuid.UUID) *AuctionBuilder {
	b.a.PetID = petID
	return b
}

func (b *AuctionBuilder) WithSeller(sellerID uuid.UUID) *AuctionBuilder {
	b.a.SellerID = sellerID
	return b
}

func (b *AuctionBuilder) WithStartPrice(coins int64) *AuctionBuilder {
	b.a.StartPrice = values.NewCoins(coins)
	b.a.CurrentPrice = values.NewCoins(coins)
	return b
}

func (b *AuctionBuilder) WithCurrentPrice(coins int64) *AuctionBuilder {
	b.a.CurrentPrice = values.NewCoins(coins)
	return b
}

func (b *AuctionBuilder) WithBuyNow(coins int64) *AuctionBuilder {
	price := values.NewCoins(coins)
	b.a.BuyNowPrice = &price
	return b
}

func (b *AuctionBuilder) WithWinner(winnerID uuid.UUID) *AuctionBuilder {
	b.a.CurrentWinnerID = &winnerID
	return b
}

func (b *AuctionBuilder) WithStatus(status auction.Status) *AuctionBuilder {
	b.a.Status = status
	return b
}

func (b *AuctionBuilder) WithEndTime(t time.Time) *AuctionBuilder {
	b.a.EndTime = t
	return b
}

func (b *AuctionBuilder) Build() *auction.Auction {
	cp := *b.a
	return &cp
}

// WalletBuilder builds test wallets.
type WalletBuilder struct {
	w *wallet.Wallet
}

func NewWalletBuilder(userID uuid.UUID) *WalletBuilder {
	return &WalletBuilder{w: &wallet.Wallet{
		UserID:    userID,
		UpdatedAt: time.Now().UTC(),
	}}
}

func (b *WalletBuilder) WithBalance(coins int64) *WalletBuilder {
	b.w.Balance = values.NewCoins(coins)
	return b
}

func (b *WalletBuilder) WithLocked(coins int64) *WalletBuilder {
	b.w.Locked = values.NewCoins(coins)
	return b
}

func (b *WalletBuilder) Build() *wallet.Wallet {
	cp := *b.w
	return &cp
}

// PetBuilder builds test pets.
type PetBuilder struct {
	p *pet.Pet
}

func NewPetBuilder(ownerID uuid.UUID) *PetBuilder {
	now := time.Now().UTC()
	return &PetBuilder{p: &pet.Pet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      "Mochi",
		Stage:     pet.StageAdult,
		Status:    pet.LifeStatusAlive,
		Health:    100,
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

func (b *PetBuilder) WithID(id uuid.UUID) *PetBuilder {
	b.p.ID = id
	return b
}

func (b *PetBuilder) Dead() *PetBuilder {
	b.p.Status = pet.LifeStatusDead
	return b
}

func (b *PetBuilder) Build() *pet.Pet {
	cp := *b.p
	return &cp
}
