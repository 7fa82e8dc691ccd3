package market

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
	"github.com/tamaverse/pet-auction-backend/internal/domain/pet"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
	"github.com/tamaverse/pet-auction-backend/internal/domain/wallet"
)

// AuctionRepository persists auctions and their bid log.
type AuctionRepository interface {
	Create(ctx context.Context, a *auction.Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	// GetByIDForUpdate locks the auction row for the duration of the
	// surrounding transaction. Every mutation path goes through it so
	// concurrent bids on one auction serialize.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	// Update writes the auction back, guarded by its version.
	Update(ctx context.Context, a *auction.Auction) error
	List(ctx context.Context, status auction.Status, limit, offset int) ([]*auction.Auction, error)
	// ListDueIDs returns ids of active auctions whose end time has
	// passed. IDs only: each auction is re-read under lock in its own
	// finalization transaction.
	ListDueIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	CountActiveBySeller(ctx context.Context, sellerID uuid.UUID) (int, error)
	HasActiveForPet(ctx context.Context, petID uuid.UUID) (bool, error)
	CreateBid(ctx context.Context, b *auction.Bid) error
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error)
}

// WalletRepository persists wallets, holds and the transaction ledger.
type WalletRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
	GetByUserForUpdate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
	Create(ctx context.Context, w *wallet.Wallet) error
	Update(ctx context.Context, w *wallet.Wallet) error
	CreateHold(ctx context.Context, h *wallet.Hold) error
	GetActiveHold(ctx context.Context, userID, auctionID uuid.UUID) (*wallet.Hold, error)
	ListActiveHoldsByAuction(ctx context.Context, auctionID uuid.UUID) ([]*wallet.Hold, error)
	UpdateHold(ctx context.Context, h *wallet.Hold) error
	LogTransaction(ctx context.Context, t *wallet.Transaction) error
}

// PetRepository reads pets and performs ownership transfer.
type PetRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*pet.Pet, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*pet.Pet, error)
	// TransferOwner reassigns the pet; it fails with a conflict when
	// the current owner does not match from.
	TransferOwner(ctx context.Context, petID, from, to uuid.UUID) error
	AppendHistory(ctx context.Context, rec *pet.OwnershipRecord) error
}

// ProfileRepository resolves public display names for notifications.
type ProfileRepository interface {
	GetDisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

// OutboxRepository appends domain events to the outbox.
type OutboxRepository interface {
	Enqueue(ctx context.Context, e *event.Event) error
}

// TxStore bundles the repositories scoped to one transaction (or to
// the pool, for reads).
type TxStore interface {
	Auctions() AuctionRepository
	Wallets() WalletRepository
	Pets() PetRepository
	Profiles() ProfileRepository
	Outbox() OutboxRepository
}

// Store is the persistence entry point. InTx runs fn atomically: every
// repository obtained from the TxStore shares one transaction, and a
// returned error rolls the whole unit back.
type Store interface {
	TxStore
	InTx(ctx context.Context, fn func(ctx context.Context, s TxStore) error) error
}

// RateLimiter bounds how fast one user may bid.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Settler executes settlement inside a transaction already holding the
// auction row lock. Implemented by the settlement service; the market
// service calls it on the buy-now path.
type Settler interface {
	Settle(ctx context.Context, s TxStore, a *auction.Auction, winnerID uuid.UUID, finalPrice values.Money, skipHold bool) error
}
