package settlement_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
	"github.com/tamaverse/pet-auction-backend/internal/domain/wallet"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/config"
	"github.com/tamaverse/pet-auction-backend/internal/service/market"
	"github.com/tamaverse/pet-auction-backend/internal/service/settlement"
	"github.com/tamaverse/pet-auction-backend/internal/testutil"
)

func newService(store *testutil.MemStore) *settlement.Service {
	return settlement.NewService(store, config.MarketConfig{
		Enabled:             true,
		FeePercent:          5,
		SoftClose:           60 * time.Second,
		MinIncrementPercent: 5,
		MinIncrementAbs:     1,
		SweepInterval:       time.Minute,
	}, slog.Default())
}

// settle runs Settle inside a transaction like its production callers.
func settle(t *testing.T, store *testutil.MemStore, svc *settlement.Service, a *auction.Auction, winner uuid.UUID, price values.Money, skipHold bool) error {
	t.Helper()
	return store.InTx(context.Background(), func(ctx context.Context, ts market.TxStore) error {
		got, err := ts.Auctions().GetByIDForUpdate(ctx, a.ID)
		if err != nil {
			return err
		}
		return svc.Settle(ctx, ts, got, winner, price, skipHold)
	})
}

func TestService_Settle_NaturalWin(t *testing.T) {
	store := testutil.NewMemStore()
	seller := uuid.New()
	winner := uuid.New()

	p := testutil.NewPetBuilder(seller).Build()
	store.SeedPet(p)
	store.SeedWallet(testutil.NewWalletBuilder(seller).WithBalance(10).Build())
	store.SeedWallet(testutil.NewWalletBuilder(winner).WithBalance(1000).Build())
	store.SeedProfile(winner, "Kenji")

	a := testutil.NewAuctionBuilder().
		WithPet(p.ID).
		WithSeller(seller).
		WithStartPrice(100).
		WithCurrentPrice(300).
		WithWinner(winner).
		Build()
	store.SeedAuction(a)

	require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, ts market.TxStore) error {
		_, err := market.CreateHold(ctx, ts, winner, a.ID, values.NewCoins(300))
		return err
	}))

	svc := newService(store)
	require.NoError(t, settle(t, store, svc, a, winner, values.NewCoins(300), false))

	// Winner paid 300: hold consumed, balance down.
	w := store.Wallet(winner)
	assert.Equal(t, int64(700), w.Balance.Int64())
	assert.Equal(t, int64(0), w.Locked.Int64())

	// Seller got 285 (300 minus 5% fee of 15).
	sw := store.Wallet(seller)
	assert.Equal(t, int64(295), sw.Balance.Int64())

	// Ownership moved and was recorded.
	assert.Equal(t, winner, store.Pet(p.ID).OwnerID)
	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, int64(300), history[0].Price.Int64())
	assert.Equal(t, a.ID, *history[0].AuctionID)

	assert.Equal(t, auction.StatusCompleted, store.Auction(a.ID).Status)

	require.Len(t, store.EventsOfKind(event.KindAuctionWon), 1)
	require.Len(t, store.EventsOfKind(event.KindPetSold), 1)
	require.Len(t, store.EventsOfKind(event.KindSettled), 1)
}

func TestService_Settle_MissingHoldIsConsistencyError(t *testing.T) {
	store := testutil.NewMemStore()
	seller := uuid.New()
	winner := uuid.New()

	p := testutil.NewPetBuilder(seller).Build()
	store.SeedPet(p)
	store.SeedWallet(testutil.NewWalletBuilder(seller).Build())
	store.SeedWallet(testutil.NewWalletBuilder(winner).WithBalance(1000).Build())

	a := testutil.NewAuctionBuilder().
		WithPet(p.ID).
		WithSeller(seller).
		WithCurrentPrice(300).
		WithWinner(winner).
		Build()
	store.SeedAuction(a)

	svc := newService(store)
	err := settle(t, store, svc, a, winner, values.NewCoins(300), false)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConsistency))

	// Nothing moved.
	assert.Equal(t, seller, store.Pet(p.ID).OwnerID)
	assert.Equal(t, auction.StatusActive, store.Auction(a.ID).Status)
	assert.Equal(t, int64(1000), store.Wallet(winner).Balance.Int64())
}

func TestService_Settle_TerminalAuctionIsNoop(t *testing.T) {
	store := testutil.NewMemStore()
	seller := uuid.New()
	winner := uuid.New()

	a := testutil.NewAuctionBuilder().
		WithSeller(seller).
		WithWinner(winner).
		WithStatus(auction.StatusCompleted).
		Build()
	store.SeedAuction(a)

	svc := newService(store)
	require.NoError(t, settle(t, store, svc, a, winner, values.NewCoins(300), false))
	assert.Empty(t, store.Events())
	assert.Empty(t, store.History())
}

func TestService_Settle_BuyNowReleasesOtherHolds(t *testing.T) {
	store := testutil.NewMemStore()
	seller := uuid.New()
	bidder := uuid.New()
	buyer := uuid.New()

	p := testutil.NewPetBuilder(seller).Build()
	store.SeedPet(p)
	store.SeedWallet(testutil.NewWalletBuilder(seller).Build())
	store.SeedWallet(testutil.NewWalletBuilder(bidder).WithBalance(500).Build())
	store.SeedWallet(testutil.NewWalletBuilder(buyer).WithBalance(1000).Build())

	a := testutil.NewAuctionBuilder().
		WithPet(p.ID).
		WithSeller(seller).
		WithStartPrice(100).
		WithCurrentPrice(200).
		WithWinner(bidder).
		WithBuyNow(500).
		Build()
	store.SeedAuction(a)

	require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, ts market.TxStore) error {
		_, err := market.CreateHold(ctx, ts, bidder, a.ID, values.NewCoins(200))
		return err
	}))

	svc := newService(store)
	require.NoError(t, settle(t, store, svc, a, buyer, values.NewCoins(500), true))

	// Buyer paid the buy-now price directly.
	assert.Equal(t, int64(500), store.Wallet(buyer).Balance.Int64())

	// Displaced bidder's hold is released, funds free again.
	bw := store.Wallet(bidder)
	assert.Equal(t, int64(500), bw.Balance.Int64())
	assert.Equal(t, int64(0), bw.Locked.Int64())
	for _, h := range store.Holds(a.ID) {
		assert.Equal(t, wallet.HoldStatusReleased, h.Status)
	}

	// Seller net of 500 at 5% fee.
	assert.Equal(t, int64(475), store.Wallet(seller).Balance.Int64())
	assert.Equal(t, buyer, store.Pet(p.ID).OwnerID)
	assert.Equal(t, auction.StatusCompleted, store.Auction(a.ID).Status)

	settled := store.EventsOfKind(event.KindSettled)
	require.Len(t, settled, 1)
}

func TestService_Settle_BuyNowInsufficientFunds(t *testing.T) {
	store := testutil.NewMemStore()
	seller := uuid.New()
	buyer := uuid.New()

	p := testutil.NewPetBuilder(seller).Build()
	store.SeedPet(p)
	store.SeedWallet(testutil.NewWalletBuilder(seller).Build())
	store.SeedWallet(testutil.NewWalletBuilder(buyer).WithBalance(100).Build())

	a := testutil.NewAuctionBuilder().
		WithPet(p.ID).
		WithSeller(seller).
		WithBuyNow(500).
		Build()
	store.SeedAuction(a)

	svc := newService(store)
	err := settle(t, store, svc, a, buyer, values.NewCoins(500), true)
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
	assert.Equal(t, auction.StatusActive, store.Auction(a.ID).Status)
	assert.Equal(t, seller, store.Pet(p.ID).OwnerID)
}

func TestService_FinalizeDue(t *testing.T) {
	ctx := context.Background()

	t.Run("settles due auction with winner and expires no-bid auction", func(t *testing.T) {
		store := testutil.NewMemStore()
		seller := uuid.New()
		winner := uuid.New()
		now := time.Now().UTC()

		wonPet := testutil.NewPetBuilder(seller).Build()
		store.SeedPet(wonPet)
		store.SeedWallet(testutil.NewWalletBuilder(seller).Build())
		store.SeedWallet(testutil.NewWalletBuilder(winner).WithBalance(1000).Build())

		withBids := testutil.NewAuctionBuilder().
			WithPet(wonPet.ID).
			WithSeller(seller).
			WithCurrentPrice(300).
			WithWinner(winner).
			WithEndTime(now.Add(-time.Minute)).
			Build()
		store.SeedAuction(withBids)

		require.NoError(t, store.InTx(ctx, func(ctx context.Context, ts market.TxStore) error {
			_, err := market.CreateHold(ctx, ts, winner, withBids.ID, values.NewCoins(300))
			return err
		}))

		unsoldPet := testutil.NewPetBuilder(seller).Build()
		store.SeedPet(unsoldPet)
		noBids := testutil.NewAuctionBuilder().
			WithPet(unsoldPet.ID).
			WithSeller(seller).
			WithEndTime(now.Add(-time.Minute)).
			Build()
		store.SeedAuction(noBids)

		svc := newService(store)
		settled, expired, err := svc.FinalizeDue(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, settled)
		assert.Equal(t, 1, expired)

		assert.Equal(t, auction.StatusCompleted, store.Auction(withBids.ID).Status)
		assert.Equal(t, winner, store.Pet(wonPet.ID).OwnerID)

		assert.Equal(t, auction.StatusExpired, store.Auction(noBids.ID).Status)
		assert.Equal(t, seller, store.Pet(unsoldPet.ID).OwnerID)

		expiredEvents := store.EventsOfKind(event.KindAuctionExpired)
		require.Len(t, expiredEvents, 1)
		assert.Equal(t, seller, *expiredEvents[0].UserID)
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		store := testutil.NewMemStore()
		seller := uuid.New()
		now := time.Now().UTC()

		p := testutil.NewPetBuilder(seller).Build()
		store.SeedPet(p)
		a := testutil.NewAuctionBuilder().
			WithPet(p.ID).
			WithSeller(seller).
			WithEndTime(now.Add(-time.Minute)).
			Build()
		store.SeedAuction(a)

		svc := newService(store)
		_, expired, err := svc.FinalizeDue(ctx, now)
		require.NoError(t, err)
		require.Equal(t, 1, expired)

		settled, expired, err := svc.FinalizeDue(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, settled)
		assert.Zero(t, expired)
		assert.Len(t, store.EventsOfKind(event.KindAuctionExpired), 1)
	})

	t.Run("one failing auction does not stop the sweep", func(t *testing.T) {
		store := testutil.NewMemStore()
		seller := uuid.New()
		ghost := uuid.New()
		now := time.Now().UTC()

		// Winner with no hold: settlement hits a consistency error.
		brokenPet := testutil.NewPetBuilder(seller).Build()
		store.SeedPet(brokenPet)
		store.SeedWallet(testutil.NewWalletBuilder(seller).Build())
		store.SeedWallet(testutil.NewWalletBuilder(ghost).WithBalance(1000).Build())
		broken := testutil.NewAuctionBuilder().
			WithPet(brokenPet.ID).
			WithSeller(seller).
			WithCurrentPrice(300).
			WithWinner(ghost).
			WithEndTime(now.Add(-2 * time.Minute)).
			Build()
		store.SeedAuction(broken)

		healthyPet := testutil.NewPetBuilder(seller).Build()
		store.SeedPet(healthyPet)
		healthy := testutil.NewAuctionBuilder().
			WithPet(healthyPet.ID).
			WithSeller(seller).
			WithEndTime(now.Add(-time.Minute)).
			Build()
		store.SeedAuction(healthy)

		svc := newService(store)
		settled, expired, err := svc.FinalizeDue(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, settled)
		assert.Equal(t, 1, expired)

		// The broken auction stays active for the operator to inspect.
		assert.Equal(t, auction.StatusActive, store.Auction(broken.ID).Status)
		assert.Equal(t, auction.StatusExpired, store.Auction(healthy.ID).Status)
	})
}
