//go:build integration

package repository_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	domainerrors "github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
	"github.com/tamaverse/pet-auction-backend/internal/domain/wallet"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/config"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/database"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/repository"
	"github.com/tamaverse/pet-auction-backend/internal/service/market"
)

// startStore boots a disposable PostgreSQL container, applies the
// migrations and returns a Store bound to it.
func startStore(t *testing.T) (*repository.Store, *database.Pool) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pab_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../../migrations", connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	pool, err := database.NewPool(ctx, &config.DatabaseConfig{URL: connStr}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return repository.NewStore(pool), pool
}

func seedPet(t *testing.T, pool *database.Pool, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	petID := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO pets (id, owner_id, name, stage, status, health) VALUES ($1, $2, 'Mochi', 'adult', 'alive', 100)`,
		petID, ownerID)
	require.NoError(t, err)
	return petID
}

func seedWallet(t *testing.T, store *repository.Store, userID uuid.UUID, balance int64) {
	t.Helper()
	w := wallet.NewWallet(userID)
	w.Credit(values.NewCoins(balance))
	require.NoError(t, store.Wallets().Create(context.Background(), w))
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	store, pool := startStore(t)
	ctx := context.Background()

	t.Run("auction round trip with optimistic locking", func(t *testing.T) {
		sellerID := uuid.New()
		petID := seedPet(t, pool, sellerID)

		a := auction.NewAuction(petID, sellerID, values.NewCoins(100), time.Now().UTC(), auction.Params{
			Duration:         time.Hour,
			SoftCloseSeconds: 60,
		})
		require.NoError(t, store.Auctions().Create(ctx, a))

		got, err := store.Auctions().GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.True(t, got.CurrentPrice.Equal(values.NewCoins(100)))
		assert.Equal(t, auction.StatusActive, got.Status)

		count, err := store.Auctions().CountActiveBySeller(ctx, sellerID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		active, err := store.Auctions().HasActiveForPet(ctx, petID)
		require.NoError(t, err)
		assert.True(t, active)

		// Version bump succeeds once; replaying the same stale version
		// must fail instead of silently overwriting.
		got.CurrentPrice = values.NewCoins(150)
		got.Version++
		require.NoError(t, store.Auctions().Update(ctx, got))

		stale := *got
		err = store.Auctions().Update(ctx, &stale)
		require.Error(t, err)
		var appErr *domainerrors.AppError
		require.True(t, stderrors.As(err, &appErr))
		assert.Equal(t, domainerrors.ErrorTypeConflict, appErr.Type)
	})

	t.Run("missing auction maps to not found", func(t *testing.T) {
		_, err := store.Auctions().GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domainerrors.ErrAuctionNotFound)
	})

	t.Run("one active hold per bidder per auction", func(t *testing.T) {
		userID := uuid.New()
		auctionID := uuid.New()
		seedWallet(t, store, userID, 500)

		h := wallet.NewHold(userID, auctionID, values.NewCoins(120))
		require.NoError(t, store.Wallets().CreateHold(ctx, h))

		dup := wallet.NewHold(userID, auctionID, values.NewCoins(130))
		assert.Error(t, store.Wallets().CreateHold(ctx, dup))

		got, err := store.Wallets().GetActiveHold(ctx, userID, auctionID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Amount.Equal(values.NewCoins(120)))

		require.NoError(t, got.Release())
		require.NoError(t, store.Wallets().UpdateHold(ctx, got))

		got, err = store.Wallets().GetActiveHold(ctx, userID, auctionID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("pet transfer checks current owner", func(t *testing.T) {
		fromID := uuid.New()
		toID := uuid.New()
		petID := seedPet(t, pool, fromID)

		err := store.Pets().TransferOwner(ctx, petID, uuid.New(), toID)
		require.Error(t, err)

		require.NoError(t, store.Pets().TransferOwner(ctx, petID, fromID, toID))

		p, err := store.Pets().GetByID(ctx, petID)
		require.NoError(t, err)
		assert.Equal(t, toID, p.OwnerID)
	})

	t.Run("outbox drain stamps delivered events once", func(t *testing.T) {
		userID := uuid.New()
		err := store.InTx(ctx, func(ctx context.Context, ts market.TxStore) error {
			e, err := event.New(event.KindOutbid, &userID, event.OutbidPayload{
				AuctionID: uuid.New(),
				NewAmount: values.NewCoins(200),
			})
			if err != nil {
				return err
			}
			return ts.Outbox().Enqueue(ctx, e)
		})
		require.NoError(t, err)

		var delivered []*event.Event
		err = store.DrainOutbox(ctx, 10, func(ctx context.Context, events []*event.Event) []uuid.UUID {
			delivered = events
			ids := make([]uuid.UUID, len(events))
			for i, e := range events {
				ids[i] = e.ID
			}
			return ids
		})
		require.NoError(t, err)
		require.Len(t, delivered, 1)
		assert.Equal(t, event.KindOutbid, delivered[0].Kind)

		err = store.DrainOutbox(ctx, 10, func(ctx context.Context, events []*event.Event) []uuid.UUID {
			t.Errorf("expected empty outbox, got %d events", len(events))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("telegram chat lookup", func(t *testing.T) {
		userID := uuid.New()
		_, err := pool.Exec(ctx,
			`INSERT INTO user_profiles (user_id, display_name, telegram_chat_id) VALUES ($1, 'kumo', 42)`,
			userID)
		require.NoError(t, err)

		chatID, ok, err := store.GetTelegramChatID(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(42), chatID)

		_, ok, err = store.GetTelegramChatID(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
