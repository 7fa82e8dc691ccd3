package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/database"
	"github.com/tamaverse/pet-auction-backend/internal/service/market"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so one
// repository implementation serves both pool-scoped reads and
// transactional mutations.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements market.Store on PostgreSQL.
type Store struct {
	pool *database.Pool
	txStore
}

// txStore bundles repositories over one DBTX.
type txStore struct {
	auctions *auctionRepository
	wallets  *walletRepository
	pets     *petRepository
	profiles *profileRepository
	outbox   *outboxRepository
}

func newTxStore(db DBTX) txStore {
	return txStore{
		auctions: &auctionRepository{db: db},
		wallets:  &walletRepository{db: db},
		pets:     &petRepository{db: db},
		profiles: &profileRepository{db: db},
		outbox:   &outboxRepository{db: db},
	}
}

func (s txStore) Auctions() market.AuctionRepository { return s.auctions }
func (s txStore) Wallets() market.WalletRepository   { return s.wallets }
func (s txStore) Pets() market.PetRepository         { return s.pets }
func (s txStore) Profiles() market.ProfileRepository { return s.profiles }
func (s txStore) Outbox() market.OutboxRepository    { return s.outbox }

// NewStore creates a Store backed by the given pool.
func NewStore(pool *database.Pool) *Store {
	return &Store{
		pool:    pool,
		txStore: newTxStore(pool),
	}
}

// InTx runs fn with repositories bound to a single transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, ts market.TxStore) error) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, newTxStore(tx))
	})
}

// DrainOutbox claims up to limit undispatched events under a row lock,
// hands them to deliver, and stamps the ids deliver reports as sent.
// The claim and the stamp share one transaction, so a crashed
// dispatcher leaves unclaimed events for the next tick.
func (s *Store) DrainOutbox(ctx context.Context, limit int, deliver func(ctx context.Context, events []*event.Event) []uuid.UUID) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		repo := &outboxRepository{db: tx}
		events, err := repo.ListUndispatched(ctx, limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		sent := deliver(ctx, events)
		return repo.MarkDispatched(ctx, sent, time.Now())
	})
}

// GetTelegramChatID resolves a user's linked Telegram chat for the
// notification dispatcher.
func (s *Store) GetTelegramChatID(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	return s.profiles.GetTelegramChatID(ctx, userID)
}

// Healthy reports whether the underlying pool can serve queries.
func (s *Store) Healthy(ctx context.Context) error {
	if err := s.pool.HealthCheck(ctx); err != nil {
		return fmt.Errorf("store health: %w", err)
	}
	return nil
}
