package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainerrors "github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/wallet"
)

// walletRepository implements market.WalletRepository using PostgreSQL.
type walletRepository struct {
	db DBTX
}

const walletColumns = `user_id, balance, locked, total_earned, total_spent, updated_at`

// GetByUser retrieves a user's wallet.
func (r *walletRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

// GetByUserForUpdate retrieves a wallet with a row lock. Bid and
// settlement paths lock wallets before mutating balances.
func (r *walletRepository) GetByUserForUpdate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

// Create stores a fresh wallet.
func (r *walletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (user_id, balance, locked, total_earned, total_spent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		w.UserID, w.Balance.Int64(), w.Locked.Int64(),
		w.TotalEarned.Int64(), w.TotalSpent.Int64(), w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// Update writes wallet balances back.
func (r *walletRepository) Update(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $2, locked = $3, total_earned = $4, total_spent = $5, updated_at = $6
		WHERE user_id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		w.UserID, w.Balance.Int64(), w.Locked.Int64(),
		w.TotalEarned.Int64(), w.TotalSpent.Int64(), w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrWalletNotFound
	}
	return nil
}

// CreateHold stores a new active hold. The partial unique index on
// (user_id, auction_id) WHERE status = 'active' rejects a second
// concurrent hold for the same bidder and auction.
func (r *walletRepository) CreateHold(ctx context.Context, h *wallet.Hold) error {
	query := `
		INSERT INTO wallet_holds (id, user_id, auction_id, amount, status, created_at, released_at, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		h.ID, h.UserID, h.AuctionID, h.Amount.Int64(),
		h.Status.String(), h.CreatedAt, h.ReleasedAt, h.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

// GetActiveHold finds the user's active hold for an auction. A nil
// hold with a nil error means no active hold exists.
func (r *walletRepository) GetActiveHold(ctx context.Context, userID, auctionID uuid.UUID) (*wallet.Hold, error) {
	query := `
		SELECT id, user_id, auction_id, amount, status, created_at, released_at, captured_at
		FROM wallet_holds
		WHERE user_id = $1 AND auction_id = $2 AND status = 'active'
	`

	h, err := scanHold(r.db.QueryRow(ctx, query, userID, auctionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active hold: %w", err)
	}
	return h, nil
}

// ListActiveHoldsByAuction returns every active hold against an
// auction. Settlement releases the losers' holds from this set.
func (r *walletRepository) ListActiveHoldsByAuction(ctx context.Context, auctionID uuid.UUID) ([]*wallet.Hold, error) {
	query := `
		SELECT id, user_id, auction_id, amount, status, created_at, released_at, captured_at
		FROM wallet_holds
		WHERE auction_id = $1 AND status = 'active'
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active holds: %w", err)
	}
	defer rows.Close()

	var holds []*wallet.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return holds, nil
}

// UpdateHold writes a hold's status transition back.
func (r *walletRepository) UpdateHold(ctx context.Context, h *wallet.Hold) error {
	query := `
		UPDATE wallet_holds
		SET status = $2, released_at = $3, captured_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, h.ID, h.Status.String(), h.ReleasedAt, h.CapturedAt)
	if err != nil {
		return fmt.Errorf("failed to update hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.NewNotFoundError("hold")
	}
	return nil
}

// LogTransaction appends a ledger entry.
func (r *walletRepository) LogTransaction(ctx context.Context, t *wallet.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (id, user_id, type, amount, balance_before, balance_after, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var metadata []byte
	if t.Metadata != nil {
		var err error
		metadata, err = json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
	}

	_, err := r.db.Exec(ctx, query,
		t.ID, t.UserID, string(t.Type), t.Amount.Int64(),
		t.BalanceBefore.Int64(), t.BalanceAfter.Int64(),
		t.Description, metadata, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log transaction: %w", err)
	}
	return nil
}

func (r *walletRepository) scanOne(row pgx.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(&w.UserID, &w.Balance, &w.Locked, &w.TotalEarned, &w.TotalSpent, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

func scanHold(row pgx.Row) (*wallet.Hold, error) {
	var h wallet.Hold
	var statusStr string
	err := row.Scan(&h.ID, &h.UserID, &h.AuctionID, &h.Amount, &statusStr, &h.CreatedAt, &h.ReleasedAt, &h.CapturedAt)
	if err != nil {
		return nil, err
	}
	h.Status = wallet.ParseHoldStatus(statusStr)
	return &h, nil
}
