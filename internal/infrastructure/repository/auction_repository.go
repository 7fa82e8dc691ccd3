package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	domainerrors "github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// auctionRepository implements market.AuctionRepository using PostgreSQL.
type auctionRepository struct {
	db DBTX
}

const auctionColumns = `
	id, pet_id, seller_id, start_price, current_price, buy_now_price,
	min_increment_abs, min_increment_pct, soft_close_seconds, status,
	current_winner_id, version, created_at, end_time, updated_at`

// Create stores a new auction.
func (r *auctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (
			id, pet_id, seller_id, start_price, current_price, buy_now_price,
			min_increment_abs, min_increment_pct, soft_close_seconds, status,
			current_winner_id, version, created_at, end_time, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
	`

	var buyNow interface{}
	if a.BuyNowPrice != nil {
		buyNow = a.BuyNowPrice.Int64()
	}

	_, err := r.db.Exec(ctx, query,
		a.ID, a.PetID, a.SellerID, a.StartPrice.Int64(), a.CurrentPrice.Int64(), buyNow,
		a.MinIncrementAbs, a.MinIncrementPct, a.SoftCloseSeconds, a.Status.String(),
		a.CurrentWinnerID, a.Version, a.CreatedAt, a.EndTime, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

// GetByID retrieves an auction by id.
func (r *auctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT` + auctionColumns + ` FROM auctions WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves an auction with a row lock. Only valid
// inside a transaction; the lock is held until commit or rollback.
func (r *auctionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// Update writes the auction back. The version predicate makes lost
// updates impossible even if a caller skipped the row lock.
func (r *auctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET
			current_price = $2,
			status = $3,
			current_winner_id = $4,
			end_time = $5,
			version = $6,
			updated_at = $7
		WHERE id = $1 AND version = $6 - 1
	`

	tag, err := r.db.Exec(ctx, query,
		a.ID, a.CurrentPrice.Int64(), a.Status.String(), a.CurrentWinnerID,
		a.EndTime, a.Version, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.NewConflictError(fmt.Sprintf("auction %s was modified concurrently", a.ID))
	}
	return nil
}

// List returns auctions in the given status ordered by soonest ending.
func (r *auctionRepository) List(ctx context.Context, status auction.Status, limit, offset int) ([]*auction.Auction, error) {
	query := `SELECT` + auctionColumns + `
		FROM auctions
		WHERE status = $1
		ORDER BY end_time ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, status.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return auctions, nil
}

// ListDueIDs returns ids of active auctions whose end time has passed.
func (r *auctionRepository) ListDueIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM auctions
		WHERE status = 'active' AND end_time <= $1
		ORDER BY end_time ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return ids, nil
}

// CountActiveBySeller counts a seller's active auctions for the
// per-user cap.
func (r *auctionRepository) CountActiveBySeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM auctions WHERE seller_id = $1 AND status = 'active'`,
		sellerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active auctions: %w", err)
	}
	return count, nil
}

// HasActiveForPet reports whether the pet already has an active listing.
func (r *auctionRepository) HasActiveForPet(ctx context.Context, petID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM auctions WHERE pet_id = $1 AND status = 'active')`,
		petID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active auction for pet: %w", err)
	}
	return exists, nil
}

// CreateBid appends an accepted bid to the auction's bid log.
func (r *auctionRepository) CreateBid(ctx context.Context, b *auction.Bid) error {
	query := `
		INSERT INTO auction_bids (id, auction_id, bidder_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, b.ID, b.AuctionID, b.BidderID, b.Amount.Int64(), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}
	return nil
}

// ListBids returns the auction's bids, newest first.
func (r *auctionRepository) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM auction_bids
		WHERE auction_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []*auction.Bid
	for rows.Next() {
		var b auction.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return bids, nil
}

func (r *auctionRepository) scanOne(row pgx.Row) (*auction.Auction, error) {
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return a, nil
}

func (r *auctionRepository) scanRow(rows pgx.Rows) (*auction.Auction, error) {
	return scanAuction(rows)
}

// scanAuction scans one auction row from either a Row or Rows.
func scanAuction(row pgx.Row) (*auction.Auction, error) {
	var a auction.Auction
	var statusStr string
	var buyNow *int64

	err := row.Scan(
		&a.ID, &a.PetID, &a.SellerID, &a.StartPrice, &a.CurrentPrice, &buyNow,
		&a.MinIncrementAbs, &a.MinIncrementPct, &a.SoftCloseSeconds, &statusStr,
		&a.CurrentWinnerID, &a.Version, &a.CreatedAt, &a.EndTime, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = auction.ParseStatus(statusStr)
	if buyNow != nil {
		price := values.NewCoins(*buyNow)
		a.BuyNowPrice = &price
	}
	return &a, nil
}
