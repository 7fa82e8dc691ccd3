package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/config"
)

// Service implements the marketplace operations: listing pets for
// auction, bidding, buy-now and cancellation. All mutations run in a
// single transaction holding the auction row lock, so concurrent bids
// on one auction serialize.
type Service struct {
	store   Store
	settler Settler
	limiter RateLimiter
	cfg     config.MarketConfig
	logger  *slog.Logger
}

// NewService creates the market service.
func NewService(store Store, settler Settler, limiter RateLimiter, cfg config.MarketConfig, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		settler: settler,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *Service) defaults() auction.IncrementDefaults {
	return auction.IncrementDefaults{
		Abs: s.cfg.MinIncrementAbs,
		Pct: s.cfg.MinIncrementPercent,
	}
}

// CreateAuctionRequest carries the seller's listing parameters.
// Optional fields fall back to configured defaults.
type CreateAuctionRequest struct {
	PetID           uuid.UUID
	SellerID        uuid.UUID
	StartPrice      values.Money
	Duration        *time.Duration
	BuyNowPrice     *values.Money
	MinIncrementAbs *int64
	MinIncrementPct *int64
}

// CreateAuction lists a pet for sale.
func (s *Service) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error) {
	if !s.cfg.Enabled {
		return nil, errors.ErrMarketDisabled
	}
	if !req.StartPrice.IsPositive() {
		return nil, errors.NewValidationError("INVALID_START_PRICE", "start price must be positive")
	}
	if req.BuyNowPrice != nil && req.BuyNowPrice.LessThan(req.StartPrice) {
		return nil, errors.NewValidationError("INVALID_BUY_NOW_PRICE", "buy-now price must be at least the start price")
	}

	duration := s.cfg.DefaultDuration
	if req.Duration != nil {
		duration = *req.Duration
	}
	if duration <= 0 {
		return nil, errors.NewValidationError("INVALID_DURATION", "auction duration must be positive")
	}

	var created *auction.Auction
	err := s.store.InTx(ctx, func(ctx context.Context, ts TxStore) error {
		p, err := ts.Pets().GetByIDForUpdate(ctx, req.PetID)
		if err != nil {
			return err
		}
		if p.OwnerID != req.SellerID {
			return errors.NewForbiddenError("only the owner can list a pet")
		}
		if !p.Sellable() {
			return errors.NewBusinessError("PET_NOT_SELLABLE", "pet cannot be sold")
		}

		active, err := ts.Auctions().HasActiveForPet(ctx, req.PetID)
		if err != nil {
			return err
		}
		if active {
			return errors.NewConflictError("pet already has an active auction")
		}

		count, err := ts.Auctions().CountActiveBySeller(ctx, req.SellerID)
		if err != nil {
			return err
		}
		if count >= s.cfg.MaxActivePerUser {
			return errors.NewBusinessError("AUCTION_LIMIT_REACHED",
				fmt.Sprintf("at most %d active auctions per user", s.cfg.MaxActivePerUser))
		}

		created = auction.NewAuction(req.PetID, req.SellerID, req.StartPrice, time.Now().UTC(), auction.Params{
			Duration:         duration,
			BuyNowPrice:      req.BuyNowPrice,
			MinIncrementAbs:  req.MinIncrementAbs,
			MinIncrementPct:  req.MinIncrementPct,
			SoftCloseSeconds: int64(s.cfg.SoftClose / time.Second),
		})
		return ts.Auctions().Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("auction created",
		slog.String("auction_id", created.ID.String()),
		slog.String("pet_id", req.PetID.String()),
		slog.String("seller_id", req.SellerID.String()),
		slog.Int64("start_price", req.StartPrice.Int64()))
	return created, nil
}

// PlaceBid places a bid. The previous leader's hold is released (they
// are free to bid again or spend elsewhere) and the new bidder's funds
// are held for the full bid amount.
func (s *Service) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount values.Money) (*auction.Auction, error) {
	if !s.cfg.Enabled {
		return nil, errors.ErrMarketDisabled
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "bid:"+bidderID.String(), s.cfg.BidRateLimit, s.cfg.BidRateWindow)
		if err != nil {
			// Redis being down must not freeze the market.
			s.logger.Warn("bid rate limiter unavailable", slog.String("error", err.Error()))
		} else if !allowed {
			return nil, errors.NewRateLimitError("too many bids, slow down")
		}
	}

	var updated *auction.Auction
	err := s.store.InTx(ctx, func(ctx context.Context, ts TxStore) error {
		a, err := ts.Auctions().GetByIDForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := auction.ValidateBid(a, bidderID, amount, now, s.defaults()); err != nil {
			return err
		}

		// Release the displaced leader's hold before creating the new
		// one. When the leader raises their own bid this frees their
		// previous amount first, so only the new amount needs to be
		// available on top of the rest of the balance.
		if a.CurrentWinnerID != nil {
			prev, err := ts.Wallets().GetActiveHold(ctx, *a.CurrentWinnerID, a.ID)
			if err != nil {
				return err
			}
			if prev != nil {
				if err := ReleaseHold(ctx, ts, prev); err != nil {
					return err
				}
				if *a.CurrentWinnerID != bidderID {
					e, err := event.New(event.KindOutbid, a.CurrentWinnerID, event.OutbidPayload{
						AuctionID: a.ID,
						NewAmount: amount,
					})
					if err != nil {
						return err
					}
					if err := ts.Outbox().Enqueue(ctx, e); err != nil {
						return err
					}
				}
			}
		}

		if _, err := CreateHold(ctx, ts, bidderID, a.ID, amount); err != nil {
			return err
		}

		b := auction.NewBid(a.ID, bidderID, amount, now)
		if err := ts.Auctions().CreateBid(ctx, b); err != nil {
			return err
		}

		a.ApplyBid(bidderID, amount, now, s.cfg.SoftClose)
		if err := ts.Auctions().Update(ctx, a); err != nil {
			return err
		}

		sellerID := a.SellerID
		e, err := event.New(event.KindBidAccepted, &sellerID, event.BidAcceptedPayload{
			AuctionID: a.ID,
			BidderID:  bidderID,
			Amount:    amount,
			EndTime:   a.EndTime,
		})
		if err != nil {
			return err
		}
		if err := ts.Outbox().Enqueue(ctx, e); err != nil {
			return err
		}

		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bid accepted",
		slog.String("auction_id", auctionID.String()),
		slog.String("bidder_id", bidderID.String()),
		slog.Int64("amount", amount.Int64()),
		slog.Time("end_time", updated.EndTime))
	return updated, nil
}

// BuyNow settles the auction immediately at the buy-now price,
// bypassing the bid ladder.
func (s *Service) BuyNow(ctx context.Context, auctionID, buyerID uuid.UUID) (*auction.Auction, error) {
	if !s.cfg.Enabled {
		return nil, errors.ErrMarketDisabled
	}

	var updated *auction.Auction
	err := s.store.InTx(ctx, func(ctx context.Context, ts TxStore) error {
		a, err := ts.Auctions().GetByIDForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if a.Status != auction.StatusActive {
			return errors.ErrAuctionNotActive
		}
		if a.Due(now) {
			return errors.ErrAuctionEnded
		}
		if a.BuyNowPrice == nil {
			return errors.NewBusinessError("NO_BUY_NOW", "auction has no buy-now price")
		}
		if a.SellerID == buyerID {
			return errors.NewForbiddenError("cannot buy your own auction")
		}

		if err := s.settler.Settle(ctx, ts, a, buyerID, *a.BuyNowPrice, true); err != nil {
			return err
		}

		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("auction bought out",
		slog.String("auction_id", auctionID.String()),
		slog.String("buyer_id", buyerID.String()),
		slog.Int64("price", updated.CurrentPrice.Int64()))
	return updated, nil
}

// CancelAuction withdraws a zero-bid listing. Any accepted bid makes
// the auction non-cancellable.
func (s *Service) CancelAuction(ctx context.Context, auctionID, sellerID uuid.UUID) (*auction.Auction, error) {
	var updated *auction.Auction
	err := s.store.InTx(ctx, func(ctx context.Context, ts TxStore) error {
		a, err := ts.Auctions().GetByIDForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.SellerID != sellerID {
			return errors.NewForbiddenError("only the seller can cancel an auction")
		}
		if a.Status != auction.StatusActive {
			return errors.ErrAuctionNotActive
		}
		if a.HasBids() {
			return errors.NewBusinessError("AUCTION_HAS_BIDS", "auction with bids cannot be cancelled")
		}

		a.Cancel(time.Now().UTC())
		if err := ts.Auctions().Update(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("auction cancelled",
		slog.String("auction_id", auctionID.String()),
		slog.String("seller_id", sellerID.String()))
	return updated, nil
}

// AuctionDetail is an auction together with derived bidding info.
type AuctionDetail struct {
	Auction        *auction.Auction
	MinimumNextBid values.Money
	Bids           []*auction.Bid
}

// GetAuction returns an auction with its bid history and the minimum
// admissible next bid.
func (s *Service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionDetail, error) {
	a, err := s.store.Auctions().GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.Auctions().ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return &AuctionDetail{
		Auction:        a,
		MinimumNextBid: auction.MinimumNextBid(a.CurrentPrice, a.MinIncrementAbs, a.MinIncrementPct, s.defaults()),
		Bids:           bids,
	}, nil
}

// ListAuctions returns a page of auctions in the given status, soonest
// ending first.
func (s *Service) ListAuctions(ctx context.Context, status auction.Status, page int) ([]*auction.Auction, error) {
	if page < 1 {
		page = 1
	}
	limit := s.cfg.PageSize
	offset := (page - 1) * limit
	return s.store.Auctions().List(ctx, status, limit, offset)
}

// ListBids returns the bid history of an auction, newest first.
func (s *Service) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	if _, err := s.store.Auctions().GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.store.Auctions().ListBids(ctx, auctionID)
}
