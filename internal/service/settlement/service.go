package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
	"github.com/tamaverse/pet-auction-backend/internal/domain/pet"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
	"github.com/tamaverse/pet-auction-backend/internal/domain/wallet"
	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/config"
	"github.com/tamaverse/pet-auction-backend/internal/service/market"
)

// sweepBatchSize caps how many due auctions one sweep pass picks up.
const sweepBatchSize = 100

// Service executes the money-and-ownership transfer that resolves an
// auction, and runs the background sweep that finalizes expired ones.
// It implements market.Settler.
type Service struct {
	store  market.Store
	cfg    config.MarketConfig
	logger *slog.Logger
}

// NewService creates the settlement service.
func NewService(store market.Store, cfg config.MarketConfig, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Settle resolves an auction in the winner's favor. It runs inside a
// transaction already holding the auction row lock; the terminal-status
// check makes re-invocation a no-op, which is what keeps settlement
// exactly-once under sweep re-entrancy.
//
// skipHold selects the funding path: true for buy-now (direct debit, no
// pre-existing hold), false for a natural win (capture the winner's
// hold). Either way every other active hold on the auction is released.
func (s *Service) Settle(ctx context.Context, ts market.TxStore, a *auction.Auction, winnerID uuid.UUID, finalPrice values.Money, skipHold bool) error {
	if a.IsTerminal() {
		return nil
	}

	now := time.Now().UTC()

	if skipHold {
		// Free every hold first: the buyer may themselves be the
		// current leader, and their own hold must not count against
		// the availability check for the direct debit.
		if err := s.releaseRemainingHolds(ctx, ts, a.ID); err != nil {
			return err
		}
		if err := s.debitBuyer(ctx, ts, winnerID, finalPrice, a.ID); err != nil {
			return err
		}
	} else {
		hold, err := ts.Wallets().GetActiveHold(ctx, winnerID, a.ID)
		if err != nil {
			return err
		}
		if hold == nil {
			return errors.NewConsistencyError("HOLD_MISSING",
				fmt.Sprintf("winner %s has no active hold for auction %s", winnerID, a.ID))
		}
		if hold.Amount.LessThan(finalPrice) {
			return errors.NewConsistencyError("HOLD_UNDERSIZED",
				fmt.Sprintf("hold %s covers %s but final price is %s", hold.ID, hold.Amount, finalPrice))
		}
		if err := market.CaptureHold(ctx, ts, hold, finalPrice, a.ID); err != nil {
			return err
		}
		if err := s.releaseRemainingHolds(ctx, ts, a.ID); err != nil {
			return err
		}
	}

	fee := finalPrice.PercentFloor(s.cfg.FeePercent)
	sellerNet := finalPrice.Sub(fee)
	if err := s.creditSeller(ctx, ts, a.SellerID, sellerNet, a.ID); err != nil {
		return err
	}

	if err := ts.Pets().TransferOwner(ctx, a.PetID, a.SellerID, winnerID); err != nil {
		return err
	}
	if err := ts.Pets().AppendHistory(ctx, pet.NewOwnershipRecord(a.PetID, a.SellerID, winnerID, finalPrice, &a.ID)); err != nil {
		return err
	}

	a.CurrentPrice = finalPrice
	winner := winnerID
	a.CurrentWinnerID = &winner
	a.Complete(now)
	if err := ts.Auctions().Update(ctx, a); err != nil {
		return err
	}

	if err := s.enqueueSettledEvents(ctx, ts, a, winnerID, finalPrice, fee, sellerNet, skipHold); err != nil {
		return err
	}

	s.logger.Info("auction settled",
		slog.String("auction_id", a.ID.String()),
		slog.String("winner_id", winnerID.String()),
		slog.Int64("final_price", finalPrice.Int64()),
		slog.Int64("fee", fee.Int64()),
		slog.Bool("buy_now", skipHold))
	return nil
}

// debitBuyer charges the buyer directly, the buy-now funding path.
func (s *Service) debitBuyer(ctx context.Context, ts market.TxStore, buyerID uuid.UUID, price values.Money, auctionID uuid.UUID) error {
	w, err := ts.Wallets().GetByUserForUpdate(ctx, buyerID)
	if err != nil {
		return err
	}
	if w.Available().LessThan(price) {
		return errors.ErrInsufficientFunds
	}

	before := w.Balance
	if err := w.Debit(price); err != nil {
		return err
	}
	if err := ts.Wallets().Update(ctx, w); err != nil {
		return err
	}

	t := wallet.NewTransaction(buyerID, wallet.TransactionTypeMarketPurchase,
		price, before, w.Balance,
		fmt.Sprintf("auction %s buy-now", auctionID),
		map[string]interface{}{"auction_id": auctionID.String(), "buy_now": true})
	return ts.Wallets().LogTransaction(ctx, t)
}

// releaseRemainingHolds frees every hold still active on the auction.
// A captured winner hold is no longer active, so after a natural win
// this touches only the losers.
func (s *Service) releaseRemainingHolds(ctx context.Context, ts market.TxStore, auctionID uuid.UUID) error {
	holds, err := ts.Wallets().ListActiveHoldsByAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	for _, h := range holds {
		if err := market.ReleaseHold(ctx, ts, h); err != nil {
			return err
		}
	}
	return nil
}

// creditSeller pays out the sale proceeds net of the market fee.
func (s *Service) creditSeller(ctx context.Context, ts market.TxStore, sellerID uuid.UUID, net values.Money, auctionID uuid.UUID) error {
	w, err := ts.Wallets().GetByUserForUpdate(ctx, sellerID)
	if err != nil {
		return err
	}

	before := w.Balance
	w.Credit(net)
	if err := ts.Wallets().Update(ctx, w); err != nil {
		return err
	}

	t := wallet.NewTransaction(sellerID, wallet.TransactionTypeMarketSale,
		net, before, w.Balance,
		fmt.Sprintf("auction %s sold", auctionID),
		map[string]interface{}{"auction_id": auctionID.String()})
	return ts.Wallets().LogTransaction(ctx, t)
}

func (s *Service) enqueueSettledEvents(ctx context.Context, ts market.TxStore, a *auction.Auction, winnerID uuid.UUID, finalPrice, fee, sellerNet values.Money, buyNow bool) error {
	buyerName, err := ts.Profiles().GetDisplayName(ctx, winnerID)
	if err != nil {
		return err
	}

	winner := winnerID
	won, err := event.New(event.KindAuctionWon, &winner, event.WonPayload{
		AuctionID:  a.ID,
		PetID:      a.PetID,
		FinalPrice: finalPrice,
	})
	if err != nil {
		return err
	}
	if err := ts.Outbox().Enqueue(ctx, won); err != nil {
		return err
	}

	seller := a.SellerID
	sold, err := event.New(event.KindPetSold, &seller, event.SoldPayload{
		AuctionID: a.ID,
		PetID:     a.PetID,
		SellerNet: sellerNet,
		BuyerName: buyerName,
	})
	if err != nil {
		return err
	}
	if err := ts.Outbox().Enqueue(ctx, sold); err != nil {
		return err
	}

	settled, err := event.New(event.KindSettled, nil, event.SettledPayload{
		AuctionID:  a.ID,
		PetID:      a.PetID,
		SellerID:   a.SellerID,
		WinnerID:   winnerID,
		FinalPrice: finalPrice,
		Fee:        fee,
		BuyNow:     buyNow,
	})
	if err != nil {
		return err
	}
	return ts.Outbox().Enqueue(ctx, settled)
}

// FinalizeDue runs one sweep pass: every auction still active past its
// end time is settled (winner exists) or expired (no bids). Each
// auction gets its own transaction, so one bad auction cannot stall
// the rest.
func (s *Service) FinalizeDue(ctx context.Context, now time.Time) (settled, expired int, err error) {
	ids, err := s.store.Auctions().ListDueIDs(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list due auctions: %w", err)
	}

	for _, id := range ids {
		outcome, err := s.finalizeOne(ctx, id, now)
		if err != nil {
			s.logger.Error("finalize failed",
				slog.String("auction_id", id.String()),
				slog.String("error", err.Error()))
			continue
		}
		switch outcome {
		case auction.StatusCompleted:
			settled++
		case auction.StatusExpired:
			expired++
		}
	}
	return settled, expired, nil
}

// finalizeOne drives a single due auction to its terminal state. The
// auction is re-read under lock; a racing settlement shows up as a
// terminal status and the pass no-ops.
func (s *Service) finalizeOne(ctx context.Context, id uuid.UUID, now time.Time) (auction.Status, error) {
	var outcome auction.Status
	err := s.store.InTx(ctx, func(ctx context.Context, ts market.TxStore) error {
		a, err := ts.Auctions().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.IsTerminal() || !a.Due(now) {
			outcome = a.Status
			return nil
		}

		if a.HasBids() {
			if err := s.Settle(ctx, ts, a, *a.CurrentWinnerID, a.CurrentPrice, false); err != nil {
				return err
			}
			outcome = auction.StatusCompleted
			return nil
		}

		a.Expire(time.Now().UTC())
		if err := ts.Auctions().Update(ctx, a); err != nil {
			return err
		}

		seller := a.SellerID
		e, err := event.New(event.KindAuctionExpired, &seller, event.ExpiredPayload{
			AuctionID: a.ID,
			PetID:     a.PetID,
		})
		if err != nil {
			return err
		}
		if err := ts.Outbox().Enqueue(ctx, e); err != nil {
			return err
		}

		outcome = auction.StatusExpired
		return nil
	})
	return outcome, err
}

// Run sweeps at the configured interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("finalization sweep started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("finalization sweep stopped")
			return
		case <-ticker.C:
			settled, expired, err := s.FinalizeDue(ctx, time.Now().UTC())
			if err != nil {
				s.logger.Error("sweep pass failed", slog.String("error", err.Error()))
				continue
			}
			if settled > 0 || expired > 0 {
				s.logger.Info("sweep pass finished",
					slog.Int("settled", settled),
					slog.Int("expired", expired))
			}
		}
	}
}
