package market

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
	"github.com/tamaverse/pet-auction-backend/internal/domain/wallet"
)

// Hold helpers shared by bidding and settlement. Every function here
// runs inside a caller-owned transaction and locks the owning wallet
// before touching balances, so locked totals always match the set of
// active holds.

// CreateHold reserves amount against the bidder's wallet and records
// the hold. Fails with ErrInsufficientFunds when the available balance
// cannot cover it.
func CreateHold(ctx context.Context, s TxStore, userID, auctionID uuid.UUID, amount values.Money) (*wallet.Hold, error) {
	w, err := s.Wallets().GetByUserForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := w.Lock(amount); err != nil {
		return nil, err
	}
	if err := s.Wallets().Update(ctx, w); err != nil {
		return nil, err
	}

	h := wallet.NewHold(userID, auctionID, amount)
	if err := s.Wallets().CreateHold(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// ReleaseHold frees the held funds and marks the hold released.
func ReleaseHold(ctx context.Context, s TxStore, h *wallet.Hold) error {
	w, err := s.Wallets().GetByUserForUpdate(ctx, h.UserID)
	if err != nil {
		return err
	}
	if err := w.Unlock(h.Amount); err != nil {
		return err
	}
	if err := h.Release(); err != nil {
		return err
	}
	if err := s.Wallets().Update(ctx, w); err != nil {
		return err
	}
	return s.Wallets().UpdateHold(ctx, h)
}

// CaptureHold converts the hold into a real debit of finalPrice and
// writes the purchase to the ledger. finalPrice may be below the hold
// amount; the excess becomes available again.
func CaptureHold(ctx context.Context, s TxStore, h *wallet.Hold, finalPrice values.Money, auctionID uuid.UUID) error {
	w, err := s.Wallets().GetByUserForUpdate(ctx, h.UserID)
	if err != nil {
		return err
	}

	before := w.Balance
	if err := w.Capture(h.Amount, finalPrice); err != nil {
		return err
	}
	if err := h.Capture(); err != nil {
		return err
	}
	if err := s.Wallets().Update(ctx, w); err != nil {
		return err
	}
	if err := s.Wallets().UpdateHold(ctx, h); err != nil {
		return err
	}

	t := wallet.NewTransaction(h.UserID, wallet.TransactionTypeMarketPurchase,
		finalPrice, before, w.Balance,
		fmt.Sprintf("auction %s won", auctionID),
		map[string]interface{}{"auction_id": auctionID.String()})
	return s.Wallets().LogTransaction(ctx, t)
}
