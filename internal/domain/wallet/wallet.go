package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// Wallet is a user's coin balance. Locked tracks the total of active
// holds; Available() is what can still be committed to new bids or
// purchases. Invariant: Balance >= Locked >= 0.
type Wallet struct {
	UserID      uuid.UUID    `json:"user_id"`
	Balance     values.Money `json:"balance"`
	Locked      values.Money `json:"locked"`
	TotalEarned values.Money `json:"total_earned"`
	TotalSpent  values.Money `json:"total_spent"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewWallet creates an empty wallet for a user.
func NewWallet(userID uuid.UUID) *Wallet {
	return &Wallet{
		UserID:      userID,
		Balance:     values.Zero(),
		Locked:      values.Zero(),
		TotalEarned: values.Zero(),
		TotalSpent:  values.Zero(),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Available returns Balance - Locked.
func (w *Wallet) Available() values.Money {
	return w.Balance.Sub(w.Locked)
}

// Lock reserves amount against the wallet. Fails if the available
// balance is insufficient.
func (w *Wallet) Lock(amount values.Money) error {
	if !amount.IsPositive() {
		return errors.NewValidationError("INVALID_AMOUNT", "lock amount must be positive")
	}
	if w.Available().LessThan(amount) {
		return errors.ErrInsufficientFunds
	}
	w.Locked = w.Locked.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// Unlock releases a previously locked amount. The drift check mirrors
// the release path: never let Locked go negative.
func (w *Wallet) Unlock(amount values.Money) error {
	if w.Locked.LessThan(amount) {
		return errors.NewConsistencyError("LOCKED_UNDERFLOW", "locked amount is less than the hold being released")
	}
	w.Locked = w.Locked.Sub(amount)
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// Debit removes coins from the balance.
func (w *Wallet) Debit(amount values.Money) error {
	if w.Balance.LessThan(amount) {
		return errors.ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	w.TotalSpent = w.TotalSpent.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// Credit adds coins to the balance.
func (w *Wallet) Credit(amount values.Money) {
	w.Balance = w.Balance.Add(amount)
	w.TotalEarned = w.TotalEarned.Add(amount)
	w.UpdatedAt = time.Now().UTC()
}

// Capture converts a hold into an actual debit: the full hold amount is
// unlocked and finalPrice leaves the balance. finalPrice never exceeds
// the hold amount; any excess simply becomes available again.
func (w *Wallet) Capture(holdAmount, finalPrice values.Money) error {
	if w.Locked.LessThan(holdAmount) {
		return errors.NewConsistencyError("LOCKED_UNDERFLOW", "locked amount is less than the hold being captured")
	}
	if w.Balance.LessThan(finalPrice) {
		return errors.NewConsistencyError("BALANCE_UNDERFLOW", "balance is less than the capture amount")
	}
	w.Locked = w.Locked.Sub(holdAmount)
	w.Balance = w.Balance.Sub(finalPrice)
	w.TotalSpent = w.TotalSpent.Add(finalPrice)
	w.UpdatedAt = time.Now().UTC()
	return nil
}
