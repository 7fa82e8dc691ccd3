package wallet

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

func fundedWallet(t *testing.T, coins int64) *Wallet {
	t.Helper()
	w := NewWallet(uuid.New())
	w.Credit(values.NewCoins(coins))
	return w
}

func TestWallet_LockUnlock(t *testing.T) {
	w := fundedWallet(t, 100)

	require.NoError(t, w.Lock(values.NewCoins(60)))
	assert.Equal(t, int64(40), w.Available().Int64())

	// Second lock exceeding available must fail even though balance covers it.
	err := w.Lock(values.NewCoins(50))
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)

	require.NoError(t, w.Unlock(values.NewCoins(60)))
	assert.Equal(t, int64(100), w.Available().Int64())
}

func TestWallet_UnlockDriftCheck(t *testing.T) {
	w := fundedWallet(t, 100)
	require.NoError(t, w.Lock(values.NewCoins(30)))

	err := w.Unlock(values.NewCoins(31))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConsistency))
	assert.Equal(t, int64(30), w.Locked.Int64())
}

func TestWallet_Capture(t *testing.T) {
	w := fundedWallet(t, 500)
	require.NoError(t, w.Lock(values.NewCoins(300)))

	require.NoError(t, w.Capture(values.NewCoins(300), values.NewCoins(300)))

	assert.Equal(t, int64(200), w.Balance.Int64())
	assert.True(t, w.Locked.IsZero())
	assert.Equal(t, int64(300), w.TotalSpent.Int64())
}

func TestWallet_CaptureBelowHoldAmount(t *testing.T) {
	// Excess over the final price must become available again.
	w := fundedWallet(t, 500)
	require.NoError(t, w.Lock(values.NewCoins(300)))

	require.NoError(t, w.Capture(values.NewCoins(300), values.NewCoins(250)))

	assert.Equal(t, int64(250), w.Balance.Int64())
	assert.True(t, w.Locked.IsZero())
	assert.Equal(t, int64(250), w.Available().Int64())
}

func TestWallet_LockRejectsNonPositive(t *testing.T) {
	w := fundedWallet(t, 100)
	assert.Error(t, w.Lock(values.Zero()))
	assert.Error(t, w.Lock(values.NewCoins(-5)))
}

func TestHold_Lifecycle(t *testing.T) {
	h := NewHold(uuid.New(), uuid.New(), values.NewCoins(100))
	assert.Equal(t, HoldStatusActive, h.Status)

	require.NoError(t, h.Release())
	assert.Equal(t, HoldStatusReleased, h.Status)
	assert.NotNil(t, h.ReleasedAt)

	// Released holds cannot be released or captured again.
	assert.ErrorIs(t, h.Release(), errors.ErrInvalidHoldState)
	assert.ErrorIs(t, h.Capture(), errors.ErrInvalidHoldState)
}

func TestHold_Capture(t *testing.T) {
	h := NewHold(uuid.New(), uuid.New(), values.NewCoins(100))
	require.NoError(t, h.Capture())
	assert.Equal(t, HoldStatusCaptured, h.Status)
	assert.NotNil(t, h.CapturedAt)
}

func TestHoldStatus_RoundTrip(t *testing.T) {
	for _, s := range []HoldStatus{HoldStatusActive, HoldStatusReleased, HoldStatusCaptured} {
		assert.Equal(t, s, ParseHoldStatus(s.String()))
	}
}
