package auction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

var defaults = IncrementDefaults{Abs: 1, Pct: 5}

func int64Ptr(v int64) *int64 { return &v }

func TestMinimumNextBid(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		incAbs  *int64
		incPct  *int64
		want    int64
	}{
		{name: "percentage dominates", current: 100, want: 105},
		{name: "abs floor dominates at low prices", current: 10, want: 11},
		{name: "floor division on percentage", current: 103, want: 108},
		{name: "auction pct override", current: 100, incPct: int64Ptr(10), want: 110},
		{name: "auction abs override", current: 10, incAbs: int64Ptr(5), want: 15},
		{name: "abs override below global floor is clamped", current: 10, incAbs: int64Ptr(0), want: 11},
		{name: "zero pct override still moves by abs", current: 100, incPct: int64Ptr(0), want: 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinimumNextBid(values.NewCoins(tt.current), tt.incAbs, tt.incPct, defaults)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestValidateBid(t *testing.T) {
	now := time.Now().UTC()
	seller := uuid.New()
	bidder := uuid.New()

	newActive := func() *Auction {
		return NewAuction(uuid.New(), seller, values.NewCoins(100), now, Params{
			Duration:         time.Hour,
			SoftCloseSeconds: 60,
		})
	}

	t.Run("rejects non-positive amount", func(t *testing.T) {
		err := ValidateBid(newActive(), bidder, values.NewCoins(0), now, defaults)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("rejects inactive auction", func(t *testing.T) {
		a := newActive()
		a.Cancel(now)
		err := ValidateBid(a, bidder, values.NewCoins(200), now, defaults)
		assert.ErrorIs(t, err, errors.ErrAuctionNotActive)
	})

	t.Run("rejects bid after end time", func(t *testing.T) {
		a := newActive()
		err := ValidateBid(a, bidder, values.NewCoins(200), a.EndTime, defaults)
		assert.ErrorIs(t, err, errors.ErrAuctionEnded)
	})

	t.Run("rejects seller bidding on own auction", func(t *testing.T) {
		err := ValidateBid(newActive(), seller, values.NewCoins(200), now, defaults)
		assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
	})

	t.Run("rejects bid below minimum", func(t *testing.T) {
		// start 100, 5%/1 => minimum next is 105
		err := ValidateBid(newActive(), bidder, values.NewCoins(104), now, defaults)
		assert.True(t, errors.IsType(err, errors.ErrorTypeBusiness))
		assert.Contains(t, err.Error(), "minimum is 105")
	})

	t.Run("rejects bid equal to current price", func(t *testing.T) {
		err := ValidateBid(newActive(), bidder, values.NewCoins(100), now, defaults)
		assert.True(t, errors.IsType(err, errors.ErrorTypeBusiness))
	})

	t.Run("accepts bid at exact minimum", func(t *testing.T) {
		err := ValidateBid(newActive(), bidder, values.NewCoins(105), now, defaults)
		assert.NoError(t, err)
	})
}

func TestAuction_ApplyBid_SoftClose(t *testing.T) {
	now := time.Now().UTC()
	seller := uuid.New()
	bidder := uuid.New()

	t.Run("no extension outside window", func(t *testing.T) {
		a := NewAuction(uuid.New(), seller, values.NewCoins(100), now, Params{
			Duration:         time.Hour,
			SoftCloseSeconds: 60,
		})
		end := a.EndTime

		a.ApplyBid(bidder, values.NewCoins(105), now, time.Minute)

		assert.Equal(t, end, a.EndTime)
		assert.Equal(t, int64(105), a.CurrentPrice.Int64())
		assert.Equal(t, bidder, *a.CurrentWinnerID)
	})

	t.Run("extends inside window", func(t *testing.T) {
		a := NewAuction(uuid.New(), seller, values.NewCoins(100), now, Params{
			Duration:         30 * time.Second,
			SoftCloseSeconds: 60,
		})

		a.ApplyBid(bidder, values.NewCoins(105), now, time.Minute)

		assert.Equal(t, now.Add(time.Minute), a.EndTime)
	})

	t.Run("repeated late bids keep extending", func(t *testing.T) {
		a := NewAuction(uuid.New(), seller, values.NewCoins(100), now, Params{
			Duration:         10 * time.Second,
			SoftCloseSeconds: 60,
		})

		a.ApplyBid(bidder, values.NewCoins(105), now, time.Minute)
		later := now.Add(45 * time.Second)
		a.ApplyBid(uuid.New(), values.NewCoins(111), later, time.Minute)

		assert.Equal(t, later.Add(time.Minute), a.EndTime)
	})

	t.Run("version increments per bid", func(t *testing.T) {
		a := NewAuction(uuid.New(), seller, values.NewCoins(100), now, Params{
			Duration:         time.Hour,
			SoftCloseSeconds: 60,
		})
		v := a.Version

		a.ApplyBid(bidder, values.NewCoins(105), now, time.Minute)

		assert.Equal(t, v+1, a.Version)
	})
}

func TestAuction_Transitions(t *testing.T) {
	now := time.Now().UTC()
	a := NewAuction(uuid.New(), uuid.New(), values.NewCoins(100), now, Params{Duration: time.Hour})

	assert.False(t, a.IsTerminal())
	assert.False(t, a.HasBids())
	assert.False(t, a.Due(now))
	assert.True(t, a.Due(now.Add(time.Hour)))

	a.Complete(now)
	assert.True(t, a.IsTerminal())
	assert.Equal(t, StatusCompleted, a.Status)
}

func TestStatus_RoundTrip(t *testing.T) {
	for _, s := range []Status{StatusActive, StatusCompleted, StatusCancelled, StatusExpired} {
		assert.Equal(t, s, ParseStatus(s.String()))
	}
}
