package notification

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// fakeDrainer hands out queued events and records which ids were
// reported delivered.
type fakeDrainer struct {
	pending   []*event.Event
	delivered []uuid.UUID
}

func (f *fakeDrainer) DrainOutbox(ctx context.Context, limit int, deliver func(ctx context.Context, events []*event.Event) []uuid.UUID) error {
	batch := f.pending
	if len(batch) > limit {
		batch = batch[:limit]
	}
	if len(batch) == 0 {
		return nil
	}
	f.delivered = append(f.delivered, deliver(ctx, batch)...)
	f.pending = f.pending[len(batch):]
	return nil
}

type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) Send(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) GetTelegramChatID(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

type countingObserver struct {
	seen []event.Kind
}

func (c *countingObserver) Observe(e *event.Event) {
	c.seen = append(c.seen, e.Kind)
}

func mustEvent(t *testing.T, kind event.Kind, userID *uuid.UUID, payload interface{}) *event.Event {
	t.Helper()
	e, err := event.New(kind, userID, payload)
	require.NoError(t, err)
	return e
}

func TestDispatcher_DrainOnce(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("delivers outbid message to linked chat", func(t *testing.T) {
		e := mustEvent(t, event.KindOutbid, &user, event.OutbidPayload{
			AuctionID: uuid.New(),
			NewAmount: values.NewCoins(120),
		})
		drainer := &fakeDrainer{pending: []*event.Event{e}}

		resolver := &mockResolver{}
		resolver.On("GetTelegramChatID", mock.Anything, user).Return(int64(42), true, nil)

		messenger := &mockMessenger{}
		messenger.On("Send", mock.Anything, int64(42), "You've been outbid! The price is now 120 coins.").Return(nil)

		d := NewDispatcher(drainer, resolver, messenger, time.Second, slog.Default())
		require.NoError(t, d.DrainOnce(ctx))

		messenger.AssertExpectations(t)
		assert.Equal(t, []uuid.UUID{e.ID}, drainer.delivered)
	})

	t.Run("skips users without linked chat", func(t *testing.T) {
		e := mustEvent(t, event.KindAuctionWon, &user, event.WonPayload{
			AuctionID:  uuid.New(),
			PetID:      uuid.New(),
			FinalPrice: values.NewCoins(300),
		})
		drainer := &fakeDrainer{pending: []*event.Event{e}}

		resolver := &mockResolver{}
		resolver.On("GetTelegramChatID", mock.Anything, user).Return(int64(0), false, nil)

		messenger := &mockMessenger{}

		d := NewDispatcher(drainer, resolver, messenger, time.Second, slog.Default())
		require.NoError(t, d.DrainOnce(ctx))

		messenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, []uuid.UUID{e.ID}, drainer.delivered, "event is still marked dispatched")
	})

	t.Run("send failure still marks event dispatched", func(t *testing.T) {
		e := mustEvent(t, event.KindPetSold, &user, event.SoldPayload{
			AuctionID: uuid.New(),
			PetID:     uuid.New(),
			SellerNet: values.NewCoins(285),
			BuyerName: "Kenji",
		})
		drainer := &fakeDrainer{pending: []*event.Event{e}}

		resolver := &mockResolver{}
		resolver.On("GetTelegramChatID", mock.Anything, user).Return(int64(42), true, nil)

		messenger := &mockMessenger{}
		messenger.On("Send", mock.Anything, int64(42), mock.Anything).Return(assert.AnError)

		d := NewDispatcher(drainer, resolver, messenger, time.Second, slog.Default())
		require.NoError(t, d.DrainOnce(ctx))
		assert.Equal(t, []uuid.UUID{e.ID}, drainer.delivered)
	})

	t.Run("observational events reach observers but not telegram", func(t *testing.T) {
		e := mustEvent(t, event.KindSettled, nil, event.SettledPayload{
			AuctionID:  uuid.New(),
			PetID:      uuid.New(),
			SellerID:   uuid.New(),
			WinnerID:   uuid.New(),
			FinalPrice: values.NewCoins(300),
			Fee:        values.NewCoins(15),
		})
		drainer := &fakeDrainer{pending: []*event.Event{e}}
		obs := &countingObserver{}
		messenger := &mockMessenger{}

		d := NewDispatcher(drainer, &mockResolver{}, messenger, time.Second, slog.Default(), obs)
		require.NoError(t, d.DrainOnce(ctx))

		assert.Equal(t, []event.Kind{event.KindSettled}, obs.seen)
		messenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRenderMessage(t *testing.T) {
	user := uuid.New()

	tests := []struct {
		name  string
		event *event.Event
		want  string
	}{
		{
			name: "bid accepted",
			event: mustEvent(t, event.KindBidAccepted, &user, event.BidAcceptedPayload{
				Amount: values.NewCoins(110),
			}),
			want: "New bid of 110 coins on your auction!",
		},
		{
			name: "sold with unknown buyer",
			event: mustEvent(t, event.KindPetSold, &user, event.SoldPayload{
				SellerNet: values.NewCoins(95),
			}),
			want: "Your pet sold to another player! You received 95 coins.",
		},
		{
			name:  "expired",
			event: mustEvent(t, event.KindAuctionExpired, &user, event.ExpiredPayload{}),
			want:  "Your auction ended without bids. Your pet is back home.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderMessage(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
