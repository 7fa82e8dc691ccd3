package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
)

// drainBatchSize caps how many outbox events one tick delivers.
const drainBatchSize = 50

// OutboxDrainer claims pending events and stamps the delivered ones,
// all in one transaction. Implemented by the repository store.
type OutboxDrainer interface {
	DrainOutbox(ctx context.Context, limit int, deliver func(ctx context.Context, events []*event.Event) []uuid.UUID) error
}

// ChatResolver maps a user to their linked Telegram chat.
type ChatResolver interface {
	GetTelegramChatID(ctx context.Context, userID uuid.UUID) (int64, bool, error)
}

// Messenger delivers one rendered message to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Observer sees every event the dispatcher processes. Metrics and the
// websocket hub hang off this.
type Observer interface {
	Observe(e *event.Event)
}

// Dispatcher drains the event outbox on a fixed interval, pushes
// user-facing events to Telegram and feeds every event to the
// observers. Delivery is at-most-once per event: an event is stamped
// dispatched even when Telegram rejects it, because market events are
// advisory and retrying forever would wedge the queue.
type Dispatcher struct {
	drainer   OutboxDrainer
	resolver  ChatResolver
	messenger Messenger
	observers []Observer
	interval  time.Duration
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. A zero interval falls back to 5s.
func NewDispatcher(drainer OutboxDrainer, resolver ChatResolver, messenger Messenger, interval time.Duration, logger *slog.Logger, observers ...Observer) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Dispatcher{
		drainer:   drainer,
		resolver:  resolver,
		messenger: messenger,
		observers: observers,
		interval:  interval,
		logger:    logger,
	}
}

// Run drains the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("event dispatcher started", slog.Duration("interval", d.interval))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("event dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.DrainOnce(ctx); err != nil {
				d.logger.Error("outbox drain failed", slog.String("error", err.Error()))
			}
		}
	}
}

// DrainOnce processes one batch of pending events.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	return d.drainer.DrainOutbox(ctx, drainBatchSize, func(ctx context.Context, events []*event.Event) []uuid.UUID {
		done := make([]uuid.UUID, 0, len(events))
		for _, e := range events {
			d.deliver(ctx, e)
			done = append(done, e.ID)
		}
		return done
	})
}

func (d *Dispatcher) deliver(ctx context.Context, e *event.Event) {
	for _, o := range d.observers {
		o.Observe(e)
	}

	if e.UserID == nil {
		return
	}

	text, err := renderMessage(e)
	if err != nil {
		d.logger.Warn("unrenderable event",
			slog.String("event_id", e.ID.String()),
			slog.String("kind", string(e.Kind)),
			slog.String("error", err.Error()))
		return
	}
	if text == "" {
		return
	}

	chatID, ok, err := d.resolver.GetTelegramChatID(ctx, *e.UserID)
	if err != nil {
		d.logger.Warn("chat lookup failed",
			slog.String("user_id", e.UserID.String()),
			slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}

	if err := d.messenger.Send(ctx, chatID, text); err != nil {
		d.logger.Warn("telegram delivery failed",
			slog.String("event_id", e.ID.String()),
			slog.String("kind", string(e.Kind)),
			slog.String("error", err.Error()))
	}
}

// renderMessage turns an event into user-facing text. Unknown kinds
// render empty, which skips Telegram delivery without failing.
func renderMessage(e *event.Event) (string, error) {
	switch e.Kind {
	case event.KindBidAccepted:
		var p event.BidAcceptedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("New bid of %s coins on your auction!", p.Amount), nil

	case event.KindOutbid:
		var p event.OutbidPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("You've been outbid! The price is now %s coins.", p.NewAmount), nil

	case event.KindAuctionWon:
		var p event.WonPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("You won the auction for %s coins! The pet is yours.", p.FinalPrice), nil

	case event.KindPetSold:
		var p event.SoldPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", err
		}
		buyer := p.BuyerName
		if buyer == "" {
			buyer = "another player"
		}
		return fmt.Sprintf("Your pet sold to %s! You received %s coins.", buyer, p.SellerNet), nil

	case event.KindAuctionExpired:
		if err := json.Unmarshal(e.Payload, &struct{}{}); err != nil {
			return "", err
		}
		return "Your auction ended without bids. Your pet is back home.", nil

	default:
		return "", nil
	}
}
