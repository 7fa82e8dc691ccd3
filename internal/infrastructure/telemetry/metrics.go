package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
)

// MarketMetrics exposes market counters fed by the event dispatcher.
// The core never touches these directly: it emits domain events and
// this subscriber turns them into prometheus series.
type MarketMetrics struct {
	bidsAccepted     prometheus.Counter
	auctionsSettled  prometheus.Counter
	auctionsExpired  prometheus.Counter
	settlementVolume prometheus.Counter
	eventsDispatched *prometheus.CounterVec
}

// NewMarketMetrics creates and registers the market metric set.
func NewMarketMetrics(reg prometheus.Registerer) *MarketMetrics {
	m := &MarketMetrics{
		bidsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_bids_accepted_total",
			Help: "Accepted auction bids.",
		}),
		auctionsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_auctions_settled_total",
			Help: "Auctions settled with a winner.",
		}),
		auctionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_auctions_expired_total",
			Help: "Auctions that ended with no bids.",
		}),
		settlementVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_settlement_volume_coins_total",
			Help: "Total coins moved through settlement.",
		}),
		eventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_events_dispatched_total",
			Help: "Outbox events dispatched, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.bidsAccepted, m.auctionsSettled, m.auctionsExpired,
		m.settlementVolume, m.eventsDispatched)
	return m
}

// Observe updates counters for one dispatched event.
func (m *MarketMetrics) Observe(e *event.Event) {
	m.eventsDispatched.WithLabelValues(string(e.Kind)).Inc()

	switch e.Kind {
	case event.KindBidAccepted:
		m.bidsAccepted.Inc()
	case event.KindSettled:
		m.auctionsSettled.Inc()
		var p event.SettledPayload
		if err := decodePayload(e, &p); err == nil {
			m.settlementVolume.Add(float64(p.FinalPrice.Int64()))
		}
	case event.KindAuctionExpired:
		m.auctionsExpired.Inc()
	}
}
