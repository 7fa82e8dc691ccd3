package rest

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamaverse/pet-auction-backend/internal/api/ws"
)

// RouterConfig bundles the router's collaborators.
type RouterConfig struct {
	Handler   *Handler
	Health    *HealthHandler
	Hub       *ws.Hub
	JWTSecret []byte
	Registry  *prometheus.Registry
	Logger    *slog.Logger
}

// NewRouter assembles the HTTP surface: public market reads,
// authenticated market mutations, health and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	public := func(h http.HandlerFunc) http.Handler {
		return chain(h,
			requestIDMiddleware,
			loggingMiddleware(cfg.Logger),
			recoveryMiddleware(cfg.Logger))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return chain(h,
			requestIDMiddleware,
			loggingMiddleware(cfg.Logger),
			recoveryMiddleware(cfg.Logger),
			authMiddleware(cfg.JWTSecret))
	}

	mux.Handle("GET /api/v1/market/auctions", public(cfg.Handler.handleListAuctions))
	mux.Handle("GET /api/v1/market/auctions/{id}", public(cfg.Handler.handleGetAuction))
	mux.Handle("GET /api/v1/market/auctions/{id}/bids", public(cfg.Handler.handleListBids))

	mux.Handle("POST /api/v1/market/auctions", protected(cfg.Handler.handleCreateAuction))
	mux.Handle("POST /api/v1/market/auctions/{id}/bids", protected(cfg.Handler.handlePlaceBid))
	mux.Handle("POST /api/v1/market/auctions/{id}/buy-now", protected(cfg.Handler.handleBuyNow))
	mux.Handle("DELETE /api/v1/market/auctions/{id}", protected(cfg.Handler.handleCancelAuction))
	mux.Handle("POST /api/v1/admin/market/sweep", protected(cfg.Handler.handleSweep))

	if cfg.Hub != nil {
		mux.Handle("GET /api/v1/market/ws", public(cfg.Hub.ServeWs))
	}

	mux.Handle("GET /healthz", public(cfg.Health.handleHealthz))
	mux.Handle("GET /readyz", public(cfg.Health.handleReadyz))
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	return mux
}
