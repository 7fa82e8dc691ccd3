package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
	"github.com/tamaverse/pet-auction-backend/internal/service/market"
)

// Sweeper finalizes due auctions on demand, outside the periodic tick.
type Sweeper interface {
	FinalizeDue(ctx context.Context, now time.Time) (settled, expired int, err error)
}

// Handler serves the marketplace API.
type Handler struct {
	market   *market.Service
	sweeper  Sweeper
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(marketSvc *market.Service, sweeper Sweeper, logger *slog.Logger) *Handler {
	return &Handler{
		market:   marketSvc,
		sweeper:  sweeper,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewValidationError("INVALID_BODY", "request body is not valid JSON")
	}
	if err := h.validate.Struct(v); err != nil {
		return errors.NewValidationError("INVALID_REQUEST", err.Error())
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, errors.NewValidationError("INVALID_ID", "invalid "+name)
	}
	return id, nil
}

// handleListAuctions serves GET /api/v1/market/auctions.
func (h *Handler) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	status := auction.StatusActive
	if s := r.URL.Query().Get("status"); s != "" {
		status = auction.ParseStatus(s)
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			writeError(w, errors.NewValidationError("INVALID_PAGE", "page must be a positive integer"))
			return
		}
		page = parsed
	}

	auctions, err := h.market.ListAuctions(r.Context(), status, page)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := auctionListResponse{Auctions: make([]auctionResponse, 0, len(auctions)), Page: page}
	for _, a := range auctions {
		resp.Auctions = append(resp.Auctions, toAuctionResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetAuction serves GET /api/v1/market/auctions/{id}.
func (h *Handler) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.market.GetAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionDetailResponse(detail))
}

// handleCreateAuction serves POST /api/v1/market/auctions.
func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	seller, ok := userID(r)
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req createAuctionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	svcReq := market.CreateAuctionRequest{
		PetID:           req.PetID,
		SellerID:        seller,
		StartPrice:      values.NewCoins(req.StartPrice),
		MinIncrementAbs: req.MinIncrementAbs,
		MinIncrementPct: req.MinIncrementPct,
	}
	if req.DurationSeconds != nil {
		d := time.Duration(*req.DurationSeconds) * time.Second
		svcReq.Duration = &d
	}
	if req.BuyNowPrice != nil {
		p := values.NewCoins(*req.BuyNowPrice)
		svcReq.BuyNowPrice = &p
	}

	a, err := h.market.CreateAuction(r.Context(), svcReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionResponse(a))
}

// handlePlaceBid serves POST /api/v1/market/auctions/{id}/bids.
func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	bidder, ok := userID(r)
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req placeBidRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.market.PlaceBid(r.Context(), id, bidder, values.NewCoins(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(a))
}

// handleBuyNow serves POST /api/v1/market/auctions/{id}/buy-now.
func (h *Handler) handleBuyNow(w http.ResponseWriter, r *http.Request) {
	buyer, ok := userID(r)
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.market.BuyNow(r.Context(), id, buyer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(a))
}

// handleCancelAuction serves DELETE /api/v1/market/auctions/{id}.
func (h *Handler) handleCancelAuction(w http.ResponseWriter, r *http.Request) {
	seller, ok := userID(r)
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.market.CancelAuction(r.Context(), id, seller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(a))
}

// handleListBids serves GET /api/v1/market/auctions/{id}/bids.
func (h *Handler) handleListBids(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	bids, err := h.market.ListBids(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]bidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, bidResponse{
			ID:        b.ID,
			BidderID:  b.BidderID,
			Amount:    b.Amount.Int64(),
			CreatedAt: b.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": resp})
}

// handleSweep serves POST /api/v1/admin/market/sweep. It runs one
// finalization pass immediately instead of waiting for the next tick.
func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	settled, expired, err := h.sweeper.FinalizeDue(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settled": settled,
		"expired": expired,
	})
}
