package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	"github.com/tamaverse/pet-auction-backend/internal/service/market"
)

// createAuctionRequest is the POST /market/auctions body.
type createAuctionRequest struct {
	PetID           uuid.UUID `json:"pet_id" validate:"required"`
	StartPrice      int64     `json:"start_price" validate:"required,gt=0"`
	DurationSeconds *int64    `json:"duration_seconds,omitempty" validate:"omitempty,gt=0"`
	BuyNowPrice     *int64    `json:"buy_now_price,omitempty" validate:"omitempty,gt=0"`
	MinIncrementAbs *int64    `json:"min_increment_abs,omitempty" validate:"omitempty,gt=0"`
	MinIncrementPct *int64    `json:"min_increment_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// placeBidRequest is the POST /market/auctions/{id}/bids body.
type placeBidRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// auctionResponse is the wire form of an auction.
type auctionResponse struct {
	ID              uuid.UUID  `json:"id"`
	PetID           uuid.UUID  `json:"pet_id"`
	SellerID        uuid.UUID  `json:"seller_id"`
	StartPrice      int64      `json:"start_price"`
	CurrentPrice    int64      `json:"current_price"`
	BuyNowPrice     *int64     `json:"buy_now_price,omitempty"`
	Status          string     `json:"status"`
	CurrentWinnerID *uuid.UUID `json:"current_winner_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	EndTime         time.Time  `json:"end_time"`
}

// auctionDetailResponse adds derived bidding info.
type auctionDetailResponse struct {
	auctionResponse
	MinimumNextBid int64         `json:"minimum_next_bid"`
	Bids           []bidResponse `json:"bids"`
}

type bidResponse struct {
	ID        uuid.UUID `json:"id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type auctionListResponse struct {
	Auctions []auctionResponse `json:"auctions"`
	Page     int               `json:"page"`
}

func toAuctionResponse(a *auction.Auction) auctionResponse {
	resp := auctionResponse{
		ID:              a.ID,
		PetID:           a.PetID,
		SellerID:        a.SellerID,
		StartPrice:      a.StartPrice.Int64(),
		CurrentPrice:    a.CurrentPrice.Int64(),
		Status:          a.Status.String(),
		CurrentWinnerID: a.CurrentWinnerID,
		CreatedAt:       a.CreatedAt,
		EndTime:         a.EndTime,
	}
	if a.BuyNowPrice != nil {
		v := a.BuyNowPrice.Int64()
		resp.BuyNowPrice = &v
	}
	return resp
}

func toAuctionDetailResponse(d *market.AuctionDetail) auctionDetailResponse {
	bids := make([]bidResponse, 0, len(d.Bids))
	for _, b := range d.Bids {
		bids = append(bids, bidResponse{
			ID:        b.ID,
			BidderID:  b.BidderID,
			Amount:    b.Amount.Int64(),
			CreatedAt: b.CreatedAt,
		})
	}
	return auctionDetailResponse{
		auctionResponse: toAuctionResponse(d.Auction),
		MinimumNextBid:  d.MinimumNextBid.Int64(),
		Bids:            bids,
	}
}
