package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/auction"
	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
	"github.com/tamaverse/pet-auction-backend/internal/domain/pet"
	"github.com/tamaverse/pet-auction-backend/internal/domain/wallet"
	"github.com/tamaverse/pet-auction-backend/internal/service/market"
)

// MemStore is an in-memory market.Store for service tests. Reads hand
// out copies and writes store copies, mirroring row semantics, and
// InTx snapshots all state so a failed transaction rolls back exactly
// like the real store. A single mutex stands in for row locks; the
// services under test never run competing transactions concurrently.
type MemStore struct {
	mu sync.Mutex

	auctions     map[uuid.UUID]*auction.Auction
	bids         map[uuid.UUID][]*auction.Bid
	wallets      map[uuid.UUID]*wallet.Wallet
	holds        map[uuid.UUID]*wallet.Hold
	pets         map[uuid.UUID]*pet.Pet
	history      []*pet.OwnershipRecord
	profiles     map[uuid.UUID]string
	events       []*event.Event
	transactions []*wallet.Transaction
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		auctions: make(map[uuid.UUID]*auction.Auction),
		bids:     make(map[uuid.UUID][]*auction.Bid),
		wallets:  make(map[uuid.UUID]*wallet.Wallet),
		holds:    make(map[uuid.UUID]*wallet.Hold),
		pets:     make(map[uuid.UUID]*pet.Pet),
		profiles: make(map[uuid.UUID]string),
	}
}

// Seed helpers.

func (m *MemStore) SeedAuction(a *auction.Auction) { cp := *a; m.auctions[a.ID] = &cp }
func (m *MemStore) SeedWallet(w *wallet.Wallet)    { cp := *w; m.wallets[w.UserID] = &cp }
func (m *MemStore) SeedPet(p *pet.Pet)             { cp := *p; m.pets[p.ID] = &cp }
func (m *MemStore) SeedProfile(userID uuid.UUID, name string) {
	m.profiles[userID] = name
}

// Inspection helpers.

func (m *MemStore) Auction(id uuid.UUID) *auction.Auction {
	if a, ok := m.auctions[id]; ok {
		cp := *a
		return &cp
	}
	return nil
}

func (m *MemStore) Wallet(userID uuid.UUID) *wallet.Wallet {
	if w, ok := m.wallets[userID]; ok {
		cp := *w
		return &cp
	}
	return nil
}

func (m *MemStore) Pet(id uuid.UUID) *pet.Pet {
	if p, ok := m.pets[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (m *MemStore) Holds(auctionID uuid.UUID) []*wallet.Hold {
	var out []*wallet.Hold
	for _, h := range m.holds {
		if h.AuctionID == auctionID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemStore) Events() []*event.Event {
	return append([]*event.Event(nil), m.events...)
}

func (m *MemStore) EventsOfKind(kind event.Kind) []*event.Event {
	var out []*event.Event
	for _, e := range m.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemStore) Transactions(userID uuid.UUID) []*wallet.Transaction {
	var out []*wallet.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (m *MemStore) History() []*pet.OwnershipRecord {
	return append([]*pet.OwnershipRecord(nil), m.history...)
}

// market.Store implementation.

func (m *MemStore) Auctions() market.AuctionRepository { return (*memAuctions)(m) }
func (m *MemStore) Wallets() market.WalletRepository   { return (*memWallets)(m) }
func (m *MemStore) Pets() market.PetRepository         { return (*memPets)(m) }
func (m *MemStore) Profiles() market.ProfileRepository { return (*memProfiles)(m) }
func (m *MemStore) Outbox() market.OutboxRepository    { return (*memOutbox)(m) }

type snapshot struct {
	auctions     map[uuid.UUID]*auction.Auction
	bids         map[uuid.UUID][]*auction.Bid
	wallets      map[uuid.UUID]*wallet.Wallet
	holds        map[uuid.UUID]*wallet.Hold
	pets         map[uuid.UUID]*pet.Pet
	history      []*pet.OwnershipRecord
	events       []*event.Event
	transactions []*wallet.Transaction
}

// InTx runs fn and rolls every repository back when it fails. Stored
// values are never mutated in place (updates replace pointers), so a
// shallow snapshot of the maps is a full rollback point.
func (m *MemStore) InTx(ctx context.Context, fn func(ctx context.Context, s market.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := snapshot{
		auctions:     copyMap(m.auctions),
		bids:         copyBids(m.bids),
		wallets:      copyMap(m.wallets),
		holds:        copyMap(m.holds),
		pets:         copyMap(m.pets),
		history:      append([]*pet.OwnershipRecord(nil), m.history...),
		events:       append([]*event.Event(nil), m.events...),
		transactions: append([]*wallet.Transaction(nil), m.transactions...),
	}

	if err := fn(ctx, m); err != nil {
		m.auctions = snap.auctions
		m.bids = snap.bids
		m.wallets = snap.wallets
		m.holds = snap.holds
		m.pets = snap.pets
		m.history = snap.history
		m.events = snap.events
		m.transactions = snap.transactions
		return err
	}
	return nil
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyBids(src map[uuid.UUID][]*auction.Bid) map[uuid.UUID][]*auction.Bid {
	dst := make(map[uuid.UUID][]*auction.Bid, len(src))
	for k, v := range src {
		dst[k] = append([]*auction.Bid(nil), v...)
	}
	return dst
}

// memAuctions implements market.AuctionRepository over MemStore.
type memAuctions MemStore

func (m *memAuctions) Create(ctx context.Context, a *auction.Auction) error {
	cp := *a
	m.auctions[a.ID] = &cp
	return nil
}

func (m *memAuctions) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	a, ok := m.auctions[id]
	if !ok {
		return nil, errors.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAuctions) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	return m.GetByID(ctx, id)
}

func (m *memAuctions) Update(ctx context.Context, a *auction.Auction) error {
	stored, ok := m.auctions[a.ID]
	if !ok {
		return errors.ErrAuctionNotFound
	}
	if stored.Version != a.Version-1 {
		return errors.NewConflictError("auction modified concurrently")
	}
	cp := *a
	m.auctions[a.ID] = &cp
	return nil
}

func (m *memAuctions) List(ctx context.Context, status auction.Status, limit, offset int) ([]*auction.Auction, error) {
	var all []*auction.Auction
	for _, a := range m.auctions {
		if a.Status == status {
			cp := *a
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EndTime.Before(all[j].EndTime) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memAuctions) ListDueIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var due []*auction.Auction
	for _, a := range m.auctions {
		if a.Status == auction.StatusActive && !a.EndTime.After(now) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].EndTime.Before(due[j].EndTime) })
	var ids []uuid.UUID
	for _, a := range due {
		if len(ids) == limit {
			break
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (m *memAuctions) CountActiveBySeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	count := 0
	for _, a := range m.auctions {
		if a.SellerID == sellerID && a.Status == auction.StatusActive {
			count++
		}
	}
	return count, nil
}

func (m *memAuctions) HasActiveForPet(ctx context.Context, petID uuid.UUID) (bool, error) {
	for _, a := range m.auctions {
		if a.PetID == petID && a.Status == auction.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAuctions) CreateBid(ctx context.Context, b *auction.Bid) error {
	cp := *b
	m.bids[b.AuctionID] = append(m.bids[b.AuctionID], &cp)
	return nil
}

func (m *memAuctions) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	bids := m.bids[auctionID]
	out := make([]*auction.Bid, 0, len(bids))
	for i := len(bids) - 1; i >= 0; i-- {
		cp := *bids[i]
		out = append(out, &cp)
	}
	return out, nil
}

// memWallets implements market.WalletRepository over MemStore.
type memWallets MemStore

func (m *memWallets) GetByUser(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	w, ok := m.wallets[userID]
	if !ok {
		return nil, errors.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWallets) GetByUserForUpdate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return m.GetByUser(ctx, userID)
}

func (m *memWallets) Create(ctx context.Context, w *wallet.Wallet) error {
	cp := *w
	m.wallets[w.UserID] = &cp
	return nil
}

func (m *memWallets) Update(ctx context.Context, w *wallet.Wallet) error {
	if _, ok := m.wallets[w.UserID]; !ok {
		return errors.ErrWalletNotFound
	}
	cp := *w
	m.wallets[w.UserID] = &cp
	return nil
}

func (m *memWallets) CreateHold(ctx context.Context, h *wallet.Hold) error {
	for _, existing := range m.holds {
		if existing.UserID == h.UserID && existing.AuctionID == h.AuctionID && existing.Status == wallet.HoldStatusActive {
			return errors.NewConflictError("active hold already exists")
		}
	}
	cp := *h
	m.holds[h.ID] = &cp
	return nil
}

func (m *memWallets) GetActiveHold(ctx context.Context, userID, auctionID uuid.UUID) (*wallet.Hold, error) {
	for _, h := range m.holds {
		if h.UserID == userID && h.AuctionID == auctionID && h.Status == wallet.HoldStatusActive {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memWallets) ListActiveHoldsByAuction(ctx context.Context, auctionID uuid.UUID) ([]*wallet.Hold, error) {
	var out []*wallet.Hold
	for _, h := range m.holds {
		if h.AuctionID == auctionID && h.Status == wallet.HoldStatusActive {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memWallets) UpdateHold(ctx context.Context, h *wallet.Hold) error {
	if _, ok := m.holds[h.ID]; !ok {
		return errors.NewNotFoundError("hold")
	}
	cp := *h
	m.holds[h.ID] = &cp
	return nil
}

func (m *memWallets) LogTransaction(ctx context.Context, t *wallet.Transaction) error {
	cp := *t
	m.transactions = append(m.transactions, &cp)
	return nil
}

// memPets implements market.PetRepository over MemStore.
type memPets MemStore

func (m *memPets) GetByID(ctx context.Context, id uuid.UUID) (*pet.Pet, error) {
	p, ok := m.pets[id]
	if !ok {
		return nil, errors.ErrPetNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPets) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*pet.Pet, error) {
	return m.GetByID(ctx, id)
}

func (m *memPets) TransferOwner(ctx context.Context, petID, from, to uuid.UUID) error {
	p, ok := m.pets[petID]
	if !ok {
		return errors.ErrPetNotFound
	}
	if p.OwnerID != from {
		return errors.NewConflictError("pet owner changed")
	}
	cp := *p
	cp.OwnerID = to
	cp.UpdatedAt = time.Now().UTC()
	m.pets[petID] = &cp
	return nil
}

func (m *memPets) AppendHistory(ctx context.Context, rec *pet.OwnershipRecord) error {
	cp := *rec
	m.history = append(m.history, &cp)
	return nil
}

// memProfiles implements market.ProfileRepository over MemStore.
type memProfiles MemStore

func (m *memProfiles) GetDisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	return m.profiles[userID], nil
}

// memOutbox implements market.OutboxRepository over MemStore.
type memOutbox MemStore

func (m *memOutbox) Enqueue(ctx context.Context, e *event.Event) error {
	cp := *e
	m.events = append(m.events, &cp)
	return nil
}
