package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainerrors "github.com/tamaverse/pet-auction-backend/internal/domain/errors"
	"github.com/tamaverse/pet-auction-backend/internal/domain/pet"
)

// petRepository implements market.PetRepository using PostgreSQL.
type petRepository struct {
	db DBTX
}

const petColumns = `id, owner_id, name, stage, status, health, created_at, updated_at`

// GetByID retrieves a pet by id.
func (r *petRepository) GetByID(ctx context.Context, id uuid.UUID) (*pet.Pet, error) {
	query := `SELECT ` + petColumns + ` FROM pets WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves a pet with a row lock, so listing and
// transfer cannot race with other ownership changes.
func (r *petRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*pet.Pet, error) {
	query := `SELECT ` + petColumns + ` FROM pets WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// TransferOwner reassigns the pet to a new owner. The owner predicate
// turns a mid-flight ownership change into a conflict instead of a
// silent double-transfer.
func (r *petRepository) TransferOwner(ctx context.Context, petID, from, to uuid.UUID) error {
	query := `
		UPDATE pets
		SET owner_id = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.db.Exec(ctx, query, petID, from, to)
	if err != nil {
		return fmt.Errorf("failed to transfer pet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.NewConflictError(fmt.Sprintf("pet %s is no longer owned by %s", petID, from))
	}
	return nil
}

// AppendHistory records an ownership transfer.
func (r *petRepository) AppendHistory(ctx context.Context, rec *pet.OwnershipRecord) error {
	query := `
		INSERT INTO pet_ownership_history (id, pet_id, from_user_id, to_user_id, price, auction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.PetID, rec.FromUserID, rec.ToUserID,
		rec.Price.Int64(), rec.AuctionID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append ownership history: %w", err)
	}
	return nil
}

func (r *petRepository) scanOne(row pgx.Row) (*pet.Pet, error) {
	var p pet.Pet
	var stage, status string
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &stage, &status, &p.Health, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrPetNotFound
		}
		return nil, fmt.Errorf("failed to get pet: %w", err)
	}
	p.Stage = pet.Stage(stage)
	p.Status = pet.ParseLifeStatus(status)
	return &p, nil
}
