package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// profileRepository resolves public display names. Notifications fall
// back to a generic label when a profile row is missing.
type profileRepository struct {
	db DBTX
}

func (r *profileRepository) GetDisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	var name string
	err := r.db.QueryRow(ctx,
		`SELECT display_name FROM user_profiles WHERE user_id = $1`,
		userID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get display name: %w", err)
	}
	return name, nil
}

// GetTelegramChatID resolves a user's Telegram chat. ok is false when
// the user has no profile or never linked Telegram.
func (r *profileRepository) GetTelegramChatID(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	var chatID *int64
	err := r.db.QueryRow(ctx,
		`SELECT telegram_chat_id FROM user_profiles WHERE user_id = $1`,
		userID,
	).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get telegram chat id: %w", err)
	}
	if chatID == nil {
		return 0, false, nil
	}
	return *chatID, true, nil
}
