package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tamaverse/pet-auction-backend/internal/infrastructure/config"
)

// TelegramClient sends messages through the Telegram Bot API. Delivery
// is best effort: failures are logged and reported but never block
// settlement.
type TelegramClient struct {
	httpClient *http.Client
	apiBase    string
	token      string
	enabled    bool
	logger     *zap.Logger
}

// NewTelegramClient builds a client from config. A disabled client
// silently drops messages, which keeps local development quiet.
func NewTelegramClient(cfg *config.TelegramConfig, logger *zap.Logger) *TelegramClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramClient{
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    cfg.APIBase,
		token:      cfg.Token,
		enabled:    cfg.Enabled && cfg.Token != "",
		logger:     logger,
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send delivers one message to a chat.
func (c *TelegramClient) Send(ctx context.Context, chatID int64, text string) error {
	if !c.enabled {
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var result sendMessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to decode telegram response (status %d): %w", resp.StatusCode, err)
	}
	if !result.OK {
		c.logger.Warn("telegram send rejected",
			zap.Int64("chat_id", chatID),
			zap.Int("status", resp.StatusCode),
			zap.String("description", result.Description))
		return fmt.Errorf("telegram rejected message: %s", result.Description)
	}

	return nil
}
