package telemetry

import (
	"encoding/json"
	"fmt"

	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
)

func decodePayload(e *event.Event, out interface{}) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}
