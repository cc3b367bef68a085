package queue

import (
	"context"
	"encoding/json"
)

// Job handles messages of a single type.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type returns the message type the job consumes.
	Type() string

	// Handle processes one decoded message payload.
	Handle(ctx context.Context, payload json.RawMessage) error
}
