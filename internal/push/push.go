package push

import (
	"context"

	"github.com/nudgelab/reminder-engine/internal/domain"
)

// Sink is the outbound push delivery port. Implementations return a
// SinkError for delivery failures; callers treat delivery as best-effort
// and never let a sink failure escape the dispatch boundary.
type Sink interface {
	Send(ctx context.Context, sub domain.Subscription, payload Payload) error
}

// Payload is the push notification body shown to the subject's device.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Icon  string            `json:"icon,omitempty"`
	Badge string            `json:"badge,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}
