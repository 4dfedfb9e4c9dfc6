package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AyushGupta011/Velyra/internal/logging"
)

var ErrMalformedEnvelope = errors.New("malformed event envelope")

// EventEnvelope wraps every published payload. PartitionKey is the order id
// and Sequence orders events within it.
type EventEnvelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      int64     `json:"sequence"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
	Payload       T         `json:"payload"`
}

// Validate is what consumers run before trusting an envelope.
func (e EventEnvelope[T]) Validate(name string, version int) error {
	switch {
	case e.EventName != name:
		return fmt.Errorf("%w: eventName %q, want %q", ErrMalformedEnvelope, e.EventName, name)
	case e.EventVersion != version:
		return fmt.Errorf("%w: eventVersion %d, want %d", ErrMalformedEnvelope, e.EventVersion, version)
	case e.PartitionKey == "":
		return fmt.Errorf("%w: no partitionKey", ErrMalformedEnvelope)
	case e.Sequence < 1:
		return fmt.Errorf("%w: sequence %d", ErrMalformedEnvelope, e.Sequence)
	}
	return nil
}

func newEnvelope[T any](ctx context.Context, p *AMQPPublisher, partitionKey, name, schema string, payload T) (EventEnvelope[T], error) {
	seq, err := p.seq.NextSequence(ctx, partitionKey)
	if err != nil {
		return EventEnvelope[T]{}, fmt.Errorf("reserve sequence: %w", err)
	}
	correlationID := logging.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return EventEnvelope[T]{
		EventName:     name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      p.producer,
		PartitionKey:  partitionKey,
		Sequence:      seq,
		OccurredAt:    p.now().UTC(),
		Schema:        schema,
		Payload:       payload,
	}, nil
}
