package prober

import (
	"context"

	"github.com/samvad-hq/samvad-netclient/pkg/publishers"
)

// EventPublisher publishes changed outcomes downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// OutcomeStore remembers the last published outcome per probe.
type OutcomeStore interface {
	Changed(probeID, signature string) (bool, error)
	Record(probeID, signature string) error
}
