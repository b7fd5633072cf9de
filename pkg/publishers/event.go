package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-netclient/internal/domain"
)

// Event represents the payload published downstream when a probe outcome changes.
type Event struct {
	ProbeID    string         `json:"probe_id"`
	ProbeName  string         `json:"probe_name"`
	Outcome    domain.Outcome `json:"outcome"`
	ObservedAt time.Time      `json:"observed_at"`
}

// NewEvent constructs an Event for the given probe + outcome.
func NewEvent(probeID, probeName string, outcome domain.Outcome) Event {
	return Event{
		ProbeID:    probeID,
		ProbeName:  probeName,
		Outcome:    outcome,
		ObservedAt: time.Now().UTC(),
	}
}
