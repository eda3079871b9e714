package publishers

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a received status payload published downstream.
type Event struct {
	ID         string            `json:"id"`
	SourceURL  string            `json:"source_url"`
	Body       string            `json:"body"`
	Vars       map[string]string `json:"vars,omitempty"`
	ReceivedAt time.Time         `json:"received_at"`
}

// NewEvent constructs an Event for a payload fetched from sourceURL.
func NewEvent(sourceURL, body string, vars map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		SourceURL:  sourceURL,
		Body:       body,
		Vars:       vars,
		ReceivedAt: time.Now().UTC(),
	}
}
