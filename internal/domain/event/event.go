package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event emitted by the workflow core
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ApplicationID int64                  `json:"application_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, applicationID int64, payload map[string]interface{}) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ApplicationID: applicationID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
	}
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, applicationID int64, payload map[string]interface{}, correlationID string) *Event {
	e := NewEvent(eventType, applicationID, payload)
	e.CorrelationID = correlationID
	return e
}

// WithPayload returns a copy of the event with an added payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	clone := *e
	clone.Payload = payload
	return &clone
}

// Validate checks that the event is well-formed
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event ID is required")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid event type: %s", e.Type)
	}
	if e.ApplicationID <= 0 {
		return fmt.Errorf("event has no application ID")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event timestamp is required")
	}
	return nil
}

// String returns a short description for logging
func (e *Event) String() string {
	return fmt.Sprintf("%s(app=%d, id=%s)", e.Type, e.ApplicationID, e.ID)
}
