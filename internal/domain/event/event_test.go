package event

import (
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeStatusChanged, 42, map[string]interface{}{"new_status": "SUBMITTED"})

	if evt.ID == "" {
		t.Error("expected generated event ID")
	}
	if evt.CorrelationID == "" {
		t.Error("expected generated correlation ID")
	}
	if evt.ApplicationID != 42 {
		t.Errorf("ApplicationID = %d, want 42", evt.ApplicationID)
	}
	if evt.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
	if err := evt.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	parent := NewEvent(TypeStatusChanged, 42, nil)
	child := NewEventWithCorrelation(TypeOfficerAssigned, 42, nil, parent.CorrelationID)

	if child.CorrelationID != parent.CorrelationID {
		t.Errorf("CorrelationID = %s, want %s", child.CorrelationID, parent.CorrelationID)
	}
	if child.ID == parent.ID {
		t.Error("child event reused the parent's ID")
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"valid", func(e *Event) {}, false},
		{"missing id", func(e *Event) { e.ID = "" }, true},
		{"invalid type", func(e *Event) { e.Type = Type("nope") }, true},
		{"zero application id", func(e *Event) { e.ApplicationID = 0 }, true},
		{"zero timestamp", func(e *Event) { e.Timestamp = time.Time{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := NewEvent(TypeApplicationCreated, 1, nil)
			tt.mutate(evt)
			if err := evt.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvent_WithPayload(t *testing.T) {
	evt := NewEvent(TypeStatusChanged, 1, map[string]interface{}{"a": 1})
	clone := evt.WithPayload("b", 2)

	if _, ok := evt.Payload["b"]; ok {
		t.Error("WithPayload mutated the original event")
	}
	if clone.Payload["a"] != 1 || clone.Payload["b"] != 2 {
		t.Errorf("clone payload = %v, want both entries", clone.Payload)
	}
}

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		expected  bool
	}{
		{TypeApplicationCreated, true},
		{TypeStatusChanged, true},
		{TypeEscalationStalled, true},
		{Type("made.up"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.expected {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}
