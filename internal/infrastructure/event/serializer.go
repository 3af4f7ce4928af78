package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// EventSerializer maps outbox event_type values to the concrete event
// structs their JSON payloads decode into.
type EventSerializer struct {
	mu    sync.RWMutex
	ctors map[string]func() shared.DomainEvent
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{ctors: make(map[string]func() shared.DomainEvent)}
}

// Register binds eventType to the struct behind sample. sample must be a
// pointer whose pointee implements shared.DomainEvent.
func (s *EventSerializer) Register(eventType string, sample shared.DomainEvent) {
	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	ctor := func() shared.DomainEvent {
		return reflect.New(t).Interface().(shared.DomainEvent)
	}

	s.mu.Lock()
	s.ctors[eventType] = ctor
	s.mu.Unlock()
}

// Serialize encodes event for the outbox; unregistered types are refused
// so nothing is written that the processor could not read back.
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if !s.IsRegistered(event.EventType()) {
		return nil, fmt.Errorf("unregistered event type: %s", event.EventType())
	}
	return json.Marshal(event)
}

// Deserialize decodes an outbox payload. The payload must carry an event id
// and, when it names a type, the same type as the outbox row.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	ctor, ok := s.ctors[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := ctor()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	if event.EventID() == uuid.Nil {
		return nil, fmt.Errorf("event payload of type %s has no id", eventType)
	}
	if got := event.EventType(); got != "" && got != eventType {
		return nil, fmt.Errorf("payload of %s row carries event type %s", eventType, got)
	}
	return event, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ctors[eventType]
	return ok
}

// RegisteredTypes lists registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	types := make([]string, 0, len(s.ctors))
	for t := range s.ctors {
		types = append(types, t)
	}
	s.mu.RUnlock()
	slices.Sort(types)
	return types
}
