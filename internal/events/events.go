package events

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const (
	EventReservationCreated     = "reservation_created"
	EventReservationRescheduled = "reservation_rescheduled"
	EventReservationCancelled   = "reservation_cancelled"
	EventInteractionRecorded    = "interaction_recorded"
	EventRecommendationsRefresh = "recommendations_refreshed"
)

// ReservationEventPayload is the reservation snapshot handed to subscribers.
type ReservationEventPayload struct {
	ReservationID string    `json:"reservation_id"`
	ResourceID    string    `json:"resource_id"`
	Kind          string    `json:"kind"`
	UserID        string    `json:"user_id"`
	PartySize     int       `json:"party_size"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"`
	TotalPrice    float64   `json:"total_price"`
	// FromRecommendation marks a booking made from a recommended list.
	FromRecommendation bool `json:"from_recommendation,omitempty"`
}

// InteractionEventPayload is published once an interaction is accepted.
type InteractionEventPayload struct {
	InteractionID string `json:"interaction_id"`
	UserID        string `json:"user_id"`
	ResourceID    string `json:"resource_id"`
	Type          string `json:"interaction_type"`
}

// RefreshEventPayload is published after an admin cache refresh.
type RefreshEventPayload struct {
	ModelReloaded bool      `json:"model_reloaded"`
	RequestedBy   string    `json:"requested_by,omitempty"`
	At            time.Time `json:"at"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into out.
func (e *Event) Decode(out any) error {
	return json.Unmarshal(e.Payload, out)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// ErrorHandler is told about handler failures.
type ErrorHandler func(event *Event, err error)

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     ErrorHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError sets a callback for handler errors. Without it errors are dropped.
func (b *EventBus) OnError(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = h
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	ev, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&ev)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
