package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Event types published on auction state transitions.
const (
	EventAwarded       = "awarded"
	EventSellerAdvance = "seller_advance"
	EventBuyerAdvance  = "buyer_advance"
	EventCompleted     = "completed"
	EventCancelled     = "cancelled"
)

// Event is the payload handed to the push-notification dispatcher.
// Delivery and topic fan-out happen downstream; the core only records
// that a transition occurred.
type Event struct {
	EventID    string    `json:"event_id"`
	ListingID  string    `json:"listing_id"`
	Type       string    `json:"type"`
	ActorID    string    `json:"actor_id,omitempty"`
	Step       int       `json:"step,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier publishes auction events. Publishing is best effort: a lost
// event never fails the state transition that produced it.
type Notifier interface {
	Publish(event Event)
}

// NewEvent fills in the identity and timestamp fields.
func NewEvent(listingID, eventType, actorID string, step int) Event {
	return Event{
		EventID:    uuid.New().String(),
		ListingID:  listingID,
		Type:       eventType,
		ActorID:    actorID,
		Step:       step,
		OccurredAt: time.Now().UTC(),
	}
}

// NATSNotifier publishes events to a NATS subject per listing, so the
// dispatcher can subscribe with auction.events.* and route per device.
type NATSNotifier struct {
	conn *nats.Conn
}

// NewNATSNotifier connects to the given NATS server.
func NewNATSNotifier(url string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNotifier{conn: conn}, nil
}

// Publish marshals the event and publishes it, logging failures instead
// of returning them.
func (n *NATSNotifier) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Str("event_id", event.EventID).Msg("failed to marshal auction event")
		return
	}

	subject := fmt.Sprintf("auction.events.%s", event.ListingID)
	if err := n.conn.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("failed to publish auction event")
		return
	}

	log.Debug().
		Str("subject", subject).
		Str("type", event.Type).
		Msg("published auction event")
}

// Close drains the underlying connection.
func (n *NATSNotifier) Close() {
	n.conn.Close()
}

// NopNotifier drops all events. Used when no NATS server is configured
// and in tests.
type NopNotifier struct{}

func (NopNotifier) Publish(Event) {}
