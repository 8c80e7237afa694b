package domain

// EventType is the declared type of an inbound message.
type EventType string

const (
	EventText  EventType = "text"
	EventImage EventType = "image"
	EventOther EventType = "other"
)

// InboundEvent is one message delivered by the messaging provider.
type InboundEvent struct {
	ID      string
	Sender  string
	Type    EventType
	Text    string
	MediaID string
}
