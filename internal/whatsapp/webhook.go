package whatsapp

import (
	"github.com/GuilhermePossari/Lilabot/internal/domain"
)

// WebhookPayload is the body of an event delivery.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one notification inside an entry.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries messages or status updates.
type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
}

// Contact is the sender profile attached to a message.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one inbound user message.
type Message struct {
	From      string     `json:"from"`
	ID        string     `json:"id"`
	Timestamp string     `json:"timestamp"`
	Type      string     `json:"type"`
	Text      *TextPart  `json:"text,omitempty"`
	Image     *MediaPart `json:"image,omitempty"`
}

// TextPart is the payload of a text message.
type TextPart struct {
	Body string `json:"body"`
}

// MediaPart is the payload of a media message.
type MediaPart struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
}

// Event extracts the single message event of a delivery. Deliveries carry
// at most one message; status-only deliveries report false.
func (p WebhookPayload) Event() (domain.InboundEvent, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return domain.InboundEvent{}, false
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 || msgs[0].From == "" {
		return domain.InboundEvent{}, false
	}
	m := msgs[0]

	ev := domain.InboundEvent{ID: m.ID, Sender: m.From, Type: domain.EventOther}
	switch {
	case m.Type == "text" && m.Text != nil:
		ev.Type = domain.EventText
		ev.Text = m.Text.Body
	case m.Type == "image" && m.Image != nil && m.Image.ID != "":
		ev.Type = domain.EventImage
		ev.MediaID = m.Image.ID
	}
	return ev, true
}
