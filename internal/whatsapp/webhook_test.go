package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
)

func decodePayload(t *testing.T, body string) WebhookPayload {
	t.Helper()
	var p WebhookPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return p
}

func TestEvent(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
		want domain.InboundEvent
	}{
		{
			name: "text",
			body: `{"entry":[{"changes":[{"value":{"messages":[{"from":"5511","id":"m1","type":"text","text":{"body":"oi"}}]}}]}]}`,
			ok:   true,
			want: domain.InboundEvent{ID: "m1", Sender: "5511", Type: domain.EventText, Text: "oi"},
		},
		{
			name: "image",
			body: `{"entry":[{"changes":[{"value":{"messages":[{"from":"5511","id":"m2","type":"image","image":{"id":"media-1","mime_type":"image/jpeg"}}]}}]}]}`,
			ok:   true,
			want: domain.InboundEvent{ID: "m2", Sender: "5511", Type: domain.EventImage, MediaID: "media-1"},
		},
		{
			name: "audio is other",
			body: `{"entry":[{"changes":[{"value":{"messages":[{"from":"5511","id":"m3","type":"audio"}]}}]}]}`,
			ok:   true,
			want: domain.InboundEvent{ID: "m3", Sender: "5511", Type: domain.EventOther},
		},
		{
			name: "status only",
			body: `{"entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`,
		},
		{
			name: "empty",
			body: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodePayload(t, tt.body).Event()
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
