// Package domain contains core domain types for the Lilabot application.
package domain

// Mode is the conversational mode of a sender.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeChat   Mode = "chat"
)

// ParseMode maps a stored mode value to a Mode. The legacy "pergunta"
// value is an alias of chat. Unknown values fall back to normal.
func ParseMode(s string) Mode {
	switch s {
	case string(ModeChat), "pergunta":
		return ModeChat
	default:
		return ModeNormal
	}
}

// Role tags a history turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// MaxHistory is the size of the rolling history window.
const MaxHistory = 16

// Turn is a single role-tagged history entry.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Session holds the per-sender conversational state.
type Session struct {
	Mode           Mode   `json:"mode"`
	PersonaEnabled bool   `json:"persona"`
	History        []Turn `json:"history"`
}

// NewSession returns the default state for an unseen sender.
func NewSession() Session {
	return Session{Mode: ModeNormal, History: []Turn{}}
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (s Session) Clone() Session {
	c := s
	c.History = make([]Turn, len(s.History))
	copy(c.History, s.History)
	return c
}

// AppendTurns adds turns and trims the oldest entries beyond MaxHistory.
func (s *Session) AppendTurns(turns ...Turn) {
	s.History = append(s.History, turns...)
	if n := len(s.History); n > MaxHistory {
		trimmed := make([]Turn, MaxHistory)
		copy(trimmed, s.History[n-MaxHistory:])
		s.History = trimmed
	}
}
