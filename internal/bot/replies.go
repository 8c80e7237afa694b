package bot

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed replies.yaml
var defaultReplies []byte

// Replies is the catalog of fixed texts and prompts.
type Replies struct {
	Greeting              string `yaml:"greeting"`
	Help                  string `yaml:"help"`
	GratitudeFallback     string `yaml:"gratitude_fallback"`
	GratitudeUnconfigured string `yaml:"gratitude_unconfigured"`
	StickerFailed         string `yaml:"sticker_failed"`
	StickerDone           string `yaml:"sticker_done"`
	GenerationFailed      string `yaml:"generation_failed"`
	PersistenceFailed     string `yaml:"persistence_failed"`
	RateLimited           string `yaml:"rate_limited"`

	Modes   map[domain.Mode]string `yaml:"modes"`
	Persona map[string]string      `yaml:"persona"`

	SystemPrompt  string `yaml:"system_prompt"`
	PersonaPrompt string `yaml:"persona_prompt"`

	JokePrompts   map[domain.JokeCategory]string   `yaml:"joke_prompts"`
	JokeFallbacks map[domain.JokeCategory][]string `yaml:"joke_fallbacks"`

	Stats StatsReplies `yaml:"stats"`
}

// StatsReplies are the format strings of the ranking message.
type StatsReplies struct {
	Header string `yaml:"header"`
	Total  string `yaml:"total"`
	Yours  string `yaml:"yours"`
	Top    string `yaml:"top"`
	Empty  string `yaml:"empty"`
}

// DefaultReplies returns the embedded catalog.
func DefaultReplies() (*Replies, error) {
	var r Replies
	if err := yaml.Unmarshal(defaultReplies, &r); err != nil {
		return nil, fmt.Errorf("decode embedded replies: %w", err)
	}
	return &r, r.validate()
}

// LoadReplies returns the embedded catalog with any keys from the YAML file
// at path laid over it. An empty path returns the defaults.
func LoadReplies(path string) (*Replies, error) {
	r, err := DefaultReplies()
	if err != nil || path == "" {
		return r, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replies: %w", err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode replies %s: %w", path, err)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("replies %s: %w", path, err)
	}
	return r, nil
}

func (r *Replies) validate() error {
	for _, c := range domain.Categories {
		if len(r.JokeFallbacks[c]) == 0 {
			return fmt.Errorf("joke_fallbacks.%s cannot be empty", c)
		}
		if r.JokePrompts[c] == "" {
			return fmt.Errorf("joke_prompts.%s cannot be empty", c)
		}
	}
	required := []struct{ key, value string }{
		{"greeting", r.Greeting},
		{"help", r.Help},
		{"sticker_failed", r.StickerFailed},
		{"generation_failed", r.GenerationFailed},
		{"persistence_failed", r.PersistenceFailed},
		{"rate_limited", r.RateLimited},
		{"modes.normal", r.Modes[domain.ModeNormal]},
		{"modes.chat", r.Modes[domain.ModeChat]},
		{"persona.on", r.Persona["on"]},
		{"persona.off", r.Persona["off"]},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%s cannot be empty", f.key)
		}
	}
	return nil
}

func (r *Replies) system(persona bool) string {
	if persona && r.PersonaPrompt != "" {
		return r.PersonaPrompt
	}
	return r.SystemPrompt
}

func (r *Replies) persona(enabled bool) string {
	if enabled {
		return r.Persona["on"]
	}
	return r.Persona["off"]
}
