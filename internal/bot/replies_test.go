package bot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
)

func TestDefaultRepliesAreComplete(t *testing.T) {
	r, err := DefaultReplies()
	if err != nil {
		t.Fatalf("DefaultReplies: %v", err)
	}
	for _, c := range domain.Categories {
		if len(r.JokeFallbacks[c]) == 0 {
			t.Errorf("Expected fallback jokes for %s", c)
		}
	}
	if r.Modes[domain.ModeChat] == "" || r.Modes[domain.ModeNormal] == "" {
		t.Error("Expected confirmation texts for both modes")
	}
	if r.persona(true) == "" || r.persona(false) == "" {
		t.Error("Expected persona confirmations")
	}
}

func TestLoadRepliesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	override := "greeting: \"Olá!\"\njoke_fallbacks:\n  medical:\n    - \"só uma\"\n"
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := LoadReplies(path)
	if err != nil {
		t.Fatalf("LoadReplies: %v", err)
	}
	if r.Greeting != "Olá!" {
		t.Errorf("Expected overridden greeting, got %q", r.Greeting)
	}
	if got := r.JokeFallbacks[domain.CategoryMedical]; len(got) != 1 || got[0] != "só uma" {
		t.Errorf("Expected overridden medical pool, got %v", got)
	}
	if len(r.JokeFallbacks[domain.CategoryGeneral]) == 0 {
		t.Error("Expected general pool to keep its defaults")
	}
}

func TestLoadRepliesRejectsEmptyPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	if err := os.WriteFile(path, []byte("joke_fallbacks:\n  general: []\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadReplies(path); err == nil {
		t.Error("Expected error for empty fallback pool")
	}
}

func TestLoadRepliesRequiresModeAndPersonaTexts(t *testing.T) {
	overrides := map[string]string{
		"modes.chat":  "modes:\n  chat: \"\"\n",
		"persona.off": "persona:\n  \"off\": \"\"\n",
	}
	for name, body := range overrides {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "replies.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := LoadReplies(path)
			if err == nil || !strings.Contains(err.Error(), name) {
				t.Errorf("Expected error naming %s, got %v", name, err)
			}
		})
	}
}
