package intent

import (
	"testing"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
)

func TestClassify(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		text string
		mode domain.Mode
		want Intent
	}{
		{"gratitude", "Obrigada!!", domain.ModeNormal, Intent{Kind: Gratitude}},
		{"gratitude beats joke", "muito obrigado, me conta uma piada", domain.ModeNormal, Intent{Kind: Gratitude}},
		{"gratitude beats chat", "valeu demais", domain.ModeChat, Intent{Kind: Gratitude}},
		{"short gratitude", "brigadão!", domain.ModeNormal, Intent{Kind: Gratitude}},
		{"gratitude after punctuation", "ok,obrigado", domain.ModeNormal, Intent{Kind: Gratitude}},
		{"sheltered is not gratitude", "estou abrigado da chuva", domain.ModeChat, Intent{Kind: FreeForm, Query: "estou abrigado da chuva"}},
		{"sheltered in normal", "ela está abrigada", domain.ModeNormal, Intent{Kind: Help}},
		{"chat command", "/chat", domain.ModeNormal, Intent{Kind: ModeChange, Mode: domain.ModeChat}},
		{"chat phrase", "  Modo   Chat ", domain.ModeNormal, Intent{Kind: ModeChange, Mode: domain.ModeChat}},
		{"normal command", "/normal", domain.ModeChat, Intent{Kind: ModeChange, Mode: domain.ModeNormal}},
		{"persona toggle", "/persona", domain.ModeNormal, Intent{Kind: ModeChange, Persona: PersonaToggle}},
		{"persona off", "/persona off", domain.ModeChat, Intent{Kind: ModeChange, Persona: PersonaOff}},
		{"stats", "/placar", domain.ModeChat, Intent{Kind: Stats}},
		{"question mark", "? Qual a capital do Peru", domain.ModeNormal, Intent{Kind: OneShot, Query: "Qual a capital do Peru"}},
		{"question command", "/pergunta Quem é você?", domain.ModeNormal, Intent{Kind: OneShot, Query: "Quem é você?"}},
		{"bare question mark", "?", domain.ModeNormal, Intent{Kind: Help}},
		{"question beats joke", "? me conta uma piada", domain.ModeNormal, Intent{Kind: OneShot, Query: "me conta uma piada"}},
		{"joke", "conta uma piada", domain.ModeNormal, Intent{Kind: Joke, Category: domain.CategoryGeneral}},
		{"joke command", "/piada", domain.ModeChat, Intent{Kind: Joke, Category: domain.CategoryGeneral}},
		{"medical joke", "piada de médico", domain.ModeNormal, Intent{Kind: Joke, Category: domain.CategoryMedical}},
		{"medical joke folded", "uma piada sobre plantão no HOSPITAL", domain.ModeNormal, Intent{Kind: Joke, Category: domain.CategoryMedical}},
		{"free form in chat", "Como vai você?", domain.ModeChat, Intent{Kind: FreeForm, Query: "Como vai você?"}},
		{"help in normal", "Como vai você?", domain.ModeNormal, Intent{Kind: Help}},
		{"empty", "   ", domain.ModeChat, Intent{Kind: Help}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ClassifyText(tt.text, tt.mode)
			if got != tt.want {
				t.Errorf("ClassifyText(%q, %s) = %+v, want %+v", tt.text, tt.mode, got, tt.want)
			}
		})
	}
}

func TestRulesAreIndependentlyTestable(t *testing.T) {
	in := NewInput("muito obrigado, me conta uma piada", domain.ModeNormal)

	if _, ok := matchGratitude(in); !ok {
		t.Error("Expected gratitude rule to match")
	}
	if it, ok := matchJoke(in); !ok || it.Category != domain.CategoryGeneral {
		t.Errorf("Expected joke rule to match on its own, got %+v, %v", it, ok)
	}

	jokeFirst := New(Rule{Name: "joke", Match: matchJoke}, Rule{Name: "gratitude", Match: matchGratitude})
	if got := jokeFirst.Classify(in); got.Kind != Joke {
		t.Errorf("Expected reordered rules to change the result, got %s", got.Kind)
	}
}

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"médico", "medico"},
		{"plantão", "plantao"},
		{"remédio", "remedio"},
		{"farmácia", "farmacia"},
		{"sem acento", "sem acento"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
