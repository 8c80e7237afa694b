package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
)

// gratitudeTokens only match at the start of a word, so "abrigado" is not
// read as "brigado".
var gratitudeTokens = []string{"obrigad", "brigad", "valeu", "agradec", "thanks", "thank you"}

var jokeTokens = []string{"piada", "anedota"}

var medicalTokens = []string{
	"medic", "hospital", "enfermeir", "doutor", "paciente",
	"plantao", "remedio", "cirurg", "farmac", "consulta",
}

var modeCommands = map[string]Intent{
	"/normal":       {Kind: ModeChange, Mode: domain.ModeNormal},
	"modo normal":   {Kind: ModeChange, Mode: domain.ModeNormal},
	"sair":          {Kind: ModeChange, Mode: domain.ModeNormal},
	"/chat":         {Kind: ModeChange, Mode: domain.ModeChat},
	"modo chat":     {Kind: ModeChange, Mode: domain.ModeChat},
	"modo pergunta": {Kind: ModeChange, Mode: domain.ModeChat},
	"modo conversa": {Kind: ModeChange, Mode: domain.ModeChat},
	"/persona":      {Kind: ModeChange, Persona: PersonaToggle},
	"/persona on":   {Kind: ModeChange, Persona: PersonaOn},
	"/persona off":  {Kind: ModeChange, Persona: PersonaOff},
	"/lila on":      {Kind: ModeChange, Persona: PersonaOn},
	"/lila off":     {Kind: ModeChange, Persona: PersonaOff},
}

var queryPrefixes = []string{"?", "/pergunta ", "pergunta:"}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// startsAnyWord reports whether one of tokens occurs in s at a position not
// preceded by a letter or digit.
func startsAnyWord(s string, tokens []string) bool {
	for _, tok := range tokens {
		for from := 0; from < len(s); {
			i := strings.Index(s[from:], tok)
			if i < 0 {
				break
			}
			at := from + i
			prev, _ := utf8.DecodeLastRuneInString(s[:at])
			if at == 0 || !(unicode.IsLetter(prev) || unicode.IsDigit(prev)) {
				return true
			}
			from = at + len(tok)
		}
	}
	return false
}

func matchGratitude(in Input) (Intent, bool) {
	if startsAnyWord(in.Folded, gratitudeTokens) {
		return Intent{Kind: Gratitude}, true
	}
	return Intent{}, false
}

func matchModeChange(in Input) (Intent, bool) {
	key := strings.Join(strings.Fields(in.Folded), " ")
	it, ok := modeCommands[key]
	return it, ok
}

func matchStats(in Input) (Intent, bool) {
	switch in.Folded {
	case "/placar", "/ranking":
		return Intent{Kind: Stats}, true
	}
	return Intent{}, false
}

func matchOneShot(in Input) (Intent, bool) {
	for _, p := range queryPrefixes {
		if !strings.HasPrefix(in.Text, p) {
			continue
		}
		// Prefixes are ASCII, so the lowercased offset is valid in Raw.
		q := strings.TrimSpace(in.Raw[len(p):])
		if q == "" {
			return Intent{}, false
		}
		return Intent{Kind: OneShot, Query: q}, true
	}
	return Intent{}, false
}

func matchJoke(in Input) (Intent, bool) {
	if !containsAny(in.Folded, jokeTokens) {
		return Intent{}, false
	}
	cat := domain.CategoryGeneral
	if containsAny(in.Folded, medicalTokens) {
		cat = domain.CategoryMedical
	}
	return Intent{Kind: Joke, Category: cat}, true
}

func matchFreeForm(in Input) (Intent, bool) {
	if in.Mode != domain.ModeChat || in.Raw == "" {
		return Intent{}, false
	}
	return Intent{Kind: FreeForm, Query: in.Raw}, true
}
