// Package intent maps inbound text to exactly one intent using an ordered
// list of rules. The first rule that matches wins.
package intent

import (
	"strings"
	"unicode"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind identifies an intent.
type Kind string

const (
	Gratitude  Kind = "gratitude"
	ModeChange Kind = "mode_change"
	Stats      Kind = "stats"
	OneShot    Kind = "one_shot_query"
	Joke       Kind = "joke"
	FreeForm   Kind = "free_form_query"
	Help       Kind = "help"
)

// PersonaAction describes how a mode-change intent touches the persona flag.
type PersonaAction int

const (
	PersonaUnchanged PersonaAction = iota
	PersonaOn
	PersonaOff
	PersonaToggle
)

// Intent is the classification result. Only the fields relevant to Kind are set.
type Intent struct {
	Kind     Kind
	Mode     domain.Mode // ModeChange; empty when only persona changes
	Persona  PersonaAction
	Query    string              // OneShot, FreeForm
	Category domain.JokeCategory // Joke
}

// Input is what a rule sees.
type Input struct {
	// Text is trimmed and lowercased.
	Text string
	// Folded is Text without diacritics, used for keyword matching.
	Folded string
	// Raw is the trimmed original, forwarded verbatim as a query.
	Raw  string
	Mode domain.Mode
}

// NewInput normalizes raw text for classification.
func NewInput(raw string, mode domain.Mode) Input {
	trimmed := strings.TrimSpace(raw)
	text := strings.ToLower(trimmed)
	return Input{Text: text, Folded: Fold(text), Raw: trimmed, Mode: mode}
}

// Fold strips combining marks so "médico" and "medico" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Rule is one (predicate, intent) pair.
type Rule struct {
	Name  string
	Match func(Input) (Intent, bool)
}

// Classifier evaluates rules in order.
type Classifier struct {
	rules []Rule
}

// New builds a classifier from rules, which are evaluated in the given order.
func New(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns the classifier with the standard rule order.
func Default() *Classifier {
	return New(DefaultRules()...)
}

// DefaultRules lists the standard rules in priority order. Gratitude must
// stay ahead of Joke so a thank-you that mentions a joke is still a thank-you.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "gratitude", Match: matchGratitude},
		{Name: "mode", Match: matchModeChange},
		{Name: "stats", Match: matchStats},
		{Name: "one-shot", Match: matchOneShot},
		{Name: "joke", Match: matchJoke},
		{Name: "free-form", Match: matchFreeForm},
	}
}

// Classify returns the first matching intent, or Help when nothing matches.
func (c *Classifier) Classify(in Input) Intent {
	for _, r := range c.rules {
		if it, ok := r.Match(in); ok {
			return it
		}
	}
	return Intent{Kind: Help}
}

// ClassifyText is a convenience wrapper around NewInput and Classify.
func (c *Classifier) ClassifyText(raw string, mode domain.Mode) Intent {
	return c.Classify(NewInput(raw, mode))
}
