// Package bot routes inbound WhatsApp events to a response strategy: a
// gratitude sticker, a mode change, a generated answer or joke, or an
// image-to-sticker conversion.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"github.com/GuilhermePossari/Lilabot/internal/generation"
	"github.com/GuilhermePossari/Lilabot/internal/intent"
	"github.com/GuilhermePossari/Lilabot/internal/sticker"
	"github.com/google/uuid"
)

// Messenger sends outbound messages.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendSticker(ctx context.Context, to, stickerID string) error
}

// StickerMaker converts inbound media into a published sticker id.
type StickerMaker interface {
	Convert(ctx context.Context, mediaID string) (string, error)
}

// SessionStore is the per-sender state the router reads and mutates.
type SessionStore interface {
	GetOrCreate(ctx context.Context, sender string) (domain.Session, error)
	SetMode(ctx context.Context, sender string, mode domain.Mode) (domain.Session, error)
	SetPersona(ctx context.Context, sender string, enabled bool) (domain.Session, error)
	TogglePersona(ctx context.Context, sender string) (domain.Session, error)
	AppendHistory(ctx context.Context, sender string, turns ...domain.Turn) (domain.Session, error)
}

// CounterStore tallies delivered jokes.
type CounterStore interface {
	Increment(ctx context.Context, sender string, category domain.JokeCategory) error
	Summary(sender string) domain.CounterSummary
	TopN(n int) []domain.UserCount
}

// Deps are the collaborators of a Router.
type Deps struct {
	Sessions   SessionStore
	Counters   CounterStore
	Classifier *intent.Classifier
	Generator  generation.Backend
	Stickers   StickerMaker
	Messenger  Messenger
	Replies    *Replies

	// ThanksStickers are the sticker ids sent in reply to gratitude.
	ThanksStickers []string

	// Limiter caps generation calls per sender. Nil means unlimited.
	Limiter *RateLimiter

	// Intn picks a random index in [0, n). Defaults to math/rand/v2.
	Intn func(n int) int
}

// Router handles one inbound event at a time per sender. Events from
// different senders run in parallel.
type Router struct {
	sessions   SessionStore
	counters   CounterStore
	classifier *intent.Classifier
	gen        generation.Backend
	stickers   StickerMaker
	out        Messenger
	replies    *Replies
	thanks     []string
	limiter    *RateLimiter
	intn       func(int) int

	locks  *keyedMutex
	logger *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(d Deps, logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if d.Sessions == nil || d.Counters == nil || d.Generator == nil || d.Stickers == nil || d.Messenger == nil {
		return nil, errors.New("router: missing collaborator")
	}
	if d.Classifier == nil {
		d.Classifier = intent.Default()
	}
	if d.Replies == nil {
		r, err := DefaultReplies()
		if err != nil {
			return nil, err
		}
		d.Replies = r
	}
	if d.Intn == nil {
		d.Intn = rand.IntN
	}

	var thanks []string
	for _, id := range d.ThanksStickers {
		if id = strings.TrimSpace(id); id != "" {
			thanks = append(thanks, id)
		}
	}

	return &Router{
		sessions:   d.Sessions,
		counters:   d.Counters,
		classifier: d.Classifier,
		gen:        d.Generator,
		stickers:   d.Stickers,
		out:        d.Messenger,
		replies:    d.Replies,
		thanks:     thanks,
		limiter:    d.Limiter,
		intn:       d.Intn,
		locks:      newKeyedMutex(),
		logger:     logger,
	}, nil
}

// Handle processes ev to completion. Every failure is turned into a text
// reply to the sender; nothing is returned to the caller.
func (r *Router) Handle(ctx context.Context, ev domain.InboundEvent) {
	if ev.Sender == "" {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	unlock := r.locks.Lock(ev.Sender)
	defer unlock()

	log := r.logger.With("sender", ev.Sender, "event_id", ev.ID, "type", string(ev.Type))
	defer func() {
		if p := recover(); p != nil {
			log.Error("Panic while handling event", "panic", fmt.Sprint(p))
		}
	}()

	switch ev.Type {
	case domain.EventImage:
		r.handleImage(ctx, log, ev)
	case domain.EventText:
		r.handleText(ctx, log, ev)
	default:
		r.reply(ctx, log, ev.Sender, r.replies.Greeting)
	}
}

func (r *Router) handleText(ctx context.Context, log *slog.Logger, ev domain.InboundEvent) {
	sess, err := r.sessions.GetOrCreate(ctx, ev.Sender)
	if err != nil {
		log.Error("Failed to load session", "error", err)
		r.reply(ctx, log, ev.Sender, r.replies.PersistenceFailed)
		return
	}

	it := r.classifier.ClassifyText(ev.Text, sess.Mode)
	log = log.With("intent", string(it.Kind))
	log.Debug("Classified message", "mode", string(sess.Mode), "persona", sess.PersonaEnabled)

	switch it.Kind {
	case intent.Gratitude:
		r.thank(ctx, log, ev.Sender)
	case intent.ModeChange:
		r.changeMode(ctx, log, ev.Sender, sess, it)
	case intent.Stats:
		r.reply(ctx, log, ev.Sender, r.statsText(ev.Sender))
	case intent.OneShot:
		r.answer(ctx, log, ev.Sender, sess, it.Query, nil)
	case intent.FreeForm:
		r.answer(ctx, log, ev.Sender, sess, it.Query, sess.History)
	case intent.Joke:
		r.joke(ctx, log, ev.Sender, sess, it.Category)
	default:
		r.reply(ctx, log, ev.Sender, r.replies.Help)
	}
}

var errRateLimited = errors.New("rate limit reached")

func (r *Router) allow(sender string) bool {
	return r.limiter == nil || r.limiter.Allow(sender)
}

func (r *Router) reply(ctx context.Context, log *slog.Logger, to, text string) {
	if err := r.out.SendText(ctx, to, text); err != nil {
		log.Warn("Failed to send text reply", "error", err)
	}
}

func (r *Router) thank(ctx context.Context, log *slog.Logger, to string) {
	if len(r.thanks) == 0 {
		r.reply(ctx, log, to, r.replies.GratitudeUnconfigured)
		return
	}
	pick := r.thanks[r.intn(len(r.thanks))]
	if err := r.out.SendSticker(ctx, to, pick); err != nil {
		log.Warn("Failed to send thank-you sticker", "sticker_id", pick, "error", err)
		r.reply(ctx, log, to, r.replies.GratitudeFallback)
	}
}

// changeMode applies a mode and/or persona command. Switching mode starts
// a fresh history window.
func (r *Router) changeMode(ctx context.Context, log *slog.Logger, to string, sess domain.Session, it intent.Intent) {
	next := sess
	var err error

	if it.Mode != "" && it.Mode != sess.Mode {
		next, err = r.sessions.SetMode(ctx, to, it.Mode)
	}
	if err == nil {
		switch it.Persona {
		case intent.PersonaOn:
			next, err = r.sessions.SetPersona(ctx, to, true)
		case intent.PersonaOff:
			next, err = r.sessions.SetPersona(ctx, to, false)
		case intent.PersonaToggle:
			next, err = r.sessions.TogglePersona(ctx, to)
		}
	}
	if err != nil {
		log.Error("Failed to persist mode change", "error", err)
		r.reply(ctx, log, to, r.replies.PersistenceFailed)
		return
	}

	log.Info("Session updated", "mode", string(next.Mode), "persona", next.PersonaEnabled)

	var lines []string
	if it.Mode != "" {
		lines = append(lines, r.replies.Modes[next.Mode])
	}
	if it.Persona != intent.PersonaUnchanged {
		lines = append(lines, r.replies.persona(next.PersonaEnabled))
	}
	r.reply(ctx, log, to, strings.Join(lines, "\n"))
}

// answer sends query to the backend with the given history as context and
// records the exchange on success.
func (r *Router) answer(ctx context.Context, log *slog.Logger, to string, sess domain.Session, query string, history []domain.Turn) {
	if !r.allow(to) {
		log.Warn("Generation rate limit reached")
		r.reply(ctx, log, to, r.replies.RateLimited)
		return
	}
	res := r.gen.Generate(ctx, generation.Request{
		System:  r.replies.system(sess.PersonaEnabled),
		History: history,
		Prompt:  query,
	})
	if !res.OK() {
		log.Warn("Generation failed", "error", res.Err)
		r.reply(ctx, log, to, r.replies.GenerationFailed)
		return
	}

	_, err := r.sessions.AppendHistory(ctx, to,
		domain.Turn{Role: domain.RoleUser, Text: query},
		domain.Turn{Role: domain.RoleModel, Text: res.Text},
	)
	if err != nil {
		log.Error("Failed to persist history", "error", err)
	}
	r.reply(ctx, log, to, res.Text)
}

// jokeText picks the generated joke or, when generation failed, one from
// the local pool.
func (r *Router) jokeText(res generation.Result, category domain.JokeCategory) (string, bool) {
	if res.OK() {
		return res.Text, false
	}
	pool := r.replies.JokeFallbacks[category]
	return pool[r.intn(len(pool))], true
}

func (r *Router) joke(ctx context.Context, log *slog.Logger, to string, sess domain.Session, category domain.JokeCategory) {
	res := generation.Failed(errRateLimited)
	if r.allow(to) {
		res = r.gen.Generate(ctx, generation.Request{
			System: r.replies.system(sess.PersonaEnabled),
			Prompt: r.replies.JokePrompts[category],
		})
	}
	text, fallback := r.jokeText(res, category)
	if fallback {
		log.Warn("Joke generation failed, using local pool", "category", string(category), "error", res.Err)
	}

	if err := r.counters.Increment(ctx, to, category); err != nil {
		log.Error("Failed to persist joke counter", "category", string(category), "error", err)
	}
	r.reply(ctx, log, to, text)
}

// handleImage runs the sticker pipeline, sends the sticker and then a
// confirmation. A failed confirmation is only logged.
func (r *Router) handleImage(ctx context.Context, log *slog.Logger, ev domain.InboundEvent) {
	id, err := r.stickers.Convert(ctx, ev.MediaID)
	if err != nil {
		log.Warn("Sticker conversion failed", "media_id", ev.MediaID, "stage", stage(err), "error", err)
		r.reply(ctx, log, ev.Sender, r.replies.StickerFailed)
		return
	}
	if err := r.out.SendSticker(ctx, ev.Sender, id); err != nil {
		log.Warn("Failed to send sticker", "sticker_id", id, "error", err)
		r.reply(ctx, log, ev.Sender, r.replies.StickerFailed)
		return
	}
	if r.replies.StickerDone != "" {
		r.reply(ctx, log, ev.Sender, r.replies.StickerDone)
	}
}

func stage(err error) string {
	switch {
	case errors.Is(err, sticker.ErrMediaUnavailable):
		return "fetch"
	case errors.Is(err, sticker.ErrEncoding):
		return "encode"
	case errors.Is(err, sticker.ErrPublish):
		return "publish"
	default:
		return "unknown"
	}
}

const statsTop = 3

func (r *Router) statsText(sender string) string {
	sum := r.counters.Summary(sender)
	if sum.Total == 0 {
		return r.replies.Stats.Empty
	}
	s := r.replies.Stats
	lines := []string{
		s.Header,
		fmt.Sprintf(s.Total, sum.Total, sum.ByCategory[domain.CategoryGeneral], sum.ByCategory[domain.CategoryMedical]),
		fmt.Sprintf(s.Yours, sum.Sender),
	}
	top := r.counters.TopN(statsTop)
	lines = append(lines, fmt.Sprintf(s.Top, len(top)))
	for i, uc := range top {
		lines = append(lines, fmt.Sprintf("%d. %s – %d", i+1, domain.MaskSender(uc.Sender), uc.Count))
	}
	return strings.Join(lines, "\n")
}
