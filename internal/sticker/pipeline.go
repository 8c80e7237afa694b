package sticker

import (
	"context"
	"log/slog"
	"time"
)

// Pipeline runs fetch, encode and publish for one inbound image. No stage
// is retried.
type Pipeline struct {
	fetcher   *Fetcher
	encoder   *Encoder
	publisher *Publisher
	logger    *slog.Logger
}

// NewPipeline wires the three stages together.
func NewPipeline(f *Fetcher, e *Encoder, p *Publisher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{fetcher: f, encoder: e, publisher: p, logger: logger}
}

// Convert turns mediaID into a published sticker id. Errors wrap
// ErrMediaUnavailable, ErrEncoding or ErrPublish.
func (p *Pipeline) Convert(ctx context.Context, mediaID string) (string, error) {
	start := time.Now()

	raw, err := p.fetcher.Fetch(ctx, mediaID)
	if err != nil {
		return "", err
	}
	encoded, err := p.encoder.Encode(raw)
	if err != nil {
		return "", err
	}
	id, err := p.publisher.Publish(ctx, encoded)
	if err != nil {
		return "", err
	}

	p.logger.Info("Sticker published",
		"media_id", mediaID,
		"sticker_id", id,
		"input_bytes", len(raw),
		"bytes", encoded.Size(),
		"quality", encoded.Quality,
		"took", time.Since(start),
	)
	return id, nil
}
