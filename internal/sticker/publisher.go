package sticker

import (
	"context"
	"fmt"
	"time"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
)

// PropagationDelay is how long an uploaded asset needs before it can be sent.
const PropagationDelay = 600 * time.Millisecond

// Uploader stores a media asset and returns its id.
type Uploader interface {
	UploadMedia(ctx context.Context, data []byte, filename, mimeType string) (string, error)
}

// Publisher uploads encoded stickers.
type Publisher struct {
	up    Uploader
	delay time.Duration
	sleep func(context.Context, time.Duration) error
}

// NewPublisher creates a Publisher that waits PropagationDelay after each upload.
func NewPublisher(up Uploader) *Publisher {
	return &Publisher{up: up, delay: PropagationDelay, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Publish uploads s and returns the provider id once it is safe to reference.
func (p *Publisher) Publish(ctx context.Context, s domain.EncodedSticker) (string, error) {
	id, err := p.up.UploadMedia(ctx, s.Data, "sticker"+StickerFileExt, StickerMIME)
	if err != nil {
		return "", fmt.Errorf("%w: upload: %w", ErrPublish, err)
	}
	if err := p.sleep(ctx, p.delay); err != nil {
		return "", fmt.Errorf("%w: waiting for propagation: %w", ErrPublish, err)
	}
	return id, nil
}
