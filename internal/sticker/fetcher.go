package sticker

import (
	"context"
	"errors"
	"fmt"
)

// MediaSource resolves and downloads inbound media.
type MediaSource interface {
	MediaURL(ctx context.Context, mediaID string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Fetcher downloads the raw bytes behind a media reference.
type Fetcher struct {
	src MediaSource
}

// NewFetcher creates a Fetcher.
func NewFetcher(src MediaSource) *Fetcher {
	return &Fetcher{src: src}
}

// Fetch resolves mediaID to a download URL and reads it. Any failure is
// reported as ErrMediaUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, mediaID string) ([]byte, error) {
	url, err := f.src.MediaURL(ctx, mediaID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrMediaUnavailable, mediaID, err)
	}
	data, err := f.src.Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", ErrMediaUnavailable, mediaID, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: download %s: %w", ErrMediaUnavailable, mediaID, errors.New("empty body"))
	}
	return data, nil
}
