// Package sticker turns an inbound image into a published WhatsApp sticker:
// fetch the media, letterbox and encode it as size-bounded WEBP, upload it.
package sticker

import "errors"

var (
	// ErrMediaUnavailable means the inbound media could not be resolved or downloaded.
	ErrMediaUnavailable = errors.New("media unavailable")

	// ErrEncoding means the input could not be decoded or re-encoded as an image.
	ErrEncoding = errors.New("sticker encoding failed")

	// ErrPublish means the encoded sticker could not be uploaded.
	ErrPublish = errors.New("sticker publish failed")
)
