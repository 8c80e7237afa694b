package sticker

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	CanvasSize     = 512
	MaxBytes       = 100 * 1024
	StartQuality   = 80
	QualityStep    = 5
	MinQuality     = 40
	FormatWebP     = "webp"
	StickerMIME    = "image/webp"
	StickerFileExt = ".webp"
)

// Codec encodes a bitmap at a lossy quality in [0, 100].
type Codec interface {
	Encode(img image.Image, quality int) ([]byte, error)
}

// WebPCodec is the libwebp-backed Codec.
type WebPCodec struct{}

// Encode implements Codec.
func (WebPCodec) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encoder produces 512x512 WEBP stickers no larger than MaxBytes when a
// quality of at least MinQuality allows it.
type Encoder struct {
	codec  Codec
	logger *slog.Logger
}

// NewEncoder creates an Encoder. A nil codec uses WebPCodec.
func NewEncoder(codec Codec, logger *slog.Logger) *Encoder {
	if codec == nil {
		codec = WebPCodec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{codec: codec, logger: logger}
}

// Encode decodes raw, letterboxes it onto a transparent square canvas and
// searches quality downward from StartQuality in steps of QualityStep until
// the output fits MaxBytes. If even MinQuality does not fit, the MinQuality
// output is returned anyway.
//
// Every attempt encodes the same decoded canvas.
func (e *Encoder) Encode(raw []byte) (domain.EncodedSticker, error) {
	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return domain.EncodedSticker{}, fmt.Errorf("%w: decode: %w", ErrEncoding, err)
	}
	canvas := Letterbox(src, CanvasSize)

	var (
		out     []byte
		quality int
	)
	for q := StartQuality; q >= MinQuality; q -= QualityStep {
		data, err := e.codec.Encode(canvas, q)
		if err != nil {
			return domain.EncodedSticker{}, fmt.Errorf("%w: encode at quality %d: %w", ErrEncoding, q, err)
		}
		out, quality = data, q
		if len(data) <= MaxBytes {
			break
		}
	}

	if len(out) > MaxBytes {
		e.logger.Warn("Sticker still over size limit at minimum quality", "bytes", len(out), "quality", quality)
	} else {
		e.logger.Debug("Sticker encoded", "bytes", len(out), "quality", quality)
	}

	return domain.EncodedSticker{
		Data:    out,
		Format:  FormatWebP,
		Width:   CanvasSize,
		Height:  CanvasSize,
		Quality: quality,
	}, nil
}

// Letterbox scales img to fit inside a size x size square, keeping its aspect
// ratio, and centers it on a fully transparent canvas. Small images are
// scaled up.
func Letterbox(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	canvas := imaging.New(size, size, color.NRGBA{})
	if w == 0 || h == 0 {
		return canvas
	}

	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	fw := clampDim(int(math.Round(float64(w)*scale)), size)
	fh := clampDim(int(math.Round(float64(h)*scale)), size)

	fitted := imaging.Resize(img, fw, fh, imaging.Lanczos)
	return imaging.PasteCenter(canvas, fitted)
}

func clampDim(v, size int) int {
	if v < 1 {
		return 1
	}
	if v > size {
		return size
	}
	return v
}
