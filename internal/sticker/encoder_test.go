package sticker

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
)

// sizeCodec returns a buffer whose length depends on the requested quality.
type sizeCodec struct {
	sizes     map[int]int
	qualities []int
	bounds    []image.Rectangle
}

func (c *sizeCodec) Encode(img image.Image, quality int) ([]byte, error) {
	c.qualities = append(c.qualities, quality)
	c.bounds = append(c.bounds, img.Bounds())
	n, ok := c.sizes[quality]
	if !ok {
		n = MaxBytes * 2
	}
	return make([]byte, n), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestQualitySearchStopsAtFirstFit(t *testing.T) {
	codec := &sizeCodec{sizes: map[int]int{70: MaxBytes}}
	enc := NewEncoder(codec, nil)

	out, err := enc.Encode(pngBytes(t, 64, 32))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := []int{80, 75, 70}
	if len(codec.qualities) != len(want) {
		t.Fatalf("Expected qualities %v, got %v", want, codec.qualities)
	}
	for i := range want {
		if codec.qualities[i] != want[i] {
			t.Errorf("attempt %d: expected quality %d, got %d", i, want[i], codec.qualities[i])
		}
	}
	if out.Quality != 70 || out.Size() != MaxBytes {
		t.Errorf("Expected quality 70 and %d bytes, got %d and %d", MaxBytes, out.Quality, out.Size())
	}
}

func TestQualitySearchAcceptsFloorOutput(t *testing.T) {
	codec := &sizeCodec{sizes: map[int]int{40: MaxBytes + 1}}
	enc := NewEncoder(codec, nil)

	out, err := enc.Encode(pngBytes(t, 10, 10))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if len(codec.qualities) != 9 {
		t.Fatalf("Expected 9 attempts, got %d: %v", len(codec.qualities), codec.qualities)
	}
	for i, q := range codec.qualities {
		if q != StartQuality-i*QualityStep {
			t.Errorf("attempt %d: expected quality %d, got %d", i, StartQuality-i*QualityStep, q)
		}
	}
	if out.Quality != MinQuality || out.Size() != MaxBytes+1 {
		t.Errorf("Expected floor output, got quality %d size %d", out.Quality, out.Size())
	}
	for _, b := range codec.bounds {
		if b.Dx() != CanvasSize || b.Dy() != CanvasSize {
			t.Errorf("Expected %dx%d canvas, got %v", CanvasSize, CanvasSize, b)
		}
	}
}

func TestEncodeRejectsNonImage(t *testing.T) {
	enc := NewEncoder(&sizeCodec{}, nil)
	_, err := enc.Encode([]byte("definitely not an image"))
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("Expected ErrEncoding, got %v", err)
	}
}

func TestLetterbox(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		inside image.Point // a pixel that must be opaque
		pad    image.Point // a pixel that must be transparent
	}{
		{"wide", 300, 100, image.Pt(256, 256), image.Pt(256, 10)},
		{"tall", 50, 200, image.Pt(256, 256), image.Pt(10, 256)},
		{"small square upscaled", 16, 16, image.Pt(5, 5), image.Pt(-1, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h))
			for i := range src.Pix {
				src.Pix[i] = 255
			}
			out := Letterbox(src, CanvasSize)

			if out.Bounds().Dx() != CanvasSize || out.Bounds().Dy() != CanvasSize {
				t.Fatalf("Expected %dx%d, got %v", CanvasSize, CanvasSize, out.Bounds())
			}
			if a := out.NRGBAAt(tt.inside.X, tt.inside.Y).A; a != 255 {
				t.Errorf("Expected opaque pixel at %v, got alpha %d", tt.inside, a)
			}
			if tt.pad.X >= 0 {
				if a := out.NRGBAAt(tt.pad.X, tt.pad.Y).A; a != 0 {
					t.Errorf("Expected transparent padding at %v, got alpha %d", tt.pad, a)
				}
			}
		})
	}
}

func TestWebPCodecProducesSquareSticker(t *testing.T) {
	enc := NewEncoder(WebPCodec{}, nil)

	out, err := enc.Encode(pngBytes(t, 640, 360))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out.Size() > MaxBytes && out.Quality != MinQuality {
		t.Errorf("Expected at most %d bytes above the floor, got %d at quality %d", MaxBytes, out.Size(), out.Quality)
	}

	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != CanvasSize || cfg.Height != CanvasSize {
		t.Errorf("Expected %dx%d, got %dx%d", CanvasSize, CanvasSize, cfg.Width, cfg.Height)
	}
}
