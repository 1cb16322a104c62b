package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, color.RGBA{200, 10, 10, 255}), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, color.RGBA{10, 10, 200, 255})); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalizeJPEG(t *testing.T) {
	p, err := Normalize(bytes.NewReader(jpegBytes(t, 100, 80)))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.MIME != "image/jpeg" || len(p.Data) == 0 {
		t.Errorf("got mime %q, %d bytes", p.MIME, len(p.Data))
	}
	if p.Width != 100 || p.Height != 80 {
		t.Errorf("got %dx%d, want 100x80", p.Width, p.Height)
	}
}

func TestNormalizePNGBecomesJPEG(t *testing.T) {
	p, err := Normalize(bytes.NewReader(pngBytes(t, 40, 40)))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", p.MIME)
	}
	if _, format, err := image.Decode(bytes.NewReader(p.Data)); err != nil || format != "jpeg" {
		t.Errorf("decoded format %q, err %v", format, err)
	}
}

func TestNormalizeDownscalesKeepingAspect(t *testing.T) {
	p, err := Normalize(bytes.NewReader(jpegBytes(t, 2560, 1280)))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Width != MaxDimension || p.Height != MaxDimension/2 {
		t.Errorf("got %dx%d, want %dx%d", p.Width, p.Height, MaxDimension, MaxDimension/2)
	}

	img, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if b := img.Bounds(); b.Dx() != p.Width || b.Dy() != p.Height {
		t.Errorf("encoded %dx%d, reported %dx%d", b.Dx(), b.Dy(), p.Width, p.Height)
	}
}

func TestNormalizeTallImage(t *testing.T) {
	p, err := Normalize(bytes.NewReader(pngBytes(t, 300, 3000)))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Height != MaxDimension || p.Width != 128 {
		t.Errorf("got %dx%d, want 128x%d", p.Width, p.Height, MaxDimension)
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("not an image")},
		{"gif", []byte("GIF89a......")},
		{"truncated jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(bytes.NewReader(tt.data))
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
