package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func TestSniffExt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0}, "png"},
		{"jpg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpg"},
		{"gif", []byte("GIF89a...."), "gif"},
		{"bmp", []byte{'B', 'M', 0, 0}, "bmp"},
		{"tiff le", []byte{'I', 'I', 0x2A, 0x00}, "tiff"},
		{"tiff be", []byte{'M', 'M', 0x00, 0x2A}, "tiff"},
		{"webp", append([]byte("RIFF"), append([]byte{0, 0, 0, 0}, []byte("WEBP")...)...), "webp"},
		{"emf", []byte{0x01, 0x00, 0x00, 0x00, 0x6C}, "emf"},
		{"unknown", []byte("hello"), ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffExt(tt.data); got != tt.want {
				t.Errorf("SniffExt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNeedsNormalization(t *testing.T) {
	for _, ext := range []string{"bmp", "tiff"} {
		if !NeedsNormalization(ext) {
			t.Errorf("%s should normalize", ext)
		}
	}
	for _, ext := range []string{"png", "jpg", "gif", "webp", ""} {
		if NeedsNormalization(ext) {
			t.Errorf("%s should pass through", ext)
		}
	}
}

func TestToPNGConvertsBMP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, src); err != nil {
		t.Fatalf("encoding bmp fixture: %v", err)
	}

	out, ext, err := ToPNG(buf.Bytes(), "bmp")
	if err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	if ext != "png" {
		t.Errorf("ext = %q, want png", ext)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not valid png: %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), src.Bounds())
	}
}

func TestToPNGPassesThroughOtherFormats(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	out, ext, err := ToPNG(data, "jpg")
	if err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	if ext != "jpg" || !bytes.Equal(out, data) {
		t.Errorf("jpg bytes should pass through unchanged")
	}
}

func TestToPNGRejectsGarbage(t *testing.T) {
	if _, _, err := ToPNG([]byte("not an image"), "bmp"); err == nil {
		t.Error("expected decode error for garbage bmp data")
	}
}
