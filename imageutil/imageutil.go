// Package imageutil provides small helpers for handling extracted image
// bytes: format sniffing from magic bytes and normalization of formats that
// downstream consumers (OCR engines, browsers) cannot read directly.
package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// SniffExt detects the image format from magic bytes and returns the
// canonical file extension without the dot. Unknown data returns "".
func SniffExt(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return "png"
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "jpg"
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return "gif"
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return "bmp"
	case len(data) >= 4 && (bytes.Equal(data[:4], []byte{'I', 'I', 0x2A, 0x00}) || bytes.Equal(data[:4], []byte{'M', 'M', 0x00, 0x2A})):
		return "tiff"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x01, 0x00, 0x00, 0x00}):
		// EMF records start with an EMR_HEADER type of 1.
		return "emf"
	default:
		return ""
	}
}

// NeedsNormalization reports whether the extension is one this package can
// and should convert to PNG before handing bytes to OCR or the writer.
func NeedsNormalization(ext string) bool {
	switch ext {
	case "bmp", "tiff":
		return true
	}
	return false
}

// ToPNG re-encodes BMP or TIFF data as PNG. Other formats pass through
// unchanged with their original extension.
func ToPNG(data []byte, ext string) ([]byte, string, error) {
	var (
		img image.Image
		err error
	)
	switch ext {
	case "bmp":
		img, err = bmp.Decode(bytes.NewReader(data))
	case "tiff":
		img, err = tiff.Decode(bytes.NewReader(data))
	default:
		return data, ext, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s image: %w", ext, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), "png", nil
}
