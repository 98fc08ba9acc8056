package recognize

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text locally via the tesseract engine. It requires
// the tesseract C library and the requested language packs on the host.
type Tesseract struct {
	// Languages passed to tesseract, e.g. "eng" or "eng+kor".
	Languages []string
	// PageSegMode overrides tesseract's page segmentation when non-nil.
	PageSegMode *gosseract.PageSegMode
}

// NewTesseract returns a Tesseract recognizer for the given languages.
// With no languages tesseract's default ("eng") applies.
func NewTesseract(languages ...string) *Tesseract {
	return &Tesseract{Languages: languages}
}

// Recognize runs tesseract over the image bytes. A fresh client is created
// per call; gosseract clients are not safe for concurrent use.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(t.Languages) > 0 {
		if err := client.SetLanguage(t.Languages...); err != nil {
			return "", fmt.Errorf("setting ocr language: %w", err)
		}
	}
	if t.PageSegMode != nil {
		if err := client.SetPageSegMode(*t.PageSegMode); err != nil {
			return "", fmt.Errorf("setting page segmentation mode: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("loading image for ocr: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
