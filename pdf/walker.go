// Package pdf walks PDF files page by page. Page text is recovered by
// rasterizing each page and running it through a text recognizer; embedded
// raster images are extracted separately so they survive into the output.
// A page whose recognition fails is recorded as a failed text block and
// never aborts the remaining pages.
package pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/tsawler/extracta/imageutil"
	"github.com/tsawler/extracta/recognize"
	"github.com/tsawler/extracta/schema"
	"github.com/tsawler/extracta/walk"
)

// Walker reads a PDF and yields one unit per page.
type Walker struct {
	path       string
	pdfCtx     *model.Context
	raster     Rasterizer
	recognizer recognize.Recognizer
}

// Option configures a Walker.
type Option func(*Walker)

// WithRasterizer supplies the page rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(w *Walker) { w.raster = r }
}

// WithRecognizer supplies the text recognizer for rasterized pages.
func WithRecognizer(r recognize.Recognizer) Option {
	return func(w *Walker) { w.recognizer = r }
}

// Open validates the PDF and prepares it for walking. Recognition
// capabilities are optional at open time; without them pages yield only
// their embedded images.
func Open(filename string, opts ...Option) (*Walker, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}

	w := &Walker{path: filename, pdfCtx: pdfCtx}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Kind reports that pdf units are pages.
func (w *Walker) Kind() schema.UnitKind { return schema.KindPages }

// Close releases resources associated with the Walker.
func (w *Walker) Close() error {
	w.pdfCtx = nil
	return nil
}

// PageCount returns the number of pages in the document.
func (w *Walker) PageCount() int {
	if w.pdfCtx == nil {
		return 0
	}
	return w.pdfCtx.PageCount
}

// Walk yields every page in order. Each page produces its recognized text
// first, then its embedded images; images inherit the page's first section
// marker line as naming context.
func (w *Walker) Walk(ctx context.Context) ([]walk.Unit, error) {
	if w.pdfCtx == nil {
		return nil, fmt.Errorf("walker is closed")
	}

	units := make([]walk.Unit, 0, w.pdfCtx.PageCount)
	for pageNr := 1; pageNr <= w.pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		units = append(units, w.walkPage(ctx, pageNr))
	}
	return units, nil
}

func (w *Walker) walkPage(ctx context.Context, pageNr int) walk.Unit {
	unit := walk.Unit{Index: pageNr}

	marker := ""
	if w.raster != nil && w.recognizer != nil {
		text, err := w.recognizePage(ctx, pageNr)
		switch {
		case err != nil:
			// Containment: the failed page is recorded and walking goes on.
			log.Warn().Int("page", pageNr).Err(err).Msg("page recognition failed")
			unit.Events = append(unit.Events, walk.Event{Type: walk.EventText, Failed: true})
		case text != "":
			unit.Events = append(unit.Events, walk.TextEvent(text))
			marker = firstSectionMarker(text)
		}
	}

	for _, img := range w.pageImages(pageNr) {
		img.Hint = marker
		unit.Events = append(unit.Events, walk.ImageEvent(img))
	}
	return unit
}

func (w *Walker) recognizePage(ctx context.Context, pageNr int) (string, error) {
	page, err := w.raster.Render(ctx, w.path, pageNr)
	if err != nil {
		return "", err
	}
	text, err := w.recognizer.Recognize(ctx, page)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// pageImages extracts the page's embedded raster images. Extraction
// failures drop the image, not the page.
func (w *Walker) pageImages(pageNr int) []*walk.ImageData {
	if w.pdfCtx == nil {
		return nil
	}
	imgs, err := pdfcpu.ExtractPageImages(w.pdfCtx, pageNr, false)
	if err != nil {
		log.Debug().Int("page", pageNr).Err(err).Msg("image extraction failed")
		return nil
	}

	// Map order is not stable; emit by ascending object number.
	objNrs := make([]int, 0, len(imgs))
	for objNr := range imgs {
		objNrs = append(objNrs, objNr)
	}
	sort.Ints(objNrs)

	var out []*walk.ImageData
	for _, objNr := range objNrs {
		img := imgs[objNr]
		data, err := io.ReadAll(img)
		if err != nil || len(data) == 0 {
			continue
		}
		ext := imageutil.SniffExt(data)
		if ext == "" {
			ext = strings.TrimPrefix(img.FileType, ".")
		}
		out = append(out, &walk.ImageData{Data: data, Ext: ext})
	}
	return out
}

// sectionMarkerPrefixes are glyphs commonly used to flag section or chart
// titles in slide-derived PDFs and in recognizer output.
var sectionMarkerPrefixes = []string{"▣", "▶", "●", "■", "◆", "#"}

// firstSectionMarker returns the content of the first marker-prefixed line,
// stripped of the marker itself. The first marker on a page is its section
// heading; later markers are subsections.
func firstSectionMarker(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range sectionMarkerPrefixes {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				if rest = strings.TrimSpace(strings.TrimLeft(rest, "#")); rest != "" {
					return rest
				}
				break
			}
		}
	}
	return ""
}
