// Package extracta extracts and normalizes content from office documents
// and PDFs into a single schema: ordered units (slides, sections, sheets,
// or pages) of text blocks, structured tables, and named image references.
//
// Basic usage:
//
//	result, err := extracta.Open("report.pptx").Extract(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(result.Warnings) > 0 {
//	    log.Println("Warnings:", extracta.FormatWarnings(result.Warnings))
//	}
//
// With options:
//
//	result, err := extracta.Open("scan.pdf").
//	    OCRLanguages("eng", "kor").
//	    RasterDPI(300).
//	    Extract(ctx)
//
// Legacy formats (PPT, DOC, XLS, HWP) are upgraded through a host
// LibreOffice installation before extraction; PDF pages are recognized
// through a rasterizer plus a local or model-backed text recognizer.
package extracta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tsawler/extracta/convert"
	"github.com/tsawler/extracta/docx"
	"github.com/tsawler/extracta/format"
	"github.com/tsawler/extracta/imageref"
	"github.com/tsawler/extracta/pdf"
	"github.com/tsawler/extracta/pptx"
	"github.com/tsawler/extracta/recognize"
	"github.com/tsawler/extracta/schema"
	"github.com/tsawler/extracta/walk"
	"github.com/tsawler/extracta/xlsx"
)

// Open prepares a file for extraction and returns an Extractor for fluent
// configuration. Errors are deferred to the terminal Extract call.
func Open(filename string) *Extractor {
	return &Extractor{
		filename: filename,
		options:  defaultOptions(),
	}
}

// Extractor provides a fluent interface for configuring and running an
// extraction. Each configuration method returns a new Extractor instance,
// making chains safe to share and reuse.
type Extractor struct {
	filename string
	options  ExtractOptions

	// Accumulated error (fail-fast)
	err error
}

// clone creates a copy of the Extractor with a deep copy of options.
// This ensures immutability: each chain method returns a new instance.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		filename: e.filename,
		options:  e.options.clone(),
		err:      e.err,
	}
}

// OCRLanguages sets the languages used by local text recognition.
func (e *Extractor) OCRLanguages(languages ...string) *Extractor {
	ne := e.clone()
	ne.options.ocrLanguages = append([]string(nil), languages...)
	return ne
}

// VisionAPIKey switches page recognition to a model-backed recognizer.
func (e *Extractor) VisionAPIKey(key string) *Extractor {
	ne := e.clone()
	ne.options.visionAPIKey = key
	return ne
}

// VisionModel overrides the model used by model-backed recognition.
func (e *Extractor) VisionModel(model string) *Extractor {
	ne := e.clone()
	ne.options.visionModel = model
	return ne
}

// RetryPolicy overrides the recognition retry schedule.
func (e *Extractor) RetryPolicy(p recognize.RetryPolicy) *Extractor {
	ne := e.clone()
	ne.options.retryPolicy = p
	return ne
}

// RasterDPI sets the render resolution for PDF page recognition.
func (e *Extractor) RasterDPI(dpi int) *Extractor {
	ne := e.clone()
	ne.options.rasterDPI = dpi
	return ne
}

// LibreOffice sets an explicit soffice binary for legacy conversion,
// bypassing PATH discovery.
func (e *Extractor) LibreOffice(path string) *Extractor {
	ne := e.clone()
	ne.options.libreOfficePath = path
	return ne
}

// ConvertTimeout bounds a single legacy conversion.
func (e *Extractor) ConvertTimeout(d time.Duration) *Extractor {
	ne := e.clone()
	ne.options.convertTimeout = d
	return ne
}

// MaxRefLen caps the length of image references derived from nearby text.
func (e *Extractor) MaxRefLen(n int) *Extractor {
	ne := e.clone()
	ne.options.maxRefLen = n
	return ne
}

// SummaryLen caps the sanitized stem length of generated image filenames.
func (e *Extractor) SummaryLen(n int) *Extractor {
	ne := e.clone()
	ne.options.summaryLen = n
	return ne
}

// WorkDir sets where converted intermediates are kept. Without it they
// live in a scratch directory removed after extraction.
func (e *Extractor) WorkDir(dir string) *Extractor {
	ne := e.clone()
	ne.options.workDir = dir
	return ne
}

// WithConfig folds a file-based config into the options. Explicit chain
// calls after WithConfig still override it.
func (e *Extractor) WithConfig(cfg *Config) *Extractor {
	ne := e.clone()
	if cfg != nil {
		ne.options = cfg.apply(ne.options)
	}
	return ne
}

// Result is a completed extraction: the normalized document, the extracted
// image payloads named to match the document's image references, and any
// non-fatal warnings.
type Result struct {
	Document *schema.Document
	Images   []schema.Image
	Warnings []Warning
}

// Extract runs the pipeline: format detection, legacy conversion if
// needed, format-specific walking, and schema assembly.
func (e *Extractor) Extract(ctx context.Context) (*Result, error) {
	if e.err != nil {
		return nil, e.err
	}

	info, err := os.Stat(e.filename)
	if err != nil {
		return nil, err
	}

	f, err := e.detectFormat(info.Size())
	if err != nil {
		return nil, err
	}

	log.Debug().Str("file", e.filename).Stringer("format", f).Msg("extraction started")

	src := e.filename
	if f.IsLegacy() {
		src, f, err = e.convertLegacy(ctx, f)
		if err != nil {
			return nil, err
		}
		if e.options.workDir == "" {
			defer os.RemoveAll(filepath.Dir(src))
		}
	}

	walker, err := e.openWalker(src, f)
	if err != nil {
		return nil, err
	}
	defer walker.Close()

	units, err := walker.Walk(ctx)
	if err != nil {
		return nil, err
	}

	asm := newAssembler(walker.Kind(), imageref.Config{
		MaxRefLen:  e.options.maxRefLen,
		SummaryLen: e.options.summaryLen,
	})
	doc, err := asm.assemble(units)
	if err != nil {
		return nil, err
	}
	doc.Metadata = schema.Metadata{
		Filename:    filepath.Base(e.filename),
		FileSize:    info.Size(),
		UnitCount:   len(doc.Units),
		ExtractedAt: time.Now().UTC(),
	}

	log.Info().Str("file", e.filename).
		Int("units", len(doc.Units)).
		Int("images", len(asm.images)).
		Int("warnings", len(asm.warnings)).
		Msg("extraction complete")

	return &Result{Document: doc, Images: asm.images, Warnings: asm.warnings}, nil
}

// ExtractAll extracts every named file with the receiver's configuration.
// Files are processed independently: a failing file gets a nil Result and
// its error recorded at the same index, and the rest still run. Only
// context cancellation stops the batch early.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) ([]*Result, []error) {
	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		fe := e.clone()
		fe.filename = p
		results[i], errs[i] = fe.Extract(ctx)
		if errs[i] != nil {
			log.Warn().Str("file", p).Err(errs[i]).Msg("extraction failed")
		}
	}
	return results, errs
}

// detectFormat combines extension and content detection; content wins when
// it is conclusive.
func (e *Extractor) detectFormat(size int64) (format.Format, error) {
	f := format.Detect(e.filename)

	file, err := os.Open(e.filename)
	if err != nil {
		return format.Unknown, err
	}
	defer file.Close()

	if sniffed, err := format.DetectFromReader(file, size, e.filename); err == nil && sniffed != format.Unknown {
		f = sniffed
	}
	if f == format.Unknown {
		return f, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(e.filename))
	}
	return f, nil
}

// convertLegacy upgrades a legacy file and returns the converted path and
// the resulting modern format. Products go to the work dir when set, or to
// a scratch dir the caller removes.
func (e *Extractor) convertLegacy(ctx context.Context, f format.Format) (string, format.Format, error) {
	outDir := e.options.workDir
	scratch := ""
	if outDir == "" {
		dir, err := os.MkdirTemp("", "extracta-*")
		if err != nil {
			return "", f, err
		}
		outDir, scratch = dir, dir
	}
	fail := func(err error) (string, format.Format, error) {
		if scratch != "" {
			os.RemoveAll(scratch)
		}
		return "", f, err
	}

	var copts []convert.Option
	copts = append(copts, convert.WithWorkDir(outDir))
	if e.options.libreOfficePath != "" {
		copts = append(copts, convert.WithBinary(e.options.libreOfficePath))
	}
	if e.options.convertTimeout > 0 {
		copts = append(copts, convert.WithTimeout(e.options.convertTimeout))
	}

	conv, err := convert.New(copts...)
	if err != nil {
		return fail(&MissingCapabilityError{Capability: "libreoffice", Err: err})
	}

	if f == format.HWP {
		path, produced, err := conv.ConvertHWP(ctx, e.filename)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrConversionFailed, err))
		}
		return path, produced, nil
	}

	target := f.ConversionTarget()
	path, err := conv.Convert(ctx, e.filename, target)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrConversionFailed, err))
	}
	return path, target, nil
}

// openWalker builds the format-specific walker.
func (e *Extractor) openWalker(src string, f format.Format) (walk.Walker, error) {
	switch f {
	case format.PPTX:
		return pptx.Open(src)
	case format.DOCX:
		return docx.Open(src)
	case format.XLSX:
		return xlsx.Open(src)
	case format.PDF:
		raster, err := pdf.NewPDFToPPM(e.options.rasterDPI)
		if err != nil {
			return nil, &MissingCapabilityError{Capability: "rasterizer", Err: err}
		}
		return pdf.Open(src,
			pdf.WithRasterizer(raster),
			pdf.WithRecognizer(e.recognizer()),
		)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// recognizer builds the page text recognizer: model-backed when an API key
// is configured, local otherwise, both wrapped with retry.
func (e *Extractor) recognizer() recognize.Recognizer {
	var inner recognize.Recognizer
	if e.options.visionAPIKey != "" {
		var vopts []recognize.VisionOption
		if e.options.visionModel != "" {
			vopts = append(vopts, recognize.WithVisionModel(e.options.visionModel))
		}
		inner = recognize.NewVision(e.options.visionAPIKey, vopts...)
	} else {
		inner = recognize.NewTesseract(e.options.ocrLanguages...)
	}
	return classifiedRecognizer{recognize.WithRetry(inner, e.options.retryPolicy)}
}

// classifiedRecognizer tags terminal recognition errors with
// ErrRecognitionFailed so logs and callers can classify them.
type classifiedRecognizer struct {
	inner recognize.Recognizer
}

func (c classifiedRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	text, err := c.inner.Recognize(ctx, image)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	return text, nil
}

// Write saves the result under dir: the document as <source>.json and each
// image under images/ with its generated filename.
func (r *Result) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	stem := strings.TrimSuffix(r.Document.Metadata.Filename, filepath.Ext(r.Document.Metadata.Filename))
	if stem == "" {
		stem = "document"
	}

	data, err := json.MarshalIndent(r.Document, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, stem+".json"), data, 0o644); err != nil {
		return err
	}

	if len(r.Images) == 0 {
		return nil
	}
	imgDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return err
	}
	for _, img := range r.Images {
		if err := os.WriteFile(filepath.Join(imgDir, img.Filename), img.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for scripts or tests
// where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// IsUnsupportedFormat reports whether err stems from an unrecognized input
// format.
func IsUnsupportedFormat(err error) bool { return errors.Is(err, ErrUnsupportedFormat) }
