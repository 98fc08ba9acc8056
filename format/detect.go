// Package format provides file format classification for the extraction
// engine: which pipeline a file takes, whether it needs legacy conversion
// first, and which unit kind its normalized output uses.
package format

import (
	"archive/zip"
	"io"
	"path/filepath"
	"strings"

	"github.com/tsawler/extracta/schema"
)

// Format represents a supported document format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PPTX indicates a Microsoft PowerPoint (.pptx) presentation.
	PPTX
	// DOCX indicates a Microsoft Word (.docx) document.
	DOCX
	// XLSX indicates a Microsoft Excel (.xlsx) workbook.
	XLSX
	// PDF indicates a PDF document.
	PDF
	// PPT indicates a legacy binary PowerPoint presentation.
	PPT
	// DOC indicates a legacy binary Word document.
	DOC
	// XLS indicates a legacy binary Excel workbook.
	XLS
	// HWP indicates a Hangul word-processing document.
	HWP
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PPTX:
		return "PPTX"
	case DOCX:
		return "DOCX"
	case XLSX:
		return "XLSX"
	case PDF:
		return "PDF"
	case PPT:
		return "PPT"
	case DOC:
		return "DOC"
	case XLS:
		return "XLS"
	case HWP:
		return "HWP"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case PPTX:
		return ".pptx"
	case DOCX:
		return ".docx"
	case XLSX:
		return ".xlsx"
	case PDF:
		return ".pdf"
	case PPT:
		return ".ppt"
	case DOC:
		return ".doc"
	case XLS:
		return ".xls"
	case HWP:
		return ".hwp"
	default:
		return ""
	}
}

// IsLegacy reports whether the format requires conversion to a modern
// sibling before content extraction.
func (f Format) IsLegacy() bool {
	switch f {
	case PPT, DOC, XLS, HWP:
		return true
	}
	return false
}

// ConversionTarget returns the modern format a legacy format converts to.
// HWP targets DOCX first; the converter falls back to PDF when the word
// target fails. Non-legacy formats return Unknown.
func (f Format) ConversionTarget() Format {
	switch f {
	case PPT:
		return PPTX
	case DOC, HWP:
		return DOCX
	case XLS:
		return XLSX
	default:
		return Unknown
	}
}

// UnitKind returns the schema unit kind for the format's normalized output.
func (f Format) UnitKind() schema.UnitKind {
	switch f {
	case PPTX, PPT:
		return schema.KindSlides
	case DOCX, DOC, HWP:
		return schema.KindSections
	case XLSX, XLS:
		return schema.KindSheets
	case PDF:
		return schema.KindPages
	default:
		return schema.KindUnknown
	}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pptx":
		return PPTX
	case ".docx":
		return DOCX
	case ".xlsx":
		return XLSX
	case ".pdf":
		return PDF
	case ".ppt":
		return PPT
	case ".doc":
		return DOC
	case ".xls":
		return XLS
	case ".hwp":
		return HWP
	default:
		return Unknown
	}
}

// DetectFromReader inspects content to determine format. This is more
// reliable than extension-based detection and distinguishes the ZIP-based
// OOXML formats from each other. Legacy OLE compound documents share one
// magic number, so the filename extension breaks the tie for them.
func DetectFromReader(r io.ReaderAt, size int64, filename string) (Format, error) {
	magic := make([]byte, 8)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	// PDF magic: %PDF
	if len(magic) >= 4 && magic[0] == '%' && magic[1] == 'P' && magic[2] == 'D' && magic[3] == 'F' {
		return PDF, nil
	}

	// ZIP magic: PK\x03\x04, an OOXML container.
	if len(magic) >= 4 && magic[0] == 0x50 && magic[1] == 0x4B && magic[2] == 0x03 && magic[3] == 0x04 {
		return detectZIPFormat(r, size)
	}

	// OLE compound document magic: D0 CF 11 E0 A1 B1 1A E1.
	if len(magic) >= 8 && magic[0] == 0xD0 && magic[1] == 0xCF && magic[2] == 0x11 && magic[3] == 0xE0 {
		if f := Detect(filename); f.IsLegacy() {
			return f, nil
		}
		return Unknown, nil
	}

	return Unknown, nil
}

// detectZIPFormat inspects a ZIP archive to determine which OOXML format
// it holds.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "ppt/"):
			return PPTX, nil
		case strings.HasPrefix(f.Name, "word/"):
			return DOCX, nil
		case strings.HasPrefix(f.Name, "xl/"):
			return XLSX, nil
		}
	}

	return Unknown, nil
}
