package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// ErrNoRasterizer indicates no page rasterizer is available on the host.
var ErrNoRasterizer = errors.New("pdftoppm not found")

// DefaultDPI is the render resolution for page recognition.
const DefaultDPI = 200

// Rasterizer renders one page of a PDF file to a PNG image.
type Rasterizer interface {
	Render(ctx context.Context, path string, pageNr int) ([]byte, error)
}

// PDFToPPM rasterizes pages with the poppler pdftoppm tool.
type PDFToPPM struct {
	binary string
	dpi    int
}

// NewPDFToPPM locates pdftoppm and returns a rasterizer rendering at the
// given DPI (DefaultDPI when dpi <= 0).
func NewPDFToPPM(dpi int) (*PDFToPPM, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, ErrNoRasterizer
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PDFToPPM{binary: bin, dpi: dpi}, nil
}

// Render rasterizes a single 1-based page to PNG bytes.
func (p *PDFToPPM) Render(ctx context.Context, path string, pageNr int) ([]byte, error) {
	scratch, err := os.MkdirTemp("", "extracta-raster-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	prefix := filepath.Join(scratch, "page")
	cmd := exec.CommandContext(ctx, p.binary,
		"-png", "-r", strconv.Itoa(p.dpi),
		"-f", strconv.Itoa(pageNr), "-l", strconv.Itoa(pageNr),
		"-singlefile", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("rasterizing page %d: %v: %s", pageNr, err, out)
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("rasterizing page %d: no output: %w", pageNr, err)
	}
	return data, nil
}
