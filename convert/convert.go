// Package convert upgrades legacy binary office formats to their modern
// XML-based siblings by invoking a host-provided LibreOffice installation.
// It is a pure boundary: the subprocess either produces the converted file
// or the conversion fails cleanly, with no partial extraction and no
// degraded fallback to parsing the legacy format natively.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tsawler/extracta/format"
)

// ErrUnavailable indicates no LibreOffice binary could be located.
var ErrUnavailable = errors.New("libreoffice not found")

// ErrConversion indicates the conversion subprocess ran but produced no
// usable output.
var ErrConversion = errors.New("conversion failed")

// DefaultTimeout bounds a single conversion subprocess.
const DefaultTimeout = 2 * time.Minute

// macOS application bundle location, checked after PATH.
const macSofficePath = "/Applications/LibreOffice.app/Contents/MacOS/soffice"

// Converter invokes LibreOffice headless conversion. The zero value is not
// usable; construct with New.
type Converter struct {
	binary  string
	timeout time.Duration
	// workDir receives converted files. Empty means alongside the source.
	workDir string
}

// Option configures a Converter.
type Option func(*Converter)

// WithTimeout overrides the subprocess timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Converter) { c.timeout = d }
}

// WithWorkDir places converted files in dir instead of next to the source.
func WithWorkDir(dir string) Option {
	return func(c *Converter) { c.workDir = dir }
}

// WithBinary uses an explicit soffice binary path, bypassing discovery.
func WithBinary(path string) Option {
	return func(c *Converter) { c.binary = path }
}

// New locates the LibreOffice binary and returns a Converter.
// Returns ErrUnavailable when no binary is found.
func New(opts ...Option) (*Converter, error) {
	c := &Converter{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.binary == "" {
		c.binary = findSoffice()
	}
	if c.binary == "" {
		return nil, ErrUnavailable
	}
	return c, nil
}

func findSoffice() string {
	for _, name := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	if _, err := os.Stat(macSofficePath); err == nil {
		return macSofficePath
	}
	return ""
}

// Convert turns a legacy file into the given modern target format and
// returns the converted file's path. The subprocess runs against a scratch
// directory that is removed on every exit path. Convert is idempotent per
// source file: converting the same source again overwrites the same output.
func (c *Converter) Convert(ctx context.Context, src string, target format.Format) (string, error) {
	targetExt := strings.TrimPrefix(target.Extension(), ".")
	if targetExt == "" {
		return "", fmt.Errorf("%w: no conversion target for %s", ErrConversion, target)
	}

	scratch, err := os.MkdirTemp("", "extracta-convert-*")
	if err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary,
		"--headless", "--convert-to", targetExt, "--outdir", scratch, src)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrConversion, ctx.Err())
		}
		return "", fmt.Errorf("%w: %s: %v", ErrConversion, firstLine(out), err)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	produced := filepath.Join(scratch, base+"."+targetExt)
	if _, err := os.Stat(produced); err != nil {
		// LibreOffice exits 0 on some failures; the missing product is the signal.
		return "", fmt.Errorf("%w: no output produced: %s", ErrConversion, firstLine(out))
	}

	destDir := c.workDir
	if destDir == "" {
		destDir = filepath.Dir(src)
	}
	dest := filepath.Join(destDir, base+"."+targetExt)
	if err := copyFile(produced, dest); err != nil {
		return "", fmt.Errorf("placing converted file: %w", err)
	}

	log.Debug().Str("src", src).Str("dest", dest).Msg("legacy conversion complete")
	return dest, nil
}

// ConvertHWP converts an HWP document, preferring DOCX and falling back to
// PDF when the word-processing target fails. It returns the converted path
// and the format actually produced.
func (c *Converter) ConvertHWP(ctx context.Context, src string) (string, format.Format, error) {
	if path, err := c.Convert(ctx, src, format.DOCX); err == nil {
		return path, format.DOCX, nil
	} else if ctx.Err() != nil {
		return "", format.Unknown, err
	}

	log.Debug().Str("src", src).Msg("hwp→docx failed, retrying as pdf")
	path, err := c.Convert(ctx, src, format.PDF)
	if err != nil {
		return "", format.Unknown, err
	}
	return path, format.PDF, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
