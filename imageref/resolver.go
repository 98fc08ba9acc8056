// Package imageref derives human-meaningful reference strings and unique,
// filesystem-safe filenames for extracted images from their surrounding
// content.
package imageref

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/extracta/schema"
)

// Config holds the tunable naming thresholds. The exact values are
// presentation choices, not correctness requirements, so they are
// configuration rather than constants.
type Config struct {
	// MaxRefLen caps the rune length of references derived from nearby text.
	MaxRefLen int
	// SummaryLen caps the rune length of the sanitized filename stem.
	SummaryLen int
}

// DefaultConfig returns the default naming thresholds.
func DefaultConfig() Config {
	return Config{MaxRefLen: 80, SummaryLen: 30}
}

// Request carries one image's enclosing context, assembled from the walker's
// event data plus the already-walked content of the current unit. Resolution
// never looks ahead of the image's position.
type Request struct {
	Kind      schema.UnitKind
	UnitIndex int
	Ext       string // source image extension without the dot

	ColumnHeader  string   // enclosing table column header, if any
	GroupText     []string // sibling text within the enclosing group, if any
	Hint          string   // walker-supplied nearby context
	PrecedingText string   // nearest preceding text block in the unit
}

// Resolver resolves image references for one document. It tracks per-unit
// counters and issued filenames, so a single Resolver must be used for the
// whole document and not shared across documents.
type Resolver struct {
	cfg      Config
	used     map[string]bool
	counters map[int]int
}

// New creates a Resolver with the given thresholds. Zero or negative
// thresholds fall back to the defaults.
func New(cfg Config) *Resolver {
	def := DefaultConfig()
	if cfg.MaxRefLen <= 0 {
		cfg.MaxRefLen = def.MaxRefLen
	}
	if cfg.SummaryLen <= 0 {
		cfg.SummaryLen = def.SummaryLen
	}
	return &Resolver{
		cfg:      cfg,
		used:     make(map[string]bool),
		counters: make(map[int]int),
	}
}

// Resolve derives the reference string and generated filename for one image.
// Priority: table column header, then group sibling text, then the walker's
// hint, then the nearest preceding text block, then a positional label.
func (r *Resolver) Resolve(req Request) schema.ImageRef {
	r.counters[req.UnitIndex]++
	n := r.counters[req.UnitIndex]

	ref := r.pickReference(req, n)
	stem := Sanitize(ref, r.cfg.SummaryLen)
	if stem == "" {
		stem = "image"
	}

	name := fmt.Sprintf("%s_%s%d_%d.%s",
		stem, req.Kind.UnitLabel(), req.UnitIndex, n, normalizeExt(req.Ext))

	// The per-unit counter already makes collisions impossible for a
	// correctly used Resolver; the suffix loop guards the invariant anyway.
	unique := name
	for k := 2; r.used[unique]; k++ {
		unique = fmt.Sprintf("%s_%d.%s",
			strings.TrimSuffix(name, "."+normalizeExt(req.Ext)), k, normalizeExt(req.Ext))
	}
	r.used[unique] = true

	return schema.ImageRef{Ref: ref, Filename: unique}
}

func (r *Resolver) pickReference(req Request, n int) string {
	if s := strings.TrimSpace(req.ColumnHeader); s != "" {
		return Truncate(s, r.cfg.MaxRefLen)
	}
	if label := summarize(req.GroupText); label != "" {
		return Truncate(label, r.cfg.MaxRefLen)
	}
	if s := strings.TrimSpace(req.Hint); s != "" {
		return Truncate(s, r.cfg.MaxRefLen)
	}
	if s := strings.TrimSpace(req.PrecedingText); s != "" {
		return Truncate(s, r.cfg.MaxRefLen)
	}
	return fmt.Sprintf("image %d", n)
}

// summarize joins group sibling text into one label.
func summarize(siblings []string) string {
	var parts []string
	for _, s := range siblings {
		s = strings.TrimSpace(s)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Truncate bounds s to max runes, trimming a partial trailing word's space.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), " ")
}

// Sanitize converts text into a filesystem-safe filename stem: NFC
// normalization, then only letters, digits, and spaces survive; whitespace
// collapses to single spaces; the result is bounded to max runes.
func Sanitize(text string, max int) string {
	text = norm.NFC.String(text)

	var b strings.Builder
	lastSpace := true
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return Truncate(strings.TrimSpace(b.String()), max)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "":
		return "png"
	case "jpeg":
		return "jpg"
	default:
		return ext
	}
}
