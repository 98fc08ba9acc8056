// Package schema defines the normalized document representation produced by
// the extraction engine: a Document of ordered Units (slides, sections,
// sheets, or pages), each holding an ordered sequence of content items.
//
// The schema carries no raw image bytes. Images are referenced by resolved
// filename inside the tree; their bytes travel alongside as []Image and are
// persisted by the caller.
package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnitKind identifies the natural grouping unit of a source document.
type UnitKind int

const (
	KindUnknown UnitKind = iota
	KindSlides
	KindSections
	KindSheets
	KindPages
)

// String returns the JSON top-level key for the unit collection.
func (k UnitKind) String() string {
	switch k {
	case KindSlides:
		return "slides"
	case KindSections:
		return "sections"
	case KindSheets:
		return "sheets"
	case KindPages:
		return "pages"
	default:
		return "units"
	}
}

// UnitLabel returns the singular label used in generated image filenames.
func (k UnitKind) UnitLabel() string {
	switch k {
	case KindSlides:
		return "slide"
	case KindSections:
		return "section"
	case KindSheets:
		return "sheet"
	case KindPages:
		return "page"
	default:
		return "unit"
	}
}

// ItemType represents the type of a content item.
type ItemType int

const (
	ItemTypeUnknown ItemType = iota
	ItemTypeText
	ItemTypeTable
	ItemTypeImage
	ItemTypeGroup
)

func (it ItemType) String() string {
	switch it {
	case ItemTypeText:
		return "text"
	case ItemTypeTable:
		return "table"
	case ItemTypeImage:
		return "image_ref"
	case ItemTypeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Item is the interface for all content items within a Unit.
type Item interface {
	Type() ItemType
}

// TextBlock is a plain text content item. HeadingLevel is non-zero only for
// word-processing sources. Failed marks text that could not be recognized
// (OCR failure after retry exhaustion) rather than genuinely empty content.
type TextBlock struct {
	Text         string `json:"text"`
	HeadingLevel int    `json:"heading_level,omitempty"`
	Failed       bool   `json:"failed,omitempty"`
}

func (t *TextBlock) Type() ItemType { return ItemTypeText }

// Span records one merged-cell region over a table's dense grid.
// Row and Col are 0-based anchor coordinates.
type Span struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	RowSpan int `json:"row_span"`
	ColSpan int `json:"col_span"`
}

// Table is a structured table: detected or synthesized headers, dense rows
// of display strings, and merge spans recorded separately from the grid.
// The anchor cell of a span holds the value; member cells are empty.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Merges  []Span     `json:"merges,omitempty"`
}

func (t *Table) Type() ItemType { return ItemTypeTable }

// RowCount returns the number of data rows.
func (t *Table) RowCount() int { return len(t.Rows) }

// ColCount returns the number of columns.
func (t *Table) ColCount() int { return len(t.Headers) }

// ImageRef stands in for an extracted image: a human-meaningful reference
// derived from surrounding content and the generated filename under images/.
type ImageRef struct {
	Ref      string `json:"ref"`
	Filename string `json:"filename"`
}

func (i *ImageRef) Type() ItemType { return ItemTypeImage }

// Group is a nested sequence of content items, used where the source format
// supports visual grouping (presentation group shapes). Grouping is
// tree-shaped by construction; depth is capped by the walkers.
type Group struct {
	Items []Item `json:"items"`
}

func (g *Group) Type() ItemType { return ItemTypeGroup }

// MarshalJSON emits the group with type-tagged nested items.
func (g *Group) MarshalJSON() ([]byte, error) {
	wrapped := make([]json.RawMessage, len(g.Items))
	for i, item := range g.Items {
		raw, err := marshalItem(item)
		if err != nil {
			return nil, err
		}
		wrapped[i] = raw
	}
	return json.Marshal(struct {
		Items []json.RawMessage `json:"items"`
	}{Items: wrapped})
}

// Unit is one slide/section/sheet/page. Index is 1-based and format-local.
// Item order preserves source document order.
type Unit struct {
	Index int    `json:"index"`
	Title string `json:"title,omitempty"`
	Items []Item `json:"content"`
}

// Metadata describes the source file of a Document.
type Metadata struct {
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size,omitempty"`
	UnitCount   int       `json:"unit_count"`
	ExtractedAt time.Time `json:"extraction_date"`
}

// Document is the root of the normalized representation. It is built in one
// pass and not mutated after assembly.
type Document struct {
	Kind     UnitKind
	Metadata Metadata
	Units    []*Unit
}

// Image carries the bytes of one extracted image, named exactly as the
// ImageRef that points at it. The caller writes these under images/.
type Image struct {
	Filename string
	Data     []byte
}

// marshalItem emits an item with its type tag injected alongside its fields.
func marshalItem(item Item) (json.RawMessage, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["type"] = item.Type().String()
	return json.Marshal(m)
}

// MarshalJSON emits the unit with type-tagged content items.
func (u *Unit) MarshalJSON() ([]byte, error) {
	wrapped := make([]json.RawMessage, len(u.Items))
	for i, item := range u.Items {
		raw, err := marshalItem(item)
		if err != nil {
			return nil, err
		}
		wrapped[i] = raw
	}
	return json.Marshal(struct {
		Index int               `json:"index"`
		Title string            `json:"title,omitempty"`
		Items []json.RawMessage `json:"content"`
	}{Index: u.Index, Title: u.Title, Items: wrapped})
}

// MarshalJSON emits the document with the unit collection under the
// kind-specific top-level key (slides, sections, sheets, or pages).
func (d *Document) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"metadata":       d.Metadata,
		d.Kind.String(): d.Units,
	}
	return json.Marshal(out)
}

// Validate checks the document-level invariants: contiguous 1-based unit
// indices, document-unique image filenames, and merge spans within each
// table's grid extent. A violation indicates an assembler or resolver bug.
func (d *Document) Validate() error {
	seen := make(map[string]bool)
	for i, unit := range d.Units {
		if unit.Index != i+1 {
			return fmt.Errorf("unit at position %d has index %d, want %d", i, unit.Index, i+1)
		}
		if err := validateItems(unit.Items, seen); err != nil {
			return fmt.Errorf("unit %d: %w", unit.Index, err)
		}
	}
	return nil
}

func validateItems(items []Item, seenFilenames map[string]bool) error {
	for _, item := range items {
		switch v := item.(type) {
		case *ImageRef:
			if seenFilenames[v.Filename] {
				return fmt.Errorf("duplicate image filename %q", v.Filename)
			}
			seenFilenames[v.Filename] = true
		case *Table:
			if err := validateSpans(v); err != nil {
				return err
			}
		case *Group:
			if err := validateItems(v.Items, seenFilenames); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateSpans(t *Table) error {
	// Spans are relative to the data grid; header-row merges are not recorded.
	rows := len(t.Rows)
	cols := len(t.Headers)
	for _, s := range t.Merges {
		if s.Row < 0 || s.Col < 0 || s.RowSpan < 1 || s.ColSpan < 1 {
			return fmt.Errorf("malformed merge span %+v", s)
		}
		if s.Row+s.RowSpan > rows || s.Col+s.ColSpan > cols {
			return fmt.Errorf("merge span %+v exceeds grid extent %dx%d", s, rows, cols)
		}
	}
	return nil
}
