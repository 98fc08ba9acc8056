// Package walk defines the format-agnostic contract between the per-format
// content walkers and the schema assembler: a Walker yields the document's
// units in source order, each unit an ordered sequence of raw content
// events. Format-specific logic lives entirely inside the walkers; the
// assembler and image-reference resolver consume only this event model.
package walk

import (
	"context"

	"github.com/tsawler/extracta/schema"
	"github.com/tsawler/extracta/tables"
)

// MaxGroupDepth caps group nesting when walking malformed files. Source
// formats enforce tree-shaped grouping, so well-formed input never
// approaches this.
const MaxGroupDepth = 64

// EventType identifies the kind of a raw content event.
type EventType int

const (
	EventUnknown EventType = iota
	EventText
	EventGrid
	EventImage
	EventGroup
)

// Event is one raw content event in source document order. Exactly one of
// the payload fields is populated, according to Type.
type Event struct {
	Type EventType

	// EventText
	Text         string
	HeadingLevel int
	Failed       bool // recognition failed for this text after retries

	// EventGrid
	Grid *tables.Grid

	// EventImage
	Image *ImageData

	// EventGroup
	Group []Event
}

// ImageData is a raw image event: the extracted bytes plus the enclosing
// context the walker could see at the point of extraction. The reference
// resolver consumes the context fields in priority order.
type ImageData struct {
	Data []byte
	Ext  string // file extension without the dot, e.g. "png"

	// ColumnHeader is the header text of the table column the image sits
	// in, when the walker found the image inside a table cell.
	ColumnHeader string

	// GroupText holds sibling text within the image's enclosing group.
	GroupText []string

	// Hint is walker-supplied nearby context consulted before the
	// assembler's own preceding-text rule (e.g. a detected section line on
	// an OCR page, or a spreadsheet anchor-cell value).
	Hint string
}

// Unit is one raw slide/section/sheet/page produced by a walker.
// Index is 1-based in source order.
type Unit struct {
	Index  int
	Title  string
	Events []Event
}

// Walker is implemented once per source format. Walk traverses the native
// document model in stored order; it must not reorder content. Walk may
// block on external capabilities (OCR) and must honor ctx cancellation.
type Walker interface {
	Kind() schema.UnitKind
	Walk(ctx context.Context) ([]Unit, error)
	Close() error
}

// TextEvent is a convenience constructor for a plain text event.
func TextEvent(text string) Event {
	return Event{Type: EventText, Text: text}
}

// GridEvent is a convenience constructor for a raw table event.
func GridEvent(g *tables.Grid) Event {
	return Event{Type: EventGrid, Grid: g}
}

// ImageEvent is a convenience constructor for a raw image event.
func ImageEvent(img *ImageData) Event {
	return Event{Type: EventImage, Image: img}
}
