package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/tsawler/extracta/imageutil"
	"github.com/tsawler/extracta/schema"
	"github.com/tsawler/extracta/tables"
	"github.com/tsawler/extracta/walk"
)

// Walker reads a word-processing document and yields one unit per section.
// Sections are split at the top-most heading level actually present in the
// body; a document with no headings is a single section.
type Walker struct {
	zipReader *zip.ReadCloser
	styles    *stylesXML
	rels      map[string]string
	title     string
}

// Open opens a DOCX file for walking.
func Open(filename string) (*Walker, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	w := &Walker{zipReader: zr}
	if _, err := w.getFileContent("word/document.xml"); err != nil {
		zr.Close()
		return nil, fmt.Errorf("missing required file: word/document.xml")
	}
	w.parseStyles()
	w.parseRelationships()
	w.parseCoreProperties()
	return w, nil
}

// Kind reports that docx units are sections.
func (w *Walker) Kind() schema.UnitKind { return schema.KindSections }

// Close releases resources associated with the Walker.
func (w *Walker) Close() error {
	if w.zipReader != nil {
		err := w.zipReader.Close()
		w.zipReader = nil
		return err
	}
	return nil
}

// Title returns the document title from core properties, if present.
func (w *Walker) Title() string { return w.title }

func (w *Walker) getFileContent(name string) ([]byte, error) {
	for _, f := range w.zipReader.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

func (w *Walker) parseStyles() {
	data, err := w.getFileContent("word/styles.xml")
	if err != nil {
		return
	}
	var styles stylesXML
	if xml.Unmarshal(data, &styles) == nil {
		w.styles = &styles
	}
}

// parseRelationships maps r:embed IDs to media paths inside the archive.
func (w *Walker) parseRelationships() {
	data, err := w.getFileContent("word/_rels/document.xml.rels")
	if err != nil {
		return
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return
	}
	w.rels = make(map[string]string, len(rels.Relationship))
	for _, rel := range rels.Relationship {
		w.rels[rel.ID] = path.Clean(path.Join("word", rel.Target))
	}
}

func (w *Walker) parseCoreProperties() {
	data, err := w.getFileContent("docProps/core.xml")
	if err != nil {
		return
	}
	var props corePropertiesXML
	if xml.Unmarshal(data, &props) == nil {
		w.title = props.Title
	}
}

// Walk parses the body in stored order and segments it into sections.
func (w *Walker) Walk(ctx context.Context) ([]walk.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := w.getFileContent("word/document.xml")
	if err != nil {
		return nil, err
	}

	var doc documentXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document XML: %w", err)
	}
	if doc.Body == nil {
		return nil, fmt.Errorf("document has no body")
	}

	splitLevel := w.topHeadingLevel(doc.Body.Elements)

	var units []walk.Unit
	current := walk.Unit{Index: 1}
	flush := func() {
		if current.Title != "" || len(current.Events) > 0 {
			units = append(units, current)
		}
	}

	for _, el := range doc.Body.Elements {
		switch {
		case el.Paragraph != nil:
			p := el.Paragraph
			text := w.paragraphText(p)
			level := w.headingLevel(p)

			if splitLevel > 0 && level == splitLevel && text != "" {
				flush()
				current = walk.Unit{Index: len(units) + 1, Title: text}
				continue
			}
			if text != "" {
				ev := walk.TextEvent(text)
				ev.HeadingLevel = level
				current.Events = append(current.Events, ev)
			}
			for _, img := range w.paragraphImages(p) {
				current.Events = append(current.Events, walk.ImageEvent(img))
			}

		case el.Table != nil:
			current.Events = append(current.Events, walk.GridEvent(tableGrid(el.Table)))
		}
	}
	flush()

	if len(units) == 0 {
		units = append(units, walk.Unit{Index: 1})
	}
	return units, nil
}

// topHeadingLevel returns the smallest heading level used in the body, or
// 0 when the body has no headings.
func (w *Walker) topHeadingLevel(elements []bodyElement) int {
	top := 0
	for _, el := range elements {
		if el.Paragraph == nil {
			continue
		}
		level := w.headingLevel(el.Paragraph)
		if level == 0 || w.paragraphText(el.Paragraph) == "" {
			continue
		}
		if top == 0 || level < top {
			top = level
		}
	}
	return top
}

// headingLevel resolves a paragraph's heading level from its direct
// outline property, its style ID, or the style's outline level. Returns 0
// for body text.
func (w *Walker) headingLevel(p *paragraphXML) int {
	if lvl := parseOutlineLevel(p.Properties.OutlineLvl.Val); lvl >= 0 {
		return lvl + 1
	}

	styleID := p.Properties.Style.Val
	if styleID == "" {
		return 0
	}

	lower := strings.ToLower(styleID)
	if rest, ok := strings.CutPrefix(lower, "heading"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 9 {
			return n
		}
	}

	if w.styles != nil {
		for _, style := range w.styles.Styles {
			if !strings.EqualFold(style.StyleID, styleID) {
				continue
			}
			if lvl := parseOutlineLevel(style.PPr.OutlineLvl.Val); lvl >= 0 {
				return lvl + 1
			}
		}
	}
	return 0
}

// parseOutlineLevel parses a 0-based OOXML outline level, -1 when absent
// or out of range.
func parseOutlineLevel(s string) int {
	if s == "" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 8 {
		return -1
	}
	return n
}

// paragraphText joins the paragraph's run text, including hyperlink runs.
func (w *Walker) paragraphText(p *paragraphXML) string {
	var sb strings.Builder
	for _, run := range p.Runs {
		sb.WriteString(runText(run))
	}
	for _, link := range p.Hyperlinks {
		for _, run := range link.Runs {
			sb.WriteString(runText(run))
		}
	}
	return strings.TrimSpace(sb.String())
}

func runText(run runXML) string {
	var parts []string
	for _, t := range run.Text {
		parts = append(parts, t.Value)
	}
	for range run.Tabs {
		parts = append(parts, "\t")
	}
	for range run.Breaks {
		parts = append(parts, "\n")
	}
	return strings.Join(parts, "")
}

// paragraphImages loads the media bytes behind each drawing in the
// paragraph. Unresolvable references are dropped.
func (w *Walker) paragraphImages(p *paragraphXML) []*walk.ImageData {
	var images []*walk.ImageData
	for _, run := range p.Runs {
		for _, drawing := range run.Drawing {
			var blip *blipXML
			if drawing.Inline != nil {
				blip = drawing.Inline.Blip
			} else if drawing.Anchor != nil {
				blip = drawing.Anchor.Blip
			}
			if blip == nil || blip.Embed == "" || w.rels == nil {
				continue
			}
			target, ok := w.rels[blip.Embed]
			if !ok {
				continue
			}
			data, err := w.getFileContent(target)
			if err != nil {
				continue
			}
			ext := imageutil.SniffExt(data)
			if ext == "" {
				ext = strings.TrimPrefix(path.Ext(target), ".")
			}
			images = append(images, &walk.ImageData{Data: data, Ext: ext})
		}
	}
	return images
}

// tableGrid converts a native table to a raw grid. Rows are expanded to
// grid columns: gridSpan continuation columns and vMerge continuation
// cells stay empty, the anchor cell records the span.
func tableGrid(tbl *tableXML) *tables.Grid {
	g := &tables.Grid{}

	// Spans are recorded in anchor-cell order so output is deterministic.
	var spans []*schema.Span
	// open vertical merges by starting column
	open := make(map[int]*schema.Span)

	for rowIdx, tr := range tbl.Rows {
		var row []string
		col := 0
		for _, tc := range tr.Cells {
			span := 1
			if n, err := strconv.Atoi(tc.Properties.GridSpan.Val); err == nil && n > 1 {
				span = n
			}

			merging := tc.Properties.VMerge != nil
			restart := merging && tc.Properties.VMerge.Val == "restart"
			continuing := merging && !restart

			if continuing {
				if s, ok := open[col]; ok {
					s.RowSpan++
				}
				for i := 0; i < span; i++ {
					row = append(row, "")
				}
				col += span
				continue
			}

			text := cellText(tc)
			row = append(row, text)
			for i := 1; i < span; i++ {
				row = append(row, "")
			}

			if restart {
				s := &schema.Span{Row: rowIdx, Col: col, RowSpan: 1, ColSpan: span}
				open[col] = s
				spans = append(spans, s)
			} else if span > 1 {
				spans = append(spans, &schema.Span{Row: rowIdx, Col: col, RowSpan: 1, ColSpan: span})
			}
			col += span
		}
		g.Cells = append(g.Cells, row)
	}

	for _, s := range spans {
		if s.RowSpan > 1 || s.ColSpan > 1 {
			g.Merges = append(g.Merges, *s)
		}
	}
	return g
}

func cellText(tc tableCellXML) string {
	var parts []string
	for _, p := range tc.Paragraphs {
		var sb strings.Builder
		for _, run := range p.Runs {
			sb.WriteString(runText(run))
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
