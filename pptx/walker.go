package pptx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/tsawler/extracta/imageutil"
	"github.com/tsawler/extracta/schema"
	"github.com/tsawler/extracta/tables"
	"github.com/tsawler/extracta/walk"
)

// Walker reads a presentation and yields one unit per slide, in
// presentation order.
type Walker struct {
	zipReader *zip.ReadCloser
	title     string
}

// Open opens a PPTX file for walking.
func Open(filename string) (*Walker, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	w := &Walker{zipReader: zr}
	if err := w.validate(); err != nil {
		zr.Close()
		return nil, err
	}
	w.parseCoreProperties()
	return w, nil
}

// Kind reports that pptx units are slides.
func (w *Walker) Kind() schema.UnitKind { return schema.KindSlides }

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

// validate checks that required PPTX files exist.
func (w *Walker) validate() error {
	required := []string{
		"[Content_Types].xml",
		"ppt/presentation.xml",
	}

	fileMap := make(map[string]bool)
	for _, f := range w.zipReader.File {
		fileMap[f.Name] = true
	}

	for _, name := range required {
		if !fileMap[name] {
			return fmt.Errorf("missing required file: %s", name)
		}
	}
	return nil
}

// getFileContent reads the content of a file from the ZIP archive.
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

// Walk parses every slide and yields its content events in stored shape
// order. Pictures that sit geometrically inside a table frame are attached
// to that table's column context instead of the positional flow.
func (w *Walker) Walk(ctx context.Context) ([]walk.Unit, error) {
	slideFiles := make([]string, 0)
	for _, f := range w.zipReader.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			if !strings.Contains(f.Name, "_rels") {
				slideFiles = append(slideFiles, f.Name)
			}
		}
	}
	if len(slideFiles) == 0 {
		return nil, fmt.Errorf("no slides found in presentation")
	}

	sort.Slice(slideFiles, func(i, j int) bool {
		return slideNumber(slideFiles[i]) < slideNumber(slideFiles[j])
	})

	units := make([]walk.Unit, 0, len(slideFiles))
	for i, slidePath := range slideFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		unit, err := w.walkSlide(slidePath, i+1)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		units = append(units, unit)
	}
	return units, nil
}

// slideNumber extracts the slide number from a path like "ppt/slides/slide1.xml".
func slideNumber(p string) int {
	name := strings.TrimPrefix(p, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	var num int
	fmt.Sscanf(name, "%d", &num)
	return num
}

func (w *Walker) walkSlide(slidePath string, index int) (walk.Unit, error) {
	data, err := w.getFileContent(slidePath)
	if err != nil {
		return walk.Unit{}, err
	}

	var slide slideXML
	if err := xml.Unmarshal(data, &slide); err != nil {
		return walk.Unit{}, fmt.Errorf("parsing slide XML: %w", err)
	}

	rels := w.parseSlideRels(slidePath)

	unit := walk.Unit{Index: index}

	// Table frames are collected up front so free-floating pictures can be
	// matched against their extents.
	regions := tableRegions(slide.CSld.SpTree.Shapes)

	sw := &slideWalk{walker: w, rels: rels, regions: regions}
	events := sw.walkShapes(slide.CSld.SpTree.Shapes, 0, nil, true)

	// Flush pictures captured by table regions right after their table.
	unit.Events = sw.interleave(events)
	unit.Title = sw.title
	return unit, nil
}

// parseSlideRels loads the slide's relationship file, mapping r:embed IDs
// to media targets. Missing rels files are fine; slides without images
// have none.
func (w *Walker) parseSlideRels(slidePath string) map[string]string {
	relsPath := path.Join(path.Dir(slidePath), "_rels", path.Base(slidePath)+".rels")
	data, err := w.getFileContent(relsPath)
	if err != nil {
		return nil
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}
	m := make(map[string]string, len(rels.Relationship))
	for _, rel := range rels.Relationship {
		m[rel.ID] = path.Clean(path.Join("ppt/slides", rel.Target))
	}
	return m
}

// tableRegion is a table frame's extent plus the context a contained
// picture needs: column boundaries and header texts.
type tableRegion struct {
	x0, y0, x1, y1 int64
	colRights      []int64  // cumulative column right edges, relative to x0
	headers        []string // first-row cell texts
	captured       []*walk.ImageData // pictures claimed by this frame, appended after the grid
	frame          *graphicFrameXML
}

// tableRegions collects top-level table frames with usable geometry.
func tableRegions(shapes []shapeNode) []*tableRegion {
	var regions []*tableRegion
	for i := range shapes {
		gf := shapes[i].Frame
		if gf == nil || gf.Graphic.GraphicData.Tbl == nil || gf.Xfrm == nil {
			continue
		}
		tbl := gf.Graphic.GraphicData.Tbl
		r := &tableRegion{
			x0:    gf.Xfrm.Off.X,
			y0:    gf.Xfrm.Off.Y,
			x1:    gf.Xfrm.Off.X + gf.Xfrm.Ext.Cx,
			y1:    gf.Xfrm.Off.Y + gf.Xfrm.Ext.Cy,
			frame: gf,
		}
		var right int64
		for _, col := range tbl.TblGrid.GridCol {
			right += col.W
			r.colRights = append(r.colRights, right)
		}
		if len(tbl.Tr) > 0 {
			for _, tc := range tbl.Tr[0].Tc {
				r.headers = append(r.headers, cellText(tc.TxBody))
			}
		}
		regions = append(regions, r)
	}
	return regions
}

// claim checks whether the picture's center falls inside the region and, if
// so, records it under the column it lands in.
func (r *tableRegion) claim(pic *picXML, img *walk.ImageData) bool {
	if pic.SpPr.Xfrm == nil {
		return false
	}
	cx := pic.SpPr.Xfrm.Off.X + pic.SpPr.Xfrm.Ext.Cx/2
	cy := pic.SpPr.Xfrm.Off.Y + pic.SpPr.Xfrm.Ext.Cy/2
	if cx < r.x0 || cx >= r.x1 || cy < r.y0 || cy >= r.y1 {
		return false
	}
	col := 0
	rel := cx - r.x0
	for i, edge := range r.colRights {
		if rel < edge {
			col = i
			break
		}
		col = i
	}
	if col < len(r.headers) {
		img.ColumnHeader = strings.TrimSpace(r.headers[col])
	}
	r.captured = append(r.captured, img)
	return true
}

// slideWalk carries per-slide walking state.
type slideWalk struct {
	walker  *Walker
	rels    map[string]string
	regions []*tableRegion
	title   string
}

// walkShapes emits events for shapes in stored order. topLevel controls
// table-region capture; pictures inside groups keep their group context
// instead.
func (s *slideWalk) walkShapes(shapes []shapeNode, depth int, groupText []string, topLevel bool) []walk.Event {
	if depth > walk.MaxGroupDepth {
		return nil
	}

	var events []walk.Event
	for _, node := range shapes {
		switch {
		case node.Sp != nil:
			text := shapeText(node.Sp)
			if text == "" {
				continue
			}
			if topLevel && s.title == "" && isTitlePlaceholder(node.Sp) {
				s.title = text
			}
			events = append(events, walk.TextEvent(text))

		case node.Frame != nil:
			if tbl := node.Frame.Graphic.GraphicData.Tbl; tbl != nil {
				events = append(events, walk.GridEvent(tableGrid(tbl)))
			}

		case node.Pic != nil:
			img := s.loadPicture(node.Pic)
			if img == nil {
				continue
			}
			img.GroupText = groupText
			if topLevel && s.claimByRegion(node.Pic, img) {
				continue
			}
			events = append(events, walk.ImageEvent(img))

		case node.Group != nil:
			siblings := groupSiblingText(node.Group)
			if len(siblings) == 0 {
				siblings = groupText
			}
			children := s.walkShapes(node.Group.Shapes, depth+1, siblings, false)
			if len(children) > 0 {
				events = append(events, walk.Event{Type: walk.EventGroup, Group: children})
			}
		}
	}
	return events
}

func (s *slideWalk) claimByRegion(pic *picXML, img *walk.ImageData) bool {
	for _, r := range s.regions {
		if r.claim(pic, img) {
			return true
		}
	}
	return false
}

// interleave re-emits the event stream with each table's captured pictures
// directly after that table's grid event.
func (s *slideWalk) interleave(events []walk.Event) []walk.Event {
	out := make([]walk.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, ev)
		if ev.Type != walk.EventGrid {
			continue
		}
		for _, r := range s.regions {
			if tableGridMatches(r.frame, ev.Grid) {
				for _, img := range r.captured {
					out = append(out, walk.ImageEvent(img))
				}
				r.captured = nil
			}
		}
	}
	return out
}

// tableGridMatches pairs a grid event back to its source frame by shape:
// one grid event is produced per frame, so dimensions identify it.
func tableGridMatches(gf *graphicFrameXML, g *tables.Grid) bool {
	tbl := gf.Graphic.GraphicData.Tbl
	return tbl != nil && len(tbl.Tr) == len(g.Cells)
}

// loadPicture resolves the blip relationship and reads the media bytes.
// Unresolvable or unreadable pictures are dropped; the slide's text still
// extracts.
func (s *slideWalk) loadPicture(pic *picXML) *walk.ImageData {
	embed := pic.BlipFill.Blip.Embed
	if embed == "" || s.rels == nil {
		return nil
	}
	target, ok := s.rels[embed]
	if !ok {
		return nil
	}
	data, err := s.walker.getFileContent(target)
	if err != nil {
		return nil
	}
	ext := imageutil.SniffExt(data)
	if ext == "" {
		ext = strings.TrimPrefix(path.Ext(target), ".")
	}
	return &walk.ImageData{Data: data, Ext: ext}
}

// groupSiblingText gathers the text of the group's direct shape children.
func groupSiblingText(grp *grpSpXML) []string {
	var texts []string
	for _, node := range grp.Shapes {
		if node.Sp == nil {
			continue
		}
		if text := shapeText(node.Sp); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

func isTitlePlaceholder(sp *spXML) bool {
	ph := sp.NvSpPr.NvPr.Ph
	return ph != nil && (ph.Type == "title" || ph.Type == "ctrTitle")
}

// shapeText joins a shape's paragraphs with newlines.
func shapeText(sp *spXML) string {
	if sp.TxBody == nil {
		return ""
	}
	return bodyText(sp.TxBody)
}

func bodyText(body *txBodyXML) string {
	var lines []string
	for _, p := range body.P {
		var sb strings.Builder
		for _, r := range p.R {
			sb.WriteString(r.T)
		}
		for _, f := range p.Fld {
			sb.WriteString(f.T)
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func cellText(body *txBodyXML) string {
	if body == nil {
		return ""
	}
	return strings.ReplaceAll(bodyText(body), "\n", " ")
}

// tableGrid converts the native table to a raw grid. Continuation cells of
// merges stay empty; the anchor cell records the span.
func tableGrid(tbl *tblXML) *tables.Grid {
	g := &tables.Grid{}
	for rowIdx, tr := range tbl.Tr {
		row := make([]string, 0, len(tr.Tc))
		col := 0
		for _, tc := range tr.Tc {
			merged := tc.VMerge != nil || tc.HMerge != nil
			if merged {
				row = append(row, "")
			} else {
				row = append(row, cellText(tc.TxBody))
				rowSpan := tc.RowSpan
				colSpan := tc.GridSpan
				if rowSpan > 1 || colSpan > 1 {
					if rowSpan < 1 {
						rowSpan = 1
					}
					if colSpan < 1 {
						colSpan = 1
					}
					g.Merges = append(g.Merges, schema.Span{
						Row: rowIdx, Col: col, RowSpan: rowSpan, ColSpan: colSpan,
					})
				}
			}
			col++
		}
		g.Cells = append(g.Cells, row)
	}
	return g
}
