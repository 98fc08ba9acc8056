package extracta

import (
	"strings"
	"testing"

	"github.com/tsawler/extracta/imageref"
	"github.com/tsawler/extracta/schema"
	"github.com/tsawler/extracta/tables"
	"github.com/tsawler/extracta/walk"
)

var png = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 1, 2, 3}

func assemble(t *testing.T, kind schema.UnitKind, units []walk.Unit) (*schema.Document, *assembler) {
	t.Helper()
	asm := newAssembler(kind, imageref.Config{})
	doc, err := asm.assemble(units)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return doc, asm
}

func imageEvent(img walk.ImageData) walk.Event {
	img.Data = png
	img.Ext = "png"
	return walk.ImageEvent(&img)
}

func findImageRef(t *testing.T, items []schema.Item) *schema.ImageRef {
	t.Helper()
	for _, item := range items {
		if ref, ok := item.(*schema.ImageRef); ok {
			return ref
		}
	}
	t.Fatal("no image reference in items")
	return nil
}

func TestResolutionPriorityOrder(t *testing.T) {
	tests := []struct {
		name string
		img  walk.ImageData
		want string
	}{
		{
			"column header beats everything",
			walk.ImageData{ColumnHeader: "Photo", GroupText: []string{"Diagram"}, Hint: "Chart"},
			"Photo",
		},
		{
			"group text beats hint",
			walk.ImageData{GroupText: []string{"Diagram"}, Hint: "Chart"},
			"Diagram",
		},
		{
			"hint beats preceding text",
			walk.ImageData{Hint: "Chart"},
			"Chart",
		},
		{
			"preceding text as fallback",
			walk.ImageData{},
			"Revenue grew 40%",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := []walk.Unit{{
				Index:  1,
				Events: []walk.Event{walk.TextEvent("Revenue grew 40%"), imageEvent(tt.img)},
			}}
			doc, _ := assemble(t, schema.KindSlides, units)
			ref := findImageRef(t, doc.Units[0].Items)
			if ref.Ref != tt.want {
				t.Errorf("Ref = %q, want %q", ref.Ref, tt.want)
			}
		})
	}
}

func TestPositionalFallbackWithoutAnyContext(t *testing.T) {
	units := []walk.Unit{{Index: 1, Events: []walk.Event{imageEvent(walk.ImageData{})}}}
	doc, _ := assemble(t, schema.KindSlides, units)
	ref := findImageRef(t, doc.Units[0].Items)
	if ref.Ref != "image 1" {
		t.Errorf("Ref = %q, want positional label", ref.Ref)
	}
}

func TestFilenamesAreUniqueAcrossDocument(t *testing.T) {
	// Same context on every image: the per-unit counter must still keep
	// filenames distinct.
	units := []walk.Unit{
		{Index: 1, Events: []walk.Event{
			walk.TextEvent("Summary"),
			imageEvent(walk.ImageData{}), imageEvent(walk.ImageData{}),
		}},
		{Index: 2, Events: []walk.Event{
			walk.TextEvent("Summary"),
			imageEvent(walk.ImageData{}),
		}},
	}
	_, asm := assemble(t, schema.KindSlides, units)

	seen := make(map[string]bool)
	for _, img := range asm.images {
		if seen[img.Filename] {
			t.Errorf("duplicate filename %q", img.Filename)
		}
		seen[img.Filename] = true
	}
	if len(asm.images) != 3 {
		t.Fatalf("images = %d, want 3", len(asm.images))
	}
}

func TestFilenameCarriesUnitLabelAndIndex(t *testing.T) {
	units := []walk.Unit{
		{Index: 1},
		{Index: 2, Events: []walk.Event{imageEvent(walk.ImageData{Hint: "Org Chart"})}},
	}
	_, asm := assemble(t, schema.KindSlides, units)

	name := asm.images[0].Filename
	if !strings.Contains(name, "slide2_1") {
		t.Errorf("filename %q should carry unit label, index, and counter", name)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Errorf("filename %q should keep the png extension", name)
	}
}

func TestFailedTextBlockBecomesWarning(t *testing.T) {
	units := []walk.Unit{
		{Index: 1, Events: []walk.Event{walk.TextEvent("fine")}},
		{Index: 2, Events: []walk.Event{{Type: walk.EventText, Failed: true}}},
		{Index: 3, Events: []walk.Event{walk.TextEvent("also fine")}},
	}
	doc, asm := assemble(t, schema.KindPages, units)

	if len(doc.Units) != 3 {
		t.Fatalf("units = %d, want 3", len(doc.Units))
	}
	block, ok := doc.Units[1].Items[0].(*schema.TextBlock)
	if !ok || !block.Failed {
		t.Errorf("unit 2 should hold a failed text block, got %+v", doc.Units[1].Items[0])
	}
	if len(asm.warnings) != 1 || asm.warnings[0].Unit != 2 {
		t.Errorf("warnings = %+v, want one for unit 2", asm.warnings)
	}
}

func TestEveryUnitFailedStillAssembles(t *testing.T) {
	// Recognition failures are contained per unit even when no unit
	// succeeds; a blank page yields no events at all.
	units := []walk.Unit{
		{Index: 1, Events: []walk.Event{{Type: walk.EventText, Failed: true}}},
		{Index: 2},
		{Index: 3, Events: []walk.Event{{Type: walk.EventText, Failed: true}}},
	}
	doc, asm := assemble(t, schema.KindPages, units)

	if len(doc.Units) != 3 {
		t.Fatalf("units = %d, want 3", len(doc.Units))
	}
	for _, i := range []int{0, 2} {
		block, ok := doc.Units[i].Items[0].(*schema.TextBlock)
		if !ok || !block.Failed {
			t.Errorf("unit %d should hold a failed text block", i+1)
		}
	}
	if len(doc.Units[1].Items) != 0 {
		t.Errorf("blank unit items = %+v, want none", doc.Units[1].Items)
	}
	if len(asm.warnings) != 2 {
		t.Errorf("warnings = %+v, want one per failed unit", asm.warnings)
	}
}

func TestSheetsUseHeaderHeuristic(t *testing.T) {
	// All-numeric first row must not be taken as headers.
	grid := &tables.Grid{Cells: [][]string{
		{"1", "2", "3"},
		{"4", "5", "6"},
	}}
	units := []walk.Unit{{Index: 1, Events: []walk.Event{walk.GridEvent(grid)}}}
	doc, _ := assemble(t, schema.KindSheets, units)

	table, ok := doc.Units[0].Items[0].(*schema.Table)
	if !ok {
		t.Fatalf("expected a table, got %T", doc.Units[0].Items[0])
	}
	if table.Headers[0] != "Column 1" {
		t.Errorf("headers = %v, want synthesized", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Errorf("rows = %d, want both rows kept as data", len(table.Rows))
	}
}

func TestSlidesUseFirstRowHeaders(t *testing.T) {
	grid := &tables.Grid{Cells: [][]string{
		{"1", "2"},
		{"3", "4"},
	}}
	units := []walk.Unit{{Index: 1, Events: []walk.Event{walk.GridEvent(grid)}}}
	doc, _ := assemble(t, schema.KindSlides, units)

	table := doc.Units[0].Items[0].(*schema.Table)
	if table.Headers[0] != "1" {
		t.Errorf("headers = %v, want first row", table.Headers)
	}
	if len(table.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(table.Rows))
	}
}

func TestGroupItemsNestAndShareRefContext(t *testing.T) {
	units := []walk.Unit{{
		Index: 1,
		Events: []walk.Event{
			{Type: walk.EventGroup, Group: []walk.Event{
				walk.TextEvent("System Overview"),
				imageEvent(walk.ImageData{GroupText: []string{"System Overview"}}),
			}},
		},
	}}
	doc, _ := assemble(t, schema.KindSlides, units)

	group, ok := doc.Units[0].Items[0].(*schema.Group)
	if !ok {
		t.Fatalf("expected a group, got %T", doc.Units[0].Items[0])
	}
	ref := findImageRef(t, group.Items)
	if ref.Ref != "System Overview" {
		t.Errorf("Ref = %q, want group sibling text", ref.Ref)
	}
}

func TestPrecedingTextDoesNotLeakAcrossUnits(t *testing.T) {
	units := []walk.Unit{
		{Index: 1, Events: []walk.Event{walk.TextEvent("unit one text")}},
		{Index: 2, Events: []walk.Event{imageEvent(walk.ImageData{})}},
	}
	doc, _ := assemble(t, schema.KindSlides, units)

	ref := findImageRef(t, doc.Units[1].Items)
	if ref.Ref != "image 1" {
		t.Errorf("Ref = %q, preceding text from unit 1 must not apply", ref.Ref)
	}
}

func TestAssemblyIsDeterministic(t *testing.T) {
	build := func() ([]schema.Image, *schema.Document) {
		units := []walk.Unit{
			{Index: 1, Events: []walk.Event{
				walk.TextEvent("Intro"),
				imageEvent(walk.ImageData{}),
				walk.GridEvent(&tables.Grid{Cells: [][]string{{"h1", "h2"}, {"a", "b"}}}),
				imageEvent(walk.ImageData{Hint: "Chart"}),
			}},
		}
		doc, asm := assemble(t, schema.KindSlides, units)
		return asm.images, doc
	}

	img1, doc1 := build()
	img2, doc2 := build()

	if len(img1) != len(img2) {
		t.Fatalf("image counts differ: %d vs %d", len(img1), len(img2))
	}
	for i := range img1 {
		if img1[i].Filename != img2[i].Filename {
			t.Errorf("filename %d differs: %q vs %q", i, img1[i].Filename, img2[i].Filename)
		}
	}
	for i := range doc1.Units {
		if len(doc1.Units[i].Items) != len(doc2.Units[i].Items) {
			t.Errorf("unit %d item counts differ", i)
		}
	}
}
