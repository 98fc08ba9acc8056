package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tsawler/extracta/walk"
)

// tinyPNG is a valid 1x1 transparent PNG; excelize decodes picture bytes,
// so the fixture must be a real image.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x11, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x62, 0x60, 0x60, 0x60,
	0x00, 0x04, 0x00, 0x00, 0xff, 0xff, 0x00, 0x0f, 0x00, 0x03, 0xfe, 0x8f,
	0xeb, 0xcf, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42,
	0x60, 0x82,
}

// buildXLSX writes a workbook through excelize and returns its path.
func buildXLSX(t *testing.T, build func(f *excelize.File)) string {
	t.Helper()

	f := excelize.NewFile()
	build(f)

	path := filepath.Join(t.TempDir(), "test.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving fixture: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing fixture: %v", err)
	}
	return path
}

func walkBook(t *testing.T, path string) []walk.Unit {
	t.Helper()
	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	units, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return units
}

func TestWalkSheetsInWorkbookOrder(t *testing.T) {
	path := buildXLSX(t, func(f *excelize.File) {
		f.SetSheetName("Sheet1", "Revenue")
		f.NewSheet("Costs")
		f.SetCellValue("Revenue", "A1", "Q1")
		f.SetCellValue("Costs", "A1", "Rent")
	})

	units := walkBook(t, path)
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2", len(units))
	}
	if units[0].Title != "Revenue" || units[1].Title != "Costs" {
		t.Errorf("titles = %q, %q", units[0].Title, units[1].Title)
	}
	if units[0].Index != 1 || units[1].Index != 2 {
		t.Errorf("indices = %d, %d", units[0].Index, units[1].Index)
	}
}

func TestWalkSheetGridAndMerges(t *testing.T) {
	path := buildXLSX(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "Name")
		f.SetCellValue("Sheet1", "B1", "Score")
		f.SetCellValue("Sheet1", "A2", "alice")
		f.SetCellValue("Sheet1", "B2", "10")
		f.SetCellValue("Sheet1", "A3", "bob")
		f.SetCellValue("Sheet1", "B3", "20")
		f.MergeCell("Sheet1", "A2", "A3")
	})

	units := walkBook(t, path)
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
	events := units[0].Events
	if len(events) != 1 || events[0].Type != walk.EventGrid {
		t.Fatalf("expected a single grid event, got %+v", events)
	}

	grid := events[0].Grid
	if len(grid.Cells) != 3 {
		t.Fatalf("rows = %d, want 3", len(grid.Cells))
	}
	if grid.Cells[0][0] != "Name" || grid.Cells[0][1] != "Score" {
		t.Errorf("header row = %v", grid.Cells[0])
	}
	if len(grid.Merges) != 1 {
		t.Fatalf("merges = %+v, want one span", grid.Merges)
	}
	m := grid.Merges[0]
	if m.Row != 1 || m.Col != 0 || m.RowSpan != 2 || m.ColSpan != 1 {
		t.Errorf("span = %+v", m)
	}
}

func TestWalkEmptySheetStillYieldsUnit(t *testing.T) {
	path := buildXLSX(t, func(f *excelize.File) {
		f.NewSheet("Empty")
		f.SetCellValue("Sheet1", "A1", "data")
	})

	units := walkBook(t, path)
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2", len(units))
	}
	if len(units[1].Events) != 0 {
		t.Errorf("empty sheet events = %+v", units[1].Events)
	}
}

func TestWalkPictureCarriesColumnHeaderAndAnchorHint(t *testing.T) {
	path := buildXLSX(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "Product")
		f.SetCellValue("Sheet1", "B1", "Photo")
		f.SetCellValue("Sheet1", "A2", "Widget")
		if err := f.AddPictureFromBytes("Sheet1", "B2", &excelize.Picture{
			Extension: ".png",
			File:      tinyPNG,
		}); err != nil {
			t.Fatalf("adding picture: %v", err)
		}
	})

	units := walkBook(t, path)
	var img *walk.ImageData
	for _, ev := range units[0].Events {
		if ev.Type == walk.EventImage {
			img = ev.Image
		}
	}
	if img == nil {
		t.Fatal("no image event")
	}
	if img.ColumnHeader != "Photo" {
		t.Errorf("ColumnHeader = %q, want Photo", img.ColumnHeader)
	}
	if img.Ext != "png" {
		t.Errorf("Ext = %q, want png", img.Ext)
	}
}

func TestWalkPictureWithoutRealHeaderGetsNoColumnContext(t *testing.T) {
	// An all-numeric first row is data; the structured table synthesizes
	// positional labels, so the picture must not inherit a data value as
	// its column header.
	path := buildXLSX(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "3")
		f.SetCellValue("Sheet1", "B1", "7")
		f.SetCellValue("Sheet1", "A2", "4")
		f.SetCellValue("Sheet1", "B2", "8")
		if err := f.AddPictureFromBytes("Sheet1", "B2", &excelize.Picture{
			Extension: ".png",
			File:      tinyPNG,
		}); err != nil {
			t.Fatalf("adding picture: %v", err)
		}
	})

	units := walkBook(t, path)
	var img *walk.ImageData
	for _, ev := range units[0].Events {
		if ev.Type == walk.EventImage {
			img = ev.Image
		}
	}
	if img == nil {
		t.Fatal("no image event")
	}
	if img.ColumnHeader != "" {
		t.Errorf("ColumnHeader = %q, want empty when labels are synthesized", img.ColumnHeader)
	}
	if img.Hint != "8" {
		t.Errorf("Hint = %q, want the anchor cell value", img.Hint)
	}
}
