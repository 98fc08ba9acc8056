// Package xlsx walks spreadsheet workbooks, yielding one unit per sheet in
// workbook order. Each sheet's used range becomes a single raw grid;
// embedded pictures carry their anchor column's header as context.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tsawler/extracta/imageutil"
	"github.com/tsawler/extracta/schema"
	"github.com/tsawler/extracta/tables"
	"github.com/tsawler/extracta/walk"
)

// Walker reads a workbook and yields one unit per sheet.
type Walker struct {
	file *excelize.File
}

// Open opens an XLSX file for walking.
func Open(filename string) (*Walker, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	return &Walker{file: f}, nil
}

// Kind reports that xlsx units are sheets.
func (w *Walker) Kind() schema.UnitKind { return schema.KindSheets }

// Close releases resources associated with the Walker.
func (w *Walker) Close() error {
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// Walk yields every sheet in workbook order. Empty sheets still produce a
// unit so sheet indices stay contiguous with the source.
func (w *Walker) Walk(ctx context.Context) ([]walk.Unit, error) {
	sheets := w.file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	units := make([]walk.Unit, 0, len(sheets))
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		unit, err := w.walkSheet(sheet, i+1)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		units = append(units, unit)
	}
	return units, nil
}

func (w *Walker) walkSheet(sheet string, index int) (walk.Unit, error) {
	unit := walk.Unit{Index: index, Title: sheet}

	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return unit, fmt.Errorf("reading rows: %w", err)
	}

	if len(rows) > 0 {
		grid := &tables.Grid{Cells: rows}
		merges, err := w.sheetMerges(sheet)
		if err != nil {
			return unit, err
		}
		grid.Merges = merges
		unit.Events = append(unit.Events, walk.GridEvent(grid))
	}

	images, err := w.sheetImages(sheet, rows)
	if err != nil {
		return unit, err
	}
	for _, img := range images {
		unit.Events = append(unit.Events, walk.ImageEvent(img))
	}
	return unit, nil
}

// sheetMerges converts merged ranges to spans in 0-based grid coordinates.
func (w *Walker) sheetMerges(sheet string) ([]schema.Span, error) {
	cells, err := w.file.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading merged cells: %w", err)
	}

	var spans []schema.Span
	for _, mc := range cells {
		startCol, startRow, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		endCol, endRow, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		spans = append(spans, schema.Span{
			Row:     startRow - 1,
			Col:     startCol - 1,
			RowSpan: endRow - startRow + 1,
			ColSpan: endCol - startCol + 1,
		})
	}
	return spans, nil
}

// sheetImages loads embedded pictures with their anchor-cell context: the
// anchor column's header text and the anchor cell's own value. The header
// follows the same decision Structure makes for the sheet grid, so a picture
// never inherits a data value when labels end up synthesized.
func (w *Walker) sheetImages(sheet string, rows [][]string) ([]*walk.ImageData, error) {
	anchors, err := w.file.GetPictureCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("locating pictures: %w", err)
	}

	headers := tables.HeuristicHeaders(rows)

	var images []*walk.ImageData
	for _, cell := range anchors {
		pics, err := w.file.GetPictures(sheet, cell)
		if err != nil {
			continue
		}
		col, _, err := excelize.CellNameToCoordinates(cell)
		if err != nil {
			col = 0
		}

		header := ""
		if col > 0 && col-1 < len(headers) {
			header = strings.TrimSpace(headers[col-1])
		}
		anchorText, _ := w.file.GetCellValue(sheet, cell)

		for _, pic := range pics {
			ext := imageutil.SniffExt(pic.File)
			if ext == "" {
				ext = strings.TrimPrefix(pic.Extension, ".")
			}
			images = append(images, &walk.ImageData{
				Data:         pic.File,
				Ext:          ext,
				ColumnHeader: header,
				Hint:         strings.TrimSpace(anchorText),
			})
		}
	}
	return images, nil
}
