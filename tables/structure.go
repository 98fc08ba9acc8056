// Package tables converts raw row/column grids harvested by the format
// walkers into structured schema tables: trimmed, header-detected, with
// merge spans validated against the dense grid.
package tables

import (
	"strconv"
	"strings"

	"github.com/tsawler/extracta/schema"
)

// HeaderPolicy selects how the header row is determined.
type HeaderPolicy int

const (
	// HeaderFirstRow treats the first row as the header unconditionally.
	// Used for presentation and word-processing tables.
	HeaderFirstRow HeaderPolicy = iota
	// HeaderHeuristic accepts the first non-empty row as the header only
	// when it looks like one (majority non-empty, majority non-numeric);
	// otherwise positional labels are synthesized. Used for spreadsheets.
	HeaderHeuristic
)

// Grid is the raw table representation produced by a walker: a dense cell
// grid of display strings plus the merge spans present in the source.
// Span coordinates are relative to Cells, 0-based.
type Grid struct {
	Cells  [][]string
	Merges []schema.Span
}

// Structure converts a raw grid into a schema.Table.
//
// Trailing empty rows and columns are trimmed first. The header row is then
// split off (or synthesized) per the policy. Merge spans are re-based onto
// the data grid; spans that fall outside the trimmed extent, intersect the
// consumed header row, or overlap an earlier span are discarded.
func Structure(g Grid, policy HeaderPolicy) *schema.Table {
	cells := trim(g.Cells)
	if len(cells) == 0 {
		return &schema.Table{Headers: []string{}, Rows: [][]string{}}
	}

	cols := widestRow(cells)
	cells = padRows(cells, cols)

	var headers []string
	headerRows := 0
	switch policy {
	case HeaderFirstRow:
		headers = cells[0]
		headerRows = 1
	case HeaderHeuristic:
		// Leading all-empty rows are skipped before the candidate row.
		first := firstNonEmptyRow(cells)
		if looksLikeHeader(cells[first]) {
			headers = cells[first]
			headerRows = first + 1
		} else {
			headerRows = first
		}
	}
	if headers == nil {
		headers = make([]string, cols)
		for i := range headers {
			headers[i] = "Column " + strconv.Itoa(i+1)
		}
	}

	rows := cells[headerRows:]
	return &schema.Table{
		Headers: headers,
		Rows:    rows,
		Merges:  rebaseSpans(g.Merges, headerRows, len(rows), cols),
	}
}

// HeuristicHeaders returns the header row Structure would accept for the
// grid under HeaderHeuristic, or nil when positional labels would be
// synthesized instead. Walkers use it to keep per-cell context (such as an
// embedded picture's column header) consistent with the structured table.
func HeuristicHeaders(cells [][]string) []string {
	trimmed := trim(cells)
	if len(trimmed) == 0 {
		return nil
	}
	trimmed = padRows(trimmed, widestRow(trimmed))
	first := firstNonEmptyRow(trimmed)
	if looksLikeHeader(trimmed[first]) {
		return trimmed[first]
	}
	return nil
}

// trim removes trailing rows and columns that are entirely empty.
func trim(cells [][]string) [][]string {
	lastRow := -1
	lastCol := -1
	for i, row := range cells {
		for j, cell := range row {
			if strings.TrimSpace(cell) != "" {
				if i > lastRow {
					lastRow = i
				}
				if j > lastCol {
					lastCol = j
				}
			}
		}
	}
	if lastRow < 0 {
		return nil
	}
	out := make([][]string, lastRow+1)
	for i := range out {
		row := cells[i]
		if len(row) > lastCol+1 {
			row = row[:lastCol+1]
		}
		out[i] = row
	}
	return out
}

// firstNonEmptyRow returns the index of the first row with any content.
// trim guarantees at least one such row exists.
func firstNonEmptyRow(cells [][]string) int {
	for i, row := range cells {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return i
			}
		}
	}
	return 0
}

func widestRow(cells [][]string) int {
	w := 0
	for _, row := range cells {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// padRows right-pads every row to the given width with empty cells.
func padRows(cells [][]string, width int) [][]string {
	out := make([][]string, len(cells))
	for i, row := range cells {
		if len(row) >= width {
			out[i] = row
			continue
		}
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// looksLikeHeader reports whether a candidate row reads as column labels:
// a majority of its cells are non-empty, and a majority of the non-empty
// cells are non-numeric. An all-numeric first row is data, not a header.
func looksLikeHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	nonEmpty := 0
	textual := 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		nonEmpty++
		if !isNumeric(cell) {
			textual++
		}
	}
	if nonEmpty*2 <= len(row) {
		return false
	}
	return textual*2 > nonEmpty
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return err == nil
}

// rebaseSpans shifts spans past the consumed header row and drops any that
// no longer fit the data grid or that overlap a span kept earlier.
func rebaseSpans(spans []schema.Span, headerRows, rows, cols int) []schema.Span {
	var out []schema.Span
	for _, s := range spans {
		s.Row -= headerRows
		if s.Row < 0 || s.Col < 0 || s.RowSpan < 1 || s.ColSpan < 1 {
			continue
		}
		if s.RowSpan == 1 && s.ColSpan == 1 {
			continue // degenerate span carries no merge information
		}
		if s.Row+s.RowSpan > rows || s.Col+s.ColSpan > cols {
			continue
		}
		if overlapsAny(s, out) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func overlapsAny(s schema.Span, existing []schema.Span) bool {
	for _, e := range existing {
		if s.Row < e.Row+e.RowSpan && e.Row < s.Row+s.RowSpan &&
			s.Col < e.Col+e.ColSpan && e.Col < s.Col+s.ColSpan {
			return true
		}
	}
	return false
}
