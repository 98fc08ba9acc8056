package tables

import (
	"reflect"
	"testing"

	"github.com/tsawler/extracta/schema"
)

func TestStructureFirstRowHeader(t *testing.T) {
	table := Structure(Grid{Cells: [][]string{
		{"Name", "Score"},
		{"alice", "10"},
		{"bob", "20"},
	}}, HeaderFirstRow)

	if !reflect.DeepEqual(table.Headers, []string{"Name", "Score"}) {
		t.Errorf("Headers = %v", table.Headers)
	}
	if len(table.Rows) != 2 || table.Rows[0][0] != "alice" {
		t.Errorf("Rows = %v", table.Rows)
	}
}

func TestStructureHeuristicAcceptsTextualHeader(t *testing.T) {
	table := Structure(Grid{Cells: [][]string{
		{"Region", "Total"},
		{"West", "100"},
	}}, HeaderHeuristic)

	if table.Headers[0] != "Region" {
		t.Errorf("Headers = %v, want detected header", table.Headers)
	}
	if len(table.Rows) != 1 {
		t.Errorf("Rows = %v", table.Rows)
	}
}

func TestStructureHeuristicRejectsNumericFirstRow(t *testing.T) {
	table := Structure(Grid{Cells: [][]string{
		{"1.5", "2,000", "3"},
		{"4", "5", "6"},
	}}, HeaderHeuristic)

	if !reflect.DeepEqual(table.Headers, []string{"Column 1", "Column 2", "Column 3"}) {
		t.Errorf("Headers = %v, want synthesized", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Errorf("Rows = %v, want both rows kept", table.Rows)
	}
}

func TestStructureHeuristicRejectsSparseFirstRow(t *testing.T) {
	table := Structure(Grid{Cells: [][]string{
		{"Title", "", "", ""},
		{"a", "b", "c", "d"},
	}}, HeaderHeuristic)

	if table.Headers[0] != "Column 1" {
		t.Errorf("Headers = %v, mostly-empty row should not be a header", table.Headers)
	}
}

func TestStructureSkipsLeadingEmptyRows(t *testing.T) {
	table := Structure(Grid{Cells: [][]string{
		{"", ""},
		{"Name", "Score"},
		{"alice", "10"},
	}}, HeaderHeuristic)

	if table.Headers[0] != "Name" {
		t.Errorf("Headers = %v", table.Headers)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "alice" {
		t.Errorf("Rows = %v", table.Rows)
	}
}

func TestStructureTrimsTrailingEmptyRowsAndCols(t *testing.T) {
	table := Structure(Grid{Cells: [][]string{
		{"h1", "h2", "", ""},
		{"a", "b", "", ""},
		{"", "", "", ""},
	}}, HeaderFirstRow)

	if len(table.Headers) != 2 {
		t.Errorf("Headers = %v, trailing empty columns kept", table.Headers)
	}
	if len(table.Rows) != 1 {
		t.Errorf("Rows = %v, trailing empty row kept", table.Rows)
	}
}

func TestStructureRaggedRowsPadded(t *testing.T) {
	table := Structure(Grid{Cells: [][]string{
		{"h1", "h2", "h3"},
		{"a"},
		{"b", "c"},
	}}, HeaderFirstRow)

	for i, row := range table.Rows {
		if len(row) != 3 {
			t.Errorf("row %d width = %d, want 3", i, len(row))
		}
	}
}

func TestStructureEmptyGrid(t *testing.T) {
	table := Structure(Grid{}, HeaderFirstRow)
	if len(table.Headers) != 0 || len(table.Rows) != 0 {
		t.Errorf("empty grid yielded %+v", table)
	}
}

func TestStructureRebasesSpansPastHeader(t *testing.T) {
	table := Structure(Grid{
		Cells: [][]string{
			{"h1", "h2"},
			{"merged", ""},
			{"", ""},
		},
		Merges: []schema.Span{
			{Row: 0, Col: 0, RowSpan: 1, ColSpan: 2}, // header merge, dropped
			{Row: 1, Col: 0, RowSpan: 1, ColSpan: 2}, // data merge, rebased
		},
	}, HeaderFirstRow)

	if len(table.Merges) != 1 {
		t.Fatalf("Merges = %+v, want one", table.Merges)
	}
	m := table.Merges[0]
	if m.Row != 0 || m.Col != 0 || m.ColSpan != 2 {
		t.Errorf("span = %+v, want rebased to data row 0", m)
	}
}

func TestStructureDropsInvalidSpans(t *testing.T) {
	table := Structure(Grid{
		Cells: [][]string{
			{"h1", "h2"},
			{"a", "b"},
			{"c", "d"},
		},
		Merges: []schema.Span{
			{Row: 1, Col: 0, RowSpan: 1, ColSpan: 1}, // degenerate
			{Row: 1, Col: 1, RowSpan: 3, ColSpan: 1}, // out of extent
			{Row: 1, Col: 0, RowSpan: 2, ColSpan: 1}, // kept
			{Row: 2, Col: 0, RowSpan: 1, ColSpan: 2}, // overlaps kept span
		},
	}, HeaderFirstRow)

	if len(table.Merges) != 1 {
		t.Fatalf("Merges = %+v, want exactly the valid span", table.Merges)
	}
	if table.Merges[0].RowSpan != 2 {
		t.Errorf("kept span = %+v", table.Merges[0])
	}
}

func TestHeuristicHeaders(t *testing.T) {
	tests := []struct {
		name  string
		cells [][]string
		want  []string
	}{
		{"textual first row", [][]string{{"Name", "Score"}, {"alice", "1"}}, []string{"Name", "Score"}},
		{"numeric first row", [][]string{{"3", "7"}, {"4", "8"}}, nil},
		{"skips leading empty rows", [][]string{{"", ""}, {"Name", "Score"}, {"alice", "1"}}, []string{"Name", "Score"}},
		{"empty grid", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicHeaders(tt.cells)
			if len(got) != len(tt.want) {
				t.Fatalf("HeuristicHeaders = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("header %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLooksLikeHeader(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{"textual", []string{"Name", "Score"}, true},
		{"numeric", []string{"1", "2", "3"}, false},
		{"mixed mostly numeric", []string{"x", "1", "2"}, false},
		{"mostly empty", []string{"a", "", ""}, false},
		{"empty row", []string{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeHeader(tt.row); got != tt.want {
				t.Errorf("looksLikeHeader(%v) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}
