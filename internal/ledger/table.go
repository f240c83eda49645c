// Package ledger holds the tabular model of the general-ledger report
// sheets plus the filtering, scanning and export logic behind the bot's
// lookup commands.
package ledger

import "strings"

// Table is a rectangular slice of a report sheet. Rows are kept as raw
// cell strings; filtering never mutates cell values.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table holds no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// columnIndex returns the index of the first column whose trimmed,
// case-folded name equals any of the given names, or -1.
func (t *Table) columnIndex(names ...string) int {
	for i, col := range t.Columns {
		key := strings.ToLower(strings.TrimSpace(col))
		for _, name := range names {
			if key == strings.ToLower(strings.TrimSpace(name)) {
				return i
			}
		}
	}
	return -1
}

// columnIndexes returns the indexes of every column whose normalized name
// is among names, in column order.
func (t *Table) columnIndexes(names ...string) []int {
	idxs := make([]int, 0, len(names))
	for i, col := range t.Columns {
		key := strings.ToLower(strings.TrimSpace(col))
		for _, name := range names {
			if key == strings.ToLower(strings.TrimSpace(name)) {
				idxs = append(idxs, i)
				break
			}
		}
	}
	return idxs
}

// cell returns the value at row/col, tolerating ragged rows.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// AddColumn appends a column holding the same value on every row.
func (t *Table) AddColumn(name, value string) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// Append merges other into t, aligning by column name. Columns unseen so
// far are added to the end; cells absent from a source row come out empty.
// Row order within other is preserved.
func (t *Table) Append(other *Table) {
	if other.Empty() {
		return
	}
	if len(t.Columns) == 0 {
		t.Columns = append(t.Columns, other.Columns...)
		for _, row := range other.Rows {
			t.Rows = append(t.Rows, append([]string(nil), row...))
		}
		return
	}

	pos := make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		pos[normName(col)] = i
	}
	mapping := make([]int, len(other.Columns))
	for i, col := range other.Columns {
		key := normName(col)
		idx, ok := pos[key]
		if !ok {
			idx = len(t.Columns)
			t.Columns = append(t.Columns, col)
			pos[key] = idx
			for j := range t.Rows {
				t.Rows[j] = append(t.Rows[j], "")
			}
		}
		mapping[i] = idx
	}
	width := len(t.Columns)
	for _, row := range other.Rows {
		merged := make([]string, width)
		for i, idx := range mapping {
			merged[idx] = cell(row, i)
		}
		t.Rows = append(t.Rows, merged)
	}
}

func normName(col string) string {
	return strings.ToLower(strings.TrimSpace(col))
}
