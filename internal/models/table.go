package models

import "sort"

// Table is the tabular form of a persisted snapshot: an ordered header and
// rows keyed by column name. Missing cells read as the empty string.
type Table struct {
	Header []string            `json:"header"`
	Rows   []map[string]string `json:"rows"`
}

func NewTable(header ...string) *Table {
	return &Table{
		Header: append([]string(nil), header...),
		Rows:   make([]map[string]string, 0),
	}
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Header {
		if h == name {
			return true
		}
	}
	return false
}

func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Header = append(t.Header, name)
	}
}

// Append adds a row, extending the header with any columns it does not know
// yet. New columns are added in sorted order so the header stays deterministic.
func (t *Table) Append(row map[string]string) {
	t.addColumnsOf(row)
	t.Rows = append(t.Rows, row)
}

// Overwrite replaces the cells of row i with the values in row. Cells not
// present in row are kept.
func (t *Table) Overwrite(i int, row map[string]string) {
	t.addColumnsOf(row)
	for k, v := range row {
		t.Rows[i][k] = v
	}
}

// Replace removes the rows at idx and puts rows in their place, starting at
// the position of the first removed row. idx must be sorted and non-empty.
func (t *Table) Replace(idx []int, rows []map[string]string) {
	drop := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		drop[i] = struct{}{}
	}
	for _, row := range rows {
		t.addColumnsOf(row)
	}

	out := make([]map[string]string, 0, len(t.Rows)-len(idx)+len(rows))
	for i, row := range t.Rows {
		if i == idx[0] {
			out = append(out, rows...)
		}
		if _, ok := drop[i]; !ok {
			out = append(out, row)
		}
	}
	t.Rows = out
}

// IndexOf returns the positions of every row whose column equals value.
func (t *Table) IndexOf(column, value string) []int {
	var idx []int
	for i, row := range t.Rows {
		if row[column] == value {
			idx = append(idx, i)
		}
	}
	return idx
}

func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	header := t.Header[:0]
	for _, h := range t.Header {
		if _, ok := drop[h]; !ok {
			header = append(header, h)
		}
	}
	t.Header = header
	for _, row := range t.Rows {
		for n := range drop {
			delete(row, n)
		}
	}
}

// Column returns every value of a column in row order.
func (t *Table) Column(name string) []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[name])
	}
	return out
}

func (t *Table) addColumnsOf(row map[string]string) {
	var missing []string
	for k := range row {
		if !t.HasColumn(k) {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	t.Header = append(t.Header, missing...)
}
