package ingest

import "strings"

// Row is one data row keyed by canonical column name.
type Row struct {
	Line   int
	Values map[string]string
}

// Get returns the trimmed cell under canonical column col, or "" when the
// sheet has no such column.
func (r Row) Get(col string) string {
	return r.Values[col]
}

// Table is a parsed sheet whose columns have been renamed to canonical names.
type Table struct {
	Columns    []string
	RawColumns []string
	HeaderLine int
	Rows       []Row
}

// HasColumn reports whether the header carried canonical column col.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// buildTable treats raw[header] as the header row and everything below it as
// data. When two labels canonicalize to the same name the leftmost wins.
func buildTable(raw [][]string, header int) *Table {
	labels := raw[header]
	t := &Table{HeaderLine: header + 1}
	index := make(map[string]int, len(labels))
	for j, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		t.RawColumns = append(t.RawColumns, label)
		c := CanonicalColumn(label)
		if _, dup := index[c]; dup {
			continue
		}
		index[c] = j
		t.Columns = append(t.Columns, c)
	}

	for i := header + 1; i < len(raw); i++ {
		cells := raw[i]
		if isBlankRow(cells) {
			continue
		}
		values := make(map[string]string, len(index))
		for c, j := range index {
			if j < len(cells) {
				values[c] = strings.TrimSpace(cells[j])
			}
		}
		t.Rows = append(t.Rows, Row{Line: i + 1, Values: values})
	}
	return t
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
