// Package manipulate reshapes executed query results for visualization:
// pivoting, cumulative aggregation, numeric coercion, and the final tabular
// serialization returned across the API boundary.
package manipulate

import (
	"fmt"
	"strconv"

	"chartly/internal/domain"
)

// Table is a mutable tabular result under manipulation. Operations apply in
// place; the zero value is an empty table.
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// FromResultSet copies a result set into a Table.
func FromResultSet(rs *domain.ResultSet) *Table {
	t := &Table{Columns: append([]string(nil), rs.Columns...)}
	t.Rows = make([][]interface{}, len(rs.Rows))
	for i, row := range rs.Rows {
		t.Rows[i] = append([]interface{}(nil), row...)
	}
	return t
}

// Pivot reshapes the table using the first column as the row index, the
// second as the column header source, and the third as the cell value.
// Absent combinations are filled with fill. The index is restored as a
// leading column. Fails with fewer than three columns or duplicate names.
func (t *Table) Pivot(fill interface{}) error {
	if len(t.Columns) < 3 {
		return domain.ErrValidation("pivot requires at least three columns, got %d", len(t.Columns))
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return domain.ErrValidation("two or more columns have the same name: %q", c)
		}
		seen[c] = true
	}

	indexCol := t.Columns[0]

	// First-seen ordering for both the new row index and the new columns.
	var indexOrder []string
	var headerOrder []string
	indexSeen := map[string]bool{}
	headerSeen := map[string]bool{}
	cells := map[string]map[string]interface{}{}

	for _, row := range t.Rows {
		idx := stringify(row[0])
		hdr := stringify(row[1])
		if !indexSeen[idx] {
			indexSeen[idx] = true
			indexOrder = append(indexOrder, idx)
			cells[idx] = map[string]interface{}{}
		}
		if !headerSeen[hdr] {
			headerSeen[hdr] = true
			headerOrder = append(headerOrder, hdr)
		}
		cells[idx][hdr] = row[2]
	}

	newColumns := append([]string{indexCol}, headerOrder...)
	newRows := make([][]interface{}, 0, len(indexOrder))
	for _, idx := range indexOrder {
		row := make([]interface{}, 0, len(newColumns))
		row = append(row, idx)
		for _, hdr := range headerOrder {
			if v, ok := cells[idx][hdr]; ok {
				row = append(row, v)
			} else {
				row = append(row, fill)
			}
		}
		newRows = append(newRows, row)
	}

	t.Columns = newColumns
	t.Rows = newRows
	return nil
}

// Cumulative replaces every column except the first with its running sum,
// top to bottom, in current row order. Row order is caller-determined
// upstream; no re-sorting happens here.
func (t *Table) Cumulative() error {
	if len(t.Columns) < 2 {
		return domain.ErrValidation("cumulative requires at least two columns, got %d", len(t.Columns))
	}
	sums := make([]float64, len(t.Columns))
	for _, row := range t.Rows {
		for j := 1; j < len(t.Columns) && j < len(row); j++ {
			v, ok := toFloat(row[j])
			if !ok {
				return domain.ErrValidation("column %q holds non-numeric value %v", t.Columns[j], row[j])
			}
			sums[j] += v
			row[j] = sums[j]
		}
	}
	return nil
}

// Numericalize coerces text columns whose values are all numeric-looking into
// numeric types. Best-effort: non-convertible columns stay as text.
func (t *Table) Numericalize() {
	rs := &domain.ResultSet{Columns: t.Columns, Rows: t.Rows}
	Numericalize(rs)
}

// Tabularize returns the final serialized shape: a header row of column names
// followed by one row per record.
func (t *Table) Tabularize() [][]interface{} {
	out := make([][]interface{}, 0, len(t.Rows)+1)
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	out = append(out, header)
	out = append(out, t.Rows...)
	return out
}

// Numericalize coerces numeric-looking text columns of a result set in place.
// A column converts only when every non-nil value parses as a number; integer
// columns become int64, otherwise float64.
func Numericalize(rs *domain.ResultSet) {
	for col := range rs.Columns {
		allInt := true
		allFloat := true
		sawValue := false
		for _, row := range rs.Rows {
			if col >= len(row) || row[col] == nil {
				continue
			}
			sawValue = true
			switch v := row[col].(type) {
			case int64, int:
				// already integral
			case float64:
				allInt = false
			case string:
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					allFloat = false
				}
			default:
				allInt = false
				allFloat = false
			}
			if !allFloat {
				break
			}
		}
		if !sawValue || !allFloat {
			continue
		}
		for _, row := range rs.Rows {
			if col >= len(row) || row[col] == nil {
				continue
			}
			switch v := row[col].(type) {
			case string:
				if allInt {
					n, _ := strconv.ParseInt(v, 10, 64)
					row[col] = n
				} else {
					f, _ := strconv.ParseFloat(v, 64)
					row[col] = f
				}
			case int, int64:
				if !allInt {
					f, _ := toFloat(v)
					row[col] = f
				}
			}
		}
	}
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
