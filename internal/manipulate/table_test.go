package manipulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartly/internal/domain"
)

func TestFromResultSetCopies(t *testing.T) {
	rs := &domain.ResultSet{
		Columns: []string{"a", "b"},
		Rows:    [][]interface{}{{int64(1), "x"}},
	}
	tbl := FromResultSet(rs)
	tbl.Columns[0] = "changed"
	tbl.Rows[0][0] = int64(99)

	assert.Equal(t, "a", rs.Columns[0])
	assert.Equal(t, int64(1), rs.Rows[0][0])
}

func TestPivot(t *testing.T) {
	tbl := &Table{
		Columns: []string{"k1", "k2", "v"},
		Rows: [][]interface{}{
			{"A", "X", int64(1)},
			{"A", "Y", int64(2)},
			{"B", "X", int64(3)},
		},
	}
	require.NoError(t, tbl.Pivot(int64(0)))

	assert.Equal(t, []string{"k1", "X", "Y"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []interface{}{"A", int64(1), int64(2)}, tbl.Rows[0])
	assert.Equal(t, []interface{}{"B", int64(3), int64(0)}, tbl.Rows[1])
}

func TestPivotFirstSeenOrdering(t *testing.T) {
	tbl := &Table{
		Columns: []string{"day", "country", "n"},
		Rows: [][]interface{}{
			{"2024-01-02", "de", int64(5)},
			{"2024-01-01", "fr", int64(7)},
			{"2024-01-02", "fr", int64(9)},
		},
	}
	require.NoError(t, tbl.Pivot(nil))

	assert.Equal(t, []string{"day", "de", "fr"}, tbl.Columns)
	assert.Equal(t, "2024-01-02", tbl.Rows[0][0])
	assert.Equal(t, "2024-01-01", tbl.Rows[1][0])
	assert.Nil(t, tbl.Rows[1][1]) // no de value on 2024-01-01
}

func TestPivotNeedsThreeColumns(t *testing.T) {
	tbl := &Table{Columns: []string{"a", "b"}}
	err := tbl.Pivot(0)
	require.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPivotRejectsDuplicateColumns(t *testing.T) {
	tbl := &Table{Columns: []string{"a", "a", "v"}}
	require.Error(t, tbl.Pivot(0))
}

func TestCumulative(t *testing.T) {
	tbl := &Table{
		Columns: []string{"day", "n", "m"},
		Rows: [][]interface{}{
			{"d1", int64(1), int64(10)},
			{"d2", int64(2), int64(20)},
			{"d3", int64(3), int64(30)},
		},
	}
	require.NoError(t, tbl.Cumulative())

	assert.Equal(t, "d1", tbl.Rows[0][0]) // first column untouched
	assert.Equal(t, float64(1), tbl.Rows[0][1])
	assert.Equal(t, float64(3), tbl.Rows[1][1])
	assert.Equal(t, float64(6), tbl.Rows[2][1])
	assert.Equal(t, float64(60), tbl.Rows[2][2])
}

func TestCumulativeNonNumeric(t *testing.T) {
	tbl := &Table{
		Columns: []string{"day", "n"},
		Rows:    [][]interface{}{{"d1", "not a number"}},
	}
	require.Error(t, tbl.Cumulative())
}

func TestCumulativeNeedsTwoColumns(t *testing.T) {
	tbl := &Table{Columns: []string{"only"}}
	require.Error(t, tbl.Cumulative())
}

func TestNumericalizeIntColumn(t *testing.T) {
	rs := &domain.ResultSet{
		Columns: []string{"name", "n"},
		Rows: [][]interface{}{
			{"a", "1"},
			{"b", "2"},
		},
	}
	Numericalize(rs)

	assert.Equal(t, "a", rs.Rows[0][0])
	assert.Equal(t, int64(1), rs.Rows[0][1])
	assert.Equal(t, int64(2), rs.Rows[1][1])
}

func TestNumericalizeFloatColumn(t *testing.T) {
	rs := &domain.ResultSet{
		Columns: []string{"n"},
		Rows: [][]interface{}{
			{"1"},
			{"2.5"},
		},
	}
	Numericalize(rs)

	// A single float value upgrades the whole column.
	assert.Equal(t, float64(1), rs.Rows[0][0])
	assert.Equal(t, float64(2.5), rs.Rows[1][0])
}

func TestNumericalizeMixedColumnUntouched(t *testing.T) {
	rs := &domain.ResultSet{
		Columns: []string{"n"},
		Rows: [][]interface{}{
			{"1"},
			{"abc"},
		},
	}
	Numericalize(rs)

	assert.Equal(t, "1", rs.Rows[0][0])
	assert.Equal(t, "abc", rs.Rows[1][0])
}

func TestNumericalizeSkipsNils(t *testing.T) {
	rs := &domain.ResultSet{
		Columns: []string{"n"},
		Rows: [][]interface{}{
			{"1"},
			{nil},
		},
	}
	Numericalize(rs)

	assert.Equal(t, int64(1), rs.Rows[0][0])
	assert.Nil(t, rs.Rows[1][0])
}

func TestTabularize(t *testing.T) {
	tbl := &Table{
		Columns: []string{"a", "b"},
		Rows:    [][]interface{}{{int64(1), "x"}},
	}
	got := tbl.Tabularize()
	require.Len(t, got, 2)
	assert.Equal(t, []interface{}{"a", "b"}, got[0])
	assert.Equal(t, []interface{}{int64(1), "x"}, got[1])
}
