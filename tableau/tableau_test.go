package tableau

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bi(i int64) *big.Int { return big.NewInt(i) }

func vec(cst int64, coef map[int]int64) Vector {
	c := make(map[int]*big.Int, len(coef))
	for k, v := range coef {
		c[k] = bi(v)
	}
	return Vector{Denom: bi(1), Const: bi(cst), Coef: c}
}

func TestAddRowAndSample(t *testing.T) {
	tb := New(false)
	x := tb.AllocateVar(true)
	y := tb.AllocateVar(true)

	// x + y - 10 >= 0
	row := tb.AddIneq(vec(-10, map[int]int64{x: 1, y: 1}))
	rv := tb.RowVar[row]
	assert.True(t, tb.VarNonneg[rv])

	sample := tb.GetSampleValue()
	assert.True(t, sample[x].IsZero())
	assert.True(t, sample[y].IsZero())
	assert.True(t, sample[rv].Eq(sample[rv])) // sanity: finite
}

func TestPivotRoundTrip(t *testing.T) {
	tb := New(false)
	x := tb.AllocateVar(true)
	row := tb.AddRow(vec(5, map[int]int64{x: -1})) // r = 5 - x
	rv := tb.RowVar[row]

	require.NoError(t, tb.Pivot(row, x))
	assert.True(t, tb.IsBasic(x))
	assert.False(t, tb.IsBasic(rv))

	// x is now basic in row: from r = 5 - x  =>  x = 5 - r
	sample := tb.GetSampleValue()
	// rv (non-basic) sits at 0, so x's row constant should read 5.
	assert.Equal(t, "5", sample[x].String())
	xr := tb.Rows[tb.VarRow[x]]
	assert.Equal(t, "5", xr.constRat().String())
	_ = xr
}

func TestSnapshotRollback(t *testing.T) {
	tb := New(false)
	x := tb.AllocateVar(true)
	tok := tb.Snapshot()
	row := tb.AddIneq(vec(3, map[int]int64{x: 1}))
	assert.Equal(t, 1, tb.NRow())
	tb.Rollback(tok)
	assert.Equal(t, 0, tb.NRow())
	_ = row
}

func TestKillColAndRedundant(t *testing.T) {
	tb := New(false)
	x := tb.AllocateVar(true)
	y := tb.AllocateVar(true)
	row := tb.AddIneq(vec(0, map[int]int64{x: 1, y: 1}))

	tb.MarkRedundant(row)
	assert.True(t, tb.RowIsRedundant(row))

	tok := tb.Snapshot()
	tb.KillCol(y)
	assert.True(t, tb.VarDead[y])
	_, has := tb.Rows[row].Coef[y]
	assert.False(t, has)
	tb.Rollback(tok)
	assert.False(t, tb.VarDead[y])
	_, has = tb.Rows[row].Coef[y]
	assert.True(t, has)
}
