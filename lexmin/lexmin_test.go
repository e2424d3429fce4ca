package lexmin

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pilp/rat"
	"github.com/katalvlaran/pilp/tableau"
)

func bi(i int64) *big.Int { return big.NewInt(i) }

func vec(cst int64, coef map[int]int64) tableau.Vector {
	c := make(map[int]*big.Int, len(coef))
	for k, v := range coef {
		c[k] = bi(v)
	}
	return tableau.Vector{Denom: bi(1), Const: bi(cst), Coef: c}
}

func TestAddLexminIneqRestoresFeasibility(t *testing.T) {
	tb := tableau.New(false)
	x := tb.AllocateVar(true)
	// x - 3 >= 0: violated at x=0, must pivot x in to restore.
	require.NoError(t, AddLexminIneq(tb, vec(-3, map[int]int64{x: 1})))
	assert.False(t, tb.Empty)
	sample := tb.GetSampleValue()
	assert.True(t, sample[x].Ge(rat.FromInt64(3)))
}

func TestAddLexminEqPinsColumn(t *testing.T) {
	tb := tableau.New(false)
	x := tb.AllocateVar(true)
	y := tb.AllocateVar(true)
	// x - y = 0
	require.NoError(t, AddLexminEq(tb, vec(0, map[int]int64{x: 1, y: -1})))
	assert.False(t, tb.Empty)
	assert.Equal(t, 1, tb.NEq)
}

func TestAddLexminEqInfeasibleConstant(t *testing.T) {
	tb := tableau.New(false)
	// 5 = 0 is never satisfiable.
	require.NoError(t, AddLexminEq(tb, vec(5, map[int]int64{})))
	assert.True(t, tb.Empty)
}

func TestFirstNonIntegerClassification(t *testing.T) {
	tb := tableau.New(false)
	tb.OrigNVar = 0
	y := tb.AllocateVar(true)
	// row: 2 r = 3 + y, i.e. r = (3+y)/2, const 3 is odd -> non-integer unless y compensates.
	row := tb.AddRow(tableau.Vector{Denom: bi(2), Const: bi(3), Coef: map[int]*big.Int{y: bi(1)}})
	tb.SetNonneg(tb.RowVarOf(row), true)
	idx, ci, pi, _, found := FirstNonInteger(tb)
	assert.True(t, found)
	assert.Equal(t, row, idx)
	assert.False(t, ci)
	assert.True(t, pi) // y is not a parameter/div column here (OrigNVar=0), so "parameter part" is vacuously integral
}

func TestAddCutProducesViolatedRow(t *testing.T) {
	tb := tableau.New(false)
	y := tb.AllocateVar(true)
	row := tb.AddRow(tableau.Vector{Denom: bi(2), Const: bi(3), Coef: map[int]*big.Int{y: bi(1)}})
	tb.SetNonneg(tb.RowVarOf(row), true)
	require.NoError(t, AddCut(tb, row))
	assert.Equal(t, 2, tb.NRow())
	assert.True(t, tb.Row(1).Const.Sign() < 0)
}

func TestCutToIntegerLexminReachesIntegerOrEmpty(t *testing.T) {
	tb := tableau.New(false)
	y := tb.AllocateVar(true)
	row := tb.AddIneq(tableau.Vector{Denom: bi(2), Const: bi(1), Coef: map[int]*big.Int{y: bi(0)}})
	_ = row
	require.NoError(t, CutToIntegerLexmin(tb))
	_, _, _, _, nonInt := FirstNonInteger(tb)
	assert.True(t, tb.Empty || !nonInt)
}
