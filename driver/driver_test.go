package driver

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pilp/accum"
	"github.com/katalvlaran/pilp/context"
	"github.com/katalvlaran/pilp/tableau"
)

func bi(i int64) *big.Int { return big.NewInt(i) }

func TestRowSignObviousPositive(t *testing.T) {
	ctx := context.New(1)
	tab := tableau.New(false)
	tab.NParam = 1
	p := tab.ExtendVars(1)
	tab.OrigNVar = 1
	tab.SetParametric()
	tab.SetNonneg(p, true)
	// row: r = p (obviously non-negative once p is proven non-negative)
	row := tab.AddIneq(tableau.Vector{Denom: bi(1), Const: bi(0), Coef: map[int]*big.Int{p: bi(1)}})
	assert.Equal(t, tableau.SignPos, RowSign(tab, ctx, row))
}

func TestRowSignCachesClassification(t *testing.T) {
	ctx := context.New(1)
	tab := tableau.New(false)
	tab.NParam = 1
	p := tab.ExtendVars(1)
	tab.OrigNVar = 1
	tab.SetParametric()
	tab.SetNonneg(p, true)
	row := tab.AddIneq(tableau.Vector{Denom: bi(1), Const: bi(0), Coef: map[int]*big.Int{p: bi(1)}})
	first := RowSign(tab, ctx, row)
	assert.Equal(t, first, tab.RowSign[row])
	second := RowSign(tab, ctx, row)
	assert.Equal(t, first, second)
}

func TestBestSplitNoAnyRows(t *testing.T) {
	ctx := context.New(1)
	tab := tableau.New(false)
	tab.SetParametric()
	assert.Equal(t, -1, BestSplit(tab, ctx))
}

func TestNoSolInStrictRollsBack(t *testing.T) {
	ctx := context.New(1)
	before := ctx.Tab.NRow()
	sink := accum.NewMapSink(0, 0, false, true)
	ineq := tableau.Vector{Denom: bi(1), Const: bi(5), Coef: map[int]*big.Int{0: bi(1)}}
	require.NoError(t, NoSolInStrict(ctx, sink, ineq))
	assert.Equal(t, before, ctx.Tab.NRow())
}

func TestFindSolutionsMainTransfersPureParamRow(t *testing.T) {
	ctx := context.New(1)
	tab := tableau.New(false)
	tab.NParam = 1
	p := tab.ExtendVars(1)
	s := tab.AllocateVar(true)
	tab.OrigNVar = 1
	tab.SetParametric()
	// rv = p - s; pivot p in so the row's basic variable becomes the
	// parameter itself, matching find_solutions_main's transfer criterion.
	row := tab.AddRow(tableau.Vector{Denom: bi(1), Const: bi(0), Coef: map[int]*big.Int{p: bi(1), s: bi(-1)}})
	require.NoError(t, tab.Pivot(row, p))
	require.Equal(t, p, tab.RowVarOf(row))

	sink := accum.NewMapSink(0, 0, false, false)
	require.NoError(t, FindSolutionsMain(ctx, tab, sink))
	assert.True(t, tab.RowIsRedundant(row))
}
