package accum

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pilp/context"
	"github.com/katalvlaran/pilp/tableau"
)

func TestMapSinkAddRecordsEmptySet(t *testing.T) {
	ctx := context.New(1)
	sink := NewMapSink(0, 0, false, true)
	require.NoError(t, sink.Add(ctx, nil))
	assert.Len(t, sink.EmptySets, 1)
	assert.Empty(t, sink.Maps)
}

func TestMapSinkAddUnboundedOutput(t *testing.T) {
	ctx := context.New(1)
	tab := tableau.New(true)
	tab.NParam = 1
	start := tab.ExtendVars(2) // p at id start, output x at id start+1, both non-basic
	x := start + 1
	tab.OrigNVar = start + 2
	sink := NewMapSink(1, x, false, false)
	err := sink.Add(ctx, tab)
	require.Error(t, err)
}

func TestMapSinkAddBoundedOutput(t *testing.T) {
	ctx := context.New(1)
	tab := tableau.New(true)
	tab.NParam = 1
	start := tab.ExtendVars(2)
	p := start
	x := start + 1
	tab.OrigNVar = start + 2
	// rv = 5 + p - x  ->  pivot x in  ->  x = 5 + p - rv (rv sits non-basic at 0)
	row := tab.AddRow(tableau.Vector{Denom: big.NewInt(1), Const: big.NewInt(5), Coef: map[int]*big.Int{p: big.NewInt(1), x: big.NewInt(-1)}})
	require.NoError(t, tab.Pivot(row, x))

	sink := NewMapSink(1, x, false, false)
	require.NoError(t, sink.Add(ctx, tab))
	require.Len(t, sink.Maps, 1)
	assert.Contains(t, sink.Maps[0].Outputs[0].Coef, p)
}
