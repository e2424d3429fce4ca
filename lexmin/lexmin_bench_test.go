package lexmin

import (
	"math/big"
	"testing"

	"github.com/katalvlaran/pilp/tableau"
)

// BenchmarkRestoreLexminChain feeds a sequence of inequalities, several of
// them violated at the all-zero sample, through AddLexminIneq — exercising
// restore_lexmin's first_neg/lexmin_pivot_col loop the way a real knapsack-
// or scheduling-shaped relation would during prep.Prepare.
func BenchmarkRestoreLexminChain(b *testing.B) {
	const nvar = 6
	const nrow = 100
	for i := 0; i < b.N; i++ {
		tb := tableau.New(false)
		vars := make([]int, nvar)
		for v := range vars {
			vars[v] = tb.AllocateVar(true)
		}
		for r := 0; r < nrow; r++ {
			v := vars[r%nvar]
			w := vars[(r+1)%nvar]
			coef := map[int]*big.Int{v: big.NewInt(1), w: big.NewInt(-1)}
			cst := big.NewInt(int64(r%9) - 4)
			if err := AddLexminIneq(tb, tableau.Vector{Denom: big.NewInt(1), Const: cst, Coef: coef}); err != nil {
				b.Fatal(err)
			}
			if tb.Empty {
				break
			}
		}
	}
}

// BenchmarkAddCutSequence measures building a fresh one-row tableau and
// adding a single Gomory cut on its fractional row, once per iteration —
// the step CutToIntegerLexmin repeats until the sample is integral.
func BenchmarkAddCutSequence(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tb := tableau.New(false)
		tb.OrigNVar = 0
		y := tb.AllocateVar(true)
		row := tb.AddRow(tableau.Vector{Denom: big.NewInt(2), Const: big.NewInt(3), Coef: map[int]*big.Int{y: big.NewInt(1)}})
		tb.SetNonneg(tb.RowVarOf(row), true)
		if err := AddCut(tb, row); err != nil {
			b.Fatal(err)
		}
	}
}
