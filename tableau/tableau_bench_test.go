package tableau

import (
	"math/big"
	"testing"
)

// BenchmarkAddIneqChain builds a tableau one inequality at a time, the
// pattern prep.Prepare and context.AddInequality drive on every incoming
// constraint, over a moderately sized chain of bounds on a handful of
// variables.
func BenchmarkAddIneqChain(b *testing.B) {
	const nvar = 8
	const nrow = 200
	for i := 0; i < b.N; i++ {
		tb := New(false)
		vars := make([]int, nvar)
		for v := range vars {
			vars[v] = tb.AllocateVar(true)
		}
		for r := 0; r < nrow; r++ {
			v := vars[r%nvar]
			coef := map[int]*big.Int{v: big.NewInt(1)}
			cst := big.NewInt(int64(r % 17))
			tb.AddIneq(Vector{Denom: big.NewInt(1), Const: cst, Coef: coef})
			if tb.Empty {
				break
			}
		}
	}
}

// BenchmarkPivotRoundTrip measures a single AllocateVar+AddRow+Pivot cycle,
// the innermost operation every restore_lexmin step repeats.
func BenchmarkPivotRoundTrip(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tb := New(false)
		x := tb.AllocateVar(true)
		row := tb.AddRow(Vector{Denom: big.NewInt(1), Const: big.NewInt(5), Coef: map[int]*big.Int{x: big.NewInt(-1)}})
		_ = tb.Pivot(row, x)
	}
}
