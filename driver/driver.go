// Package driver implements spec.md §4.5's parametric driver: the
// recursive descent over parameter space that turns a single main tableau
// plus its context into a (possibly branching) tree of terminal leaves,
// each handed to an accum.Sink. It also owns row_sign classification
// (spec.md §4.4's row_sign(tab, sol, row)) — grounded on the same section,
// but kept here rather than in lexmin because classifying a row requires
// sampling the *context*, and lexmin must stay free of context to avoid an
// import cycle (context already depends on lexmin for the equality/
// inequality primitives row_sign itself is built out of).
package driver

import (
	"fmt"
	"math/big"

	"github.com/katalvlaran/pilp/accum"
	"github.com/katalvlaran/pilp/context"
	"github.com/katalvlaran/pilp/lexmin"
	"github.com/katalvlaran/pilp/rat"
	"github.com/katalvlaran/pilp/tableau"
)

func cloneCoef(m map[int]*big.Int) map[int]*big.Int {
	out := make(map[int]*big.Int, len(m))
	for k, v := range m {
		out[k] = new(big.Int).Set(v)
	}
	return out
}

// paramLineVector extracts row's parameter line (its constant and its
// parameter/div coefficients, ignoring M and any variable-part entries) as
// a tableau.Vector expressed in the context's own coordinate space. A
// parameter id is shared by construction, but a div's main-tableau id is
// translated through ctx (see context.Context.TranslateMainVar and the
// lockstep-binding note in DESIGN.md) rather than assumed to coincide with
// the context tableau's id for the same div.
func paramLineVector(tab *tableau.Tableau, ctx *context.Context, row int) tableau.Vector {
	r := tab.Row(row)
	coef := make(map[int]*big.Int)
	for v, c := range r.Coef {
		if !tab.IsParamOrDiv(v) {
			continue
		}
		cv, ok := ctx.TranslateMainVar(v)
		if !ok {
			continue
		}
		coef[cv] = new(big.Int).Set(c)
	}
	return tableau.Vector{Denom: new(big.Int).Set(r.Denom), Const: new(big.Int).Set(r.Const), Coef: coef}
}

func negateLine(vec tableau.Vector) tableau.Vector {
	return tableau.Vector{
		Denom: new(big.Int).Set(vec.Denom),
		Const: new(big.Int).Neg(vec.Const),
		Coef:  negateCoef(vec.Coef),
	}
}

func negateCoef(m map[int]*big.Int) map[int]*big.Int {
	out := make(map[int]*big.Int, len(m))
	for v, c := range m {
		out[v] = new(big.Int).Neg(c)
	}
	return out
}

// offsetLine shifts vec's value by the integer k (k=-1 turns "ineq >= 0"
// into "ineq - 1 >= 0", the closed form of the open half-space ineq > 0).
func offsetLine(vec tableau.Vector, k int64) tableau.Vector {
	denom := vec.Denom
	if denom == nil {
		denom = big.NewInt(1)
	}
	delta := new(big.Int).Mul(big.NewInt(k), denom)
	return tableau.Vector{
		Denom: new(big.Int).Set(denom),
		Const: new(big.Int).Add(vec.Const, delta),
		Coef:  cloneCoef(vec.Coef),
	}
}

func lineRat(tab *tableau.Tableau, row int) rat.Rat {
	r := tab.Row(row)
	return rat.FromFrac(r.Const, r.Denom, true)
}

func sameParamLine(tab *tableau.Tableau, r1, r2 int) bool {
	if !lineRat(tab, r1).Eq(lineRat(tab, r2)) {
		return false
	}
	row1, row2 := tab.Row(r1), tab.Row(r2)
	seen := map[int]bool{}
	for v := range row1.Coef {
		if tab.IsParamOrDiv(v) {
			seen[v] = true
		}
	}
	for v := range row2.Coef {
		if tab.IsParamOrDiv(v) {
			seen[v] = true
		}
	}
	for v := range seen {
		if !row1.CoefRat(v).Eq(row2.CoefRat(v)) {
			return false
		}
	}
	return true
}

func evalVecAt(vec tableau.Vector, sample []rat.Rat) rat.Rat {
	acc := rat.FromBigInt(vec.Const)
	for v, c := range vec.Coef {
		if v < len(sample) {
			acc = rat.Add(acc, rat.Mul(rat.FromBigInt(c), sample[v]))
		}
	}
	denom := vec.Denom
	if denom == nil {
		denom = big.NewInt(1)
	}
	return rat.Div(acc, rat.FromBigInt(denom))
}

// isCriticalRow implements is_critical: true if every non-parameter,
// non-div (i.e. "variable part") column of row has a non-positive
// coefficient, meaning no pivot on this row is possible — a row stuck at
// exactly zero here has nowhere else to go, so zero must count as a
// genuine value of the row rather than a pass-through case.
func isCriticalRow(tab *tableau.Tableau, row int) bool {
	r := tab.Row(row)
	for v, c := range r.Coef {
		if tab.IsParamOrDiv(v) || tab.VarDead[v] {
			continue
		}
		if c.Sign() > 0 {
			return false
		}
	}
	return true
}

// normalizeStrict implements is_strict: scale vec's parameter line down by
// the gcd of its coefficients and report whether the original constraint
// can never be satisfied with equality by integer parameter values (the
// gcd doesn't divide the constant term) — a row like that can never
// actually attain zero, so a sampled zero must likewise be treated as a
// genuine (positive) value rather than a neutral pass-through case.
func normalizeStrict(vec tableau.Vector) (tableau.Vector, bool) {
	gcd := big.NewInt(0)
	for _, c := range vec.Coef {
		gcd.GCD(nil, nil, gcd, new(big.Int).Abs(c))
	}
	if gcd.Sign() == 0 || gcd.Cmp(big.NewInt(1)) == 0 {
		return vec, false
	}
	_, r := new(big.Int).QuoRem(vec.Const, gcd, new(big.Int))
	strict := r.Sign() != 0
	coef := make(map[int]*big.Int, len(vec.Coef))
	for v, c := range vec.Coef {
		coef[v] = new(big.Int).Quo(c, gcd)
	}
	return tableau.Vector{Denom: vec.Denom, Const: floorDivBig(vec.Const, gcd), Coef: coef}, strict
}

func floorDivBig(n, d *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
	if r.Sign() != 0 && (r.Sign() < 0) != (d.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// RowSign implements spec.md §4.4's row_sign: classify row's parametric
// constant over every admissible parameter value as pos, neg, or any.
func RowSign(tab *tableau.Tableau, ctx *context.Context, row int) tableau.RowSign {
	if tab.Parametric {
		if s := tab.RowSign[row]; s != tableau.SignUnknown {
			return s
		}
	}
	if lexmin.IsObviouslyNonneg(tab, row) {
		if tab.Parametric {
			tab.SetRowSign(row, tableau.SignPos)
		}
		return tableau.SignPos
	}
	if tab.Parametric {
		for other := 0; other < tab.NRow(); other++ {
			if other == row || tab.RowSign[other] == tableau.SignUnknown {
				continue
			}
			if (tab.RowSign[other] == tableau.SignPos || tab.RowSign[other] == tableau.SignAny) && sameParamLine(tab, row, other) {
				tab.SetRowSign(row, tab.RowSign[other])
				return tab.RowSign[other]
			}
		}
	}

	critical := isCriticalRow(tab, row)
	pl, strict := normalizeStrict(paramLineVector(tab, ctx, row))

	res := tableau.SignUnknown
	for i := ctx.NOutside; i < len(ctx.Samples); i++ {
		v := evalVecAt(pl, ctx.Samples[i])
		switch {
		case v.IsPos() || (v.IsZero() && (critical || strict)):
			if res == tableau.SignUnknown {
				res = tableau.SignPos
			} else if res == tableau.SignNeg {
				res = tableau.SignAny
			}
		case v.IsNeg():
			if res == tableau.SignUnknown {
				res = tableau.SignNeg
			} else if res == tableau.SignPos {
				res = tableau.SignAny
			}
		}
		if res == tableau.SignAny {
			break
		}
	}

	verified := verifyRowSign(ctx, pl, res, critical, strict)
	if tab.Parametric {
		tab.SetRowSign(row, verified)
	}
	return verified
}

// verifyRowSign confirms or refutes a sampled hypothesis with a one-step LP
// against the context, per spec.md §4.4's closing paragraph and the
// original's critical/strict-aware asymmetry: a row that can never pivot
// (critical) or can never sit at exactly zero over the integers (strict)
// treats zero as a genuine positive value when probing for positive
// evidence, rather than requiring a strictly positive sample.
func verifyRowSign(ctx *context.Context, pl tableau.Vector, hypothesis tableau.RowSign, critical, strict bool) tableau.RowSign {
	res := hypothesis
	if res == tableau.SignUnknown || res == tableau.SignPos {
		probe := offsetLine(negateLine(pl), -1) // -pl - 1 >= 0  <=>  pl <= -1
		tok := ctx.Snapshot()
		ctx.Tab.AddIneq(probe)
		feasible := ctx.IsFeasible()
		ctx.Rollback(tok)
		switch {
		case !feasible:
			res = tableau.SignPos
		case res == tableau.SignUnknown:
			res = tableau.SignNeg
		default:
			res = tableau.SignAny
		}
	}
	if res == tableau.SignNeg {
		// Test for positive (or, critical/strict, non-negative) values.
		var probe tableau.Vector
		if critical || strict {
			probe = pl // pl >= 0
		} else {
			probe = offsetLine(pl, -1) // pl - 1 >= 0  <=>  pl >= 1
		}
		tok := ctx.Snapshot()
		ctx.Tab.AddIneq(probe)
		feasible := ctx.IsFeasible()
		ctx.Rollback(tok)
		if feasible {
			res = tableau.SignAny
		}
	}
	return res
}

// BestSplit implements best_split: among rows with row_sign = any, pick the
// one whose positive half-space renders the most other any-rows provably
// non-negative in the context, probed via a trial row + MinAtMostNegOne and
// always rolled back. Returns -1 if there is no any-row at all.
func BestSplit(tab *tableau.Tableau, ctx *context.Context) int {
	var anyRows []int
	for row := 0; row < tab.NRow(); row++ {
		if tab.Parametric && tab.RowSign[row] == tableau.SignAny {
			anyRows = append(anyRows, row)
		}
	}
	if len(anyRows) == 0 {
		return -1
	}
	if len(anyRows) == 1 {
		return anyRows[0]
	}
	best, bestCount := anyRows[0], -1
	for _, cand := range anyRows {
		vec := paramLineVector(tab, ctx, cand)
		tok := ctx.Snapshot()
		ctx.Tab.AddIneq(vec)
		count := 0
		for _, other := range anyRows {
			if other == cand {
				continue
			}
			ov := paramLineVector(tab, ctx, other)
			innerTok := ctx.Tab.Snapshot()
			trialRow := ctx.Tab.AddRow(ov)
			trialVar := ctx.Tab.RowVarOf(trialRow)
			if !ctx.Tab.MinAtMostNegOne(trialVar) {
				count++
			}
			ctx.Tab.Rollback(innerTok)
		}
		ctx.Rollback(tok)
		if count > bestCount {
			bestCount, best = count, cand
		}
	}
	return best
}

// NoSolInStrict implements no_sol_in_strict: record a "no solution" leaf
// for the open half-space ineq > 0 (its closed complement ineq - 1 >= 0),
// if that half-space is non-empty against the current context. Always
// rolls the context back on return.
func NoSolInStrict(ctx *context.Context, sink accum.Sink, ineq tableau.Vector) error {
	tok := ctx.Snapshot()
	defer ctx.Rollback(tok)
	strict := offsetLine(ineq, -1)
	if err := ctx.AddInequality(strict); err != nil {
		return err
	}
	if !ctx.IsFeasible() {
		return nil
	}
	return sink.Add(ctx, nil)
}

// FindInPos implements find_in_pos: snapshot the context, clone the main
// tableau so the original is left untouched for the negative branch, add
// ineq to the context, and recurse.
func FindInPos(ctx *context.Context, tab *tableau.Tableau, sink accum.Sink, ineq tableau.Vector) error {
	tok := ctx.Snapshot()
	defer ctx.Rollback(tok)
	branch := tab.Clone()
	if err := ctx.AddInequality(ineq); err != nil {
		return err
	}
	ctx.CheckSamples(ineq, false)
	return FindSolutions(ctx, branch, sink)
}

// FindSolutionsMain implements find_solutions_main: transfer to the
// context every main-tableau row whose basic variable is a pure parameter
// or pure div, recording the strict complements as "no solution" and
// marking the row redundant once the equality is installed.
func FindSolutionsMain(ctx *context.Context, tab *tableau.Tableau, sink accum.Sink) error {
	for row := 0; row < tab.NRow(); row++ {
		if tab.RowIsRedundant(row) {
			continue
		}
		bv := tab.RowVarOf(row)
		if !tab.IsParamOrDiv(bv) {
			continue
		}
		ctxBV, ok := ctx.TranslateMainVar(bv)
		if !ok {
			continue
		}
		eq := paramLineVector(tab, ctx, row)
		eq.Coef[ctxBV] = new(big.Int).Neg(eq.Denom)
		if err := NoSolInStrict(ctx, sink, eq); err != nil {
			return err
		}
		if err := NoSolInStrict(ctx, sink, negateLine(eq)); err != nil {
			return err
		}
		if err := ctx.AddEquality(eq); err != nil {
			return err
		}
		tab.MarkRedundant(row)
		if tab.Empty {
			return nil
		}
	}
	return nil
}

// splitContext implements the §4.4 decision table's "split context"
// branches ((const_int, ¬par_int, var_int) and (¬const_int, ¬par_int,
// var_int)): install a div for row's parameter part, require it to exactly
// match the row's remainder, record the non-matching complements as "no
// solution", and fold the div into the row itself.
func splitContext(ctx *context.Context, tab *tableau.Tableau, sink accum.Sink, row int) error {
	denom, cst, mainCoef := lexmin.GetRowSplitDiv(tab, row)
	coef := make(map[int]*big.Int, len(mainCoef))
	for v, c := range mainCoef {
		cv, ok := ctx.TranslateMainVar(v)
		if !ok {
			return fmt.Errorf("driver: row %d references a div with no context counterpart", row)
		}
		coef[cv] = c
	}
	q, err := ctx.GetDiv(denom, cst, coef)
	if err != nil {
		return err
	}
	eq := paramLineVector(tab, ctx, row)
	eq.Coef[q] = new(big.Int).Neg(denom)
	if err := NoSolInStrict(ctx, sink, eq); err != nil {
		return err
	}
	if err := NoSolInStrict(ctx, sink, negateLine(eq)); err != nil {
		return err
	}
	if err := ctx.AddEquality(eq); err != nil {
		return err
	}
	mainQ, ok := ctx.MainDivID(q)
	if !ok {
		return fmt.Errorf("driver: div %d has no main-tableau counterpart", q)
	}
	lexmin.SetRowCstToDiv(tab, row, mainQ)
	return nil
}

func resetOtherAnyRows(tab *tableau.Tableau, split int) {
	if !tab.Parametric {
		return
	}
	for row := 0; row < tab.NRow(); row++ {
		if row != split && tab.RowSign[row] == tableau.SignAny {
			tab.SetRowSign(row, tableau.SignUnknown)
		}
	}
}

// FindSolutions implements find_solutions, the heart of spec.md §4.5: a
// depth-first, left-branch-first descent over parameter space that emits
// every reachable terminal leaf to sink.
func FindSolutions(ctx *context.Context, tab *tableau.Tableau, sink accum.Sink) error {
	// A div discovered anywhere in this call tree (AddParametricCut,
	// splitContext) must mirror onto whichever main tableau is actually
	// live right now, not whichever one was live when an outer frame
	// last bound it — tab is always that tableau on entry.
	ctx.BindMain(tab)
	if !tab.Parametric {
		tab.SetParametric()
	}
	if tab.Empty || ctx.Tab.Empty {
		return sink.Add(ctx, tab)
	}
	if err := FindSolutionsMain(ctx, tab, sink); err != nil {
		return err
	}
	if tab.Empty {
		return sink.Add(ctx, tab)
	}

	for {
		negRow, anyRow := -1, -1
		for row := 0; row < tab.NRow(); row++ {
			if tab.RowIsRedundant(row) {
				continue
			}
			bv := tab.RowVarOf(row)
			if !tab.VarNonneg[bv] || tab.IsParamOrDiv(bv) {
				continue
			}
			switch RowSign(tab, ctx, row) {
			case tableau.SignNeg:
				negRow = row
			case tableau.SignAny:
				if anyRow < 0 {
					anyRow = row
				}
			}
			if negRow >= 0 {
				break
			}
		}
		if negRow >= 0 {
			if err := lexmin.RestoreLexmin(tab); err != nil {
				return err
			}
			if tab.Empty {
				return sink.Add(ctx, tab)
			}
			continue
		}
		if anyRow >= 0 {
			split := anyRow
			if b := BestSplit(tab, ctx); b >= 0 {
				split = b
			}
			ineq := paramLineVector(tab, ctx, split)

			tab.SetRowSign(split, tableau.SignPos)
			if err := FindInPos(ctx, tab, sink, ineq); err != nil {
				return err
			}
			// FindInPos recursed with a clone of tab and rebound ctx.Main
			// to it; restore the binding to the tableau this frame still
			// owns before continuing into the negative branch.
			ctx.BindMain(tab)

			tab.SetRowSign(split, tableau.SignNeg)
			negIneq := offsetLine(negateLine(ineq), -1)
			if err := ctx.AddInequality(negIneq); err != nil {
				return err
			}
			ctx.CheckSamples(negIneq, false)
			resetOtherAnyRows(tab, split)
			continue
		}
		break
	}

	if tab.Empty {
		return sink.Add(ctx, tab)
	}
	row, cstInt, parInt, varInt, found := lexmin.FirstNonInteger(tab)
	if !found {
		return sink.Add(ctx, tab)
	}

	switch {
	case !cstInt && parInt && varInt:
		tab.MarkEmpty()
		return sink.Add(ctx, tab)
	case parInt && !varInt:
		if err := lexmin.AddCut(tab, row); err != nil {
			return err
		}
	case !parInt && !varInt:
		if err := lexmin.AddParametricCut(tab, row, ctx); err != nil {
			return err
		}
	default: // (cstInt && !parInt && varInt) || (!cstInt && !parInt && varInt)
		if err := splitContext(ctx, tab, sink, row); err != nil {
			return err
		}
	}
	return FindSolutions(ctx, tab, sink)
}
