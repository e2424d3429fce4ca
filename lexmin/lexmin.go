// Package lexmin implements spec.md §4.4's lexmin engine: the dual-simplex
// feasibility restoration, equality/inequality addition, and integer-cut
// machinery shared by the context and main tableaux. It knows how to
// classify and cut a single tableau; it deliberately does not know about
// recursion over parameter space or about accumulating solutions — that is
// driver's and accum's job respectively.
package lexmin

import (
	"fmt"
	"math/big"

	"github.com/katalvlaran/pilp/rat"
	"github.com/katalvlaran/pilp/tableau"
)

// DivSink is the minimal surface add_parametric_cut needs from a context:
// find-or-allocate a div with the given definition. context.Context
// satisfies this structurally, letting lexmin stay free of context's
// package (context already imports lexmin for add_lexmin_eq/ineq, and a
// direct import back would cycle).
type DivSink interface {
	GetDiv(denom, cst *big.Int, coef map[int]*big.Int) (int, error)
	// MainDivID translates a div id GetDiv returned (valid in the sink's
	// own, context-space tableau) into the variable id that same div
	// occupies on the tableau add_parametric_cut is actually mutating.
	// ok is false if the sink has no main tableau bound yet.
	MainDivID(ctxDiv int) (int, bool)
	// TranslateMainVar is MainDivID's inverse: it takes a variable id from
	// the tableau add_parametric_cut is mutating and returns the id that
	// same parameter or div occupies in the sink's own coordinate space,
	// so a row's coefficients can be handed to GetDiv in the space it
	// actually indexes its divs by.
	TranslateMainVar(v int) (int, bool)
}

func negateVec(vec tableau.Vector) tableau.Vector {
	coef := make(map[int]*big.Int, len(vec.Coef))
	for v, c := range vec.Coef {
		coef[v] = new(big.Int).Neg(c)
	}
	var bigM *big.Int
	if vec.BigM != nil {
		bigM = new(big.Int).Neg(vec.BigM)
	}
	return tableau.Vector{Denom: vec.Denom, Const: new(big.Int).Neg(vec.Const), BigM: bigM, Coef: coef}
}

// IsObviouslyNonneg decides, without any LP work, whether row's value is
// guaranteed >= 0 for every admissible parameter assignment: with an M
// column, a strictly positive M-coefficient decides it outright; otherwise
// (or when the M-coefficient is exactly zero) the constant term and every
// parameter/div coefficient must individually certify non-negativity,
// where a parameter/div variable's own is_nonneg flag stands in for "this
// parameter has been proven non-negative" (spec.md §4.3's detection pass
// sets that flag on the relevant columns of whichever tableau it runs on).
func IsObviouslyNonneg(tab *tableau.Tableau, row int) bool {
	r := tab.Row(row)
	if tab.M {
		s := 0
		if r.BigM != nil {
			s = r.BigM.Sign()
		}
		if s > 0 {
			return true
		}
		if s < 0 {
			return false
		}
	}
	if r.Const.Sign() < 0 {
		return false
	}
	for v, c := range r.Coef {
		if c.Sign() == 0 || !tab.IsParamOrDiv(v) {
			continue
		}
		if c.Sign() < 0 || !tab.VarNonneg[v] {
			return false
		}
	}
	return true
}

// IsObviouslyNeg is IsObviouslyNonneg's mirror image.
func IsObviouslyNeg(tab *tableau.Tableau, row int) bool {
	r := tab.Row(row)
	if tab.M {
		s := 0
		if r.BigM != nil {
			s = r.BigM.Sign()
		}
		if s > 0 {
			return false
		}
		if s < 0 {
			return true
		}
	}
	if r.Const.Sign() >= 0 {
		return false
	}
	for v, c := range r.Coef {
		if c.Sign() == 0 || !tab.IsParamOrDiv(v) {
			continue
		}
		if c.Sign() > 0 || !tab.VarNonneg[v] {
			return false
		}
	}
	return true
}

// FirstNeg implements spec.md §4.4's first_neg: the first violated
// non-negative row restore_lexmin should pivot next. With an M column, any
// row whose M-coefficient is negative always wins (those are the rows the
// big-parameter trick needs resolved before anything else can be trusted).
// Without one, a row counts once it is obviously negative or has already
// been classified row_sign = neg by the driver.
func FirstNeg(tab *tableau.Tableau) (int, bool) {
	for row := 0; row < tab.NRow(); row++ {
		if tab.RowIsRedundant(row) {
			continue
		}
		bv := tab.RowVarOf(row)
		if !tab.VarNonneg[bv] {
			continue
		}
		if tab.M {
			r := tab.Row(row)
			if r.BigM != nil && r.BigM.Sign() < 0 {
				return row, true
			}
			continue
		}
		if IsObviouslyNeg(tab, row) {
			if tab.Parametric && tab.RowSign[row] == tableau.SignUnknown {
				tab.SetRowSign(row, tableau.SignNeg)
			}
			return row, true
		}
		if tab.Parametric && tab.RowSign[row] == tableau.SignNeg {
			return row, true
		}
	}
	return -1, false
}

// eligibleCol reports whether v is a candidate pivot-entry column: a
// currently non-basic variable that is neither a parameter nor a div
// (lexmin_pivot_col only ever pivots in an output/cut/slack variable, never
// a context coordinate).
func eligibleCol(tab *tableau.Tableau, v int) bool {
	return tab.VarRow[v] < 0 && !tab.IsParamOrDiv(v) && !tab.VarDead[v]
}

// LexminColPair implements lexmin_col_pair's pairwise tiebreak: walk the
// non-parameter variables in index order, reading a_{v,c} as either the
// unit indicator (v itself non-basic in column c) or the tableau entry at
// v's defining row; the first variable where the two columns' normalized
// entries disagree decides the comparison by the sign of the cross
// product. Returns -1 if c1 should be preferred, +1 if c2 should, 0 if the
// two columns are indistinguishable over every variable inspected.
func LexminColPair(tab *tableau.Tableau, row, c1, c2 int) int {
	rR := tab.Row(row)
	aR1 := rR.CoefRat(c1)
	aR2 := rR.CoefRat(c2)
	for v := 0; v < tab.NVar(); v++ {
		if tab.IsParamOrDiv(v) || tab.VarDead[v] {
			continue
		}
		var av1, av2 rat.Rat
		if rv := tab.VarRow[v]; rv >= 0 {
			rowV := tab.Row(rv)
			av1 = rowV.CoefRat(c1)
			av2 = rowV.CoefRat(c2)
		} else {
			if v == c1 {
				av1 = rat.One()
			} else {
				av1 = rat.Zero()
			}
			if v == c2 {
				av2 = rat.One()
			} else {
				av2 = rat.Zero()
			}
		}
		ratio1 := rat.Div(av1, aR1)
		ratio2 := rat.Div(av2, aR2)
		if ratio1.Eq(ratio2) {
			continue
		}
		cross := rat.Sub(rat.Mul(av2, aR1), rat.Mul(av1, aR2))
		if cross.IsPos() {
			return -1
		}
		return 1
	}
	return 0
}

// LexminPivotCol implements lexmin_pivot_col: among eligible non-basic
// columns with a strictly positive entry in row, pick the one
// LexminColPair prefers.
func LexminPivotCol(tab *tableau.Tableau, row int) (int, bool) {
	r := tab.Row(row)
	best := -1
	for v, c := range r.Coef {
		if c.Sign() <= 0 || !eligibleCol(tab, v) {
			continue
		}
		if best < 0 {
			best = v
			continue
		}
		if LexminColPair(tab, row, v, best) < 0 {
			best = v
		}
	}
	if best < 0 {
		return -1, false
	}
	return best, true
}

// RestoreLexmin implements restore_lexmin: repeatedly pivot the first
// violated row into feasibility; mark the tableau empty if a violated row
// has no eligible pivot column.
func RestoreLexmin(tab *tableau.Tableau) error {
	for {
		row, ok := FirstNeg(tab)
		if !ok {
			return nil
		}
		col, ok := LexminPivotCol(tab, row)
		if !ok {
			tab.MarkEmpty()
			return nil
		}
		if err := tab.Pivot(row, col); err != nil {
			return err
		}
	}
}

func maybeMarkRedundant(tab *tableau.Tableau, row int) {
	if !tab.RowIsRedundant(row) && IsObviouslyNonneg(tab, row) {
		tab.MarkRedundant(row)
	}
}

// AddLexminIneq implements add_lexmin_ineq: add the row, mark it
// non-negative, check redundancy, restore feasibility, and recheck
// redundancy (restoring feasibility can pivot the row into an obviously
// non-negative shape it didn't have before).
func AddLexminIneq(tab *tableau.Tableau, vec tableau.Vector) error {
	row := tab.AddIneq(vec)
	maybeMarkRedundant(tab, row)
	if err := RestoreLexmin(tab); err != nil {
		return err
	}
	maybeMarkRedundant(tab, row)
	return nil
}

func isPureConstant(tab *tableau.Tableau, row int) bool {
	r := tab.Row(row)
	if tab.M && r.BigM != nil && r.BigM.Sign() != 0 {
		return false
	}
	for _, c := range r.Coef {
		if c.Sign() != 0 {
			return false
		}
	}
	return true
}

// AddLexminEq implements add_lexmin_eq: add eq >= 0, check it isn't a
// nonzero constant, restore, add -eq >= 0, restore, and opportunistically
// kill the column representing the equality once it is pinned at zero.
func AddLexminEq(tab *tableau.Tableau, vec tableau.Vector) error {
	row := tab.AddRow(vec)
	v := tab.RowVarOf(row)
	tab.SetNonneg(v, true)
	if isPureConstant(tab, row) && tab.Row(row).Const.Sign() != 0 {
		tab.MarkEmpty()
		return nil
	}
	if err := RestoreLexmin(tab); err != nil {
		return err
	}
	if tab.Empty {
		return nil
	}
	tab.AddIneq(negateVec(vec))
	if err := RestoreLexmin(tab); err != nil {
		return err
	}
	if tab.Empty {
		return nil
	}
	if !tab.IsBasic(v) && !tab.VarDead[v] {
		tab.KillCol(v)
	}
	tab.IncNEq()
	return nil
}

// lastVarColOrIntParCol implements last_var_col_or_int_par_col: prefer the
// highest-id non-parameter, non-div variable with a non-zero coefficient in
// row; failing that, any parameter/div column whose coefficient is ±1.
func lastVarColOrIntParCol(tab *tableau.Tableau, row int) (int, bool) {
	r := tab.Row(row)
	best := -1
	for v, c := range r.Coef {
		if c.Sign() == 0 || tab.IsParamOrDiv(v) {
			continue
		}
		if v > best {
			best = v
		}
	}
	if best >= 0 {
		return best, true
	}
	for v, c := range r.Coef {
		if tab.IsParamOrDiv(v) && c.CmpAbs(big.NewInt(1)) == 0 {
			return v, true
		}
	}
	return -1, false
}

// AddLexminValidEq implements add_lexmin_valid_eq: add the row, try to
// eliminate a column via lastVarColOrIntParCol; on success pivot it in and
// kill the equality's own column outright (no separate negated-inequality
// pass needed, since the pivot makes the equation exact). On failure, fall
// back to AddLexminEq's two-inequality scheme using the row already added.
func AddLexminValidEq(tab *tableau.Tableau, vec tableau.Vector) error {
	row := tab.AddRow(vec)
	v := tab.RowVarOf(row)
	if cand, ok := lastVarColOrIntParCol(tab, row); ok {
		if err := tab.Pivot(row, cand); err != nil {
			return err
		}
		tab.KillCol(v)
		tab.IncNEq()
		return RestoreLexmin(tab)
	}
	tab.SetNonneg(v, true)
	if isPureConstant(tab, row) && tab.Row(row).Const.Sign() != 0 {
		tab.MarkEmpty()
		return nil
	}
	if err := RestoreLexmin(tab); err != nil {
		return err
	}
	if tab.Empty {
		return nil
	}
	tab.AddIneq(negateVec(vec))
	if err := RestoreLexmin(tab); err != nil {
		return err
	}
	if tab.Empty {
		return nil
	}
	if !tab.IsBasic(v) && !tab.VarDead[v] {
		tab.KillCol(v)
	}
	tab.IncNEq()
	return nil
}

// FirstNonInteger implements first_non_integer plus the decision table's
// classification columns: it scans basic, non-redundant, non-parameter/div
// rows in order and returns the first whose sample is not guaranteed
// integer (i.e. not both const_int and par_int), together with the three
// flags the §4.4 decision table switches on.
func FirstNonInteger(tab *tableau.Tableau) (row int, cstInt, parInt, varInt, found bool) {
	one := big.NewInt(1)
	for i := 0; i < tab.NRow(); i++ {
		if tab.RowIsRedundant(i) {
			continue
		}
		bv := tab.RowVarOf(i)
		if tab.IsParamOrDiv(bv) {
			continue
		}
		r := tab.Row(i)
		if r.Denom.Cmp(one) == 0 {
			continue
		}
		ci := new(big.Int).Mod(r.Const, r.Denom).Sign() == 0
		pi, vi := true, true
		for v, c := range r.Coef {
			if c.Sign() == 0 {
				continue
			}
			divisible := new(big.Int).Mod(new(big.Int).Abs(c), r.Denom).Sign() == 0
			if tab.IsParamOrDiv(v) {
				if !divisible {
					pi = false
				}
			} else if !divisible {
				vi = false
			}
		}
		if ci && pi {
			continue
		}
		return i, ci, pi, vi, true
	}
	return 0, false, false, false, false
}

// AddCut implements the non-parametric Gomory cut add_cut for a row whose
// parameter part is already integral: the new row's denominator is the
// source row's, its constant is -frac(-f/m), and its coefficients are
// frac(aⱼ/m) over the variable part only (the parameter part contributes
// nothing to the fraction by construction).
func AddCut(tab *tableau.Tableau, row int) error {
	r := tab.Row(row)
	m := r.Denom
	negFmodM := new(big.Int).Mod(new(big.Int).Neg(r.Const), m)
	cst := new(big.Int).Neg(negFmodM)
	coef := make(map[int]*big.Int)
	for v, a := range r.Coef {
		if tab.IsParamOrDiv(v) {
			continue
		}
		am := new(big.Int).Mod(a, m)
		if am.Sign() != 0 {
			coef[v] = am
		}
	}
	newIdx := tab.AddRow(tableau.Vector{Denom: new(big.Int).Set(m), Const: cst, Coef: coef})
	nv := tab.RowVarOf(newIdx)
	tab.SetNonneg(nv, true)
	if tab.Parametric {
		tab.SetRowSign(newIdx, tableau.SignNeg)
	}
	return nil
}

// CutToIntegerLexmin implements cut_to_integer_lexmin for the
// no-further-parametric-branching case: repeatedly restore feasibility and
// apply non-parametric cuts until the sample is integer or the tableau is
// empty. It is used directly by the context tableau (whose own variables —
// its parameters and divs — carry NParam=0 in its own coordinate system, so
// every row it owns is "variable part" from its own point of view); the
// driver does not call it and applies AddCut/AddParametricCut itself.
func CutToIntegerLexmin(tab *tableau.Tableau) error {
	for {
		if err := RestoreLexmin(tab); err != nil {
			return err
		}
		if tab.Empty {
			return nil
		}
		row, _, parInt, _, found := FirstNonInteger(tab)
		if !found {
			return nil
		}
		if !parInt {
			return fmt.Errorf("lexmin.CutToIntegerLexmin: %w: row %d has a non-integral parameter part, needs add_parametric_cut", tableau.ErrInternal, row)
		}
		if err := AddCut(tab, row); err != nil {
			return err
		}
	}
}

// GetRowParameterDiv implements get_row_parameter_div: the div definition
// q = floor(Σ (-aᵢ mod m)·yᵢ / m) over row's parameter/div coefficients.
func GetRowParameterDiv(tab *tableau.Tableau, row int) (denom, cst *big.Int, coef map[int]*big.Int) {
	r := tab.Row(row)
	m := r.Denom
	coef = make(map[int]*big.Int)
	for v, a := range r.Coef {
		if !tab.IsParamOrDiv(v) {
			continue
		}
		am := new(big.Int).Mod(new(big.Int).Neg(a), m)
		if am.Sign() != 0 {
			coef[v] = am
		}
	}
	return new(big.Int).Set(m), big.NewInt(0), coef
}

// GetRowSplitDiv implements get_row_split_div for the "split context"
// branches of the §4.4 decision table (¬par_int ∧ var_int, whatever
// const_int is). It returns exactly GetRowParameterDiv's div, built from
// the row's parameter/div coefficients only; the row's variable-part
// coefficients are not folded into q.
func GetRowSplitDiv(tab *tableau.Tableau, row int) (denom, cst *big.Int, coef map[int]*big.Int) {
	return GetRowParameterDiv(tab, row)
}

// SetRowCstToDiv implements set_row_cst_to_div: once q has been installed
// in the context for row's parameter part, rewrite row itself so every
// coefficient is floor(coefficient/denom) and the new column q carries the
// row's old denominator — the row is now an exact integer combination of
// its remaining columns plus q.
func SetRowCstToDiv(tab *tableau.Tableau, row int, q int) {
	r := tab.Row(row)
	m := new(big.Int).Set(r.Denom)
	coef := make(map[int]*big.Int, len(r.Coef)+1)
	for v, a := range r.Coef {
		fv := floorBigDiv(a, m)
		if fv.Sign() != 0 {
			coef[v] = fv
		}
	}
	coef[q] = new(big.Int).Set(m)
	newConst := floorBigDiv(r.Const, m)
	tab.ReplaceRow(row, big.NewInt(1), newConst, coef)
}

func floorBigDiv(a, m *big.Int) *big.Int {
	rr := rat.FromFrac(a, m, true).Floor()
	n, _ := rr.NumDen()
	return n
}

// AddParametricCut implements add_parametric_cut: install a div for the
// row's parameter part in sink, then add
// c = Σᵢ -{-aᵢ} yᵢ + Σⱼ {bⱼ} xⱼ + q ≥ 0
// to tab, combining q's own defining row in via a gcd-scaled linear
// combination when q happens to already be basic in the main tableau.
func AddParametricCut(tab *tableau.Tableau, row int, sink DivSink) error {
	m, cst, parCoef := GetRowParameterDiv(tab, row)
	ctxCoef := make(map[int]*big.Int, len(parCoef))
	for v, c := range parCoef {
		cv, ok := sink.TranslateMainVar(v)
		if !ok {
			return fmt.Errorf("lexmin: row %d references a div with no context counterpart", row)
		}
		ctxCoef[cv] = c
	}
	ctxQ, err := sink.GetDiv(m, cst, ctxCoef)
	if err != nil {
		return err
	}
	q, ok := sink.MainDivID(ctxQ)
	if !ok {
		return fmt.Errorf("lexmin: div %d has no main-tableau counterpart", ctxQ)
	}
	r := tab.Row(row)
	cutCoef := make(map[int]*big.Int, len(r.Coef)+1)
	for v, a := range r.Coef {
		if tab.IsParamOrDiv(v) {
			am := new(big.Int).Mod(new(big.Int).Neg(a), m)
			if am.Sign() != 0 {
				cutCoef[v] = new(big.Int).Neg(am)
			}
		} else {
			bm := new(big.Int).Mod(a, m)
			if bm.Sign() != 0 {
				cutCoef[v] = bm
			}
		}
	}
	cutDenom := new(big.Int).Set(m)
	cutConst := big.NewInt(0)

	if tab.VarRow[q] >= 0 {
		qRowIdx := tab.VarRow[q]
		qr := tab.Row(qRowIdx)
		qCoeffInCut := orZeroBig(cutCoef[q])
		qCoeffInCut = new(big.Int).Add(qCoeffInCut, big.NewInt(1))
		delete(cutCoef, q)

		g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(cutDenom), new(big.Int).Abs(qr.Denom))
		lcmMD := new(big.Int).Mul(new(big.Int).Div(cutDenom, g), qr.Denom)
		scaleCut := new(big.Int).Div(lcmMD, cutDenom)
		scaleQ := new(big.Int).Mul(qCoeffInCut, new(big.Int).Div(lcmMD, qr.Denom))

		merged := make(map[int]*big.Int, len(cutCoef)+len(qr.Coef))
		for v, c := range cutCoef {
			merged[v] = new(big.Int).Mul(c, scaleCut)
		}
		for v, c := range qr.Coef {
			term := new(big.Int).Mul(c, scaleQ)
			if cur, ok := merged[v]; ok {
				merged[v] = new(big.Int).Add(cur, term)
			} else {
				merged[v] = term
			}
		}
		mergedConst := new(big.Int).Add(new(big.Int).Mul(cutConst, scaleCut), new(big.Int).Mul(qr.Const, scaleQ))
		cutDenom, cutCoef, cutConst = lcmMD, merged, mergedConst
	} else {
		cutCoef[q] = new(big.Int).Add(orZeroBig(cutCoef[q]), m)
	}

	for v, c := range cutCoef {
		if c.Sign() == 0 {
			delete(cutCoef, v)
		}
	}
	newIdx := tab.AddRow(tableau.Vector{Denom: cutDenom, Const: cutConst, Coef: cutCoef})
	nv := tab.RowVarOf(newIdx)
	tab.SetNonneg(nv, true)
	if tab.Parametric {
		tab.SetRowSign(newIdx, tableau.SignNeg)
	}
	return nil
}

func orZeroBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
