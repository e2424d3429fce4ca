package tableau

import (
	"fmt"
	"math/big"

	"github.com/katalvlaran/pilp/rat"
)

func lcm(a, b *big.Int) *big.Int {
	if a.Sign() == 0 || b.Sign() == 0 {
		return big.NewInt(1)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
	return new(big.Int).Mul(new(big.Int).Div(new(big.Int).Abs(a), g), new(big.Int).Abs(b))
}

// AllocateVar reserves a fresh non-basic variable id. nonneg marks it as
// spec.md §4.2's is_nonneg at allocation time (callers may still flip it
// later via AddIneq on its defining row).
func (t *Tableau) AllocateVar(nonneg bool) int {
	id := len(t.VarRow)
	t.VarRow = append(t.VarRow, -1)
	t.VarNonneg = append(t.VarNonneg, nonneg)
	t.VarFrozen = append(t.VarFrozen, false)
	t.VarDead = append(t.VarDead, false)
	t.VarIsDiv = append(t.VarIsDiv, false)
	t.push(undoAllocVar, func(tt *Tableau) {
		tt.VarRow = tt.VarRow[:id]
		tt.VarNonneg = tt.VarNonneg[:id]
		tt.VarFrozen = tt.VarFrozen[:id]
		tt.VarDead = tt.VarDead[:id]
		if len(tt.VarIsDiv) > id {
			tt.VarIsDiv = tt.VarIsDiv[:id]
		}
	})
	return id
}

// ExtendVars allocates n fresh non-basic variables, none of them marked
// non-negative, in one call and returns the id of the first.
func (t *Tableau) ExtendVars(n int) int {
	start := len(t.VarRow)
	for i := 0; i < n; i++ {
		t.AllocateVar(false)
	}
	return start
}

// reduce expresses vec — given over the tableau's current variable ids —
// purely in terms of currently non-basic variables, by substituting the
// defining row of every currently-basic variable it references. This is
// the crux of add_row: a freshly added constraint must be stated against
// the live column basis, not whatever variables the caller happened to
// write it in terms of.
func (t *Tableau) reduce(vec Vector) (constR, bigMR rat.Rat, col map[int]rat.Rat) {
	denom := vec.Denom
	if denom == nil {
		denom = big.NewInt(1)
	}
	constR = rat.FromFrac(orZero(vec.Const), denom, true)
	if t.M {
		bigMR = rat.FromFrac(orZero(vec.BigM), denom, true)
	} else {
		bigMR = rat.Zero()
	}
	col = make(map[int]rat.Rat)
	for v, c := range vec.Coef {
		if c.Sign() == 0 {
			continue
		}
		coefR := rat.FromFrac(c, denom, true)
		if t.VarRow[v] >= 0 {
			row := t.Rows[t.VarRow[v]]
			constR = rat.Add(constR, rat.Mul(coefR, row.constRat()))
			if t.M {
				bigMR = rat.Add(bigMR, rat.Mul(coefR, row.bigMRat()))
			}
			for cv := range row.Coef {
				contrib := rat.Mul(coefR, row.coefRat(cv))
				col[cv] = rat.Add(getOrZero(col, cv), contrib)
			}
		} else {
			col[v] = rat.Add(getOrZero(col, v), coefR)
		}
	}
	return constR, bigMR, col
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func getOrZero(m map[int]rat.Rat, k int) rat.Rat {
	if v, ok := m[k]; ok {
		return v
	}
	return rat.Zero()
}

// ratsToRow renormalizes a rational (const, bigM, column-coefficient) triple
// into the canonical integer Row of spec.md §3: a single positive
// denominator shared by every term.
func ratsToRow(useM bool, constR, bigMR rat.Rat, col map[int]rat.Rat) *Row {
	_, d := constR.NumDen()
	common := new(big.Int).Set(d)
	if useM {
		_, bd := bigMR.NumDen()
		common = lcm(common, bd)
	}
	for _, cr := range col {
		_, cd := cr.NumDen()
		common = lcm(common, cd)
	}
	scale := func(r rat.Rat) *big.Int {
		n, d := r.NumDen()
		return new(big.Int).Mul(n, new(big.Int).Div(common, d))
	}
	coef := make(map[int]*big.Int, len(col))
	for v, cr := range col {
		sc := scale(cr)
		if sc.Sign() != 0 {
			coef[v] = sc
		}
	}
	var bigM *big.Int
	if useM {
		bigM = scale(bigMR)
	}
	return newRow(common, scale(constR), bigM, coef)
}

// AddRow appends a new constraint row, allocating a fresh basic variable to
// represent it, per spec.md §4.2's add_row. It returns the new row index;
// RowVarOf(row) gives the variable callers can later mark non-negative via
// AddIneq or test for redundancy.
func (t *Tableau) AddRow(vec Vector) int {
	constR, bigMR, col := t.reduce(vec)
	row := ratsToRow(t.M, constR, bigMR, col)

	rv := t.AllocateVar(false)
	rowIdx := len(t.Rows)
	t.Rows = append(t.Rows, row)
	t.RowVar = append(t.RowVar, rv)
	t.RowRedundant = append(t.RowRedundant, false)
	t.VarRow[rv] = rowIdx
	if t.Parametric {
		t.RowSign = append(t.RowSign, SignUnknown)
	}

	t.push(undoAddRow, func(tt *Tableau) {
		tt.Rows = tt.Rows[:rowIdx]
		tt.RowVar = tt.RowVar[:rowIdx]
		tt.RowRedundant = tt.RowRedundant[:rowIdx]
		if tt.Parametric && len(tt.RowSign) > rowIdx {
			tt.RowSign = tt.RowSign[:rowIdx]
		}
		tt.VarRow[rv] = -1
	})
	return rowIdx
}

// AddIneq is AddRow followed by marking the new row's variable as
// non-negative (spec.md §4.2).
func (t *Tableau) AddIneq(vec Vector) int {
	row := t.AddRow(vec)
	v := t.RowVar[row]
	old := t.VarNonneg[v]
	t.VarNonneg[v] = true
	t.push(undoGeneric, func(tt *Tableau) { tt.VarNonneg[v] = old })
	return row
}

// Pivot exchanges the basic/non-basic status of the basic variable of row
// and the non-basic variable enter, per spec.md §4.2. enter must have a
// non-zero coefficient in row; otherwise Pivot returns ErrInternal.
func (t *Tableau) Pivot(row, enter int) error {
	r := t.Rows[row]
	a, ok := r.Coef[enter]
	if !ok || a.Sign() == 0 {
		return fmt.Errorf("tableau.Pivot: %w: zero pivot entry (row %d, var %d)", ErrInternal, row, enter)
	}
	leave := t.RowVar[row]
	aR := r.coefRat(enter)

	// Derive "enter = ..." from "leave = (Const + BigM*M + a*enter + rest)/Denom".
	newCol := make(map[int]rat.Rat)
	newCol[leave] = rat.Div(rat.One(), aR)
	for v := range r.Coef {
		if v == enter {
			continue
		}
		newCol[v] = rat.Div(r.coefRat(v).Neg(), aR)
	}
	newConst := rat.Div(r.constRat().Neg(), aR)
	newBigM := rat.Zero()
	if t.M {
		newBigM = rat.Div(r.bigMRat().Neg(), aR)
	}
	enterRow := ratsToRow(t.M, newConst, newBigM, newCol)

	type rowSnap struct {
		idx int
		old *Row
	}
	var touched []rowSnap
	for i, other := range t.Rows {
		if i == row {
			continue
		}
		c, ok := other.Coef[enter]
		if !ok || c.Sign() == 0 {
			continue
		}
		touched = append(touched, rowSnap{i, other.clone()})
		cR := other.coefRat(enter)
		// Build new row = other (with enter's term removed) + c * enterRow.
		col := make(map[int]rat.Rat)
		for v := range other.Coef {
			if v == enter {
				continue
			}
			col[v] = other.coefRat(v)
		}
		for v, cr := range newCol {
			col[v] = rat.Add(getOrZero(col, v), rat.Mul(cR, cr))
		}
		newOtherConst := rat.Add(other.constRat(), rat.Mul(cR, newConst))
		newOtherBigM := rat.Zero()
		if t.M {
			newOtherBigM = rat.Add(other.bigMRat(), rat.Mul(cR, newBigM))
		}
		t.Rows[i] = ratsToRow(t.M, newOtherConst, newOtherBigM, col)
	}

	oldRow := r.clone()
	t.Rows[row] = enterRow
	t.RowVar[row] = enter
	t.VarRow[enter] = row
	t.VarRow[leave] = -1

	t.push(undoPivot, func(tt *Tableau) {
		tt.Rows[row] = oldRow
		tt.RowVar[row] = leave
		tt.VarRow[leave] = row
		tt.VarRow[enter] = -1
		for _, s := range touched {
			tt.Rows[s.idx] = s.old
		}
	})
	return nil
}

// KillCol removes a non-basic variable that has been constrained to 0,
// dropping it from every row's coefficient map (spec.md §4.2's kill_col).
func (t *Tableau) KillCol(v int) {
	if t.VarRow[v] >= 0 {
		return // only non-basic columns can be killed
	}
	type rowSnap struct {
		idx int
		old *big.Int
	}
	var touched []rowSnap
	for i, row := range t.Rows {
		if c, ok := row.Coef[v]; ok {
			touched = append(touched, rowSnap{i, c})
			delete(row.Coef, v)
		}
	}
	wasDead := t.VarDead[v]
	t.VarDead[v] = true
	t.NDead++

	t.push(undoKillCol, func(tt *Tableau) {
		tt.VarDead[v] = wasDead
		tt.NDead--
		for _, s := range touched {
			tt.Rows[s.idx].Coef[v] = s.old
		}
	})
}

// MarkRedundant flags row as redundant: still present, but no longer
// required to hold for the tableau to be considered feasible.
func (t *Tableau) MarkRedundant(row int) {
	if t.RowRedundant[row] {
		return
	}
	t.RowRedundant[row] = true
	t.NRedundant++
	t.push(undoMarkRedundant, func(tt *Tableau) {
		tt.RowRedundant[row] = false
		tt.NRedundant--
	})
}

// RowIsRedundant reports whether row has been marked redundant.
func (t *Tableau) RowIsRedundant(row int) bool { return t.RowRedundant[row] }

// MarkEmpty puts the tableau into its terminal empty (infeasible) state.
// No further mutation is meaningful afterward.
func (t *Tableau) MarkEmpty() {
	if t.Empty {
		return
	}
	t.Empty = true
	t.push(undoMarkEmpty, func(tt *Tableau) { tt.Empty = false })
}

// MinAtMostNegOne reports whether the minimum value variable v can take in
// the current tableau is <= -1. Used by the parameter non-negativity test
// of spec.md §4.3: add "v >= 0" as a trial constraint and ask whether it is
// refutable. Here it is answered directly: v's current sample value (its
// row constant if basic, else 0) already reflects the dual-simplex
// invariant that non-negative rows are never left violated, so a row
// variable can only read <= -1 if its row is an as-yet-unrestored
// violation — which callers are expected to have resolved via
// restore_lexmin before asking. For a non-basic variable the answer is
// always false (it sits at exactly 0).
func (t *Tableau) MinAtMostNegOne(v int) bool {
	if t.VarRow[v] < 0 {
		return false
	}
	row := t.Rows[t.VarRow[v]]
	return row.constRat().Le(rat.FromInt64(-1))
}

// GetSampleValue returns the tableau's current rational sample: for each
// variable id, its row's constant term if basic, else 0. Non-basic
// variables sit at their lower bound (0) by simplex convention; the
// big-parameter column, if present, is not itself a sampled coordinate.
func (t *Tableau) GetSampleValue() []rat.Rat {
	out := make([]rat.Rat, t.NVar())
	for v := 0; v < t.NVar(); v++ {
		if r := t.VarRow[v]; r >= 0 {
			out[v] = t.Rows[r].constRat()
		} else {
			out[v] = rat.Zero()
		}
	}
	return out
}

// Row exposes row idx for read-only inspection by sibling packages.
func (t *Tableau) Row(idx int) *Row { return t.Rows[idx] }

// SetParametric enables row-sign tracking (spec.md §3: "row_sign[row] only
// present when parametric") and sizes RowSign to the current row count.
func (t *Tableau) SetParametric() {
	if t.Parametric {
		return
	}
	t.Parametric = true
	t.RowSign = make([]RowSign, len(t.Rows))
	t.push(undoGeneric, func(tt *Tableau) {
		tt.Parametric = false
		tt.RowSign = nil
	})
}

// PushUndo lets sibling packages (lexmin, context, driver) that mutate
// exported Tableau state directly (row-sign overrides, equality counters)
// participate in the same snapshot/rollback discipline as the primitives
// in this file.
func (t *Tableau) PushUndo(f func(tt *Tableau)) { t.push(undoGeneric, f) }

// SetNonneg mutates a variable's is_nonneg flag with undo support.
func (t *Tableau) SetNonneg(v int, nonneg bool) {
	old := t.VarNonneg[v]
	t.VarNonneg[v] = nonneg
	t.push(undoGeneric, func(tt *Tableau) { tt.VarNonneg[v] = old })
}

// IncNEq increments the n_eq counter of spec.md §3 with undo support.
func (t *Tableau) IncNEq() {
	t.NEq++
	t.push(undoGeneric, func(tt *Tableau) { tt.NEq-- })
}

// RowVarOf returns the basic variable of row.
func (t *Tableau) RowVarOf(row int) int { return t.RowVar[row] }

// ReplaceRow overwrites a row's linear expression in place (its basic
// variable is unchanged), used by lexmin's set_row_cst_to_div once a row's
// parameter part has been folded into a newly introduced div column.
func (t *Tableau) ReplaceRow(row int, denom, cst *big.Int, coef map[int]*big.Int) {
	old := t.Rows[row]
	newCoef := make(map[int]*big.Int, len(coef))
	for v, c := range coef {
		newCoef[v] = new(big.Int).Set(c)
	}
	t.Rows[row] = newRow(new(big.Int).Set(denom), new(big.Int).Set(cst), nil, newCoef)
	t.push(undoGeneric, func(tt *Tableau) { tt.Rows[row] = old })
}

// SetRowSign mutates the row-sign sibling array and pushes an undo entry,
// per spec.md §4.2's closing note that "primitives must treat extending
// the row pool as an event that may grow row_sign[] in lockstep" and that
// the engine (lexmin/driver) is the one mutating row signs directly.
func (t *Tableau) SetRowSign(row int, sign RowSign) {
	old := t.RowSign[row]
	if old == sign {
		return
	}
	t.RowSign[row] = sign
	t.push(undoSetRowSign, func(tt *Tableau) { tt.RowSign[row] = old })
}
