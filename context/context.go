// Package context implements the context tableau of spec.md §4.3: the
// parameter-side simplex holding the domain D plus every constraint
// accumulated on parameters during a solve, paired with a bset mirror for
// output and a sample cache that short-circuits repeated feasibility
// queries.
package context

import (
	"math/big"

	"github.com/katalvlaran/pilp/lexmin"
	"github.com/katalvlaran/pilp/poly"
	"github.com/katalvlaran/pilp/rat"
	"github.com/katalvlaran/pilp/tableau"
)

// Vector is re-exported so callers don't need to import tableau directly
// for the common case of building a context constraint.
type Vector = tableau.Vector

// Context is spec.md §4.3's context tableau: a big-parameter tableau over
// exactly NParam parameters plus however many divs have been introduced,
// a bset mirror, and a sample cache.
type Context struct {
	Tab    *tableau.Tableau
	BSet   *poly.BasicSet
	NParam int

	// Samples holds every integer point ever confirmed live in the
	// context; Samples[NOutside:] are the currently "live" ones (spec.md
	// §3's Sample set, with eviction implemented as a partition swap
	// rather than physical removal, mirroring isl's drop_sample).
	Samples  [][]rat.Rat
	NOutside int

	// DivVar maps a BSet.Divs index to the actual (sparse) Tab variable
	// id AddDiv allocated for it — FindDiv's "NParam+i" is only valid
	// immediately after New, before any equality or inequality has
	// consumed a Tab variable id of its own, so every other lookup goes
	// through this slice instead.
	DivVar []int

	// Main, when bound via BindMain, is the main-relation tableau this
	// context's divs are mirrored into (isl's add_div keeps both
	// tableaus' div columns in lockstep; this implementation keeps them
	// as separate sparse id spaces and records the correspondence
	// explicitly instead of relying on matching positions).
	Main         *tableau.Tableau
	MainDivOf    map[int]int // ctx Tab div id -> Main div id
	MainToCtxDiv map[int]int // Main div id -> ctx Tab div id
	ctxDivIndex  map[int]int // ctx Tab div id -> BSet.Divs index

	undo []func()
}

// New creates a context tableau for nparam parameters with no constraints.
func New(nparam int) *Context {
	tab := tableau.New(true)
	tab.ExtendVars(nparam)
	return &Context{
		Tab:          tab,
		BSet:         &poly.BasicSet{NParam: nparam},
		NParam:       nparam,
		MainDivOf:    make(map[int]int),
		MainToCtxDiv: make(map[int]int),
		ctxDivIndex:  make(map[int]int),
	}
}

// BindMain records tab as the main-relation tableau whose div columns
// AddDiv should keep in lockstep with the context's own, from this point
// forward. Divs already present in the context are not retroactively
// mirrored; callers that align a domain's divs before constructing the
// main tableau wire those up explicitly with RegisterMainDiv first.
func (c *Context) BindMain(tab *tableau.Tableau) { c.Main = tab }

// RegisterMainDiv records that ctxDiv (a Tab variable id already present
// in c.BSet.Divs) and mainDiv (the corresponding variable already
// allocated on tab) name the same div, without allocating anything. Used
// when a domain's divs are aligned into a main relation's div block
// before BindMain is called, so the pairing needs recording but not
// creating.
func (c *Context) RegisterMainDiv(ctxDiv, mainDiv int) {
	c.MainDivOf[ctxDiv] = mainDiv
	c.MainToCtxDiv[mainDiv] = ctxDiv
}

// MainDivID translates a context Tab div variable id into its
// corresponding variable id on the bound Main tableau. ok is false if
// ctxDiv isn't a known div or no pairing was ever recorded for it.
func (c *Context) MainDivID(ctxDiv int) (int, bool) {
	v, ok := c.MainDivOf[ctxDiv]
	return v, ok
}

// TranslateMainVar translates a variable id from the main tableau's id
// space into this context's Tab id space: parameters pass through
// unchanged (both tableaus allocate them identically at construction),
// divs are looked up via MainToCtxDiv, and anything else (outputs,
// cut/slack variables) has no context-space meaning.
func (c *Context) TranslateMainVar(v int) (int, bool) {
	if v < c.NParam {
		return v, true
	}
	ctxID, ok := c.MainToCtxDiv[v]
	return ctxID, ok
}

// MainVarToBSetDim translates a main-tableau variable id into this
// context's dense BSet dimension numbering (parameters, then divs in
// BSet.Divs order) — the coordinate convention accum's materialized
// output expects. ok is false for anything that isn't a parameter or a
// div with a known context counterpart.
func (c *Context) MainVarToBSetDim(v int) (int, bool) {
	if v < c.NParam {
		return v, true
	}
	ctxID, ok := c.MainToCtxDiv[v]
	if !ok {
		return 0, false
	}
	idx, ok := c.ctxDivIndex[ctxID]
	if !ok {
		return 0, false
	}
	return c.NParam + idx, true
}

// Token is an opaque context snapshot marker.
type Token struct {
	undoLen int
	tabTok  tableau.Token
}

// Snapshot returns a token such that Rollback restores Tab, BSet, and the
// sample cache to this exact state.
func (c *Context) Snapshot() Token {
	return Token{undoLen: len(c.undo), tabTok: c.Tab.Snapshot()}
}

// Rollback undoes every mutation since tok.
func (c *Context) Rollback(tok Token) {
	for i := len(c.undo) - 1; i >= tok.undoLen; i-- {
		c.undo[i]()
	}
	c.undo = c.undo[:tok.undoLen]
	c.Tab.Rollback(tok.tabTok)
}

func (c *Context) push(f func()) { c.undo = append(c.undo, f) }

func toConstraint(vec Vector) poly.Constraint {
	coef := make(map[int]*big.Int, len(vec.Coef))
	for v, c := range vec.Coef {
		coef[v] = new(big.Int).Set(c)
	}
	return poly.Constraint{Const: new(big.Int).Set(vec.Const), Coef: coef}
}

// AddEquality adds vec = 0 to both the tableau (as a lexmin-maintained
// equality) and the bset mirror.
func (c *Context) AddEquality(vec Vector) error {
	if err := lexmin.AddLexminEq(c.Tab, vec); err != nil {
		return err
	}
	n := len(c.BSet.Eqs)
	c.BSet.AddEquality(toConstraint(vec))
	c.push(func() { c.BSet.Eqs = c.BSet.Eqs[:n] })
	return nil
}

// AddInequality adds vec >= 0.
func (c *Context) AddInequality(vec Vector) error {
	if err := lexmin.AddLexminIneq(c.Tab, vec); err != nil {
		return err
	}
	n := len(c.BSet.Ineqs)
	c.BSet.AddInequality(toConstraint(vec))
	c.push(func() { c.BSet.Ineqs = c.BSet.Ineqs[:n] })
	return nil
}

// sampleIsFinite reports that every basic variable's row carries a zero
// (or absent) big-M coefficient, i.e. the sample genuinely does not depend
// on the symbolic big parameter.
func sampleIsFinite(tab *tableau.Tableau) bool {
	for _, row := range tab.Rows {
		if row.BigM != nil && row.BigM.Sign() != 0 {
			return false
		}
	}
	return true
}

// IsFeasible implements context_is_feasible: snapshot the tableau, run
// cut_to_integer_lexmin to completion, and if a finite integer sample
// results, record it; always roll back the trial mutation.
func (c *Context) IsFeasible() bool {
	tok := c.Tab.Snapshot()
	defer c.Tab.Rollback(tok)

	if err := lexmin.CutToIntegerLexmin(c.Tab); err != nil {
		return false
	}
	if c.Tab.Empty {
		return false
	}
	if !sampleIsFinite(c.Tab) {
		return true // feasible, just not a point we can cache
	}
	sample := c.Tab.GetSampleValue()
	c.Samples = append(c.Samples, sample)
	idx := len(c.Samples) - 1
	c.push(func() { c.Samples = c.Samples[:idx] })
	return true
}

// evalIneq evaluates Const + Σ Coef[v]*v at a sample, divided by denom (1
// if nil).
func evalIneq(vec Vector, sample []rat.Rat) rat.Rat {
	acc := rat.FromBigInt(vec.Const)
	for v, coef := range vec.Coef {
		if v < len(sample) {
			acc = rat.Add(acc, rat.Mul(rat.FromBigInt(coef), sample[v]))
		}
	}
	if vec.Denom != nil {
		acc = rat.Div(acc, rat.FromBigInt(vec.Denom))
	}
	return acc
}

// ValidSampleOrFeasible implements context_valid_sample_or_feasible: scan
// live samples first for one that already satisfies ineq (or = 0 when
// eqFlag), and only fall back to a full feasibility check if none does.
func (c *Context) ValidSampleOrFeasible(vec Vector, eqFlag bool) bool {
	for i := c.NOutside; i < len(c.Samples); i++ {
		v := evalIneq(vec, c.Samples[i])
		if eqFlag {
			if v.IsZero() {
				return true
			}
		} else if v.IsNonneg() {
			return true
		}
	}
	return c.IsFeasible()
}

// CheckSamples evicts every live sample that violates vec (a stale-oracle
// filter), partitioning them into the "outside" prefix per spec.md §4.3.
func (c *Context) CheckSamples(vec Vector, eqFlag bool) {
	i := c.NOutside
	for i < len(c.Samples) {
		v := evalIneq(vec, c.Samples[i])
		violated := v.IsNeg()
		if eqFlag {
			violated = !v.IsZero()
		}
		if violated {
			c.evict(i)
			continue
		}
		i++
	}
}

func (c *Context) evict(i int) {
	old := c.NOutside
	c.Samples[old], c.Samples[i] = c.Samples[i], c.Samples[old]
	c.NOutside++
	c.push(func() {
		c.NOutside = old
		c.Samples[old], c.Samples[i] = c.Samples[i], c.Samples[old]
	})
}

// FindDiv linear-searches for a prior div with matching denominator and
// coefficients; returns -1 if absent.
func (c *Context) FindDiv(denom *big.Int, coef map[int]*big.Int) int {
	for i, d := range c.BSet.Divs {
		if d.Denom.Cmp(denom) != 0 {
			continue
		}
		if !coefEqual(d.Coef, coef) {
			continue
		}
		return c.DivVar[i]
	}
	return -1
}

func coefEqual(a, b map[int]*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || v.Cmp(w) != 0 {
			return false
		}
	}
	return true
}

// floorDivBig returns floor(n/d) for d > 0.
func floorDivBig(n, d *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
	if r.Sign() != 0 && (r.Sign() < 0) != (d.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// AddDiv allocates a new div variable d = floor((const + Σ coef[v]*v)/m),
// applies its two side inequalities to the tableau, extends the sample
// matrix by one computed coordinate per existing sample, and records it
// in the bset mirror, per spec.md §4.3's add_div.
func (c *Context) AddDiv(denom, cst *big.Int, coef map[int]*big.Int) (int, error) {
	oldLen := -1
	if len(c.Samples) > 0 {
		oldLen = len(c.Samples[0])
	}
	for i := range c.Samples {
		val := rat.FromBigInt(cst)
		for v, cv := range coef {
			val = rat.Add(val, rat.Mul(rat.FromBigInt(cv), c.Samples[i][v]))
		}
		n, d := val.NumDen()
		q := floorDivBig(n, new(big.Int).Mul(d, denom))
		c.Samples[i] = append(c.Samples[i], rat.FromBigInt(q))
	}
	if oldLen >= 0 {
		c.push(func() {
			for i := range c.Samples {
				c.Samples[i] = c.Samples[i][:oldLen]
			}
		})
	}

	dv := c.Tab.AllocateVar(false)
	divVecCoef := make(map[int]*big.Int, len(coef))
	for v, cv := range coef {
		divVecCoef[v] = new(big.Int).Set(cv)
	}

	// f - m*d >= 0
	ineq1 := make(map[int]*big.Int, len(coef)+1)
	for v, cv := range coef {
		ineq1[v] = new(big.Int).Set(cv)
	}
	ineq1[dv] = new(big.Int).Neg(denom)
	if err := lexmin.AddLexminIneq(c.Tab, tableau.Vector{Denom: big.NewInt(1), Const: new(big.Int).Set(cst), Coef: ineq1}); err != nil {
		return 0, err
	}

	// -f + m*d + m - 1 >= 0
	ineq2 := make(map[int]*big.Int, len(coef)+1)
	for v, cv := range coef {
		ineq2[v] = new(big.Int).Neg(cv)
	}
	ineq2[dv] = new(big.Int).Set(denom)
	cst2 := new(big.Int).Sub(new(big.Int).Neg(cst), big.NewInt(1))
	cst2.Add(cst2, denom)
	if err := lexmin.AddLexminIneq(c.Tab, tableau.Vector{Denom: big.NewInt(1), Const: cst2, Coef: ineq2}); err != nil {
		return 0, err
	}

	c.BSet.AllocDiv(poly.Div{Denom: new(big.Int).Set(denom), Const: new(big.Int).Set(cst), Coef: divVecCoef})
	n := len(c.BSet.Divs)
	c.push(func() { c.BSet.Divs = c.BSet.Divs[:n-1] })

	c.DivVar = append(c.DivVar, dv)
	c.ctxDivIndex[dv] = n - 1
	c.push(func() {
		c.DivVar = c.DivVar[:len(c.DivVar)-1]
		delete(c.ctxDivIndex, dv)
	})

	// Mirror the div onto the main tableau so a div id returned here
	// stays meaningful in both id spaces — the lockstep add_div keeps
	// in isl, reproduced here via an explicit translation table instead
	// of a shared positional layout (see TranslateMainVar).
	if c.Main != nil {
		mainDv := c.Main.AllocateVar(false)
		c.Main.MarkDiv(mainDv)
		c.MainDivOf[dv] = mainDv
		c.MainToCtxDiv[mainDv] = dv
		c.push(func() {
			delete(c.MainDivOf, dv)
			delete(c.MainToCtxDiv, mainDv)
		})
	}

	return dv, nil
}

// GetDiv is FindDiv-or-AddDiv.
func (c *Context) GetDiv(denom, cst *big.Int, coef map[int]*big.Int) (int, error) {
	if v := c.FindDiv(denom, coef); v >= 0 {
		return v, nil
	}
	return c.AddDiv(denom, cst, coef)
}

// DetectNonnegativeParameters implements spec.md §4.3's parameter
// non-negativity pass, grounded directly on original_source/isl_tab_pip.c's
// tab_detect_nonnegative_parameters: for each context variable, add "x >=
// 0" as a trial row and ask whether the minimum can still read <= -1; if
// it can for no variable at all, the caller should drop the big-parameter
// column entirely, otherwise the returned set marks which are provably
// non-negative so the caller can mark them in the main tableau.
func (c *Context) DetectNonnegativeParameters() (nonneg []bool, anyNegative bool) {
	nonneg = make([]bool, c.Tab.NVar())
	for v := 0; v < c.Tab.NVar(); v++ {
		tok := c.Tab.Snapshot()
		c.Tab.AddIneq(tableau.Vector{Denom: big.NewInt(1), Const: big.NewInt(0), Coef: map[int]*big.Int{v: big.NewInt(1)}})
		canBeNeg := c.Tab.MinAtMostNegOne(v)
		c.Tab.Rollback(tok)
		if canBeNeg {
			anyNegative = true
		} else {
			nonneg[v] = true
		}
	}
	return nonneg, anyNegative
}
