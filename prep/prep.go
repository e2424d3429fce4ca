// Package prep implements spec.md §4.7's problem preparation: turning a
// relation and a domain into a context tableau (seeded with a first
// sample) and a main tableau ready for driver.FindSolutions, including the
// div-alignment and fast-emptiness shortcuts spec.md describes.
package prep

import (
	"math/big"
	"sort"

	"github.com/katalvlaran/pilp/accum"
	"github.com/katalvlaran/pilp/context"
	"github.com/katalvlaran/pilp/lexmin"
	"github.com/katalvlaran/pilp/poly"
	"github.com/katalvlaran/pilp/tableau"
)

// BasicRelation is spec.md §6's R: a basic set over a unified variable
// space laid out as [0, NParam) parameters, [NParam, NParam+len(Divs))
// the relation's own divs, [that, +NOut) output coordinates — the layout
// Prepare's main tableau reproduces column-for-column, so no remapping is
// needed when R's constraints are copied in.
type BasicRelation struct {
	NParam int
	NOut   int
	Divs   []poly.Div
	Eqs    []poly.Constraint
	Ineqs  []poly.Constraint
}

func toVector(c poly.Constraint) tableau.Vector {
	return tableau.Vector{Denom: big.NewInt(1), Const: new(big.Int).Set(c.Const), Coef: c.Coef}
}

// isNegation reports whether b is exactly -a (same variable set, negated
// coefficients and constant), the signature of a "x >= 0 and -x >= 0" pair
// that detectImplicitEqualities folds into a single equality.
func isNegation(a, b poly.Constraint) bool {
	if len(a.Coef) != len(b.Coef) {
		return false
	}
	if new(big.Int).Add(a.Const, b.Const).Sign() != 0 {
		return false
	}
	for v, c := range a.Coef {
		bc, ok := b.Coef[v]
		if !ok || new(big.Int).Add(c, bc).Sign() != 0 {
			return false
		}
	}
	return true
}

// detectImplicitEqualities implements spec.md §4.7 step 1: PILP is
// sensitive to equalities hiding as an opposing inequality pair, so fold
// any such pair into R.Eqs before the simplex ever sees them. This is a
// minimal pairwise scan, not general Fourier-Motzkin equality detection —
// see DESIGN.md.
func detectImplicitEqualities(r *BasicRelation) {
	dropped := make(map[int]bool)
	var newEqs []poly.Constraint
	for i := 0; i < len(r.Ineqs); i++ {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(r.Ineqs); j++ {
			if dropped[j] {
				continue
			}
			if isNegation(r.Ineqs[i], r.Ineqs[j]) {
				newEqs = append(newEqs, r.Ineqs[i])
				dropped[i], dropped[j] = true, true
				break
			}
		}
	}
	if len(newEqs) == 0 {
		return
	}
	kept := r.Ineqs[:0:0]
	for i, ineq := range r.Ineqs {
		if !dropped[i] {
			kept = append(kept, ineq)
		}
	}
	r.Ineqs = kept
	r.Eqs = append(r.Eqs, newEqs...)
}

// orderDivsCanonically implements spec.md §4.7 step 2: sort D's divs into
// a deterministic order (by the string key divSortKey builds from the
// denominator, constant and sorted coefficient list) and remap every reference to a div's variable id
// accordingly, so div order never depends on insertion history.
func orderDivsCanonically(d *poly.BasicSet) {
	n := len(d.Divs)
	if n < 2 {
		return
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	key := func(i int) string { return divSortKey(d.Divs[i]) }
	sort.Slice(idx, func(a, b int) bool { return key(idx[a]) < key(idx[b]) })

	remap := make(map[int]int, n)
	newDivs := make([]poly.Div, n)
	for newPos, oldPos := range idx {
		newDivs[newPos] = d.Divs[oldPos]
		remap[d.NParam+oldPos] = d.NParam + newPos
	}
	d.Divs = newDivs
	remapBasicSet(d, remap)
}

func divSortKey(dv poly.Div) string {
	ids := make([]int, 0, len(dv.Coef))
	for v := range dv.Coef {
		ids = append(ids, v)
	}
	sort.Ints(ids)
	s := dv.Denom.String() + "|" + dv.Const.String()
	for _, v := range ids {
		s += "|" + big.NewInt(int64(v)).String() + ":" + dv.Coef[v].String()
	}
	return s
}

func remapCoef(coef map[int]*big.Int, remap map[int]int) map[int]*big.Int {
	out := make(map[int]*big.Int, len(coef))
	for v, c := range coef {
		nv, ok := remap[v]
		if !ok {
			nv = v
		}
		out[nv] = c
	}
	return out
}

func remapBasicSet(d *poly.BasicSet, remap map[int]int) {
	for i := range d.Eqs {
		d.Eqs[i].Coef = remapCoef(d.Eqs[i].Coef, remap)
	}
	for i := range d.Ineqs {
		d.Ineqs[i].Coef = remapCoef(d.Ineqs[i].Coef, remap)
	}
	for i := range d.Divs {
		d.Divs[i].Coef = remapCoef(d.Divs[i].Coef, remap)
	}
}

// divEqualOverParams reports whether two divs share a denominator and
// coefficients over the parameter range only, the matching criterion
// spec.md §4.7 step 3 uses to decide whether R already carries D's div.
func divEqualOverParams(a, b poly.Div, nparam int) bool {
	if a.Denom.Cmp(b.Denom) != 0 || a.Const.Cmp(b.Const) != 0 {
		return false
	}
	seen := map[int]bool{}
	for v := range a.Coef {
		if v < nparam {
			seen[v] = true
		}
	}
	for v := range b.Coef {
		if v < nparam {
			seen[v] = true
		}
	}
	for v := range seen {
		ac, bc := a.Coef[v], b.Coef[v]
		av, bv := big.NewInt(0), big.NewInt(0)
		if ac != nil {
			av = ac
		}
		if bc != nil {
			bv = bc
		}
		if av.Cmp(bv) != 0 {
			return false
		}
	}
	return true
}

func cloneDiv(dv poly.Div) poly.Div {
	coef := make(map[int]*big.Int, len(dv.Coef))
	for v, c := range dv.Coef {
		coef[v] = new(big.Int).Set(c)
	}
	return poly.Div{Denom: new(big.Int).Set(dv.Denom), Const: new(big.Int).Set(dv.Const), Coef: coef}
}

// translateDPlaceholderCoef rewrites a div coefficient map copied straight
// from D into R's id space: parameters keep their id (both share the same
// NParam by construction), and a reference to an earlier D div (d.NParam +
// k) becomes a reference to wherever that div landed in R's aligned Divs
// (start + k), since D's own divs always end up in R's trailing block.
func translateDPlaceholderCoef(coef map[int]*big.Int, nparam, start int) map[int]*big.Int {
	out := make(map[int]*big.Int, len(coef))
	for v, c := range coef {
		if v >= nparam {
			out[start+v] = c
		} else {
			out[v] = c
		}
	}
	return out
}

func remapRelationCoef(coef map[int]*big.Int, remap map[int]int) map[int]*big.Int {
	out := make(map[int]*big.Int, len(coef))
	for v, c := range coef {
		nv, ok := remap[v]
		if !ok {
			nv = v
		}
		out[nv] = c
	}
	return out
}

func remapRelation(r *BasicRelation, remap map[int]int) {
	for i := range r.Eqs {
		r.Eqs[i].Coef = remapRelationCoef(r.Eqs[i].Coef, remap)
	}
	for i := range r.Ineqs {
		r.Ineqs[i].Coef = remapRelationCoef(r.Ineqs[i].Coef, remap)
	}
	for i := range r.Divs {
		r.Divs[i].Coef = remapRelationCoef(r.Divs[i].Coef, remap)
	}
}

// alignDivs implements spec.md §4.7 step 3: reorders R's divs so that D's
// n divs occupy R's trailing n-sized block, in D's own order — position
// (R.n_div - D.n_div) + i for D's div i — swapping in whichever of R's
// existing divs already matches (by denominator and parameter
// coefficients), and allocating a fresh placeholder div in R when no match
// exists. R's own divs that aren't shared with D keep their relative order
// in the leading block. Returns the index of the trailing block's first
// slot, so Prepare can pair each of D's context div ids with its R
// counterpart.
func alignDivs(r *BasicRelation, d *poly.BasicSet) int {
	nd := len(d.Divs)
	if nd == 0 {
		return len(r.Divs)
	}
	oldDivs := r.Divs
	oldN := len(oldDivs)

	matchOf := make([]int, nd)
	used := make([]bool, oldN)
	matched := 0
	for i, dd := range d.Divs {
		matchOf[i] = -1
		for j, rd := range oldDivs {
			if used[j] {
				continue
			}
			if divEqualOverParams(rd, dd, d.NParam) {
				matchOf[i] = j
				used[j] = true
				matched++
				break
			}
		}
	}

	newN := oldN + (nd - matched)
	start := newN - nd
	newDivs := make([]poly.Div, newN)
	remap := make(map[int]int, oldN)

	for i, dd := range d.Divs {
		pos := start + i
		if j := matchOf[i]; j >= 0 {
			newDivs[pos] = oldDivs[j]
			remap[r.NParam+j] = r.NParam + pos
		} else {
			nc := cloneDiv(dd)
			nc.Coef = translateDPlaceholderCoef(nc.Coef, d.NParam, start)
			newDivs[pos] = nc
		}
	}

	slot := 0
	for j, rd := range oldDivs {
		if used[j] {
			continue
		}
		newDivs[slot] = rd
		remap[r.NParam+j] = r.NParam + slot
		slot++
	}

	if newN != oldN {
		delta := newN - oldN
		outStart := r.NParam + oldN
		for v := outStart; v < outStart+r.NOut; v++ {
			remap[v] = v + delta
		}
	}

	r.Divs = newDivs
	remapRelation(r, remap)
	return start
}

// Prepare implements spec.md §4.7 in full: detect implicit equalities,
// canonicalize D's div order, align R's divs against D's, build and seed
// the context, and build the main tableau (dropping the big-parameter
// column when every parameter is provably non-negative). If R is
// fast-trivially empty, it emits the single "no solution" leaf covering
// all of D to sink and reports done=true; the caller must not invoke the
// driver in that case.
func Prepare(r *BasicRelation, d *poly.BasicSet, sink accum.Sink) (ctx *context.Context, mainTab *tableau.Tableau, done bool, err error) {
	detectImplicitEqualities(r)
	orderDivsCanonically(d)
	divBlockStart := alignDivs(r, d)

	ctx = context.New(d.NParam)
	for _, dv := range d.Divs {
		if _, err = ctx.AddDiv(dv.Denom, dv.Const, dv.Coef); err != nil {
			return nil, nil, false, err
		}
	}
	for _, eq := range d.Eqs {
		if err = ctx.AddEquality(toVector(eq)); err != nil {
			return nil, nil, false, err
		}
	}
	for _, ineq := range d.Ineqs {
		if err = ctx.AddInequality(toVector(ineq)); err != nil {
			return nil, nil, false, err
		}
	}
	if err = lexmin.RestoreLexmin(ctx.Tab); err != nil {
		return nil, nil, false, err
	}
	ctx.IsFeasible()

	rAsSet := &poly.BasicSet{Eqs: r.Eqs, Ineqs: r.Ineqs}
	if rAsSet.FastIsEmpty() {
		if err = sink.Add(ctx, nil); err != nil {
			return nil, nil, false, err
		}
		return ctx, nil, true, nil
	}

	nonneg, anyNegative := ctx.DetectNonnegativeParameters()

	mainTab = tableau.New(anyNegative)
	mainTab.NParam = d.NParam
	mainTab.ExtendVars(d.NParam)
	for v := 0; v < d.NParam && v < len(nonneg); v++ {
		if nonneg[v] {
			mainTab.SetNonneg(v, true)
		}
	}
	mainTab.NDiv = len(r.Divs)
	mainTab.ExtendVars(len(r.Divs))
	mainTab.ExtendVars(r.NOut)
	mainTab.OrigNVar = mainTab.NVar()
	mainTab.SetParametric()

	// D's divs now occupy R's trailing div block (alignDivs); pair each
	// context div id with its main-tableau counterpart, then bind so any
	// further div discovered mid-solve mirrors onto both automatically.
	for i := range d.Divs {
		ctx.RegisterMainDiv(ctx.DivVar[i], mainTab.NParam+divBlockStart+i)
	}
	ctx.BindMain(mainTab)

	for _, eq := range r.Eqs {
		if err = lexmin.AddLexminValidEq(mainTab, toVector(eq)); err != nil {
			return nil, nil, false, err
		}
		if mainTab.Empty {
			return ctx, mainTab, false, nil
		}
	}
	for _, ineq := range r.Ineqs {
		if err = lexmin.AddLexminIneq(mainTab, toVector(ineq)); err != nil {
			return nil, nil, false, err
		}
		if mainTab.Empty {
			return ctx, mainTab, false, nil
		}
	}

	return ctx, mainTab, false, nil
}
