// Package poly provides the minimal basic-set/basic-relation shapes and
// simplification operations spec.md §1 and §6 name as an external
// "polyhedral library" collaborator (basic_set_cow, add_equality,
// add_inequality, alloc_div, gauss, normalize_constraints, finalize,
// fast_is_empty, compatible_domain, total_dim) and explicitly place out of
// scope for the core engine. No such importable Go library exists in this
// module's dependency pool, so poly is the in-house stand-in the rest of
// the engine treats as that collaborator — see DESIGN.md. It deliberately
// does not attempt general polyhedral reduction (convex hull, full
// redundancy elimination, Chernikova-style conversions); it implements
// exactly the subset spec.md's core needs to normalize and print its own
// output.
package poly

import (
	"math/big"
	"sort"

	"github.com/katalvlaran/pilp/rat"
)

// Constraint is a linear constraint over a fixed set of variable ids:
// Const + Σ Coef[v]*v (=0 for an equality, >=0 for an inequality).
type Constraint struct {
	Const *big.Int
	Coef  map[int]*big.Int
}

// Div is an existentially quantified integer unknown d = floor((Const + Σ
// Coef[v]*v) / Denom), per spec.md's GLOSSARY.
type Div struct {
	Denom *big.Int
	Const *big.Int
	Coef  map[int]*big.Int
}

// BasicSet is a conjunction of equalities and inequalities over NParam
// named parameter variables plus however many Divs have been introduced.
// Div i occupies variable id NParam+i.
type BasicSet struct {
	NParam int
	Divs   []Div
	Eqs    []Constraint
	Ineqs  []Constraint
}

// TotalDim returns the number of tracked coordinates (parameters + divs).
func (b *BasicSet) TotalDim() int { return b.NParam + len(b.Divs) }

func cloneCoef(m map[int]*big.Int) map[int]*big.Int {
	out := make(map[int]*big.Int, len(m))
	for k, v := range m {
		out[k] = new(big.Int).Set(v)
	}
	return out
}

func (c Constraint) clone() Constraint {
	return Constraint{Const: new(big.Int).Set(c.Const), Coef: cloneCoef(c.Coef)}
}

func (d Div) clone() Div {
	return Div{Denom: new(big.Int).Set(d.Denom), Const: new(big.Int).Set(d.Const), Coef: cloneCoef(d.Coef)}
}

// Clone deep-copies b.
func (b *BasicSet) Clone() *BasicSet {
	out := &BasicSet{NParam: b.NParam}
	for _, d := range b.Divs {
		out.Divs = append(out.Divs, d.clone())
	}
	for _, e := range b.Eqs {
		out.Eqs = append(out.Eqs, e.clone())
	}
	for _, q := range b.Ineqs {
		out.Ineqs = append(out.Ineqs, q.clone())
	}
	return out
}

// AddEquality appends an equality constraint.
func (b *BasicSet) AddEquality(c Constraint) { b.Eqs = append(b.Eqs, c) }

// AddInequality appends an inequality constraint.
func (b *BasicSet) AddInequality(c Constraint) { b.Ineqs = append(b.Ineqs, c) }

// AllocDiv appends a div definition and returns its variable id.
func (b *BasicSet) AllocDiv(d Div) int {
	b.Divs = append(b.Divs, d)
	return b.NParam + len(b.Divs) - 1
}

// evalAt substitutes var values (indexed by id) into a coefficient map,
// returning the resulting rational.
func evalAt(cst *big.Int, coef map[int]*big.Int, val func(int) rat.Rat) rat.Rat {
	acc := rat.FromBigInt(cst)
	for v, c := range coef {
		acc = rat.Add(acc, rat.Mul(rat.FromBigInt(c), val(v)))
	}
	return acc
}

// substituteVar eliminates variable v everywhere in b by replacing it with
// the affine expression expr (Const + Σ Coef[u]*u)/denom, used by
// GaussSimplify once an equality isolates v with unit-ish coefficient.
func (b *BasicSet) substituteVar(v int, denom, cst *big.Int, coef map[int]*big.Int) {
	substituteIn := func(c *Constraint) {
		a, ok := c.Coef[v]
		if !ok || a.Sign() == 0 {
			return
		}
		delete(c.Coef, v)
		// c.Const/1 + a*v  ->  c.Const + a*(cst + Σcoef[u]u)/denom
		// scale whole constraint by denom to keep integer coefficients.
		newCoef := make(map[int]*big.Int, len(c.Coef)+len(coef))
		for u, cu := range c.Coef {
			newCoef[u] = new(big.Int).Mul(cu, denom)
		}
		for u, cu := range coef {
			term := new(big.Int).Mul(a, cu)
			if cur, ok := newCoef[u]; ok {
				newCoef[u] = new(big.Int).Add(cur, term)
			} else {
				newCoef[u] = term
			}
		}
		newConst := new(big.Int).Add(new(big.Int).Mul(c.Const, denom), new(big.Int).Mul(a, cst))
		for u, cu := range newCoef {
			if cu.Sign() == 0 {
				delete(newCoef, u)
			}
		}
		c.Const = newConst
		c.Coef = newCoef
	}
	for i := range b.Eqs {
		substituteIn(&b.Eqs[i])
	}
	for i := range b.Ineqs {
		substituteIn(&b.Ineqs[i])
	}
	for i := range b.Divs {
		a, ok := b.Divs[i].Coef[v]
		if !ok || a.Sign() == 0 {
			continue
		}
		delete(b.Divs[i].Coef, v)
		for u, cu := range b.Divs[i].Coef {
			b.Divs[i].Coef[u] = new(big.Int).Mul(cu, denom)
		}
		for u, cu := range coef {
			term := new(big.Int).Mul(a, cu)
			if cur, ok := b.Divs[i].Coef[u]; ok {
				b.Divs[i].Coef[u] = new(big.Int).Add(cur, term)
			} else {
				b.Divs[i].Coef[u] = new(big.Int).Set(term)
			}
		}
		b.Divs[i].Const = new(big.Int).Add(new(big.Int).Mul(b.Divs[i].Const, denom), new(big.Int).Mul(a, cst))
		b.Divs[i].Denom = new(big.Int).Mul(b.Divs[i].Denom, denom)
	}
}

// GaussSimplify eliminates, for each equality that has some variable with
// coefficient +-1, that variable from the rest of the constraint set —
// the Gaussian-elimination step spec.md §4.7 asks problem preparation to
// run, and §4.6 asks the accumulators to run again before emitting a
// solution's domain piece. Equalities that cannot be solved for a
// unit-coefficient variable are left untouched (this is a minimal
// stand-in, not a full polyhedral equality-detection pass).
func (b *BasicSet) GaussSimplify() {
	for i := range b.Eqs {
		eq := b.Eqs[i]
		v, ok := pickUnitVar(eq.Coef)
		if !ok {
			continue
		}
		keep := eq.clone()
		a := eq.Coef[v] // +-1
		// a*v + rest + Const = 0  =>  v = -(Const + rest)/a = (-Const - rest)*a (since a=+-1, 1/a=a)
		coef := make(map[int]*big.Int, len(eq.Coef)-1)
		for u, cu := range eq.Coef {
			if u == v {
				continue
			}
			coef[u] = new(big.Int).Neg(new(big.Int).Mul(cu, a))
		}
		cst := new(big.Int).Neg(new(big.Int).Mul(eq.Const, a))
		b.substituteVar(v, big.NewInt(1), cst, coef)
		b.Eqs[i] = keep
	}
}

func pickUnitVar(coef map[int]*big.Int) (int, bool) {
	ids := make([]int, 0, len(coef))
	for v := range coef {
		ids = append(ids, v)
	}
	sort.Ints(ids)
	for _, v := range ids {
		if c := coef[v]; c.CmpAbs(big.NewInt(1)) == 0 {
			return v, true
		}
	}
	return 0, false
}

// Normalize divides every constraint by the gcd of its coefficients (incl.
// the constant), the exact-arithmetic analogue of isl's
// normalize_constraints.
func (b *BasicSet) Normalize() {
	norm := func(c *Constraint) {
		g := new(big.Int).Abs(c.Const)
		for _, cu := range c.Coef {
			g = new(big.Int).GCD(nil, nil, g, new(big.Int).Abs(cu))
		}
		if g.Sign() == 0 || g.Cmp(big.NewInt(1)) == 0 {
			return
		}
		c.Const = new(big.Int).Quo(c.Const, g)
		for u, cu := range c.Coef {
			c.Coef[u] = new(big.Int).Quo(cu, g)
		}
	}
	for i := range b.Eqs {
		norm(&b.Eqs[i])
	}
	for i := range b.Ineqs {
		norm(&b.Ineqs[i])
	}
}

// Finalize is the terminal step before a BasicSet is handed to a caller:
// gauss-simplify then normalize. It returns b for chaining.
func (b *BasicSet) Finalize() *BasicSet {
	b.GaussSimplify()
	b.Normalize()
	return b
}

// FastIsEmpty is a cheap, incomplete emptiness test: true only when an
// inequality or equality is a negative (resp. non-zero) constant with no
// variable part — the "fast_is_empty" shortcut spec.md §4.7 step 6 uses
// before doing any real simplex work.
func (b *BasicSet) FastIsEmpty() bool {
	for _, e := range b.Eqs {
		if len(e.Coef) == 0 && e.Const.Sign() != 0 {
			return true
		}
	}
	for _, q := range b.Ineqs {
		if len(q.Coef) == 0 && q.Const.Sign() < 0 {
			return true
		}
	}
	return false
}
