// Package pilp computes the lexicographic minimum (or maximum) integer
// point of a parametric rational polyhedron, for every value of the
// polyhedron's parameters, in one pass over parameter space.
//
// 🧮 What is pilp?
//
//	Given a relation R(params -> outputs) and a domain D(params) bounding
//	which parameter values matter, PartialLexopt (and its streaming
//	sibling ForeachLexopt) partition D into pieces and, on each piece,
//	return the output point that is lexicographically smallest (or
//	largest, with WithMaximize) among every integer point of R at that
//	parameter value — the problem isl_tab_pip.c solves for polyhedral
//	compilation's dependence analysis.
//
// ✨ Why pilp?
//
//   - Exact    — arbitrary-precision rational arithmetic throughout, no
//     floating-point rounding anywhere near a pivot or a cut.
//   - Complete — an unreachable parameter region is never silently
//     dropped; every admissible piece of D is accounted for, optionally
//     including the regions where R has no solution at all
//     (WithTrackEmpty).
//   - Terminable — parametric Gomory cuts guarantee the search tree is
//     finite, the same guarantee a non-parametric ILP branch-and-cut
//     loop relies on.
//
// Under the hood, the engine is organized under seven subpackages:
//
//	rat/     — exact rational values (wraps math/big; see DESIGN.md)
//	tableau/ — the simplex tableau, pivoting, and undo/snapshot primitives
//	context/ — the parameter-side tableau + integer sample cache
//	lexmin/  — dual-simplex restoration and Gomory cuts on one tableau
//	driver/  — row-sign classification and the recursive parameter split
//	accum/   — the two solution accumulators (materialized map / callback)
//	prep/    — problem preparation (div alignment, fast-empty shortcut)
//
// Quick usage:
//
//	r := &pilp.BasicRelation{NParam: 1, NOut: 1, Ineqs: []poly.Constraint{
//	    {Const: big.NewInt(0), Coef: map[int]*big.Int{1: big.NewInt(1)}},             // x >= 0
//	    {Const: big.NewInt(0), Coef: map[int]*big.Int{0: big.NewInt(-1), 1: big.NewInt(1)}}, // x >= p
//	}}
//	d := &pilp.BasicSet{NParam: 1}
//	maps, _, err := pilp.PartialLexopt(r, d)
//
// Dive into SPEC_FULL.md and DESIGN.md for the grounding behind every
// design decision.
//
//	go get github.com/katalvlaran/pilp
package pilp
