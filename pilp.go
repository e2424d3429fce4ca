package pilp

import (
	"math/big"
	"time"

	"github.com/katalvlaran/pilp/accum"
	"github.com/katalvlaran/pilp/context"
	"github.com/katalvlaran/pilp/driver"
	"github.com/katalvlaran/pilp/poly"
	"github.com/katalvlaran/pilp/prep"
	"github.com/katalvlaran/pilp/tableau"
)

// budgetSink wraps an accum.Sink to enforce Options.MaxBranch (counting
// terminal leaves as a proxy for branch count, since the driver has no
// separate per-split hook to cap directly — see DESIGN.md) and
// Options.Deadline (checked once per leaf).
type budgetSink struct {
	inner    accum.Sink
	cfg      Options
	leaves   int
	deadline bool
}

func (b *budgetSink) Add(ctx *context.Context, tab *tableau.Tableau) error {
	b.leaves++
	if b.cfg.MaxBranch > 0 && b.leaves > b.cfg.MaxBranch {
		return ErrBadMaxBranch
	}
	if b.deadline && !time.Now().Before(b.cfg.Deadline) {
		return ErrDeadlineExceeded
	}
	return b.inner.Add(ctx, tab)
}

func negateCoefFrom(coef map[int]*big.Int, start int) map[int]*big.Int {
	out := make(map[int]*big.Int, len(coef))
	for v, c := range coef {
		if v >= start {
			out[v] = new(big.Int).Neg(c)
		} else {
			out[v] = new(big.Int).Set(c)
		}
	}
	return out
}

// negateOutputs builds a copy of r with every output coordinate's
// coefficient negated, the standard lexmax(R) = -lexmin(-R) reduction:
// the engine always restores lexicographic *minimality*, so maximizing an
// output is solved by minimizing its negation and having the accumulator
// negate the answer back (accum.MapSink's Max flag, accum.CallbackSink's
// Max flag).
func negateOutputs(r *BasicRelation) *BasicRelation {
	outStart := r.NParam + len(r.Divs)
	out := &BasicRelation{NParam: r.NParam, NOut: r.NOut, Divs: r.Divs}
	for _, eq := range r.Eqs {
		out.Eqs = append(out.Eqs, poly.Constraint{Const: eq.Const, Coef: negateCoefFrom(eq.Coef, outStart)})
	}
	for _, ineq := range r.Ineqs {
		out.Ineqs = append(out.Ineqs, poly.Constraint{Const: ineq.Const, Coef: negateCoefFrom(ineq.Coef, outStart)})
	}
	return out
}

func validate(r *BasicRelation, d *BasicSet) error {
	if r == nil {
		return ErrNilRelation
	}
	if d == nil {
		return ErrNilDomain
	}
	if r.NParam != d.NParam {
		return ErrIncompatibleDomain
	}
	return nil
}

// solve wires prep.Prepare and driver.FindSolutions together behind the
// common validation and budget wrapping both PartialLexopt and
// ForeachLexopt need.
func solve(r *BasicRelation, d *BasicSet, sink accum.Sink, opts []Option) error {
	if err := validate(r, d); err != nil {
		return err
	}
	cfg := buildOptions(opts)
	bs := &budgetSink{inner: sink, cfg: cfg, deadline: !cfg.Deadline.IsZero()}

	solveRel := r
	if cfg.Maximize {
		solveRel = negateOutputs(r)
	}
	ctx, mainTab, done, err := prep.Prepare(solveRel, d, bs)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	// alignDivs may have grown r.Divs (a placeholder div for one of D's
	// divs R didn't already declare), shifting where output variables
	// start on mainTab past whatever the caller precomputed before this
	// call — mainTab.NParam+mainTab.NDiv is always correct post-Prepare.
	outStart := mainTab.NParam + mainTab.NDiv
	switch s := sink.(type) {
	case *accum.MapSink:
		s.OutStart = outStart
	case *accum.CallbackSink:
		s.OutStart = outStart
	}
	tracef(cfg, "prepared main tableau with %d rows", mainTab.NRow())
	if mainTab.Empty {
		return bs.Add(ctx, mainTab)
	}
	return driver.FindSolutions(ctx, mainTab, bs)
}

// PartialLexopt computes, over every piece of d that r is satisfiable on,
// the lexicographically smallest (or, with WithMaximize, largest) integer
// output point of r — spec.md §6's partial_lexopt. The result is a slice
// of BasicMap pieces (domain piece, output affine value); with
// WithTrackEmpty, pieces of d where r has no solution are also returned,
// returned as the second result, a slice of domain pieces.
func PartialLexopt(r *BasicRelation, d *BasicSet, opts ...Option) ([]*BasicMap, []*poly.BasicSet, error) {
	if err := validate(r, d); err != nil {
		return nil, nil, err
	}
	cfg := buildOptions(opts)
	sink := accum.NewMapSink(r.NOut, r.NParam+len(r.Divs), cfg.Maximize, cfg.TrackEmpty)
	if err := solve(r, d, sink, opts); err != nil {
		return nil, nil, err
	}
	return sink.Maps, sink.EmptySets, nil
}

// ForeachLexopt computes the same partition as PartialLexopt but streams
// each piece to visit as it's found, as a raw (domain, affine-matrix) pair
// rather than a materialized BasicMap — spec.md §6's foreach_lexopt.
func ForeachLexopt(r *BasicRelation, d *BasicSet, visit func(domain *poly.BasicSet, affine Affine) error, opts ...Option) error {
	if visit == nil {
		return ErrNilRelation
	}
	if err := validate(r, d); err != nil {
		return err
	}
	cfg := buildOptions(opts)
	sink := &accum.CallbackSink{NOut: r.NOut, OutStart: r.NParam + len(r.Divs), Max: cfg.Maximize, Visit: visit}
	return solve(r, d, sink, opts)
}

// ForeachLexmin is ForeachLexopt with minimization forced, mirroring
// isl_basic_map_foreach_lexmin's convenience wrapper around foreach_lexopt.
func ForeachLexmin(r *BasicRelation, d *BasicSet, visit func(domain *poly.BasicSet, affine Affine) error, opts ...Option) error {
	return ForeachLexopt(r, d, visit, append(append([]Option(nil), opts...), func(o *Options) { o.Maximize = false })...)
}

// ForeachLexmax is ForeachLexopt with maximization forced, mirroring
// isl_basic_map_foreach_lexmax.
func ForeachLexmax(r *BasicRelation, d *BasicSet, visit func(domain *poly.BasicSet, affine Affine) error, opts ...Option) error {
	return ForeachLexopt(r, d, visit, append(append([]Option(nil), opts...), WithMaximize())...)
}
