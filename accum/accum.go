// Package accum implements spec.md §4.6's two solution accumulators: the
// tagged-variant {MapSink | CallbackSink} that owns the context tableau and
// turns each terminal leaf the driver reaches into either a materialized
// basic map or a call to a user-supplied visitor.
package accum

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/katalvlaran/pilp/context"
	"github.com/katalvlaran/pilp/poly"
	"github.com/katalvlaran/pilp/tableau"
)

// ErrUnbounded is returned when an output variable never became basic — the
// relation admits no finite lex-optimum on this branch, which the external
// interface contract (spec.md §7) treats as an InvalidArgument-class error
// rather than an internal one.
var ErrUnbounded = errors.New("accum: output variable is unbounded")

// Sink is the accumulator interface spec.md §4.6 describes as
// {add(sol, tab) -> sol; free(sol)}. Go's GC stands in for free; Add is the
// only operation the driver calls, once per terminal leaf (a tableau marked
// empty, or one whose sample is the lex-optimal integer point). tab is nil
// for a "no solution" leaf recorded purely from the context side (spec.md
// §4.5's no_sol_in_strict), in which case only ctx's current state matters.
type Sink interface {
	Add(ctx *context.Context, tab *tableau.Tableau) error
}

// AffineExpr is one output coordinate's value as an affine combination of
// context variables (parameters, then divs, in that order): (Const + Σ
// Coef[v]*v) / Denom.
type AffineExpr struct {
	Denom *big.Int
	Const *big.Int
	Coef  map[int]*big.Int
}

// BasicMap is one leaf of a MapSink's result: a domain piece paired with
// the output's affine value on that piece.
type BasicMap struct {
	Domain  *poly.BasicSet
	Outputs []AffineExpr
}

// MapSink builds basic_map-shaped leaves, per spec.md §4.6's map
// accumulator.
type MapSink struct {
	NOut       int // number of relation output coordinates
	OutStart   int // first output variable's id in the main tableau
	Max        bool
	TrackEmpty bool

	Maps      []*BasicMap
	EmptySets []*poly.BasicSet
}

// NewMapSink constructs a MapSink for a relation with nOut output
// coordinates occupying main-tableau variable ids [outStart, outStart+nOut).
func NewMapSink(nOut, outStart int, max, trackEmpty bool) *MapSink {
	return &MapSink{NOut: nOut, OutStart: outStart, Max: max, TrackEmpty: trackEmpty}
}

// Add implements the map accumulator's add(tab): empty leaves go to the
// no-solution set (if tracked); otherwise every output variable must be
// basic (an unbounded output is a contract violation), and its row's
// parameter/div part becomes that output's affine value, negated for max
// per spec.md §4.6's sign convention.
func (s *MapSink) Add(ctx *context.Context, tab *tableau.Tableau) error {
	if tab == nil || tab.Empty {
		if s.TrackEmpty {
			clone := ctx.BSet.Clone()
			clone.Finalize()
			s.EmptySets = append(s.EmptySets, clone)
		}
		return nil
	}

	outputs := make([]AffineExpr, s.NOut)
	for i := 0; i < s.NOut; i++ {
		v := s.OutStart + i
		if tab.VarRow[v] < 0 {
			return fmt.Errorf("accum.MapSink.Add: %w (output %d)", ErrUnbounded, i)
		}
		row := tab.Row(tab.VarRow[v])
		coef := make(map[int]*big.Int, len(row.Coef))
		for cv, c := range row.Coef {
			if !tab.IsParamOrDiv(cv) {
				continue
			}
			dim, ok := ctx.MainVarToBSetDim(cv)
			if !ok {
				continue
			}
			coef[dim] = new(big.Int).Set(c)
		}
		cst := new(big.Int).Set(row.Const)
		if s.Max {
			cst.Neg(cst)
			for cv, c := range coef {
				coef[cv] = new(big.Int).Neg(c)
			}
		}
		outputs[i] = AffineExpr{Denom: new(big.Int).Set(row.Denom), Const: cst, Coef: coef}
	}

	domain := ctx.BSet.Clone()
	domain.Finalize()
	s.Maps = append(s.Maps, &BasicMap{Domain: domain, Outputs: outputs})
	return nil
}

// AffineRow is one row of a CallbackSink's emitted matrix: (Const + Σ
// Coef[j]*param_or_div[j]) / Denom.
type AffineRow struct {
	Denom *big.Int
	Const *big.Int
	Coef  []*big.Int // length ctx.BSet.TotalDim(), parameters then divs
}

// Affine is the (1+NOut)-row matrix a CallbackSink hands to its visitor:
// row 0 is the constant row (1, 0, …, 0), row 1+i is output i's affine
// expression.
type Affine []AffineRow

// CallbackSink implements spec.md §4.6's callback accumulator: the same
// leaf scheme as MapSink, but it hands the caller the raw, unsimplified
// context bset (divs must survive for the matrix to make sense) together
// with the affine matrix, instead of materializing a basic map itself.
type CallbackSink struct {
	NOut     int
	OutStart int
	Max      bool
	Visit    func(domain *poly.BasicSet, affine Affine) error
}

// Add implements the callback accumulator's add(tab).
func (s *CallbackSink) Add(ctx *context.Context, tab *tableau.Tableau) error {
	if tab == nil || tab.Empty {
		return nil
	}
	total := ctx.BSet.TotalDim()
	matrix := make(Affine, 1+s.NOut)
	row0 := make([]*big.Int, total)
	for i := range row0 {
		row0[i] = big.NewInt(0)
	}
	matrix[0] = AffineRow{Denom: big.NewInt(1), Const: big.NewInt(1), Coef: row0}

	for i := 0; i < s.NOut; i++ {
		v := s.OutStart + i
		if tab.VarRow[v] < 0 {
			return fmt.Errorf("accum.CallbackSink.Add: %w (output %d)", ErrUnbounded, i)
		}
		row := tab.Row(tab.VarRow[v])
		line := make([]*big.Int, total)
		for j := range line {
			line[j] = big.NewInt(0)
		}
		for cv, c := range row.Coef {
			if !tab.IsParamOrDiv(cv) {
				continue
			}
			dim, ok := ctx.MainVarToBSetDim(cv)
			if !ok || dim >= total {
				continue
			}
			v2 := new(big.Int).Set(c)
			if s.Max {
				v2.Neg(v2)
			}
			line[dim] = v2
		}
		cst := new(big.Int).Set(row.Const)
		if s.Max {
			cst.Neg(cst)
		}
		matrix[1+i] = AffineRow{Denom: new(big.Int).Set(row.Denom), Const: cst, Coef: line}
	}
	return s.Visit(ctx.BSet, matrix)
}
