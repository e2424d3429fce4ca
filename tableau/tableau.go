// Package tableau implements the low-level simplex tableau primitives that
// spec.md §4.2 specifies as an external contract: row storage, pivot,
// incremental row/variable allocation, constraint redundancy, and a
// snapshot/rollback undo stack. Higher packages (context, lexmin, driver)
// are the only callers. Beyond recording which ids are parameters or divs
// (NParam, NDiv, MarkDiv, IsParamOrDiv), nothing here reasons about them
// or about lexicographic ordering — that belongs to lexmin and context.
//
// Row coefficients are stored as a sparse map keyed by variable id rather
// than by raw column position. isl_tab.c (the C teacher this package is
// grounded on, via original_source/isl_tab_pip.c's use of it) packs
// variables into contiguous matrix columns for cache locality; a GC'd,
// slice-and-map-native language gets the same observable semantics
// (denominator, per-variable coefficient, basic/non-basic status) without
// needing to replay that column-compaction by hand, so this is the one
// deliberate representational simplification — see DESIGN.md.
package tableau

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/katalvlaran/pilp/rat"
)

// ErrInternal signals an invariant violation inside the tableau — e.g. a
// pivot column with a zero entry, or a row declared violated with no
// positive non-basic entry while the tableau was not marked empty.
var ErrInternal = errors.New("tableau: internal invariant violation")

// RowSign is the tri-state parameter-sign classification of spec.md §4.4/§9.
type RowSign int

const (
	SignUnknown RowSign = iota
	SignPos
	SignNeg
	SignAny
)

func (s RowSign) String() string {
	switch s {
	case SignPos:
		return "pos"
	case SignNeg:
		return "neg"
	case SignAny:
		return "any"
	default:
		return "unknown"
	}
}

// Row is the linear row of spec.md §3: (denom, const, bigM?, coefficients),
// all arbitrary-precision integers. The value of the row is
// (Const + BigM·M + Σ Coef[v]·v) / Denom. Coef only carries entries for
// variables that are currently non-basic columns; a missing key means 0.
type Row struct {
	Denom *big.Int
	Const *big.Int
	BigM  *big.Int // nil when the owning tableau has no M column
	Coef  map[int]*big.Int
}

func newRow(denom, cst, bigM *big.Int, coef map[int]*big.Int) *Row {
	return &Row{Denom: denom, Const: cst, BigM: bigM, Coef: coef}
}

func (r *Row) constRat() rat.Rat { return rat.FromFrac(r.Const, r.Denom, true) }

func (r *Row) bigMRat() rat.Rat {
	if r.BigM == nil {
		return rat.Zero()
	}
	return rat.FromFrac(r.BigM, r.Denom, true)
}

// CoefRat returns row's coefficient on column v as a rational (0 if v is
// absent from Coef), for sibling packages that need the entry the way the
// simplex sees it rather than the raw integer.
func (r *Row) CoefRat(v int) rat.Rat { return r.coefRat(v) }

func (r *Row) coefRat(v int) rat.Rat {
	c, ok := r.Coef[v]
	if !ok {
		return rat.Zero()
	}
	return rat.FromFrac(c, r.Denom, true)
}

func (r *Row) clone() *Row {
	coef := make(map[int]*big.Int, len(r.Coef))
	for k, v := range r.Coef {
		coef[k] = new(big.Int).Set(v)
	}
	var bigM *big.Int
	if r.BigM != nil {
		bigM = new(big.Int).Set(r.BigM)
	}
	return &Row{
		Denom: new(big.Int).Set(r.Denom),
		Const: new(big.Int).Set(r.Const),
		BigM:  bigM,
		Coef:  coef,
	}
}

// Vector is the input shape for AddRow/AddIneq/AddEq: a linear expression
// over the tableau's current variable ids, not yet reduced to the current
// non-basic column basis. Denom defaults to 1 if nil.
type Vector struct {
	Denom *big.Int
	Const *big.Int
	BigM  *big.Int
	Coef  map[int]*big.Int // variable id -> coefficient
}

// Tableau is either kind described in spec.md §3 — a plain tableau, or one
// configured with a big-parameter M column (the context and main tableaux
// of §4.3/§4.4 are both instances of this type).
type Tableau struct {
	M bool // presence of the big-parameter column

	// NParam and NDiv delimit the variable-id layout spec.md §3 requires:
	// [0, NParam) are context/parameter variables, [OrigNVar-NDiv, OrigNVar)
	// are divs, the rest are output variables of the relation being optimized.
	NParam int
	NDiv   int
	// OrigNVar is the variable count at the moment the problem's original
	// param/output/div columns were all allocated, before any cut or
	// slack variables were introduced. Div columns occupy
	// [OrigNVar-NDiv, OrigNVar); everything allocated at or after
	// OrigNVar is cut/slack bookkeeping, classified as "variable part"
	// by IsParamOrDiv regardless of where it sorts numerically.
	OrigNVar int

	Rows []*Row

	VarRow    []int // var id -> row index, -1 if non-basic
	VarNonneg []bool
	VarFrozen []bool
	VarDead   []bool
	// VarIsDiv marks variables introduced as divs after the tableau's
	// initial construction (via MarkDiv), on top of the fixed
	// [OrigNVar-NDiv, OrigNVar) window IsParamOrDiv otherwise checks.
	// Needed because divs discovered mid-solve (parametric cuts, split
	// context divs) are allocated past OrigNVar and would otherwise be
	// misclassified as ordinary variable-part columns.
	VarIsDiv []bool

	RowVar       []int // row index -> basic variable id
	RowRedundant []bool

	RowSign    []RowSign // only meaningful once Parametric is set
	Parametric bool

	NEq        int
	NRedundant int
	NDead      int

	Empty bool

	undo []undoEntry
}

// New creates an empty tableau. withM selects the big-parameter variant of
// spec.md §3/§9.
func New(withM bool) *Tableau {
	return &Tableau{
		M:      withM,
		VarRow: []int{},
		RowVar: []int{},
	}
}

// NVar returns the number of tracked variables (including dead ones, whose
// ids remain reserved — isl never recycles ids either).
func (t *Tableau) NVar() int { return len(t.VarRow) }

// NRow returns the number of rows.
func (t *Tableau) NRow() int { return len(t.Rows) }

// IsBasic reports whether variable v is currently a basic (row) variable.
func (t *Tableau) IsBasic(v int) bool { return t.VarRow[v] >= 0 }

// IsParamOrDiv reports whether v is one of the original parameter or div
// columns (as opposed to an output variable or a cut/slack variable
// allocated afterward). Divs allocated after construction (MarkDiv) count
// too, since a div stays a div regardless of when it was discovered.
func (t *Tableau) IsParamOrDiv(v int) bool {
	if v < t.NParam {
		return true
	}
	if v >= t.OrigNVar-t.NDiv && v < t.OrigNVar {
		return true
	}
	return v < len(t.VarIsDiv) && t.VarIsDiv[v]
}

// MarkDiv flags v as a div column. Used for divs allocated after the
// tableau's initial OrigNVar/NDiv window was fixed (see IsParamOrDiv).
func (t *Tableau) MarkDiv(v int) {
	for len(t.VarIsDiv) <= v {
		t.VarIsDiv = append(t.VarIsDiv, false)
	}
	if t.VarIsDiv[v] {
		return
	}
	t.VarIsDiv[v] = true
	t.PushUndo(func(tt *Tableau) {
		if v < len(tt.VarIsDiv) {
			tt.VarIsDiv[v] = false
		}
	})
}

// Clone deep-copies the tableau with a fresh, empty undo stack — used by
// the driver to branch the main tableau into a positive sub-problem while
// leaving the original free to continue into the negative branch.
func (t *Tableau) Clone() *Tableau {
	rows := make([]*Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.clone()
	}
	return &Tableau{
		M:            t.M,
		NParam:       t.NParam,
		NDiv:         t.NDiv,
		OrigNVar:     t.OrigNVar,
		Rows:         rows,
		VarRow:       append([]int(nil), t.VarRow...),
		VarNonneg:    append([]bool(nil), t.VarNonneg...),
		VarFrozen:    append([]bool(nil), t.VarFrozen...),
		VarDead:      append([]bool(nil), t.VarDead...),
		VarIsDiv:     append([]bool(nil), t.VarIsDiv...),
		RowVar:       append([]int(nil), t.RowVar...),
		RowRedundant: append([]bool(nil), t.RowRedundant...),
		RowSign:      append([]RowSign(nil), t.RowSign...),
		Parametric:   t.Parametric,
		NEq:          t.NEq,
		NRedundant:   t.NRedundant,
		NDead:        t.NDead,
		Empty:        t.Empty,
	}
}

func (t *Tableau) String() string {
	return fmt.Sprintf("tableau{vars=%d rows=%d M=%v empty=%v}", t.NVar(), t.NRow(), t.M, t.Empty)
}
