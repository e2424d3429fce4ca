package pilp

import (
	"errors"
	"fmt"
	"time"

	"github.com/katalvlaran/pilp/accum"
	"github.com/katalvlaran/pilp/poly"
	"github.com/katalvlaran/pilp/prep"
)

// Sentinel errors returned by this package's public entry points.
var (
	// ErrNilRelation indicates that a nil *BasicRelation was passed; the
	// ForeachLexopt family also returns it for a nil visitor.
	ErrNilRelation = errors.New("pilp: relation is nil")

	// ErrNilDomain indicates that a nil *BasicSet domain was passed.
	ErrNilDomain = errors.New("pilp: domain is nil")

	// ErrIncompatibleDomain indicates that the relation and domain disagree
	// on their number of parameters.
	ErrIncompatibleDomain = errors.New("pilp: relation and domain have different parameter counts")

	// ErrUnbounded is re-exported from accum: some output coordinate has no
	// finite lex-optimum on a branch the solve reached.
	ErrUnbounded = accum.ErrUnbounded

	// ErrBadMaxBranch is returned when a solve reaches more terminal
	// branches than Options.MaxBranch allows. (WithMaxBranch panics with
	// this error's message when given a non-positive cap.)
	ErrBadMaxBranch = errors.New("pilp: MaxBranch must be positive")

	// ErrDeadlineExceeded is returned when Options.Deadline passes during a
	// solve; spec.md §5 delegates cancellation policy to the caller, so this
	// is a cooperative, best-effort check rather than a hard preemption.
	ErrDeadlineExceeded = errors.New("pilp: deadline exceeded")
)

// BasicRelation is a single conjunction of linear equalities/inequalities
// over parameters, divs, and output coordinates — spec.md's R.
type BasicRelation = prep.BasicRelation

// BasicSet is a single conjunction of linear equalities/inequalities over
// parameters and divs — spec.md's D, also the shape of each result piece's
// domain.
type BasicSet = poly.BasicSet

// BasicMap pairs a domain piece with the output point's affine value on
// that piece, the shape PartialLexopt/ForeachLexmin/ForeachLexmax return.
type BasicMap = accum.BasicMap

// Affine is the (1+NOut)-row matrix ForeachLexopt's visitor receives: row 0
// is the constant row, row 1+i is output i's affine expression over the
// domain piece's parameters and divs.
type Affine = accum.Affine

// Options configures a lex-optimum solve.
//
// Maximize   – compute the lexicographic maximum instead of the minimum.
// TrackEmpty – also record, as a BasicMap-free domain piece, every region
//
//	of D where R has no solution at all.
//
// MaxBranch  – safety cap on the number of terminal branches (solution or
//
//	empty pieces) a solve may reach; 0 means unlimited.
//
// Deadline   – if non-zero, the solve checks it between branches and
//
//	returns ErrDeadlineExceeded once it has passed.
//
// Verbose    – print a trace line once the main tableau is prepared; pivots,
//
//	cuts and branches are not traced.
type Options struct {
	Maximize   bool
	TrackEmpty bool
	MaxBranch  int
	Deadline   time.Time
	Verbose    bool
}

// Option is a functional option for configuring a solve.
type Option func(*Options)

// DefaultOptions returns an Options struct initialized with sensible
// defaults: minimize, don't track empty regions, no branch cap, no
// deadline, not verbose.
func DefaultOptions() Options {
	return Options{}
}

// WithMaximize requests the lexicographic maximum instead of the minimum.
func WithMaximize() Option {
	return func(o *Options) { o.Maximize = true }
}

// WithTrackEmpty requests that regions of D with no solution also be
// recorded, as domain-only pieces in the returned result.
func WithTrackEmpty() Option {
	return func(o *Options) { o.TrackEmpty = true }
}

// WithMaxBranch caps how many terminal branches the solve may reach before
// giving up with ErrBadMaxBranch. n must be positive.
func WithMaxBranch(n int) Option {
	return func(o *Options) {
		if n <= 0 {
			panic(ErrBadMaxBranch.Error())
		}
		o.MaxBranch = n
	}
}

// WithDeadline sets a wall-clock deadline the solve cooperatively checks
// between branches.
func WithDeadline(t time.Time) Option {
	return func(o *Options) { o.Deadline = t }
}

// WithVerbose enables trace output: one line once the main tableau is
// prepared. Pivots, cuts and branches are not traced.
func WithVerbose() Option {
	return func(o *Options) { o.Verbose = true }
}

func buildOptions(opts []Option) Options {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func tracef(cfg Options, format string, args ...any) {
	if cfg.Verbose {
		fmt.Printf("pilp: "+format+"\n", args...)
	}
}
