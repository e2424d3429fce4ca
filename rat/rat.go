// Package rat implements exact arbitrary-precision rational arithmetic with
// the three special values a polyhedral simplex needs alongside ordinary
// rationals: NaN, +Inf and -Inf.
//
// A Rat is a pair (numerator, denominator) of arbitrary-precision signed
// integers, always stored in one of three canonical forms:
//
//	integer:  d == 1
//	rational: d >  1, gcd(|n|, d) == 1
//	+Inf:     n >  0, d == 0
//	-Inf:     n <  0, d == 0
//	NaN:      n == 0, d == 0
//
// Values are immutable: every operation returns a new Rat rather than
// mutating a receiver in place. This is the copy-on-write discipline
// spec.md §4.1/§9 asks for, expressed the idiomatic Go way — there is
// nothing to make unique because nothing is ever shared-then-mutated.
package rat

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidArgument is returned by operations that are only defined on a
// subset of Rat's domain (e.g. Exp2 on a non-integer, GetNumSi on +Inf).
var ErrInvalidArgument = errors.New("rat: invalid argument")

// Rat is an exact rational value, or one of NaN/+Inf/-Inf. The zero value
// is NOT a valid Rat; use Zero(), FromInt64(0), or any constructor.
type Rat struct {
	n *big.Int
	d *big.Int
}

func mk(n, d *big.Int) Rat {
	return Rat{n: n, d: d}
}

// normalize reduces n/d to canonical form: d > 0 (for finite values) and
// gcd(|n|, d) == 1. Infinities and NaN (d == 0) pass through untouched.
func normalize(n, d *big.Int) Rat {
	if d.Sign() == 0 {
		// NaN or infinity: canonicalize n to -1/0/1.
		switch n.Sign() {
		case 0:
			return mk(big.NewInt(0), big.NewInt(0))
		case 1:
			return mk(big.NewInt(1), big.NewInt(0))
		default:
			return mk(big.NewInt(-1), big.NewInt(0))
		}
	}
	if d.Sign() < 0 {
		n = new(big.Int).Neg(n)
		d = new(big.Int).Neg(d)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if g.Sign() != 0 && g.Cmp(big.NewInt(1)) != 0 {
		n = new(big.Int).Quo(n, g)
		d = new(big.Int).Quo(d, g)
	}
	return mk(n, d)
}

// ---- constructors ----

// Zero returns the rational 0.
func Zero() Rat { return mk(big.NewInt(0), big.NewInt(1)) }

// One returns the rational 1.
func One() Rat { return mk(big.NewInt(1), big.NewInt(1)) }

// PosInf returns +Inf.
func PosInf() Rat { return mk(big.NewInt(1), big.NewInt(0)) }

// NegInf returns -Inf.
func NegInf() Rat { return mk(big.NewInt(-1), big.NewInt(0)) }

// NaN returns the not-a-number value.
func NaN() Rat { return mk(big.NewInt(0), big.NewInt(0)) }

// FromInt64 returns the integer value of i.
func FromInt64(i int64) Rat { return mk(big.NewInt(i), big.NewInt(1)) }

// FromUint64 returns the integer value of u.
func FromUint64(u uint64) Rat { return mk(new(big.Int).SetUint64(u), big.NewInt(1)) }

// FromBigInt returns the integer value of n. The caller retains ownership
// of n; FromBigInt copies it.
func FromBigInt(n *big.Int) Rat { return mk(new(big.Int).Set(n), big.NewInt(1)) }

// FromFrac builds n/d. If normalize is false the caller attests that n/d is
// already canonical (d > 0, gcd(|n|,d) == 1); this is an optimization used
// by callers (the tableau row reader) that already maintain the invariant.
// d == 0 selects NaN/+Inf/-Inf per n's sign, regardless of normalize.
func FromFrac(n, d *big.Int, normalize_ bool) Rat {
	if !normalize_ {
		return mk(new(big.Int).Set(n), new(big.Int).Set(d))
	}
	return normalize(new(big.Int).Set(n), new(big.Int).Set(d))
}

// ---- predicates ----

// IsInt reports whether v is a finite integer (d == 1).
func (v Rat) IsInt() bool { return v.d.Sign() != 0 && v.d.Cmp(big.NewInt(1)) == 0 }

// IsRat reports whether v is finite (d != 0); true for integers too.
func (v Rat) IsRat() bool { return v.d.Sign() != 0 }

// IsNaN reports whether v is NaN.
func (v Rat) IsNaN() bool { return v.d.Sign() == 0 && v.n.Sign() == 0 }

// IsInfty reports whether v is +Inf or -Inf.
func (v Rat) IsInfty() bool { return v.d.Sign() == 0 && v.n.Sign() != 0 }

// IsNegInfty reports whether v is exactly -Inf.
func (v Rat) IsNegInfty() bool { return v.d.Sign() == 0 && v.n.Sign() < 0 }

// IsZero reports whether v == 0.
func (v Rat) IsZero() bool { return v.IsRat() && v.n.Sign() == 0 }

// IsOne reports whether v == 1.
func (v Rat) IsOne() bool { return v.IsInt() && v.n.Cmp(big.NewInt(1)) == 0 }

// IsNeg reports whether v < 0 (NaN is neither neg nor pos).
func (v Rat) IsNeg() bool { return !v.IsNaN() && v.n.Sign() < 0 }

// IsPos reports whether v > 0.
func (v Rat) IsPos() bool { return !v.IsNaN() && v.n.Sign() > 0 }

// IsNonneg reports whether v >= 0 (NaN is neither).
func (v Rat) IsNonneg() bool { return !v.IsNaN() && v.n.Sign() >= 0 }

// IsNonpos reports whether v <= 0.
func (v Rat) IsNonpos() bool { return !v.IsNaN() && v.n.Sign() <= 0 }

// Sign returns -1, 0 or 1 for finite values; 0 for NaN; the sign of the
// infinity for +Inf/-Inf.
func (v Rat) Sign() int { return v.n.Sign() }

// cmpFinite compares two finite values; callers must guard NaN/infinity first.
func (v Rat) cmpFinite(w Rat) int {
	lhs := new(big.Int).Mul(v.n, w.d)
	rhs := new(big.Int).Mul(w.n, v.d)
	return lhs.Cmp(rhs)
}

// Cmp orders v and w: -1, 0, 1. NaN compares as unordered and, per the
// total-order convention adopted here, sorts as equal only to itself and
// less than every other value — callers needing IEEE-754-style
// incomparability should check IsNaN first.
func (v Rat) Cmp(w Rat) int {
	if v.IsNaN() || w.IsNaN() {
		if v.IsNaN() && w.IsNaN() {
			return 0
		}
		if v.IsNaN() {
			return -1
		}
		return 1
	}
	vInf, wInf := v.IsInfty(), w.IsInfty()
	switch {
	case vInf && wInf:
		return v.Sign() - w.Sign() // -1,0,1 since signs are +-1
	case vInf:
		return v.Sign()
	case wInf:
		return -w.Sign()
	default:
		return v.cmpFinite(w)
	}
}

// Eq reports v == w.
func (v Rat) Eq(w Rat) bool { return !v.IsNaN() && !w.IsNaN() && v.Cmp(w) == 0 }

// Ne reports v != w (true when either is NaN, matching IEEE unordered).
func (v Rat) Ne(w Rat) bool { return !v.Eq(w) }

// Lt reports v < w.
func (v Rat) Lt(w Rat) bool { return !v.IsNaN() && !w.IsNaN() && v.Cmp(w) < 0 }

// Le reports v <= w.
func (v Rat) Le(w Rat) bool { return !v.IsNaN() && !w.IsNaN() && v.Cmp(w) <= 0 }

// Gt reports v > w.
func (v Rat) Gt(w Rat) bool { return !v.IsNaN() && !w.IsNaN() && v.Cmp(w) > 0 }

// Ge reports v >= w.
func (v Rat) Ge(w Rat) bool { return !v.IsNaN() && !w.IsNaN() && v.Cmp(w) >= 0 }

// CmpSi compares v against the plain integer si.
func (v Rat) CmpSi(si int64) int { return v.Cmp(FromInt64(si)) }

// IsDivisibleBy reports whether v and w are both integers and w divides v.
func (v Rat) IsDivisibleBy(w Rat) bool {
	if !v.IsInt() || !w.IsInt() || w.IsZero() {
		return false
	}
	r := new(big.Int).Mod(v.n, new(big.Int).Abs(w.n))
	return r.Sign() == 0
}

// ---- arithmetic ----

// Neg returns -v.
func (v Rat) Neg() Rat {
	if v.IsNaN() {
		return v
	}
	return mk(new(big.Int).Neg(v.n), new(big.Int).Set(v.d))
}

// Abs returns |v|.
func (v Rat) Abs() Rat {
	if v.IsNaN() {
		return v
	}
	return mk(new(big.Int).Abs(v.n), new(big.Int).Set(v.d))
}

// Floor returns the greatest integer <= v. Floor of NaN/Inf is itself.
func (v Rat) Floor() Rat {
	if !v.IsRat() {
		return v
	}
	if v.IsInt() {
		return v
	}
	q := new(big.Int).Div(v.n, v.d) // big.Int.Div is Euclidean (floor for positive divisor)
	return mk(q, big.NewInt(1))
}

// Ceil returns the least integer >= v.
func (v Rat) Ceil() Rat {
	if !v.IsRat() {
		return v
	}
	return v.Neg().Floor().Neg()
}

// Trunc returns v rounded toward zero.
func (v Rat) Trunc() Rat {
	if !v.IsRat() {
		return v
	}
	q := new(big.Int).Quo(v.n, v.d)
	return mk(q, big.NewInt(1))
}

// Exp2 returns 2^v. v must be a non-negative integer no larger than 2^32;
// otherwise Exp2 returns ErrInvalidArgument.
func Exp2(v Rat) (Rat, error) {
	if !v.IsInt() || v.IsNeg() {
		return Rat{}, fmt.Errorf("rat.Exp2: %w: exponent must be a non-negative integer", ErrInvalidArgument)
	}
	if !v.n.IsUint64() {
		return Rat{}, fmt.Errorf("rat.Exp2: %w: exponent does not fit in a platform unsigned integer", ErrInvalidArgument)
	}
	n := v.n.Uint64()
	if n > 1<<32 {
		return Rat{}, fmt.Errorf("rat.Exp2: %w: exponent too large", ErrInvalidArgument)
	}
	r := new(big.Int).Lsh(big.NewInt(1), uint(n))
	return mk(r, big.NewInt(1)), nil
}

// specialBinary implements the NaN/Inf propagation rules of spec.md §4.1 for
// binary ops; it returns (result, true) if a special case applied.
func specialBinary(v, w Rat, op string) (Rat, bool) {
	if v.IsNaN() || w.IsNaN() {
		return NaN(), true
	}
	vInf, wInf := v.IsInfty(), w.IsInfty()
	if !vInf && !wInf {
		return Rat{}, false
	}
	switch op {
	case "add":
		if vInf && wInf {
			if v.Sign() != w.Sign() {
				return NaN(), true // inf + (-inf)
			}
			return v, true
		}
		if vInf {
			return v, true
		}
		return w, true
	case "mul":
		if v.IsZero() || w.IsZero() {
			return NaN(), true // 0 * inf
		}
		sign := 1
		if v.Sign() < 0 {
			sign = -sign
		}
		if w.Sign() < 0 {
			sign = -sign
		}
		if sign < 0 {
			return NegInf(), true
		}
		return PosInf(), true
	case "div":
		if vInf && wInf {
			return NaN(), true // inf/inf
		}
		if wInf {
			return Zero(), true // finite/inf = 0
		}
		// v is infinite, w finite (w==0 handled by caller before this)
		sign := 1
		if v.Sign() < 0 {
			sign = -sign
		}
		if w.Sign() < 0 {
			sign = -sign
		}
		if sign < 0 {
			return NegInf(), true
		}
		return PosInf(), true
	}
	return Rat{}, false
}

// Add returns v + w.
func Add(v, w Rat) Rat {
	if r, ok := specialBinary(v, w, "add"); ok {
		return r
	}
	n := new(big.Int).Add(new(big.Int).Mul(v.n, w.d), new(big.Int).Mul(w.n, v.d))
	d := new(big.Int).Mul(v.d, w.d)
	return normalize(n, d)
}

// AddUi returns v + ui.
func AddUi(v Rat, ui uint64) Rat { return Add(v, FromUint64(ui)) }

// Sub returns v - w.
func Sub(v, w Rat) Rat { return Add(v, w.Neg()) }

// SubUi returns v - ui.
func SubUi(v Rat, ui uint64) Rat { return Sub(v, FromUint64(ui)) }

// Mul returns v * w.
func Mul(v, w Rat) Rat {
	if r, ok := specialBinary(v, w, "mul"); ok {
		return r
	}
	n := new(big.Int).Mul(v.n, w.n)
	d := new(big.Int).Mul(v.d, w.d)
	return normalize(n, d)
}

// MulUi returns v * ui.
func MulUi(v Rat, ui uint64) Rat { return Mul(v, FromUint64(ui)) }

// Div returns v / w. x/0 for finite non-NaN x is NaN, per spec.md §4.1.
func Div(v, w Rat) Rat {
	if v.IsNaN() || w.IsNaN() {
		return NaN()
	}
	if w.IsRat() && w.IsZero() {
		return NaN()
	}
	if r, ok := specialBinary(v, w, "div"); ok {
		return r
	}
	n := new(big.Int).Mul(v.n, w.d)
	d := new(big.Int).Mul(v.d, w.n)
	return normalize(n, d)
}

// DivUi returns v / ui.
func DivUi(v Rat, ui uint64) Rat { return Div(v, FromUint64(ui)) }

// Mod returns the Euclidean mod of two integers: v mod |w|, always in
// [0, |w|) whatever the signs of v and w.
// Both operands must be finite integers with w != 0.
func Mod(v, w Rat) (Rat, error) {
	if !v.IsInt() || !w.IsInt() {
		return Rat{}, fmt.Errorf("rat.Mod: %w: operands must be integers", ErrInvalidArgument)
	}
	if w.IsZero() {
		return Rat{}, fmt.Errorf("rat.Mod: %w: modulus is zero", ErrInvalidArgument)
	}
	r := new(big.Int).Mod(v.n, new(big.Int).Abs(w.n)) // big.Int.Mod is Euclidean, always >= 0
	return mk(r, big.NewInt(1)), nil
}

// Gcd returns gcd(|v|, |w|) for two finite integers.
func Gcd(v, w Rat) (Rat, error) {
	if !v.IsInt() || !w.IsInt() {
		return Rat{}, fmt.Errorf("rat.Gcd: %w: operands must be integers", ErrInvalidArgument)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(v.n), new(big.Int).Abs(w.n))
	return mk(g, big.NewInt(1)), nil
}

// GcdExt returns (g, x, y) with x*v + y*w == g == gcd(|v|, |w|).
func GcdExt(v, w Rat) (g, x, y Rat, err error) {
	if !v.IsInt() || !w.IsInt() {
		return Rat{}, Rat{}, Rat{}, fmt.Errorf("rat.GcdExt: %w: operands must be integers", ErrInvalidArgument)
	}
	gg := new(big.Int)
	xx := new(big.Int)
	yy := new(big.Int)
	gg.GCD(xx, yy, v.n, w.n)
	return mk(gg, big.NewInt(1)), mk(xx, big.NewInt(1)), mk(yy, big.NewInt(1)), nil
}

// ---- fallible accessors ----

// GetNumSi returns the numerator as an int64; fails if v isn't rational or
// the numerator doesn't fit.
func (v Rat) GetNumSi() (int64, error) {
	if !v.IsRat() {
		return 0, fmt.Errorf("rat.GetNumSi: %w: value is not rational", ErrInvalidArgument)
	}
	if !v.n.IsInt64() {
		return 0, fmt.Errorf("rat.GetNumSi: %w: numerator does not fit in int64", ErrInvalidArgument)
	}
	return v.n.Int64(), nil
}

// GetDenSi returns the denominator as an int64; fails if v isn't rational or
// the denominator doesn't fit.
func (v Rat) GetDenSi() (int64, error) {
	if !v.IsRat() {
		return 0, fmt.Errorf("rat.GetDenSi: %w: value is not rational", ErrInvalidArgument)
	}
	if !v.d.IsInt64() {
		return 0, fmt.Errorf("rat.GetDenSi: %w: denominator does not fit in int64", ErrInvalidArgument)
	}
	return v.d.Int64(), nil
}

// GetD returns v as a float64; fails if v isn't rational.
func (v Rat) GetD() (float64, error) {
	if !v.IsRat() {
		return 0, fmt.Errorf("rat.GetD: %w: value is not rational", ErrInvalidArgument)
	}
	num := new(big.Float).SetInt(v.n)
	den := new(big.Float).SetInt(v.d)
	f, _ := new(big.Float).Quo(num, den).Float64()
	return f, nil
}

// NumDen returns copies of v's numerator and denominator in canonical form
// (see the package doc comment). Useful to callers (e.g. the tableau row
// builder) that need to re-derive an integer Row from an intermediate
// rational computation.
func (v Rat) NumDen() (*big.Int, *big.Int) {
	return new(big.Int).Set(v.n), new(big.Int).Set(v.d)
}

// String renders v for diagnostics: an integer, "n/d", "NaN", "+Inf" or "-Inf".
func (v Rat) String() string {
	switch {
	case v.IsNaN():
		return "NaN"
	case v.IsInfty():
		if v.IsNegInfty() {
			return "-Inf"
		}
		return "+Inf"
	case v.IsInt():
		return v.n.String()
	default:
		return v.n.String() + "/" + v.d.String()
	}
}
