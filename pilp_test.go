package pilp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pilp/poly"
)

func bi(i int64) *big.Int { return big.NewInt(i) }

// evalOut evaluates an output's affine expression at param value p (single
// parameter, no divs), returning a big.Rat-free integer when the result is
// exact (every worked case below only produces integer outputs).
func evalOut(t *testing.T, denom, cst *big.Int, coef map[int]*big.Int, param int64) int64 {
	t.Helper()
	acc := new(big.Int).Set(cst)
	if c, ok := coef[0]; ok {
		acc.Add(acc, new(big.Int).Mul(c, bi(param)))
	}
	q, r := new(big.Int).QuoRem(acc, denom, new(big.Int))
	require.Zero(t, r.Sign(), "expected an exact integer result, got %s/%s", acc, denom)
	return q.Int64()
}

func domainAllows1Param(d *poly.BasicSet, p int64) bool {
	for _, e := range d.Eqs {
		if evalConstraint(e, p) != 0 {
			return false
		}
	}
	for _, q := range d.Ineqs {
		if evalConstraint(q, p) < 0 {
			return false
		}
	}
	return true
}

func evalConstraint(c poly.Constraint, p int64) int64 {
	acc := c.Const.Int64()
	if coef, ok := c.Coef[0]; ok {
		acc += coef.Int64() * p
	}
	return acc
}

// TestPartialLexoptXGeZeroAndXGeP is spec case 1: R: x >= 0 and x >= p, D:
// true, min. The solution is x = max(p, 0), split on the sign of p.
func TestPartialLexoptXGeZeroAndXGeP(t *testing.T) {
	r := &BasicRelation{
		NParam: 1,
		NOut:   1,
		Ineqs: []poly.Constraint{
			{Const: bi(0), Coef: map[int]*big.Int{1: bi(1)}},
			{Const: bi(0), Coef: map[int]*big.Int{0: bi(-1), 1: bi(1)}},
		},
	}
	d := &BasicSet{NParam: 1}

	maps, empties, err := PartialLexopt(r, d)
	require.NoError(t, err)
	assert.Empty(t, empties)
	require.NotEmpty(t, maps)

	for _, p := range []int64{-7, -1, 0, 1, 7} {
		want := p
		if want < 0 {
			want = 0
		}
		found := false
		for _, m := range maps {
			if !domainAllows1Param(m.Domain, p) {
				continue
			}
			found = true
			got := evalOut(t, m.Outputs[0].Denom, m.Outputs[0].Const, m.Outputs[0].Coef, p)
			assert.Equal(t, want, got, "p=%d", p)
		}
		assert.True(t, found, "no piece covers p=%d", p)
	}
}

// TestPartialLexoptXPlusYAtLeastTen is spec case 3: R: x+y >= 10, x >= 0, y
// >= 0, D: true, min lex on (x, y). No parameters, so the result is a
// single constant piece x=0, y=10.
func TestPartialLexoptXPlusYAtLeastTen(t *testing.T) {
	r := &BasicRelation{
		NParam: 0,
		NOut:   2,
		Ineqs: []poly.Constraint{
			{Const: bi(-10), Coef: map[int]*big.Int{0: bi(1), 1: bi(1)}},
			{Const: bi(0), Coef: map[int]*big.Int{0: bi(1)}},
			{Const: bi(0), Coef: map[int]*big.Int{1: bi(1)}},
		},
	}
	d := &BasicSet{NParam: 0}

	maps, empties, err := PartialLexopt(r, d)
	require.NoError(t, err)
	assert.Empty(t, empties)
	require.Len(t, maps, 1)

	x := maps[0].Outputs[0]
	y := maps[0].Outputs[1]
	assert.Equal(t, int64(0), evalOut(t, x.Denom, x.Const, x.Coef, 0))
	assert.Equal(t, int64(10), evalOut(t, y.Denom, y.Const, y.Coef, 0))
}

// TestPartialLexoptMaximizeBoundedByParam is spec case 4: R: x >= 0, x <=
// p, D: p >= 0, max. Expected x = p everywhere on D.
func TestPartialLexoptMaximizeBoundedByParam(t *testing.T) {
	r := &BasicRelation{
		NParam: 1,
		NOut:   1,
		Ineqs: []poly.Constraint{
			{Const: bi(0), Coef: map[int]*big.Int{1: bi(1)}},
			{Const: bi(0), Coef: map[int]*big.Int{0: bi(1), 1: bi(-1)}},
		},
	}
	d := &BasicSet{NParam: 1, Ineqs: []poly.Constraint{
		{Const: bi(0), Coef: map[int]*big.Int{0: bi(1)}},
	}}

	maps, _, err := PartialLexopt(r, d, WithMaximize())
	require.NoError(t, err)
	require.NotEmpty(t, maps)

	for _, p := range []int64{0, 1, 5, 42} {
		found := false
		for _, m := range maps {
			if !domainAllows1Param(m.Domain, p) {
				continue
			}
			found = true
			got := evalOut(t, m.Outputs[0].Denom, m.Outputs[0].Const, m.Outputs[0].Coef, p)
			assert.Equal(t, p, got, "p=%d", p)
		}
		assert.True(t, found, "no piece covers p=%d", p)
	}
}

// TestPartialLexoptTrackEmptyDivisibility is spec case 5: R: 3x = p, D:
// true, min with track_empty. Expected one piece where p is a multiple of
// 3 (x = p/3) and one tracked empty region where it is not.
func TestPartialLexoptTrackEmptyDivisibility(t *testing.T) {
	r := &BasicRelation{
		NParam: 1,
		NOut:   1,
		Eqs: []poly.Constraint{
			{Const: bi(0), Coef: map[int]*big.Int{0: bi(-1), 1: bi(3)}},
		},
	}
	d := &BasicSet{NParam: 1}

	maps, empties, err := PartialLexopt(r, d, WithTrackEmpty())
	require.NoError(t, err)
	require.NotEmpty(t, maps)
	require.NotEmpty(t, empties)

	for _, p := range []int64{-9, -6, -3, 0, 3, 6, 9} {
		for _, m := range maps {
			if domainAllows1Param(m.Domain, p) {
				got := evalOut(t, m.Outputs[0].Denom, m.Outputs[0].Const, m.Outputs[0].Coef, p)
				assert.Equal(t, p/3, got, "p=%d", p)
			}
		}
	}
}

func TestPartialLexoptNilArguments(t *testing.T) {
	_, _, err := PartialLexopt(nil, &BasicSet{})
	assert.ErrorIs(t, err, ErrNilRelation)

	_, _, err = PartialLexopt(&BasicRelation{}, nil)
	assert.ErrorIs(t, err, ErrNilDomain)
}

func TestPartialLexoptIncompatibleDomain(t *testing.T) {
	r := &BasicRelation{NParam: 1, NOut: 1}
	d := &BasicSet{NParam: 2}
	_, _, err := PartialLexopt(r, d)
	assert.ErrorIs(t, err, ErrIncompatibleDomain)
}
