package rat

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func r(n, d int64) Rat { return FromFrac(big.NewInt(n), big.NewInt(d), true) }

func TestCommutativity(t *testing.T) {
	pairs := [][2]Rat{
		{r(3, 4), r(-5, 7)},
		{FromInt64(2), FromInt64(-9)},
		{Zero(), r(11, 13)},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		assert.True(t, Add(a, b).Eq(Add(b, a)))
		assert.True(t, Mul(a, b).Eq(Mul(b, a)))
	}
}

func TestAssociativityAndIdentity(t *testing.T) {
	a, b, c := r(1, 2), r(-3, 5), r(7, 11)
	lhs := Add(Add(a, b), c)
	rhs := Add(a, Add(b, c))
	assert.True(t, lhs.Eq(rhs))
	assert.True(t, Add(a, Zero()).Eq(a))
	assert.True(t, Mul(a, One()).Eq(a))
}

func TestAddNeg(t *testing.T) {
	v := r(5, 3)
	assert.True(t, Add(v, v.Neg()).Eq(Zero()))
	assert.True(t, Add(PosInf(), NegInf()).IsNaN())
}

func TestFloorCeil(t *testing.T) {
	v := r(7, 2)
	assert.True(t, v.Floor().Le(v))
	assert.True(t, v.Lt(Add(v.Floor(), One())))
	assert.True(t, v.Neg().Ceil().Eq(v.Floor().Neg()))

	neg := r(-7, 2)
	require.True(t, neg.Floor().Eq(r(-4, 1)))
	require.True(t, neg.Ceil().Eq(r(-3, 1)))
}

func TestExp2RoundTrip(t *testing.T) {
	for n := int64(0); n <= 60; n++ {
		p, err := Exp2(FromInt64(n))
		require.NoError(t, err)
		require.True(t, p.IsInt())
		bits := p.n.BitLen() - 1
		assert.Equal(t, n, int64(bits))
	}
	_, err := Exp2(r(1, 2))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNormalizeIdempotentAndCoprime(t *testing.T) {
	cases := []Rat{r(10, 4), r(-9, 6), r(0, 5), FromInt64(17)}
	for _, v := range cases {
		n2 := normalize(v.n, v.d)
		assert.True(t, v.Eq(n2))
		if v.IsRat() {
			g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(v.n), v.d)
			assert.Equal(t, "1", g.String())
			assert.True(t, v.d.Sign() > 0)
		}
	}
}

func TestSpecialValueRules(t *testing.T) {
	assert.True(t, Mul(Zero(), PosInf()).IsNaN())
	assert.True(t, Div(FromInt64(5), Zero()).IsNaN())
	assert.True(t, Div(PosInf(), PosInf()).IsNaN())
	assert.True(t, Div(FromInt64(3), PosInf()).IsZero())
	assert.True(t, Add(PosInf(), FromInt64(9)).Eq(PosInf()))
}

func TestDivisibilityAndMod(t *testing.T) {
	assert.True(t, r(12, 1).IsDivisibleBy(r(4, 1)))
	assert.False(t, r(13, 1).IsDivisibleBy(r(4, 1)))
	m, err := Mod(r(-7, 1), r(3, 1))
	require.NoError(t, err)
	assert.True(t, m.Eq(r(2, 1)))
}

func TestGcdExt(t *testing.T) {
	g, x, y, err := GcdExt(r(240, 1), r(46, 1))
	require.NoError(t, err)
	assert.True(t, g.Eq(r(2, 1)))
	sum := Add(Mul(x, r(240, 1)), Mul(y, r(46, 1)))
	assert.True(t, sum.Eq(g))
}

func TestFallibleAccessors(t *testing.T) {
	_, err := PosInf().GetNumSi()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	n, err := r(22, 7).GetNumSi()
	require.NoError(t, err)
	assert.Equal(t, int64(22), n)
	d, err := r(22, 7).GetD()
	require.NoError(t, err)
	assert.InDelta(t, 22.0/7.0, d, 1e-12)
}
