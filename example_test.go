package pilp_test

import (
	"fmt"
	"math/big"

	"github.com/katalvlaran/pilp"
	"github.com/katalvlaran/pilp/poly"
)

// Example computes x = max(p, 0) over every integer parameter p: R is "x >=
// 0 and x >= p", D is unconstrained.
func Example() {
	r := &pilp.BasicRelation{
		NParam: 1,
		NOut:   1,
		Ineqs: []poly.Constraint{
			{Const: big.NewInt(0), Coef: map[int]*big.Int{1: big.NewInt(1)}},
			{Const: big.NewInt(0), Coef: map[int]*big.Int{0: big.NewInt(-1), 1: big.NewInt(1)}},
		},
	}
	d := &pilp.BasicSet{NParam: 1}

	maps, _, err := pilp.PartialLexopt(r, d)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, m := range maps {
		fmt.Println(m.Outputs[0])
	}
}
