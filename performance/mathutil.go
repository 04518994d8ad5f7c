package performance

import (
	"math"

	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

func abs[T number](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

func gcd[T constraints.Integer](a, b T) T {
	a, b = abs(a), abs(b)
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// roundMicro rounds to the microsecond and drops negative zero
func roundMicro(ms float64) float64 {
	r := math.Round(ms*1000) / 1000
	if r == 0 {
		return 0
	}
	return r
}
