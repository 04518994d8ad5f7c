package performance

import (
	"math"

	"go-groove/beat"
)

// candidate splits of the 8th note tried when snapping a hit
var splits = []int{2, 3, 4, 6, 8}

// GridPosition is a hit snapped to the nearest fraction of an 8th note
type GridPosition struct {
	Bar             int     `json:"bar"`
	Beat            int     `json:"beat"`
	Division        int     `json:"division"`
	SubDivision     int     `json:"subDivision"`
	NumSubDivisions int     `json:"numSubDivisions"`
	Microtiming     float64 `json:"microtiming"`
}

// Quantize snaps elapsedMsec (wrapped by loopMsec when positive) to the grid.
// Ties go to the earlier candidate split. A hit rounding up to the next 8th
// carries into it, wrapping at the loop end.
func Quantize(elapsedMsec, bpm, loopMsec float64) GridPosition {
	eighth := beat.EighthMsec(bpm)
	t := elapsedMsec
	if loopMsec > 0 {
		t = math.Mod(t, loopMsec)
		if t < 0 {
			t += loopMsec
		}
	}

	div := int(math.Floor(t / eighth))
	offset := t - float64(div)*eighth

	var bestN, bestK int
	bestResidual := math.Inf(1)
	for _, n := range splits {
		step := eighth / float64(n)
		k := int(math.Round(offset / step))
		residual := offset - float64(k)*step
		if abs(residual) < abs(bestResidual) {
			bestN, bestK, bestResidual = n, k, residual
		}
	}

	if bestK == bestN {
		div++
		bestK = 0
	}
	if loopMsec > 0 {
		total := int(math.Round(loopMsec / eighth))
		if total > 0 && div >= total {
			div -= total
		}
	}

	g := gcd(bestK, bestN)
	sub, num := bestK/g, bestN/g

	within := div % beat.DivisionsPerBar
	return GridPosition{
		Bar:             div / beat.DivisionsPerBar,
		Beat:            within / beat.DivisionsPerBeat,
		Division:        within % beat.DivisionsPerBeat,
		SubDivision:     sub,
		NumSubDivisions: num,
		Microtiming:     roundMicro(bestResidual),
	}
}
