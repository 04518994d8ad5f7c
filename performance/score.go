package performance

import (
	"math"

	"go-groove/beat"
)

const (
	DefaultVelocity = 100
	AccentVelocity  = 127
)

// CapturedNote is one hit as played, snapped to the grid
type CapturedNote struct {
	Index           int        `json:"index"`
	Voice           beat.Voice `json:"voice"`
	Bar             int        `json:"bar"`
	Beat            int        `json:"beat"`
	Division        int        `json:"division"`
	SubDivision     int        `json:"subDivision"`
	NumSubDivisions int        `json:"numSubDivisions"`
	Velocity        uint8      `json:"velocity"`
	Microtiming     float64    `json:"microtiming"`
	ElapsedMsec     float64    `json:"elapsedMsec"`
}

// Capture is everything played during one recording
type Capture struct {
	BPM   float64        `json:"bpm"`
	Notes []CapturedNote `json:"notes"`
}

// Entry is one scored event: a matched hit or a slot left with voices missing
type Entry struct {
	Index              int           `json:"index"`
	Expected           beat.NoteSlot `json:"expectedSlot"`
	Matched            *CapturedNote `json:"matchedCaptureNote,omitempty"`
	TimingDifferenceMs *float64      `json:"timingDifferenceMs,omitempty"`
	VelocityDifference *int          `json:"velocityDifference,omitempty"`
	MissedVoices       []beat.Voice  `json:"missedVoices,omitempty"`
	AtMsec             float64       `json:"atMsec"`
}

// ExpectedVelocity is the velocity a slot asks for
func ExpectedVelocity(s beat.NoteSlot) int {
	if s.Accented() {
		return AccentVelocity
	}
	return DefaultVelocity
}

// LoopedTimeDiff returns a-b folded into (-loopMsec/2, loopMsec/2]
func LoopedTimeDiff(a, b, loopMsec float64) float64 {
	if loopMsec <= 0 {
		return a - b
	}
	d := math.Mod(a-b, loopMsec)
	if d < 0 {
		d += loopMsec
	}
	if d > loopMsec/2 {
		d -= loopMsec
	}
	if d == 0 {
		return 0
	}
	return d
}

// MatchNoteToBeat scores a hit against the slot at expectedIndex and the one after it.
// Only slots containing voice are considered; the closer wins if it is within a
// quarter note. Returns nil when nothing matches.
func MatchNoteToBeat(seq beat.Sequence, expectedIndex int, voice beat.Voice, timeMsec float64, velocity uint8, bpm float64) *Entry {
	if len(seq) == 0 {
		return nil
	}
	loop := seq.LoopLengthMsec(bpm)
	tolerance := beat.BeatMsec(bpm)

	var best *Entry
	var bestAbs float64
	for _, idx := range []int{expectedIndex, expectedIndex + 1} {
		slot, _ := seq.Slot(idx)
		if !slot.Has(voice) {
			continue
		}
		diff := LoopedTimeDiff(timeMsec, beat.IdealTimeMsec(slot, bpm), loop)
		if abs(diff) > tolerance {
			continue
		}
		if best == nil || abs(diff) < bestAbs {
			velDiff := int(velocity) - ExpectedVelocity(slot)
			timing := diff
			best = &Entry{
				Index:              expectedIndex,
				Expected:           slot,
				TimingDifferenceMs: &timing,
				VelocityDifference: &velDiff,
			}
			bestAbs = abs(diff)
		}
	}
	return best
}
