package performance

import (
	"math"

	"go-groove/beat"
)

const (
	// DefaultTempoWindow is how many timed entries feed the effective tempo
	DefaultTempoWindow = 4

	// SkillRelaxMsec is how long a better level must hold before the window relaxes
	SkillRelaxMsec = 2000.0
)

// Feedback accumulates scored entries and tracks the skill window
type Feedback struct {
	entries []Entry

	level        int
	pending      bool
	pendingLevel int
	pendingSince float64
}

// NewFeedback creates an empty feedback list
func NewFeedback() *Feedback {
	return &Feedback{}
}

// Add appends an entry
func (f *Feedback) Add(e Entry) {
	f.entries = append(f.entries, e)
}

// Entries returns a copy of the entries in order
func (f *Feedback) Entries() []Entry {
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Len returns the number of entries
func (f *Feedback) Len() int {
	return len(f.entries)
}

// Reset clears entries and the skill window
func (f *Feedback) Reset() {
	*f = Feedback{}
}

// EffectiveTempo derives the tempo implied by the average timing error of the
// last window timed entries. Nil until that many exist.
// Missed-only entries carry no timing and are skipped, so a run of misses
// neither pulls the estimate nor shrinks the window.
func (f *Feedback) EffectiveTempo(bpm float64, window int) *float64 {
	if window <= 0 {
		return nil
	}
	var sum float64
	n := 0
	for i := len(f.entries) - 1; i >= 0 && n < window; i-- {
		if d := f.entries[i].TimingDifferenceMs; d != nil {
			sum += *d
			n++
		}
	}
	if n < window {
		return nil
	}
	avg := sum / float64(n)
	bar := float64(beat.BeatsPerBar) * beat.BeatMsec(bpm)
	eff := 240000 / (bar + avg)
	return &eff
}

// SkillLevel grades how far the effective tempo drifts from bpm.
// 0 is under a beat per minute off; each level above doubles the drift.
func SkillLevel(bpm, effective float64) int {
	diff := abs(effective - bpm)
	if diff < 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(diff)))
}

// UpdateSkill recomputes the skill window at nowMsec and returns it.
// A worse level applies at once; a better one only after it has held for SkillRelaxMsec,
// and then the window takes the worst level seen while waiting.
func (f *Feedback) UpdateSkill(bpm float64, window int, nowMsec float64) int {
	eff := f.EffectiveTempo(bpm, window)
	if eff == nil {
		return f.level
	}
	level := SkillLevel(bpm, *eff)

	switch {
	case level >= f.level:
		f.level = level
		f.pending = false
	case !f.pending:
		f.pending = true
		f.pendingLevel = level
		f.pendingSince = nowMsec
	default:
		if level > f.pendingLevel {
			f.pendingLevel = level
		}
		if nowMsec-f.pendingSince >= SkillRelaxMsec {
			f.level = f.pendingLevel
			f.pending = false
		}
	}
	return f.level
}

// WindowSkillLevel returns the current skill window
func (f *Feedback) WindowSkillLevel() int {
	return f.level
}

// Missed counts entries that report missing voices
func (f *Feedback) Missed() int {
	n := 0
	for _, e := range f.entries {
		if len(e.MissedVoices) > 0 {
			n++
		}
	}
	return n
}
