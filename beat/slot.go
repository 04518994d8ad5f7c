package beat

// Grid constants. Everything is 4/4 with the 8th note as the division.
const (
	BeatsPerBar      = 4
	DivisionsPerBeat = 2
	DivisionsPerBar  = BeatsPerBar * DivisionsPerBeat
)

// Duration is the notated length of a slot
type Duration string

const (
	Eighth           Duration = "8"
	Sixteenth        Duration = "16"
	TripletSixteenth Duration = "16t"
)

// DurationFor returns the notated duration for an n-way split of the 8th
func DurationFor(numSubDivisions int) Duration {
	switch numSubDivisions {
	case 2:
		return Sixteenth
	case 3:
		return TripletSixteenth
	default:
		return Eighth
	}
}

// NoteSlot is one rhythmic position in a pattern
type NoteSlot struct {
	Index           int      `json:"index"`
	Bar             int      `json:"bar"`
	Beat            int      `json:"beat"`
	Division        int      `json:"division"`
	SubDivision     int      `json:"subDivision"`
	NumSubDivisions int      `json:"numSubDivisions"`
	Voices          []Voice  `json:"voices"`
	Duration        Duration `json:"duration"`
}

// Has reports whether v is present in the slot
func (s NoteSlot) Has(v Voice) bool {
	for _, o := range s.Voices {
		if o == v {
			return true
		}
	}
	return false
}

// IsRest reports whether nothing is struck
func (s NoteSlot) IsRest() bool {
	return len(s.StruckVoices()) == 0 && !s.Has(Accent)
}

// Accented reports whether the slot carries an accent
func (s NoteSlot) Accented() bool {
	return s.Has(Accent)
}

// StruckVoices returns the voices a player must hit to complete the slot.
// Accent is a dynamics marker and rest is the absence of a hit, so neither counts.
func (s NoteSlot) StruckVoices() []Voice {
	var out []Voice
	for _, v := range s.Voices {
		if v != Accent && v != Rest {
			out = append(out, v)
		}
	}
	return out
}

// DivisionIndex returns the slot's 8th-note position within its bar
func (s NoteSlot) DivisionIndex() int {
	return s.Beat*DivisionsPerBeat + s.Division
}

// BeatMsec is the length of a quarter note at bpm
func BeatMsec(bpm float64) float64 {
	return 60000 / bpm
}

// EighthMsec is the length of an 8th note at bpm
func EighthMsec(bpm float64) float64 {
	return BeatMsec(bpm) / DivisionsPerBeat
}

// IdealTimeMsec returns the slot's offset from the loop start
func IdealTimeMsec(s NoteSlot, bpm float64) float64 {
	beatMs := BeatMsec(bpm)
	eighth := EighthMsec(bpm)
	t := float64(s.Bar*BeatsPerBar+s.Beat)*beatMs + float64(s.Division)*eighth
	if s.NumSubDivisions > 1 {
		t += float64(s.SubDivision) * eighth / float64(s.NumSubDivisions)
	}
	return t
}

// Sequence is an ordered pattern with a global slot index
type Sequence []NoteSlot

// MaxBar returns the highest bar number, or -1 when empty
func (seq Sequence) MaxBar() int {
	max := -1
	for _, s := range seq {
		if s.Bar > max {
			max = s.Bar
		}
	}
	return max
}

// Bars returns the number of bars the loop spans
func (seq Sequence) Bars() int {
	return seq.MaxBar() + 1
}

// LoopLengthMsec is the loop duration at bpm
func (seq Sequence) LoopLengthMsec(bpm float64) float64 {
	return float64(seq.Bars()*BeatsPerBar) * BeatMsec(bpm)
}

// Slot returns the slot at i wrapped to the sequence length
func (seq Sequence) Slot(i int) (NoteSlot, bool) {
	n := len(seq)
	if n == 0 {
		return NoteSlot{}, false
	}
	i %= n
	if i < 0 {
		i += n
	}
	return seq[i], true
}
