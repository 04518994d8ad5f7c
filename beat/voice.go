package beat

import "sort"

// Voice is a drum instrument channel
type Voice string

const (
	Kick   Voice = "kick"
	Hihat  Voice = "hihat"
	Snare  Voice = "snare"
	Accent Voice = "accent"
	Rest   Voice = "rest"
)

// MissMarker marks an explicit absence in a bar-string token
const MissMarker = 'x'

// Voices lists the pattern tracks in canonical order
var Voices = []Voice{Kick, Hihat, Snare, Accent}

var markers = map[Voice]byte{
	Kick:   'k',
	Hihat:  'h',
	Snare:  's',
	Accent: 'a',
}

// Marker returns the bar-string character for the voice, or 0 for rest
func (v Voice) Marker() byte {
	return markers[v]
}

// ParseVoice resolves a voice name as it appears in timed-note text
func ParseVoice(s string) (Voice, bool) {
	switch v := Voice(s); v {
	case Kick, Hihat, Snare, Accent, Rest:
		return v, true
	}
	return "", false
}

func order(v Voice) int {
	for i, o := range Voices {
		if o == v {
			return i
		}
	}
	return len(Voices)
}

// SortVoices orders voices kick, hihat, snare, accent, rest
func SortVoices(vs []Voice) {
	sort.SliceStable(vs, func(i, j int) bool { return order(vs[i]) < order(vs[j]) })
}
