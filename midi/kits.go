package midi

import (
	"sort"

	"go-groove/beat"
)

// Kit maps pattern voices to the notes a drum module or pad speaks
type Kit struct {
	Name  string
	Notes map[beat.Voice]uint8

	// Aliases are extra inbound notes that count as a voice, e.g. rim shots on the snare pad
	Aliases map[uint8]beat.Voice
}

// gmAliases covers the pads most e-kits send besides the primary GM notes
var gmAliases = map[uint8]beat.Voice{
	35: beat.Kick,  // Acoustic Bass Drum
	37: beat.Snare, // Side Stick
	40: beat.Snare, // Electric Snare
	44: beat.Hihat, // Pedal HH
	46: beat.Hihat, // Open HH
	57: beat.Accent,
}

// Kits contains all available drum kit mappings
var Kits = map[string]Kit{
	"gm": {
		Name: "General MIDI",
		Notes: map[beat.Voice]uint8{
			beat.Kick:   36,
			beat.Snare:  38,
			beat.Hihat:  42,
			beat.Accent: 49, // Crash
		},
		Aliases: gmAliases,
	},
	"rd8": {
		Name: "Behringer RD-8",
		Notes: map[beat.Voice]uint8{
			beat.Kick:   36,
			beat.Snare:  40, // RD-8 uses 40, not 38
			beat.Hihat:  42,
			beat.Accent: 49,
		},
		Aliases: map[uint8]beat.Voice{
			38: beat.Snare,
			46: beat.Hihat,
		},
	},
	"tr8s": {
		Name: "Roland TR-8S",
		Notes: map[beat.Voice]uint8{
			beat.Kick:   36,
			beat.Snare:  38,
			beat.Hihat:  42,
			beat.Accent: 49,
		},
		Aliases: map[uint8]beat.Voice{
			37: beat.Snare,
			46: beat.Hihat,
		},
	},
	"td": {
		Name: "Roland V-Drums",
		Notes: map[beat.Voice]uint8{
			beat.Kick:   36,
			beat.Snare:  38,
			beat.Hihat:  42,
			beat.Accent: 49,
		},
		Aliases: map[uint8]beat.Voice{
			22: beat.Hihat, // HH edge closed
			26: beat.Hihat, // HH edge open
			40: beat.Snare, // rim
			55: beat.Accent,
		},
	},
}

// DefaultKit is the default kit name
const DefaultKit = "gm"

// KitNames returns the available kit names, sorted
func KitNames() []string {
	names := make([]string, 0, len(Kits))
	for name := range Kits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetKit returns a kit by name, defaulting to GM if not found
func GetKit(name string) Kit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

// NoteFor returns the outbound note for a voice
func (k Kit) NoteFor(v beat.Voice) (uint8, bool) {
	n, ok := k.Notes[v]
	return n, ok
}

// VoiceFor resolves an inbound note, primary notes first
func (k Kit) VoiceFor(note uint8) (beat.Voice, bool) {
	for v, n := range k.Notes {
		if n == note {
			return v, true
		}
	}
	v, ok := k.Aliases[note]
	return v, ok
}
