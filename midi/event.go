package midi

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
)

// NoteEvent is sent when a pad is struck
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
}
