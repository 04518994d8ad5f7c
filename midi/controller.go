package midi

import "go-groove/beat"

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string

	// NoteEvents delivers note-ons with non-zero velocity. Closed by Close.
	NoteEvents() <-chan NoteEvent

	Close() error
}

// NotePlayer sounds pattern voices delayMsec from now
type NotePlayer interface {
	PlayNote(voice beat.Voice, velocity, channel uint8, delayMsec float64) error
}
