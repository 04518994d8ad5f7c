package eventlog

import (
	"fmt"
	"strconv"

	"go-groove/beat"
)

// Kind identifies a record variant
type Kind int

const (
	KindMIDI Kind = iota
	KindPlayed
	KindMissed
	KindExtra
	KindTiming
)

var kindNames = map[Kind]string{
	KindMIDI:   "midi",
	KindPlayed: "played",
	KindMissed: "missed",
	KindExtra:  "extra",
	KindTiming: "timing",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind resolves the CSV type column
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Header carries the fields every record has
type Header struct {
	TimestampMsec float64 `json:"timestamp"`
	NoteIndex     int     `json:"noteIndex"`
}

// Head returns the common fields
func (h Header) Head() Header { return h }

func (Header) sealed() {}

// Record is one logged event. The variants are the types in this package.
type Record interface {
	Kind() Kind
	Head() Header
	sealed()
}

// MIDIRecord is a raw note-on as received
type MIDIRecord struct {
	Header
	Note     uint8
	Velocity uint8
}

// PlayedRecord is a hit matched to an expected slot
type PlayedRecord struct {
	Header
	Voice      beat.Voice
	TimingMsec float64
	Velocity   uint8
}

// MissedRecord is one expected voice that was never struck
type MissedRecord struct {
	Header
	Voice beat.Voice
}

// ExtraRecord is a hit that matched nothing
type ExtraRecord struct {
	Header
	Voice    beat.Voice
	Velocity uint8
}

// TimingRecord marks a clock pulse
type TimingRecord struct {
	Header
}

func (MIDIRecord) Kind() Kind   { return KindMIDI }
func (PlayedRecord) Kind() Kind { return KindPlayed }
func (MissedRecord) Kind() Kind { return KindMissed }
func (ExtraRecord) Kind() Kind  { return KindExtra }
func (TimingRecord) Kind() Kind { return KindTiming }
