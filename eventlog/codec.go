package eventlog

import (
	"fmt"
	"strconv"

	"go-groove/beat"
)

// Engine is what a log replays into
type Engine interface {
	ResetForReplay() error
	AdvanceTo(elapsedMsec float64) error
	InjectNote(note, velocity uint8, atMsec float64) error
}

// fields are the kind-specific CSV columns
type fields struct {
	note, timing, velocity string
}

type codec struct {
	encode func(Record) fields
	decode func(Header, fields) (Record, error)
	replay func(Engine, Record) error
}

// derived records are rebuilt by the engine during replay
func rederived(Engine, Record) error { return nil }

var codecs = map[Kind]codec{
	KindMIDI: {
		encode: func(r Record) fields {
			m := r.(MIDIRecord)
			return fields{note: formatUint(m.Note), velocity: formatUint(m.Velocity)}
		},
		decode: func(h Header, f fields) (Record, error) {
			note, err := parseUint(f.note, "note")
			if err != nil {
				return nil, err
			}
			vel, err := parseUint(f.velocity, "velocity")
			if err != nil {
				return nil, err
			}
			return MIDIRecord{Header: h, Note: note, Velocity: vel}, nil
		},
		replay: func(e Engine, r Record) error {
			m := r.(MIDIRecord)
			return e.InjectNote(m.Note, m.Velocity, m.TimestampMsec)
		},
	},
	KindPlayed: {
		encode: func(r Record) fields {
			p := r.(PlayedRecord)
			return fields{note: string(p.Voice), timing: formatFloat(p.TimingMsec), velocity: formatUint(p.Velocity)}
		},
		decode: func(h Header, f fields) (Record, error) {
			timing, err := parseFloat(f.timing, "timing")
			if err != nil {
				return nil, err
			}
			vel, err := parseUint(f.velocity, "velocity")
			if err != nil {
				return nil, err
			}
			return PlayedRecord{Header: h, Voice: beat.Voice(f.note), TimingMsec: timing, Velocity: vel}, nil
		},
		replay: rederived,
	},
	KindMissed: {
		encode: func(r Record) fields {
			return fields{note: string(r.(MissedRecord).Voice)}
		},
		decode: func(h Header, f fields) (Record, error) {
			return MissedRecord{Header: h, Voice: beat.Voice(f.note)}, nil
		},
		replay: rederived,
	},
	KindExtra: {
		encode: func(r Record) fields {
			x := r.(ExtraRecord)
			return fields{note: string(x.Voice), velocity: formatUint(x.Velocity)}
		},
		decode: func(h Header, f fields) (Record, error) {
			vel, err := parseUint(f.velocity, "velocity")
			if err != nil {
				return nil, err
			}
			return ExtraRecord{Header: h, Voice: beat.Voice(f.note), Velocity: vel}, nil
		},
		replay: rederived,
	},
	KindTiming: {
		encode: func(Record) fields { return fields{} },
		decode: func(h Header, _ fields) (Record, error) {
			return TimingRecord{Header: h}, nil
		},
		replay: func(e Engine, r Record) error {
			return e.AdvanceTo(r.Head().TimestampMsec)
		},
	},
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatUint(v uint8) string {
	return strconv.Itoa(int(v))
}

func parseFloat(s, field string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRow, field, s)
	}
	return v, nil
}

func parseUint(s, field string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRow, field, s)
	}
	return uint8(v), nil
}
