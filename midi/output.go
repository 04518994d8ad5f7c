package midi

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go-groove/beat"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// noteLength is how long a played drum note is held before its note-off
const noteLength = 50 * time.Millisecond

// Output sends pattern voices to a drum module
type Output struct {
	name string
	kit  Kit
	send func(gomidi.Message) error
	mu   sync.Mutex
	log  *zap.Logger
}

// NewOutput opens an output port. Matching is case-insensitive on a substring of the port name.
func NewOutput(portName string, kit Kit, log *zap.Logger) (*Output, error) {
	if log == nil {
		log = zap.NewNop()
	}
	port, err := findOutPort(portName)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", port.String(), err)
	}
	return newOutput(port.String(), kit, send, log), nil
}

func newOutput(name string, kit Kit, send func(gomidi.Message) error, log *zap.Logger) *Output {
	return &Output{name: name, kit: kit, send: send, log: log.Named("output")}
}

func findOutPort(name string) (drivers.Out, error) {
	want := strings.ToLower(name)
	for _, p := range gomidi.GetOutPorts() {
		if strings.Contains(strings.ToLower(p.String()), want) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: output %q", ErrPortNotFound, name)
}

// Name returns the port name
func (o *Output) Name() string {
	return o.name
}

// PlayNote sounds voice after delayMsec. Voices the kit has no note for are ignored.
func (o *Output) PlayNote(voice beat.Voice, velocity, channel uint8, delayMsec float64) error {
	note, ok := o.kit.NoteFor(voice)
	if !ok {
		return nil
	}
	play := func() {
		if err := o.write(gomidi.NoteOn(channel, note, velocity)); err != nil {
			o.log.Warn("note on", zap.Uint8("note", note), zap.Error(err))
			return
		}
		time.AfterFunc(noteLength, func() {
			if err := o.write(gomidi.NoteOff(channel, note)); err != nil {
				o.log.Warn("note off", zap.Uint8("note", note), zap.Error(err))
			}
		})
	}
	if delayMsec <= 0 {
		play()
		return nil
	}
	time.AfterFunc(time.Duration(delayMsec*float64(time.Millisecond)), play)
	return nil
}

// Echo forwards an incoming note straight to the output
func (o *Output) Echo(note, velocity, channel uint8) error {
	return o.write(gomidi.NoteOn(channel, note, velocity))
}

func (o *Output) write(msg gomidi.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.send(msg)
}
