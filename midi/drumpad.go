package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DrumPad is an e-kit or pad controller sending note-ons
type DrumPad struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	channel  int // -1 accepts every channel

	mu       sync.Mutex
	closed   bool
	noteChan chan NoteEvent
}

// NewDrumPad starts listening on inPort. channel < 0 accepts all channels.
func NewDrumPad(id string, inPort drivers.In, channel int) (*DrumPad, error) {
	dp := &DrumPad{
		id:       id,
		inPort:   inPort,
		channel:  channel,
		noteChan: make(chan NoteEvent, 64),
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			var ch, note, velocity uint8
			if msg.GetNoteOn(&ch, &note, &velocity) && velocity > 0 {
				dp.deliver(NoteEvent{Note: note, Velocity: velocity, Channel: ch})
			}
		})
		if err != nil {
			return nil, fmt.Errorf("open input %s: %w", id, err)
		}
		dp.stopFunc = stop
	}

	return dp, nil
}

// deliver drops the hit if the consumer is behind rather than stall the driver callback.
// Hits arriving after Close are dropped.
func (dp *DrumPad) deliver(ev NoteEvent) {
	if dp.channel >= 0 && int(ev.Channel) != dp.channel {
		return
	}
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.closed {
		return
	}
	select {
	case dp.noteChan <- ev:
	default:
	}
}

func (dp *DrumPad) ID() string {
	return dp.id
}

func (dp *DrumPad) NoteEvents() <-chan NoteEvent {
	return dp.noteChan
}

// Close stops listening and closes NoteEvents. Closing twice is a no-op.
func (dp *DrumPad) Close() error {
	dp.mu.Lock()
	if dp.closed {
		dp.mu.Unlock()
		return nil
	}
	dp.closed = true
	stop := dp.stopFunc
	dp.stopFunc = nil
	close(dp.noteChan)
	dp.mu.Unlock()

	// the driver may still be inside a callback; deliver sees closed and drops it
	if stop != nil {
		stop()
	}
	return nil
}
