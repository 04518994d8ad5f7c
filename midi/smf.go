package midi

import (
	"fmt"
	"io"
	"sort"
	"time"

	"go-groove/clock"
	"go-groove/performance"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// SMFResolution is the ticks per quarter note of exported files
const SMFResolution = 960

type timedMsg struct {
	tick uint32
	msg  gomidi.Message
}

// WriteSMF writes a capture as a single-track Standard MIDI File.
// Each hit becomes a note-on at its played time and a short note-off; voices
// the kit cannot sound are skipped.
func WriteSMF(w io.Writer, c performance.Capture, kit Kit, channel uint8) error {
	bpm := c.BPM
	if bpm <= 0 {
		bpm = clock.DefaultTempo
	}
	ticks := smf.MetricTicks(SMFResolution)

	var msgs []timedMsg
	for _, n := range c.Notes {
		note, ok := kit.NoteFor(n.Voice)
		if !ok {
			continue
		}
		on := ticks.Ticks(bpm, msecDuration(n.ElapsedMsec))
		msgs = append(msgs,
			timedMsg{tick: on, msg: gomidi.NoteOn(channel, note, n.Velocity)},
			timedMsg{tick: on + ticks.Ticks(bpm, noteLength), msg: gomidi.NoteOff(channel, note)},
		)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].tick < msgs[j].tick })

	var track smf.Track
	track.Add(0, smf.MetaMeter(4, 4))
	track.Add(0, smf.MetaTempo(bpm))
	var last uint32
	for _, m := range msgs {
		track.Add(m.tick-last, m.msg)
		last = m.tick
	}
	track.Close(0)

	mf := smf.New()
	mf.TimeFormat = ticks
	if err := mf.Add(track); err != nil {
		return fmt.Errorf("midi: build smf: %w", err)
	}
	if _, err := mf.WriteTo(w); err != nil {
		return fmt.Errorf("midi: write smf: %w", err)
	}
	return nil
}

func msecDuration(ms float64) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}
