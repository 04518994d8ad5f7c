package midi

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"go-groove/beat"
	"go-groove/performance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/zap"
)

func TestKits(t *testing.T) {
	assert := assert.New(t)

	gm := GetKit("gm")
	n, ok := gm.NoteFor(beat.Snare)
	assert.True(ok)
	assert.Equal(uint8(38), n)

	for note, want := range map[uint8]beat.Voice{36: beat.Kick, 35: beat.Kick, 38: beat.Snare, 40: beat.Snare, 42: beat.Hihat, 46: beat.Hihat, 49: beat.Accent} {
		v, ok := gm.VoiceFor(note)
		assert.True(ok, "note %d", note)
		assert.Equal(want, v, "note %d", note)
	}
	_, ok = gm.VoiceFor(60)
	assert.False(ok)

	rd8 := GetKit("rd8")
	n, _ = rd8.NoteFor(beat.Snare)
	assert.Equal(uint8(40), n)

	assert.Equal("General MIDI", GetKit("nope").Name)
	assert.Equal([]string{"gm", "rd8", "td", "tr8s"}, KitNames())
}

func TestMatchPort(t *testing.T) {
	assert.True(t, matchPort("TD-17 MIDI 1", nil))
	assert.False(t, matchPort("Midi Through Port-0", nil))
	assert.True(t, matchPort("TD-17 MIDI 1", []string{"td-17"}))
	assert.False(t, matchPort("Launchpad X", []string{"td-17", ""}))
}

func TestDrumPadFiltersChannel(t *testing.T) {
	dp, err := NewDrumPad("pad", nil, 9)
	require.NoError(t, err)

	dp.deliver(NoteEvent{Note: 36, Velocity: 100, Channel: 0})
	dp.deliver(NoteEvent{Note: 38, Velocity: 90, Channel: 9})
	require.NoError(t, dp.Close())

	var got []NoteEvent
	for ev := range dp.NoteEvents() {
		got = append(got, ev)
	}
	assert.Equal(t, []NoteEvent{{Note: 38, Velocity: 90, Channel: 9}}, got)
}

func TestDrumPadDeliverAfterClose(t *testing.T) {
	dp, err := NewDrumPad("pad", nil, -1)
	require.NoError(t, err)
	require.NoError(t, dp.Close())
	require.NoError(t, dp.Close())

	assert.NotPanics(t, func() {
		dp.deliver(NoteEvent{Note: 36, Velocity: 100, Channel: 9})
	})
	_, open := <-dp.NoteEvents()
	assert.False(t, open)
}

func TestDrumPadCloseRacesDelivery(t *testing.T) {
	dp, err := NewDrumPad("pad", nil, -1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(note uint8) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				dp.deliver(NoteEvent{Note: note, Velocity: 100})
			}
		}(uint8(36 + i))
	}
	go func() {
		for range dp.NoteEvents() {
		}
	}()
	require.NoError(t, dp.Close())
	wg.Wait()
}

func TestOutputPlayNote(t *testing.T) {
	sent := make(chan gomidi.Message, 8)
	out := newOutput("test", GetKit("gm"), func(m gomidi.Message) error {
		sent <- m
		return nil
	}, zap.NewNop())

	require.NoError(t, out.PlayNote(beat.Rest, 100, 9, 0))
	require.NoError(t, out.PlayNote(beat.Kick, 110, 9, 0))

	var ch, key, vel uint8
	select {
	case m := <-sent:
		require.True(t, m.GetNoteOn(&ch, &key, &vel))
		assert.Equal(t, uint8(9), ch)
		assert.Equal(t, uint8(36), key)
		assert.Equal(t, uint8(110), vel)
	case <-time.After(time.Second):
		t.Fatal("no note on")
	}
	select {
	case m := <-sent:
		assert.True(t, m.GetNoteOff(&ch, &key, &vel))
	case <-time.After(time.Second):
		t.Fatal("no note off")
	}
}

func TestOutputSendError(t *testing.T) {
	out := newOutput("test", GetKit("gm"), func(gomidi.Message) error {
		return errors.New("unplugged")
	}, zap.NewNop())
	assert.Error(t, out.Echo(36, 100, 9))
}

func TestWriteSMF(t *testing.T) {
	capture := performance.Capture{
		BPM: 120,
		Notes: []performance.CapturedNote{
			{Voice: beat.Kick, Velocity: 100, ElapsedMsec: 0},
			{Voice: beat.Snare, Velocity: 90, ElapsedMsec: 500},
			{Voice: beat.Rest, Velocity: 1, ElapsedMsec: 600},
			{Voice: beat.Hihat, Velocity: 80, ElapsedMsec: 250},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSMF(&buf, capture, GetKit("gm"), 9))

	mf, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, mf.Tracks, 1)

	type hit struct {
		tick int64
		key  uint8
	}
	var hits []hit
	var abs int64
	for _, ev := range mf.Tracks[0] {
		abs += int64(ev.Delta)
		var ch, key, vel uint8
		if ev.Message.GetNoteOn(&ch, &key, &vel) {
			hits = append(hits, hit{abs, key})
		}
	}
	assert.Equal(t, []hit{{0, 36}, {480, 42}, {960, 38}}, hits)
}
