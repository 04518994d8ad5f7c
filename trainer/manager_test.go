package trainer_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go-groove/beat"
	"go-groove/debug"
	"go-groove/eventlog"
	"go-groove/midi"
	"go-groove/trainer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// GM notes
const (
	kick  uint8 = 36
	snare uint8 = 38
	hihat uint8 = 42
)

var rock = beat.Source{Bars: []beat.BarSource{{
	Kick:  "k,x,x,x,k,k",
	Hihat: "h,h,h,h,h,h,h,h",
	Snare: "x,x,s,x,x,x,s",
}}}

type played struct {
	voice    beat.Voice
	velocity uint8
	delay    float64
}

type fakeOutput struct {
	mu    sync.Mutex
	notes []played
}

func (f *fakeOutput) PlayNote(voice beat.Voice, velocity, _ uint8, delayMsec float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, played{voice, velocity, delayMsec})
	return nil
}

// rawOutput also forwards notes with no voice
type rawOutput struct {
	fakeOutput
	raw []uint8
}

func (r *rawOutput) Echo(note, _, _ uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = append(r.raw, note)
	return nil
}

func newManager(t *testing.T, opts ...trainer.Option) *trainer.Manager {
	t.Helper()
	m := trainer.NewManager(append([]trainer.Option{trainer.WithSimulatedClock()}, opts...)...)
	require.NoError(t, m.SetSource(rock))
	return m
}

// playTake records a loop with early, late, missing and stray hits
func playTake(t *testing.T, m *trainer.Manager) {
	t.Helper()
	require.NoError(t, m.Record())
	hits := []struct {
		at       float64
		note     uint8
		velocity uint8
	}{
		{0, kick, 110},
		{3.25, hihat, 90},
		{262.5, hihat, 80},
		{490, hihat, 100},
		{512.125, snare, 127},
		{740, hihat, 70},
		// 1000: kick and hihat missed
		{1262, kick, 100},
		{1266, hihat, 100},
		{1400, 77, 100},  // unmapped
		{1430, kick, 60}, // nothing expects a kick here
		{1498.5, snare, 100},
		{1502, hihat, 100},
	}
	for _, h := range hits {
		require.NoError(t, m.AdvanceTo(h.at))
		m.HandleNote(h.note, h.velocity)
	}
	require.NoError(t, m.AdvanceTo(2300))
	m.Stop()
}

func kinds(t *testing.T, csv string) map[eventlog.Kind]int {
	t.Helper()
	l, err := eventlog.LoadFromCSVText(csv, nil)
	require.NoError(t, err)
	out := map[eventlog.Kind]int{}
	for _, r := range l.Records() {
		out[r.Kind()]++
	}
	return out
}

func TestReplayDeterminism(t *testing.T) {
	m := newManager(t)
	playTake(t, m)

	first := m.EventsCSV()
	counts := kinds(t, first)
	assert.Equal(t, 12, counts[eventlog.KindMIDI])
	assert.NotZero(t, counts[eventlog.KindPlayed])
	assert.NotZero(t, counts[eventlog.KindMissed])
	assert.NotZero(t, counts[eventlog.KindExtra])
	assert.NotZero(t, counts[eventlog.KindTiming])
	feedback := m.FeedbackEntries()
	capture := m.Capture()

	require.NoError(t, m.Replay())
	assert.Equal(t, first, m.EventsCSV())
	assert.Equal(t, feedback, m.FeedbackEntries())
	assert.Equal(t, capture, m.Capture())
	assert.Equal(t, "stopped", m.Status().State)
}

func TestReplayFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	m := newManager(t)
	playTake(t, m)
	require.NoError(t, m.SaveCSV(path))

	loaded, err := eventlog.LoadFromCSV(path, nil)
	require.NoError(t, err)

	other := newManager(t)
	other.LoadEvents(loaded)
	require.NoError(t, other.Replay())
	require.NoError(t, other.SaveCSV(path))

	_, err = os.Stat(eventlog.PrevPath(path))
	assert.True(t, os.IsNotExist(err), "identical save keeps no previous copy")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.EventsCSV(), string(data))
}

func TestReplayWallClockSession(t *testing.T) {
	m := trainer.NewManager()
	require.NoError(t, m.SetSource(rock))
	require.NoError(t, m.Record())
	m.HandleNote(kick, 100)
	time.Sleep(30 * time.Millisecond)
	m.HandleNote(hihat, 100)
	m.Stop()

	first := m.EventsCSV()
	require.NoError(t, m.Replay())
	assert.Equal(t, first, m.EventsCSV())
	assert.False(t, m.Status().Simulated)
}

func TestTransportNeedsBeat(t *testing.T) {
	m := trainer.NewManager(trainer.WithSimulatedClock())
	assert.ErrorIs(t, m.Record(), trainer.ErrNoBeat)
	assert.ErrorIs(t, m.Play(), trainer.ErrNoBeat)
}

func TestNotesOutsideRecordingAreNotLogged(t *testing.T) {
	out := &fakeOutput{}
	m := newManager(t, trainer.WithOutput(out, 9), trainer.WithEcho(true))

	m.HandleNote(snare, 90)
	m.HandleNote(snare, 0)
	m.HandleVoice(beat.Kick, 100)

	assert.Empty(t, kinds(t, m.EventsCSV()))
	require.Len(t, out.notes, 2)
	assert.Equal(t, played{beat.Snare, 90, 0}, out.notes[0])
	assert.Equal(t, played{beat.Kick, 100, 0}, out.notes[1])
}

func TestEchoForwardsUnmappedNotes(t *testing.T) {
	out := &rawOutput{}
	m := newManager(t, trainer.WithOutput(out, 9), trainer.WithEcho(true))

	m.HandleNote(77, 100)
	m.HandleNote(snare, 90)

	assert.Equal(t, []uint8{77}, out.raw)
	require.Len(t, out.notes, 1)
	assert.Equal(t, beat.Snare, out.notes[0].voice)

	// a plain voice player just skips them
	plain := &fakeOutput{}
	m = newManager(t, trainer.WithOutput(plain, 9), trainer.WithEcho(true))
	m.HandleNote(77, 100)
	assert.Empty(t, plain.notes)
}

func TestSetBeatWhileRecording(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Record())
	assert.Error(t, m.SetSource(rock))
	m.Stop()
	assert.NoError(t, m.SetSource(rock))
}

func TestTempoLockedWhileRunning(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.SetTempo(96))
	require.NoError(t, m.Play())
	assert.Error(t, m.SetTempo(100))
	m.Stop()
	assert.Equal(t, 96.0, m.Tempo())
}

func TestPlayerSchedulesSlots(t *testing.T) {
	out := &fakeOutput{}
	m := trainer.NewManager(
		trainer.WithSimulatedClock(),
		trainer.WithPPQN(3),
		trainer.WithOutput(out, 9),
	)
	require.NoError(t, m.SetSource(beat.Source{Bars: []beat.BarSource{{
		Kick:   "k,x,x,x,k",
		Hihat:  "x,h",
		Accent: "a",
	}}}))

	require.NoError(t, m.Play())
	require.NoError(t, m.AdvanceTo(1100))
	m.Stop()

	require.Len(t, out.notes, 3)
	assert.Equal(t, beat.Kick, out.notes[0].voice)
	assert.Equal(t, uint8(127), out.notes[0].velocity)
	assert.InDelta(t, 0, out.notes[0].delay, 1e-6)

	assert.Equal(t, beat.Hihat, out.notes[1].voice)
	assert.Equal(t, uint8(100), out.notes[1].velocity)
	assert.InDelta(t, 250-500.0/3, out.notes[1].delay, 1e-6)

	assert.Equal(t, beat.Kick, out.notes[2].voice)
	assert.InDelta(t, 0, out.notes[2].delay, 1e-6)
}

func TestStatus(t *testing.T) {
	m := newManager(t, trainer.WithKit(midi.GetKit("gm")))
	playTake(t, m)

	st := m.Status()
	assert.Equal(t, "stopped", st.State)
	assert.Equal(t, 120.0, st.BPM)
	assert.True(t, st.Simulated)
	assert.Equal(t, "General MIDI", st.Kit)
	assert.Equal(t, 8, st.Slots)
	assert.Equal(t, 1, st.Bars)
	assert.Equal(t, 11, st.Hits)
	assert.Equal(t, 3, st.Missed)
	assert.NotZero(t, st.Records)
}

func TestStopSavesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	m := newManager(t, trainer.WithAutosave(path, time.Hour))
	require.NoError(t, m.Record())
	m.HandleNote(kick, 100)
	m.Stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.EventsCSV(), string(data))
}

func TestUpdateChanNeverBlocks(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Record())
	require.NoError(t, m.AdvanceTo(5000))
	m.Stop()

	select {
	case <-m.UpdateChan:
	default:
		t.Fatal("expected a pending update")
	}
}

func TestPulsesAreTraced(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	debug.Set(zap.New(core))
	defer debug.Disable()

	m := newManager(t)
	require.NoError(t, m.Record())
	require.NoError(t, m.AdvanceTo(4000))
	m.Stop()

	traced := logs.FilterLoggerName("clock").All()
	require.NotEmpty(t, traced, "one trace per bar of pulses")
	assert.Contains(t, traced[0].Message, "recording pulse")
}
