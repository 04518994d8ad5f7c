package eventlog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go-groove/beat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Log {
	l := New(nil)
	l.Append(TimingRecord{Header{0, 0}})
	l.Append(MIDIRecord{Header{12.5, 0}, 36, 101})
	l.Append(PlayedRecord{Header{12.5, 0}, beat.Kick, 12.5, 101})
	l.Append(TimingRecord{Header{20.833333333333332, 0}})
	l.Append(MIDIRecord{Header{130.25, 1}, 50, 64})
	l.Append(ExtraRecord{Header{130.25, 1}, beat.Snare, 64})
	l.Append(MissedRecord{Header{250, 1}, beat.Hihat})
	return l
}

func TestWriteCSV(t *testing.T) {
	want := "timestamp,noteIndex,type,note,timing,velocity\n" +
		"0,0,timing,,,\n" +
		"12.5,0,midi,36,,101\n" +
		"12.5,0,played,kick,12.5,101\n" +
		"20.833333333333332,0,timing,,,\n" +
		"130.25,1,midi,50,,64\n" +
		"130.25,1,extra,snare,,64\n" +
		"250,1,missed,hihat,,\n"
	assert.Equal(t, want, sample().ToCSV())
}

func TestLoadFromCSVText(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		orig := sample()
		loaded, err := LoadFromCSVText(orig.ToCSV(), nil)
		require.NoError(t, err)
		assert.Equal(t, orig.Records(), loaded.Records())
		assert.Equal(t, orig.ToCSV(), loaded.ToCSV())
	})

	t.Run("empty", func(t *testing.T) {
		l, err := LoadFromCSVText("", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, l.Len())
	})

	t.Run("errors", func(t *testing.T) {
		_, err := LoadFromCSVText("a,b,c,d,e,f\n", nil)
		assert.True(t, errors.Is(err, ErrBadHeader))

		_, err = LoadFromCSVText("timestamp,noteIndex,type,note,timing,velocity\n1,0,cowbell,,,\n", nil)
		assert.True(t, errors.Is(err, ErrUnknownKind))

		_, err = LoadFromCSVText("timestamp,noteIndex,type,note,timing,velocity\n1,0,midi,300,,1\n", nil)
		assert.True(t, errors.Is(err, ErrMalformedRow))
	})
}

func TestSaveToCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session", "events.csv")

	l := New(nil)
	l.Append(TimingRecord{Header{0, 0}})
	require.NoError(t, l.SaveToCSV(path))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = os.Stat(PrevPath(path))
	assert.True(t, os.IsNotExist(err))

	l.Append(TimingRecord{Header{10, 0}})
	require.NoError(t, l.SaveToCSV(path))

	prev, err := os.ReadFile(filepath.Join(dir, "session", "events-prev.csv"))
	require.NoError(t, err)
	assert.Equal(t, first, prev)

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, l.ToCSV(), string(cur))
}

type call struct {
	op       string
	at       float64
	note     uint8
	velocity uint8
}

type fakeEngine struct {
	log   *Log
	calls []call
	fail  error
}

func (f *fakeEngine) ResetForReplay() error {
	f.calls = append(f.calls, call{op: "reset"})
	return f.fail
}

func (f *fakeEngine) AdvanceTo(ms float64) error {
	f.calls = append(f.calls, call{op: "advance", at: ms})
	f.log.Append(TimingRecord{Header{ms, 0}})
	return nil
}

func (f *fakeEngine) InjectNote(note, velocity uint8, at float64) error {
	f.calls = append(f.calls, call{op: "note", at: at, note: note, velocity: velocity})
	f.log.Append(MIDIRecord{Header{at, 0}, note, velocity})
	return nil
}

func TestReplay(t *testing.T) {
	t.Run("drives inputs only", func(t *testing.T) {
		l := sample()
		e := &fakeEngine{log: l}
		require.NoError(t, l.Replay(e))

		assert.Equal(t, []call{
			{op: "reset"},
			{op: "advance", at: 0},
			{op: "note", at: 12.5, note: 36, velocity: 101},
			{op: "advance", at: 20.833333333333332},
			{op: "note", at: 130.25, note: 50, velocity: 64},
		}, e.calls)
		assert.Equal(t, 4, l.Len())
	})

	t.Run("reset failure keeps records", func(t *testing.T) {
		l := sample()
		e := &fakeEngine{log: l, fail: errors.New("busy")}
		assert.Error(t, l.Replay(e))
		assert.Equal(t, 7, l.Len())
	})
}

func TestPrevPath(t *testing.T) {
	assert.Equal(t, "/tmp/a/events-prev.csv", PrevPath("/tmp/a/events.csv"))
	assert.Equal(t, "log-prev", PrevPath("log"))
}
