package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-groove/beat"
	"go-groove/eventlog"
	"go-groove/midi"
	"go-groove/trainer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shuffle = beat.Source{Bars: []beat.BarSource{{
	Kick:  "k,x,x,x,k",
	Hihat: "h,h,h,h,h,h,h,h",
	Snare: "x,x,s,x,x,x,s",
}}}

// execute runs the root command with args in a throwaway config directory
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GO_GROOVE_HOME", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestBeatDecodeEncode(t *testing.T) {
	dir := t.TempDir()
	pattern := writeJSON(t, dir, "shuffle.json", shuffle)

	timed, err := execute(t, "beat", "decode", pattern)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(timed, "bar,0\nbeat,0\n"))
	assert.Equal(t, beat.FormatTimedNotes(beat.Decode(shuffle)), timed)

	txt := filepath.Join(dir, "shuffle.txt")
	require.NoError(t, os.WriteFile(txt, []byte(timed), 0o644))
	out, err := execute(t, "beat", "encode", txt)
	require.NoError(t, err)

	var src beat.Source
	require.NoError(t, json.Unmarshal([]byte(out), &src))
	assert.Equal(t, beat.Decode(shuffle), beat.Decode(src))
}

func TestBeatEncodeRejectsGarbage(t *testing.T) {
	txt := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello\n"), 0o644))
	_, err := execute(t, "beat", "encode", txt)
	assert.ErrorIs(t, err, beat.ErrTimedNoteLine)
}

func recordTake(t *testing.T, bpm float64) string {
	t.Helper()
	m := trainer.NewManager(trainer.WithSimulatedClock(), trainer.WithTempo(bpm))
	require.NoError(t, m.SetSource(shuffle))
	require.NoError(t, m.Record())
	for _, h := range []struct {
		at   float64
		note uint8
	}{{0, 36}, {2, 42}, {251, 42}, {498, 38}, {505, 42}, {1010, 36}} {
		require.NoError(t, m.AdvanceTo(h.at))
		m.HandleNote(h.note, 100)
	}
	require.NoError(t, m.AdvanceTo(2400))
	m.Stop()
	return m.EventsCSV()
}

func TestReplayCheck(t *testing.T) {
	dir := t.TempDir()
	pattern := writeJSON(t, dir, "shuffle.json", shuffle)
	events := filepath.Join(dir, "events.csv")
	require.NoError(t, os.WriteFile(events, []byte(recordTake(t, 100)), 0o644))

	out, err := execute(t, "replay", events, "--pattern", pattern, "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "replay identically at 100 bpm")

	_, err = execute(t, "replay", events, "--pattern", pattern, "--check", "--bpm", "90")
	assert.ErrorIs(t, err, errReplayDiffers)

	replayed := filepath.Join(dir, "replayed.csv")
	_, err = execute(t, "replay", events, "--pattern", pattern, "--check=false", "--bpm", "0", "-o", replayed)
	require.NoError(t, err)
	want, _ := os.ReadFile(events)
	got, _ := os.ReadFile(replayed)
	assert.Equal(t, string(want), string(got))
}

func TestInferTempo(t *testing.T) {
	for _, bpm := range []float64{60, 97.5, 120, 173} {
		l, err := eventlog.LoadFromCSVText(recordTake(t, bpm), nil)
		require.NoError(t, err)
		got, ok := inferTempo(l, 24)
		require.True(t, ok)
		assert.Equal(t, bpm, got)
	}

	_, ok := inferTempo(eventlog.New(nil), 24)
	assert.False(t, ok)
}

func TestFirstDiff(t *testing.T) {
	_, same := firstDiff("a\nb\n", "a\nb\n")
	assert.True(t, same)
	line, same := firstDiff("a\nb\n", "a\nc\n")
	assert.False(t, same)
	assert.Equal(t, 2, line)
	line, _ = firstDiff("a\n", "a\nb\n")
	assert.Equal(t, 2, line)
}

func TestLookupKit(t *testing.T) {
	kit, err := lookupKit("")
	require.NoError(t, err)
	assert.Equal(t, midi.GetKit(midi.DefaultKit), kit)

	kit, err = lookupKit("rd8")
	require.NoError(t, err)
	assert.Equal(t, "Behringer RD-8", kit.Name)

	_, err = lookupKit("cowbell")
	assert.ErrorContains(t, err, "gm, rd8, td, tr8s")
	assert.Contains(t, practiceCmd.Flag("kit").Usage, "gm, rd8, td, tr8s")
}
