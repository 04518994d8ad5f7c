package clock

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	pulses []Pulse
	states []State
	resets []State
}

func (r *recorder) listen(ev Event) {
	switch ev.Kind {
	case PulseEvent:
		r.pulses = append(r.pulses, ev.Pulse)
	case StateEvent:
		r.states = append(r.states, ev.State)
	case ResetEvent:
		r.resets = append(r.resets, ev.State)
	}
}

func simulated(t *testing.T, opts ...Option) (*Clock, *recorder) {
	t.Helper()
	c := New(opts...)
	require.NoError(t, c.StartSimulatedClock())
	r := &recorder{}
	c.Subscribe(r.listen)
	return c, r
}

func TestPulseInterval(t *testing.T) {
	c := New(WithTempo(120), WithPPQN(24))
	assert.InDelta(t, 60000.0/(120*24), c.PulseIntervalMsec(), 1e-12)
}

func TestPulsesInOrder(t *testing.T) {
	assert := assert.New(t)
	c, r := simulated(t, WithTempo(120), WithPPQN(4))

	c.Play()
	require.Len(t, r.pulses, 1)
	assert.Equal(Pulse{ElapsedMsec: 0, Num: 0}, r.pulses[0])
	assert.Equal([]State{Playing}, r.states)

	require.NoError(t, c.AdvanceBy(100))
	assert.Len(r.pulses, 1)

	// one big jump catches up on every missed pulse
	require.NoError(t, c.AdvanceBy(900))
	require.Len(t, r.pulses, 9)
	for i, p := range r.pulses {
		assert.Equal(int64(i), p.Num)
		assert.InDelta(float64(i)*125, p.ElapsedMsec, 1e-9)
	}
	assert.InDelta(1000.0, c.Elapsed(), 1e-9)
}

func TestTransport(t *testing.T) {
	assert := assert.New(t)
	c, r := simulated(t)

	c.Record()
	assert.True(c.IsRecording())
	assert.False(c.IsPlaying())

	c.Play()
	assert.True(c.IsPlaying())
	assert.False(c.IsRecording())

	require.NoError(t, c.AdvanceTo(500))
	c.Stop()
	assert.False(c.Running())
	assert.InDelta(500.0, c.Elapsed(), 1e-9)
	assert.Equal([]State{Recording, Playing, Stopped}, r.states)

	n := len(r.pulses)
	require.NoError(t, c.AdvanceBy(1000))
	assert.Len(r.pulses, n, "no pulses while stopped")

	c.Stop()
	assert.Len(r.states, 3, "stopping twice emits nothing")
}

func TestReset(t *testing.T) {
	c, r := simulated(t, WithPPQN(2))
	c.Record()
	require.NoError(t, c.AdvanceBy(1000))
	assert.Len(t, r.pulses, 5)

	c.Reset()
	assert.Equal(t, []State{Recording}, r.resets)
	assert.Equal(t, []State{Recording}, r.states, "reset is not a transport change")
	assert.True(t, c.IsRecording())
	assert.InDelta(t, 0.0, c.Elapsed(), 1e-9)
	require.Len(t, r.pulses, 6)
	assert.Equal(t, int64(0), r.pulses[5].Num)
}

func TestAdvanceTo(t *testing.T) {
	c, r := simulated(t, WithPPQN(1))
	c.Record()
	require.NoError(t, c.AdvanceTo(1000))
	assert.Len(t, r.pulses, 3)
	require.NoError(t, c.AdvanceTo(1000))
	assert.Len(t, r.pulses, 3)

	err := c.AdvanceTo(200)
	assert.True(t, errors.Is(err, ErrTimeReversal))
	assert.True(t, errors.Is(c.AdvanceBy(-1), ErrTimeReversal))
}

func TestSetTempo(t *testing.T) {
	c := New()
	require.NoError(t, c.SetTempo(500))
	assert.Equal(t, MaxTempo, c.BPM())
	require.NoError(t, c.SetTempo(1))
	assert.Equal(t, MinTempo, c.BPM())

	require.NoError(t, c.StartSimulatedClock())
	c.Play()
	assert.ErrorIs(t, c.SetTempo(100), ErrRunning)
}

func TestRealTimerExclusive(t *testing.T) {
	var mu sync.Mutex
	c := New(WithLocker(&mu))

	mu.Lock()
	assert.ErrorIs(t, c.AdvanceBy(10), ErrNotSimulated)
	c.Play()
	assert.ErrorIs(t, c.AdvanceBy(10), ErrRealTimerActive)
	assert.ErrorIs(t, c.StartSimulatedClock(), ErrRealTimerActive)
	c.Stop()
	assert.NoError(t, c.StartSimulatedClock())
	assert.True(t, c.Simulated())
	mu.Unlock()
}

func TestSnapshot(t *testing.T) {
	c, _ := simulated(t, WithTempo(90), WithPPQN(24))
	c.Record()
	require.NoError(t, c.AdvanceBy(250))

	s := c.Snapshot()
	assert.Equal(t, 90.0, s.BPM)
	assert.True(t, s.Running)
	assert.True(t, s.Recording)
	assert.True(t, s.Simulated)
	assert.InDelta(t, 250.0, s.ElapsedMsec, 1e-9)
	assert.Equal(t, int64(10), s.NextPulseNum)
}
