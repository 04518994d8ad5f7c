package beat_test

import (
	"testing"

	"go-groove/beat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicRock() beat.Source {
	return beat.Source{Bars: []beat.BarSource{{
		Kick:   "k,x,x,x,k,k,x,x",
		Hihat:  "h,h,h,h,h,h,h,h",
		Snare:  "x,x,s,x,x,x,s,x",
		Accent: "a,x,x,x,x,x,x,x",
	}}}
}

func TestDecode(t *testing.T) {
	t.Run("plain eighths", func(t *testing.T) {
		assert := assert.New(t)
		seq := beat.Decode(basicRock())
		require.Len(t, seq, 8)

		assert.Equal([]beat.Voice{beat.Kick, beat.Hihat, beat.Accent}, seq[0].Voices)
		assert.Equal([]beat.Voice{beat.Hihat}, seq[1].Voices)
		assert.Equal([]beat.Voice{beat.Hihat, beat.Snare}, seq[2].Voices)
		for i, s := range seq {
			assert.Equal(i, s.Index)
			assert.Equal(i/2, s.Beat)
			assert.Equal(i%2, s.Division)
			assert.Equal(1, s.NumSubDivisions)
			assert.Equal(beat.Eighth, s.Duration)
		}
	})

	t.Run("sixteenths and triplets", func(t *testing.T) {
		assert := assert.New(t)
		seq := beat.Decode(beat.Source{Bars: []beat.BarSource{{
			Kick:  "kx,kxk",
			Hihat: "hh,x",
		}}})
		require.Len(t, seq, 5)

		assert.Equal([]beat.Voice{beat.Kick, beat.Hihat}, seq[0].Voices)
		assert.Equal([]beat.Voice{beat.Hihat}, seq[1].Voices)
		assert.Equal(2, seq[1].NumSubDivisions)
		assert.Equal(beat.Sixteenth, seq[1].Duration)

		assert.Equal(0, seq[2].Beat)
		assert.Equal(1, seq[2].Division)
		assert.Equal(3, seq[2].NumSubDivisions)
		assert.Equal(beat.TripletSixteenth, seq[2].Duration)
		assert.Equal([]beat.Voice{beat.Kick}, seq[2].Voices)
		assert.Equal([]beat.Voice{beat.Rest}, seq[3].Voices)
		assert.Equal([]beat.Voice{beat.Kick}, seq[4].Voices)
		assert.Equal(4, seq[4].Index)
	})

	t.Run("mixed token lengths read by position", func(t *testing.T) {
		seq := beat.Decode(beat.Source{Bars: []beat.BarSource{{
			Kick:  "k",
			Hihat: "xh",
		}}})
		require.Len(t, seq, 2)
		assert.Equal(t, []beat.Voice{beat.Kick}, seq[0].Voices)
		assert.Equal(t, []beat.Voice{beat.Hihat}, seq[1].Voices)
	})

	t.Run("long tokens clamp to triplets", func(t *testing.T) {
		seq := beat.Decode(beat.Source{Bars: []beat.BarSource{{Snare: "xxsxs"}}})
		require.Len(t, seq, 3)
		assert.Equal(t, []beat.Voice{beat.Snare}, seq[2].Voices)
	})

	t.Run("unknown characters decode to rest", func(t *testing.T) {
		seq := beat.Decode(beat.Source{Bars: []beat.BarSource{{Kick: "q,k"}}})
		require.Len(t, seq, 2)
		assert.Equal(t, []beat.Voice{beat.Rest}, seq[0].Voices)
		assert.Equal(t, []beat.Voice{beat.Kick}, seq[1].Voices)
	})

	t.Run("divisions past the bar are ignored", func(t *testing.T) {
		seq := beat.Decode(beat.Source{Bars: []beat.BarSource{{Hihat: "h,h,h,h,h,h,h,h,h,h"}}})
		assert.Len(t, seq, 8)
	})

	t.Run("index runs across bars", func(t *testing.T) {
		seq := beat.Decode(beat.Source{Bars: []beat.BarSource{{Kick: "k,k"}, {Kick: "k"}}})
		require.Len(t, seq, 3)
		assert.Equal(t, 1, seq[2].Bar)
		assert.Equal(t, 2, seq[2].Index)
	})
}

func TestEncode(t *testing.T) {
	t.Run("trims trailing rests", func(t *testing.T) {
		src := beat.Encode(beat.Decode(beat.Source{Bars: []beat.BarSource{{
			Kick:  "k,x,k,x,x,x,x,x",
			Hihat: "h,h,h,x,x,x,x,x",
		}}}))
		require.Len(t, src.Bars, 1)
		assert.Equal(t, "k,x,k", src.Bars[0].Kick)
		assert.Equal(t, "h,h,h", src.Bars[0].Hihat)
		assert.Equal(t, "x,x,x", src.Bars[0].Snare)
	})

	t.Run("empty bar keeps one division", func(t *testing.T) {
		seq := beat.Sequence{
			{Index: 0, Bar: 0, NumSubDivisions: 1, Voices: []beat.Voice{beat.Kick}, Duration: beat.Eighth},
			{Index: 1, Bar: 1, NumSubDivisions: 1, Voices: []beat.Voice{beat.Rest}, Duration: beat.Eighth},
		}
		src := beat.Encode(seq)
		require.Len(t, src.Bars, 2)
		assert.Equal(t, "x", src.Bars[1].Kick)
		assert.Equal(t, seq, beat.Decode(src))
	})

	t.Run("subdivisions", func(t *testing.T) {
		src := beat.Encode(beat.Decode(beat.Source{Bars: []beat.BarSource{{
			Kick:  "kx,kxk",
			Snare: "xs",
		}}}))
		assert.Equal(t, "kx,kxk", src.Bars[0].Kick)
		assert.Equal(t, "xs,xxx", src.Bars[0].Snare)
	})
}

func TestRoundTrip(t *testing.T) {
	sources := []beat.Source{
		basicRock(),
		{Bars: []beat.BarSource{
			{Kick: "k,x,k,x", Hihat: "hh,hh,hh,hh", Snare: "x,xs,x,s"},
			{Kick: "k,k,x,k,x,x,x,k", Hihat: "h,h,h,h,h,h,h,h", Accent: "x,x,x,x,x,x,x,a"},
		}},
		{Bars: []beat.BarSource{{Kick: "kxk,x,k", Hihat: "hhh,h,h"}}},
	}
	for _, src := range sources {
		seq := beat.Decode(src)
		again := beat.Decode(beat.Encode(seq))
		assert.Equal(t, seq, again)
	}
}

func TestLoopTiming(t *testing.T) {
	assert := assert.New(t)
	seq := beat.Decode(beat.Source{Bars: []beat.BarSource{{Kick: "k"}, {Kick: "kxk,h"}}})

	assert.Equal(2, seq.Bars())
	assert.InDelta(4000.0, seq.LoopLengthMsec(120), 1e-9)
	assert.InDelta(2000.0, beat.IdealTimeMsec(seq[1], 120), 1e-9)
	assert.InDelta(2000.0+250.0*2/3, beat.IdealTimeMsec(seq[3], 120), 1e-9)
	assert.InDelta(2250.0, beat.IdealTimeMsec(seq[4], 120), 1e-9)

	s, ok := seq.Slot(-1)
	assert.True(ok)
	assert.Equal(seq[4], s)
	_, ok = beat.Sequence(nil).Slot(0)
	assert.False(ok)
}

func TestStruckVoices(t *testing.T) {
	s := beat.NoteSlot{Voices: []beat.Voice{beat.Kick, beat.Accent}}
	assert.Equal(t, []beat.Voice{beat.Kick}, s.StruckVoices())
	assert.True(t, s.Accented())
	assert.False(t, s.IsRest())
	assert.True(t, beat.NoteSlot{Voices: []beat.Voice{beat.Rest}}.IsRest())
}
