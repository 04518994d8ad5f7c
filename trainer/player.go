package trainer

import (
	"math"

	"go-groove/beat"
	"go-groove/clock"
	"go-groove/midi"
	"go-groove/performance"

	"go.uber.org/zap"
)

const epsilon = 1e-6

// player sounds the loaded beat while the clock is playing. Each pulse
// schedules the slots that fall before the next pulse.
type player struct {
	out     midi.NotePlayer
	channel uint8
	log     *zap.Logger
}

func newPlayer(out midi.NotePlayer, channel uint8, log *zap.Logger) *player {
	return &player{out: out, channel: channel, log: log.Named("player")}
}

func (p *player) pulse(seq beat.Sequence, bpm, interval float64, pl clock.Pulse) {
	if len(seq) == 0 {
		return
	}
	loop := seq.LoopLengthMsec(bpm)
	now := math.Mod(pl.ElapsedMsec, loop)
	for _, s := range seq {
		offset := math.Mod(beat.IdealTimeMsec(s, bpm)-now+loop, loop)
		if offset > loop-epsilon {
			offset = 0
		}
		if offset >= interval-epsilon {
			continue
		}
		vel := uint8(performance.ExpectedVelocity(s))
		for _, v := range s.StruckVoices() {
			if err := p.out.PlayNote(v, vel, p.channel, offset); err != nil {
				p.log.Warn("play", zap.String("voice", string(v)), zap.Error(err))
			}
		}
	}
}
