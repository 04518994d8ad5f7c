package beat

import (
	"strings"

	"go.uber.org/zap"
)

// BarSource is the persisted form of one bar: one comma-separated token list per voice
type BarSource struct {
	Kick   string `json:"kick"`
	Hihat  string `json:"hihat"`
	Snare  string `json:"snare"`
	Accent string `json:"accent"`
}

// Source is a whole pattern in bar-string form
type Source struct {
	Bars []BarSource `json:"bars"`
}

func (b BarSource) track(v Voice) string {
	switch v {
	case Kick:
		return b.Kick
	case Hihat:
		return b.Hihat
	case Snare:
		return b.Snare
	case Accent:
		return b.Accent
	}
	return ""
}

func (b *BarSource) setTrack(v Voice, s string) {
	switch v {
	case Kick:
		b.Kick = s
	case Hihat:
		b.Hihat = s
	case Snare:
		b.Snare = s
	case Accent:
		b.Accent = s
	}
}

// Codec converts between bar strings, slots and timed-note text
type Codec struct {
	log *zap.Logger
}

// NewCodec creates a codec that reports skipped input to log
func NewCodec(log *zap.Logger) *Codec {
	if log == nil {
		log = zap.NewNop()
	}
	return &Codec{log: log.Named("beat")}
}

var defaultCodec = NewCodec(nil)

// Decode expands bar strings into slots
func Decode(src Source) Sequence { return defaultCodec.Decode(src) }

// Encode collapses slots into bar strings
func Encode(seq Sequence) Source { return defaultCodec.Encode(seq) }

func splitTokens(track string) []string {
	if strings.TrimSpace(track) == "" {
		return nil
	}
	parts := strings.Split(track, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Decode expands bar strings into slots.
// Within a division the longest token decides the split: length 1 is a plain 8th,
// 2 is a pair of 16ths, 3 or more is a 16th triplet. Shorter tokens in a split
// division are read by position.
func (c *Codec) Decode(src Source) Sequence {
	var seq Sequence
	for barNum, bar := range src.Bars {
		tracks := make([][]string, len(Voices))
		divisions := 0
		for i, v := range Voices {
			tracks[i] = splitTokens(bar.track(v))
			if len(tracks[i]) > divisions {
				divisions = len(tracks[i])
			}
		}
		if divisions > DivisionsPerBar {
			c.log.Warn("ignoring divisions past the end of the bar",
				zap.Int("bar", barNum), zap.Int("divisions", divisions))
			divisions = DivisionsPerBar
		}

		for d := 0; d < divisions; d++ {
			tokens := make([]string, len(Voices))
			longest := 0
			for i := range Voices {
				if d < len(tracks[i]) {
					tokens[i] = tracks[i][d]
				}
				if len(tokens[i]) > longest {
					longest = len(tokens[i])
				}
			}

			split := 1
			switch {
			case longest >= 3:
				split = 3
			case longest == 2:
				split = 2
			}

			for sub := 0; sub < split; sub++ {
				var voices []Voice
				for i, v := range Voices {
					tok := tokens[i]
					var present bool
					if split == 1 {
						present = strings.IndexByte(tok, v.Marker()) >= 0
					} else {
						present = sub < len(tok) && tok[sub] == v.Marker()
					}
					if present {
						voices = append(voices, v)
					}
				}
				if len(voices) == 0 {
					voices = []Voice{Rest}
				}
				seq = append(seq, NoteSlot{
					Index:           len(seq),
					Bar:             barNum,
					Beat:            d / DivisionsPerBeat,
					Division:        d % DivisionsPerBeat,
					SubDivision:     sub,
					NumSubDivisions: split,
					Voices:          voices,
					Duration:        DurationFor(split),
				})
			}
		}
	}
	return seq
}

// Encode collapses slots into bar strings.
// Trailing divisions with nothing struck are dropped, but every bar keeps its first division.
func (c *Codec) Encode(seq Sequence) Source {
	bars := seq.Bars()
	if bars <= 0 {
		return Source{}
	}

	// grid[bar][division] holds the slots of that 8th in order
	grid := make([][DivisionsPerBar][]NoteSlot, bars)
	for _, s := range seq {
		d := s.DivisionIndex()
		if s.Bar < 0 || d < 0 || d >= DivisionsPerBar {
			c.log.Warn("slot outside the grid", zap.Int("index", s.Index))
			continue
		}
		grid[s.Bar][d] = append(grid[s.Bar][d], s)
	}

	src := Source{Bars: make([]BarSource, bars)}
	for b := 0; b < bars; b++ {
		last := 0
		for d := 0; d < DivisionsPerBar; d++ {
			for _, s := range grid[b][d] {
				if !s.IsRest() {
					last = d
				}
			}
		}

		tokens := make([][]string, len(Voices))
		for d := 0; d <= last; d++ {
			slots := grid[b][d]
			split := 1
			for _, s := range slots {
				if s.NumSubDivisions > split {
					split = s.NumSubDivisions
				}
			}
			if split > 3 {
				split = 3
			}
			for i, v := range Voices {
				tok := []byte(strings.Repeat(string(MissMarker), split))
				for _, s := range slots {
					if s.Has(v) && s.SubDivision >= 0 && s.SubDivision < split {
						tok[s.SubDivision] = v.Marker()
					}
				}
				tokens[i] = append(tokens[i], string(tok))
			}
		}
		for i, v := range Voices {
			src.Bars[b].setTrack(v, strings.Join(tokens[i], ","))
		}
	}
	return src
}
