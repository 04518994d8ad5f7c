package widgets

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go-groove/beat"
)

// Mark is the outcome of a slot on its last pass
type Mark int

const (
	Unplayed Mark = iota
	Played
	Missed
)

// GridSymbols are the characters a PatternGrid draws with
type GridSymbols struct {
	Rest, Note, Accent, Played, Missed, Cursor rune
}

// GridColors are the colors a PatternGrid draws with
type GridColors struct {
	Label, Note, Played, Missed, Cursor [3]uint8
}

// PatternGrid renders a sequence with one row per voice and one column per slot.
// Bars are separated by │ and the first slot of each beat is numbered.
type PatternGrid struct {
	Seq     beat.Sequence
	Cursor  int // -1 hides the cursor
	Marks   map[int]Mark
	Symbols GridSymbols
	Colors  GridColors
}

var voiceLabels = map[beat.Voice]string{
	beat.Kick:   "kick",
	beat.Hihat:  "hihat",
	beat.Snare:  "snare",
	beat.Accent: "accent",
}

const labelWidth = 7

func (g PatternGrid) View() string {
	if len(g.Seq) == 0 {
		return "(no beat loaded)"
	}

	var header strings.Builder
	header.WriteString(strings.Repeat(" ", labelWidth))
	for i, s := range g.Seq {
		header.WriteString(barSeparator(i, s, " "))
		switch {
		case i == g.Cursor:
			header.WriteString(colorize(g.Colors.Cursor, string(g.Symbols.Cursor)))
		case s.Division == 0 && s.SubDivision == 0:
			header.WriteString(strconv.Itoa(s.Beat + 1))
		default:
			header.WriteString(" ")
		}
	}

	lines := []string{header.String()}
	for _, v := range beat.Voices {
		var line strings.Builder
		line.WriteString(colorize(g.Colors.Label, fmt.Sprintf("%-*s", labelWidth, voiceLabels[v])))
		for i, s := range g.Seq {
			line.WriteString(barSeparator(i, s, "│"))
			line.WriteString(g.cell(i, s, v))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func barSeparator(i int, s beat.NoteSlot, sep string) string {
	if i > 0 && s.Beat == 0 && s.Division == 0 && s.SubDivision == 0 {
		return sep
	}
	return ""
}

func (g PatternGrid) cell(i int, s beat.NoteSlot, v beat.Voice) string {
	if !s.Has(v) {
		return string(g.Symbols.Rest)
	}
	if v == beat.Accent {
		return colorize(g.Colors.Note, string(g.Symbols.Accent))
	}
	switch g.Marks[i] {
	case Played:
		return colorize(g.Colors.Played, string(g.Symbols.Played))
	case Missed:
		return colorize(g.Colors.Missed, string(g.Symbols.Missed))
	}
	return colorize(g.Colors.Note, string(g.Symbols.Note))
}

// RenderTimingMeter draws a hit's timing error on a line of width cells:
// the center is dead on, the left edge a tolerance early, the right edge a tolerance late.
func RenderTimingMeter(diffMsec, toleranceMsec float64, width int) string {
	if width < 3 {
		width = 3
	}
	if width%2 == 0 {
		width++
	}
	center := width / 2
	pos := center
	if toleranceMsec > 0 {
		offset := int(math.Round(diffMsec / toleranceMsec * float64(center)))
		pos = min(max(center+offset, 0), width-1)
	}

	cells := []rune(strings.Repeat("─", width))
	cells[center] = '┼'
	cells[pos] = '●'
	return string(cells)
}
