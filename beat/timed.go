package beat

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrTimedNoteLine is wrapped by every timed-note parse failure
var ErrTimedNoteLine = errors.New("beat: bad timed-note line")

var (
	barLine   = regexp.MustCompile(`^bar,(\d+)$`)
	beatLine  = regexp.MustCompile(`^beat,(\d+)$`)
	tupleLine = regexp.MustCompile(`^tuple,(\d+),(\d+),(\d+),(\d+)$`)
	noteLine  = regexp.MustCompile(`^note,(\d+),([^,]*),\[([^\]]*)\],(\d+),(\d+),(\d+),(\d+),(\d+)$`)
)

// FormatTimedNotes renders the line-oriented notation form of a sequence
func FormatTimedNotes(seq Sequence) string {
	var b strings.Builder
	bar, beat := -1, -1
	pos, tupleStart := 0, 0
	for _, s := range seq {
		if s.Bar != bar {
			fmt.Fprintf(&b, "bar,%d\n", s.Bar)
			bar, beat = s.Bar, -1
		}
		if s.Beat != beat {
			fmt.Fprintf(&b, "beat,%d\n", s.Beat)
			beat, pos = s.Beat, 0
		}

		names := make([]string, len(s.Voices))
		for i, v := range s.Voices {
			names[i] = string(v)
		}
		fmt.Fprintf(&b, "note,%d,%s,[%s],%d,%d,%d,%d,%d\n",
			s.Index, s.Duration, strings.Join(names, ", "),
			s.Bar, s.Beat, s.Division, s.SubDivision, s.NumSubDivisions)

		if s.NumSubDivisions == 3 {
			if s.SubDivision == 0 {
				tupleStart = pos
			}
			if s.SubDivision == 2 {
				fmt.Fprintf(&b, "tuple,%d,%d,%d,%d\n", s.Bar, s.Beat, tupleStart, 3)
			}
		}
		pos++
	}
	return b.String()
}

// ParseTimedNotes reads timed-note text. Unrecognized or malformed lines are
// logged, skipped and returned alongside the slots that did parse.
func ParseTimedNotes(text string) (Sequence, []error) { return defaultCodec.ParseTimedNotes(text) }

// ParseTimedNotes reads timed-note text, see the package function
func (c *Codec) ParseTimedNotes(text string) (Sequence, []error) {
	var (
		seq  Sequence
		errs []error
	)
	fail := func(n int, line, why string) {
		err := fmt.Errorf("%w: line %d %q: %s", ErrTimedNoteLine, n, line, why)
		c.log.Warn("skipping timed-note line", zap.Int("line", n), zap.String("text", line), zap.String("reason", why))
		errs = append(errs, err)
	}

	for i, raw := range strings.Split(text, "\n") {
		n := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case barLine.MatchString(line), beatLine.MatchString(line), tupleLine.MatchString(line):
			// structural markers; the note lines carry the full position
		case strings.HasPrefix(line, "note,"):
			slot, err := parseNote(line)
			if err != nil {
				fail(n, line, err.Error())
				continue
			}
			seq = append(seq, slot)
		default:
			fail(n, line, "unrecognized")
		}
	}
	return seq, errs
}

func parseNote(line string) (NoteSlot, error) {
	m := noteLine.FindStringSubmatch(line)
	if m == nil {
		return NoteSlot{}, errors.New("malformed note")
	}
	ints := make([]int, 0, 6)
	for _, idx := range []int{1, 4, 5, 6, 7, 8} {
		v, err := strconv.Atoi(m[idx])
		if err != nil {
			return NoteSlot{}, err
		}
		ints = append(ints, v)
	}
	slot := NoteSlot{
		Index:           ints[0],
		Bar:             ints[1],
		Beat:            ints[2],
		Division:        ints[3],
		SubDivision:     ints[4],
		NumSubDivisions: ints[5],
	}
	if slot.NumSubDivisions < 1 || slot.NumSubDivisions > 3 || slot.SubDivision >= slot.NumSubDivisions {
		return NoteSlot{}, fmt.Errorf("subdivision %d/%d out of range", slot.SubDivision, slot.NumSubDivisions)
	}
	if slot.Beat >= BeatsPerBar || slot.Division >= DivisionsPerBeat {
		return NoteSlot{}, fmt.Errorf("position %d.%d outside the bar", slot.Beat, slot.Division)
	}

	for _, name := range strings.Split(m[3], ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if v, ok := ParseVoice(name); ok {
			slot.Voices = append(slot.Voices, v)
		}
	}
	if len(slot.Voices) == 0 {
		slot.Voices = []Voice{Rest}
	}
	SortVoices(slot.Voices)

	slot.Duration = Duration(m[2])
	if slot.Duration == "" {
		slot.Duration = DurationFor(slot.NumSubDivisions)
	}
	return slot, nil
}
