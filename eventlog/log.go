package eventlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrUnknownKind  = errors.New("eventlog: unknown record type")
	ErrMalformedRow = errors.New("eventlog: malformed row")
	ErrBadHeader    = errors.New("eventlog: unexpected CSV header")
)

// Header columns of the CSV form
var Columns = []string{"timestamp", "noteIndex", "type", "note", "timing", "velocity"}

// Log is an append-only list of session events
type Log struct {
	records []Record
	log     *zap.Logger
}

// New creates an empty log
func New(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log.Named("eventlog")}
}

// Append adds a record
func (l *Log) Append(r Record) {
	l.records = append(l.records, r)
}

// Clear drops every record
func (l *Log) Clear() {
	l.records = nil
}

// Len returns the number of records
func (l *Log) Len() int {
	return len(l.records)
}

// Records returns a copy of the records in order
func (l *Log) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// WriteCSV writes the header and one row per record
func (l *Log) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range l.records {
		c, ok := codecs[r.Kind()]
		if !ok {
			return fmt.Errorf("%w: %v", ErrUnknownKind, r.Kind())
		}
		h := r.Head()
		f := c.encode(r)
		row := []string{
			formatFloat(h.TimestampMsec),
			strconv.Itoa(h.NoteIndex),
			r.Kind().String(),
			f.note,
			f.timing,
			f.velocity,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToCSV renders the log as CSV text
func (l *Log) ToCSV() string {
	var buf bytes.Buffer
	if err := l.WriteCSV(&buf); err != nil {
		l.log.Error("render csv", zap.Error(err))
	}
	return buf.String()
}

// PrevPath returns where SaveToCSV keeps the previous version of path
func PrevPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-prev" + ext
}

// SaveToCSV writes the log to path. An existing file with different
// content is first copied to PrevPath(path).
func (l *Log) SaveToCSV(path string) error {
	data := l.ToCSV()

	prev, err := os.ReadFile(path)
	switch {
	case err == nil:
		if string(prev) == data {
			return nil
		}
		if err := os.WriteFile(PrevPath(path), prev, 0644); err != nil {
			return fmt.Errorf("eventlog: keep previous %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
	default:
		return err
	}

	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("eventlog: save %s: %w", path, err)
	}
	l.log.Debug("saved", zap.String("path", path), zap.Int("records", len(l.records)))
	return nil
}

// LoadFromCSVText parses CSV produced by WriteCSV
func LoadFromCSVText(text string, log *zap.Logger) (*Log, error) {
	l := New(log)
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = len(Columns)

	head, err := r.Read()
	if err == io.EOF {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if strings.Join(head, ",") != strings.Join(Columns, ",") {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, head)
	}

	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		rec, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		l.Append(rec)
	}
	return l, nil
}

// LoadFromCSV reads a CSV file written by SaveToCSV
func LoadFromCSV(path string, log *zap.Logger) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadFromCSVText(string(data), log)
}

func decodeRow(row []string) (Record, error) {
	ts, err := parseFloat(row[0], "timestamp")
	if err != nil {
		return nil, err
	}
	idx, err := strconv.Atoi(row[1])
	if err != nil {
		return nil, fmt.Errorf("%w: noteIndex %q", ErrMalformedRow, row[1])
	}
	kind, err := ParseKind(row[2])
	if err != nil {
		return nil, err
	}
	return codecs[kind].decode(Header{TimestampMsec: ts, NoteIndex: idx}, fields{note: row[3], timing: row[4], velocity: row[5]})
}

// Replay drains the log and drives e with the recorded inputs.
// Derived records are not replayed; e regenerates them into this log.
func (l *Log) Replay(e Engine) error {
	snapshot := l.records
	l.records = nil

	if err := e.ResetForReplay(); err != nil {
		l.records = snapshot
		return fmt.Errorf("eventlog: reset for replay: %w", err)
	}
	for i, r := range snapshot {
		if err := codecs[r.Kind()].replay(e, r); err != nil {
			return fmt.Errorf("eventlog: replay record %d (%s): %w", i, r.Kind(), err)
		}
	}
	l.log.Debug("replayed", zap.Int("records", len(snapshot)), zap.Int("result", len(l.records)))
	return nil
}
