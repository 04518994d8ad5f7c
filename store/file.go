package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// timestampFormat prefixes performance filenames so a listing sorts by age
const timestampFormat = "2006-01-02_15-04-05"

// FileStore keeps one JSON file per beat and per performance under a directory
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) beatsDir() string        { return filepath.Join(s.dir, "beats") }
func (s *FileStore) performancesDir() string { return filepath.Join(s.dir, "performances") }

func (s *FileStore) beatPath(id string) string {
	return filepath.Join(s.beatsDir(), sanitizeFilename(id)+".json")
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// jsonFiles lists the .json files of dir, missing dir reads as empty
func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (s *FileStore) LoadBeatByID(_ context.Context, id string) (*Beat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b Beat
	if err := readJSON(s.beatPath(id), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *FileStore) LoadBeatByName(ctx context.Context, name string) (*Beat, error) {
	beats, err := s.ListBeats(ctx)
	if err != nil {
		return nil, err
	}
	for i := range beats {
		if beats[i].Name == name {
			return &beats[i], nil
		}
	}
	return nil, fmt.Errorf("%w: beat %q", ErrNotFound, name)
}

// ListBeats returns every beat ordered by Index, then Name
func (s *FileStore) ListBeats(_ context.Context) ([]Beat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := jsonFiles(s.beatsDir())
	if err != nil {
		return nil, err
	}
	beats := make([]Beat, 0, len(files))
	for _, f := range files {
		var b Beat
		if err := readJSON(f, &b); err != nil {
			return nil, err
		}
		beats = append(beats, b)
	}
	sort.SliceStable(beats, func(i, j int) bool {
		if beats[i].Index != beats[j].Index {
			return beats[i].Index < beats[j].Index
		}
		return beats[i].Name < beats[j].Name
	})
	return beats, nil
}

func (s *FileStore) SaveBeat(_ context.Context, b *Beat) error {
	if b.Name == "" {
		return ErrNoName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}
	return writeJSON(s.beatPath(b.ID), b)
}

func (s *FileStore) DeleteBeat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.beatPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: beat %s", ErrNotFound, id)
	}
	return err
}

func (s *FileStore) SavePerformance(_ context.Context, p *Performance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	name := p.CreatedAt.Format(timestampFormat) + "_" + sanitizeFilename(p.ID) + ".json"
	return writeJSON(filepath.Join(s.performancesDir(), name), p)
}

func (s *FileStore) DeletePerformances(_ context.Context, beatID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := jsonFiles(s.performancesDir())
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		var p Performance
		if err := readJSON(f, &p); err != nil {
			return n, err
		}
		if p.BeatID != beatID || p.UserID != userID {
			continue
		}
		if err := os.Remove(f); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *FileStore) ListPerformances(_ context.Context, beatID string) ([]Performance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := jsonFiles(s.performancesDir())
	if err != nil {
		return nil, err
	}
	var out []Performance
	for _, f := range files {
		var p Performance
		if err := readJSON(f, &p); err != nil {
			return nil, err
		}
		if beatID == "" || p.BeatID == beatID {
			out = append(out, p)
		}
	}
	return out, nil
}

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return r.Replace(name)
}
