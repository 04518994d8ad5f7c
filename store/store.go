package store

import (
	"context"
	"errors"
	"time"

	"go-groove/beat"
	"go-groove/performance"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrNoName   = errors.New("store: beat has no name")
)

// Beat is a stored pattern
type Beat struct {
	ID          string      `json:"id" dynamodbav:"PK"`
	Name        string      `json:"name" dynamodbav:"Name"`
	Index       int         `json:"index" dynamodbav:"Index"`
	ModuleID    string      `json:"moduleId,omitempty" dynamodbav:"ModuleID,omitempty"`
	Description string      `json:"description,omitempty" dynamodbav:"Description,omitempty"`
	Pattern     beat.Source `json:"pattern" dynamodbav:"Pattern"`
	CreatedAt   time.Time   `json:"createdAt" dynamodbav:"CreatedAt"`
}

// Sequence decodes the stored pattern
func (b *Beat) Sequence() beat.Sequence {
	return beat.Decode(b.Pattern)
}

// Performance is one saved recording of a beat by a user
type Performance struct {
	ID        string              `json:"id" dynamodbav:"PK"`
	BeatID    string              `json:"beatId" dynamodbav:"BeatID"`
	UserID    string              `json:"userId" dynamodbav:"UserID"`
	BPM       float64             `json:"bpm" dynamodbav:"BPM"`
	Capture   performance.Capture `json:"capture" dynamodbav:"Capture"`
	Feedback  []performance.Entry `json:"feedback,omitempty" dynamodbav:"Feedback,omitempty"`
	CreatedAt time.Time           `json:"createdAt" dynamodbav:"CreatedAt"`
}

// BeatStore persists patterns
type BeatStore interface {
	LoadBeatByID(ctx context.Context, id string) (*Beat, error)
	LoadBeatByName(ctx context.Context, name string) (*Beat, error)
	ListBeats(ctx context.Context) ([]Beat, error)
	// SaveBeat assigns an ID and creation time when missing
	SaveBeat(ctx context.Context, b *Beat) error
	DeleteBeat(ctx context.Context, id string) error
}

// PerformanceStore persists recordings
type PerformanceStore interface {
	// SavePerformance assigns an ID and creation time when missing
	SavePerformance(ctx context.Context, p *Performance) error
	// DeletePerformances removes every recording of beatID by userID and returns how many
	DeletePerformances(ctx context.Context, beatID, userID string) (int, error)
	// ListPerformances returns the recordings of beatID, or all when beatID is empty
	ListPerformances(ctx context.Context, beatID string) ([]Performance, error)
}

// Store is both
type Store interface {
	BeatStore
	PerformanceStore
}
