// Package vibe derives and records a child's engagement state.
package vibe

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/store"
	"go.uber.org/zap"
)

// State is one engagement observation.
type State string

const (
	Focused    State = "focused"
	Happy      State = "happy"
	Confused   State = "confused"
	Frustrated State = "frustrated"
	Tired      State = "tired"
	Neutral    State = "neutral"
)

// All lists every state in display order.
var All = []State{Focused, Happy, Confused, Frustrated, Tired, Neutral}

var labels = map[State]string{
	Focused:    "Focused",
	Happy:      "Happy",
	Confused:   "Needs Help",
	Frustrated: "Frustrated",
	Tired:      "Tired",
	Neutral:    "Neutral",
}

// Label is the name shown to parents.
func (s State) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Parse validates a state name.
func Parse(s string) (State, error) {
	st := State(s)
	if _, ok := labels[st]; !ok {
		return "", apperr.Invalid("vibe", "unknown vibe %q", s)
	}
	return st, nil
}

const (
	// HappyStreak is the run of correct answers that reads as happy.
	HappyStreak = 3
	// TiredAfter is how long a paused reader can sit idle before reading as tired.
	TiredAfter = 2 * time.Minute
)

// FromMath maps a practice tally to a state.
func FromMath(streak, attempted, correct int) State {
	switch {
	case streak >= HappyStreak:
		return Happy
	case attempted > 0 && float64(correct)/float64(attempted) < 0.5:
		return Confused
	default:
		return Focused
	}
}

// FromReading maps reading progress (percent) and playback to a state.
func FromReading(progressPct float64, playing bool, idleFor time.Duration) State {
	switch {
	case progressPct > 75:
		return Happy
	case playing:
		return Focused
	case idleFor >= TiredAfter:
		return Tired
	default:
		return Neutral
	}
}

// Recorder appends observations, skipping repeats within a session.
type Recorder struct {
	repo   store.VibeRepo
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder over repo.
func NewRecorder(repo store.VibeRepo, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Record stores state for the user. When the session's latest observation
// already has the same state nothing is written and the returned record is
// nil.
func (r *Recorder) Record(ctx context.Context, userID, sessionID string, state State, notes string) (*store.VibeState, error) {
	if userID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	if _, err := Parse(string(state)); err != nil {
		return nil, err
	}

	if sessionID != "" {
		prev, err := r.repo.ListBySession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load session vibes: %w", err)
		}
		if n := len(prev); n > 0 && prev[n-1].State == string(state) {
			r.logger.Debug("vibe unchanged", zap.String("session", sessionID), zap.String("vibe", string(state)))
			return nil, nil
		}
	}

	v := &store.VibeState{
		UserID:     userID,
		SessionID:  sessionID,
		State:      string(state),
		Notes:      notes,
		RecordedAt: r.now(),
	}
	if err := r.repo.Append(ctx, v); err != nil {
		return nil, fmt.Errorf("record vibe: %w", err)
	}
	return v, nil
}
