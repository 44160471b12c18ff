// Package screens holds what the terminal screens share.
package screens

import (
	"time"

	"github.com/abhisek/vibekids/internal/dashboard"
	"github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/reading"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/tutor"
	"github.com/abhisek/vibekids/internal/vibe"
)

// Deps are the services and repositories the screens call. UserID is the
// child using the app.
type Deps struct {
	UserID string

	Stories         store.StoryRepo
	Sessions        store.SessionRepo
	ReadingProgress store.ReadingProgressRepo
	MathProgress    store.MathProgressRepo
	Vibes           store.VibeRepo

	Recorder  *vibe.Recorder
	Quiz      *quiz.Service
	Tutor     *tutor.Service
	Dashboard *dashboard.Service

	Reading reading.Config
	Now     func() time.Time
}

// Clock returns d.Now, or the UTC wall clock when it is unset.
func (d Deps) Clock() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}
