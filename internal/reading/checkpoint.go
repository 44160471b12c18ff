package reading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/vibekids/internal/store"
)

// StoreCheckpointer saves checkpoints to the user's progress record for
// the story, creating it on first write.
type StoreCheckpointer struct {
	Repo      store.ReadingProgressRepo
	UserID    string
	SessionID string
	// Accuracy is recorded with every write, in percent.
	Accuracy int
	Now      func() time.Time
}

// Checkpoint upserts the progress record.
func (s *StoreCheckpointer) Checkpoint(ctx context.Context, cp Checkpoint) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	existing, err := s.Repo.Find(ctx, s.UserID, cp.StoryID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p := &store.ReadingProgress{
			UserID:          s.UserID,
			StoryID:         cp.StoryID,
			SessionID:       s.SessionID,
			WordsRead:       cp.WordsRead,
			CurrentPosition: cp.WordsRead,
			Completed:       cp.Completed,
			Accuracy:        s.Accuracy,
			UpdatedAt:       now(),
		}
		if err := s.Repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create reading progress: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("find reading progress: %w", err)
	}

	existing.WordsRead = cp.WordsRead
	existing.CurrentPosition = cp.WordsRead
	existing.Completed = cp.Completed
	existing.Accuracy = s.Accuracy
	existing.UpdatedAt = now()
	if s.SessionID != "" {
		existing.SessionID = s.SessionID
	}
	if err := s.Repo.Update(ctx, existing); err != nil {
		return fmt.Errorf("update reading progress: %w", err)
	}
	return nil
}
