package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Demo account and story ids created by Seed.
const (
	DemoChildID  = "user-1"
	DemoParentID = "user-2"
	DemoStoryID  = "story-1"
)

const braveLittleFox = `Once upon a time, in a green forest, there lived a little fox named Finn.

Finn had bright orange fur and curious brown eyes. He loved to explore the forest every day.

One morning, Finn woke up early. The sun was shining through the trees. Birds were singing their happy songs.

"Today will be a great adventure!" said Finn.

He ran through the meadow, jumping over flowers. The butterflies danced around him.

Finn found a stream with cool, clear water. He stopped to take a drink. A friendly frog said hello.

"Where are you going, little fox?" asked the frog.

"I am looking for the rainbow pond," said Finn. "Do you know where it is?"

The frog smiled. "Follow the path by the old oak tree. You will find it there."

Finn thanked the frog and ran along the path. Soon, he saw a beautiful pond. The water sparkled like a rainbow!

"I found it!" cheered Finn. He was so happy.

Finn played by the rainbow pond all day. When the sun began to set, he went home.

His mother was waiting. "Did you have a good adventure?" she asked.

"The best adventure ever!" said Finn with a big smile.

The End.`

const friendlyDragon = `In a land far away, there was a small dragon named Spark. Unlike other dragons, Spark was very friendly.

Spark had green scales that glittered in the sun. His wings were small but strong.

One day, Spark met a little girl named Luna. She was lost in the mountains.

"Don't be scared," said Spark gently. "I can help you find your way home."

Luna looked at the dragon. She saw kindness in his eyes.

"Thank you," she said softly.

Spark let Luna climb on his back. They flew over valleys and rivers.

"Look!" Luna pointed at a village below. "That's my home!"

Spark landed carefully near the village. Luna hugged the dragon.

"You are the best friend I ever had," she said.

From that day on, Spark visited Luna every week. They had many adventures together.

The End.`

// Seed writes the demo accounts, stories and a few days of activity when
// the database has no users yet. It reports whether anything was written.
func (s *Store) Seed(ctx context.Context, now time.Time) (bool, error) {
	if _, err := s.Users().Get(ctx, DemoChildID); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	users := []User{
		{ID: DemoChildID, Username: "alex", DisplayName: "Alex", Role: RoleChild, ParentID: DemoParentID},
		{ID: DemoParentID, Username: "parent", DisplayName: "Parent", Role: RoleParent},
	}
	for i := range users {
		users[i].CreatedAt = now
		if err := s.Users().Create(ctx, &users[i]); err != nil {
			return false, fmt.Errorf("seed user: %w", err)
		}
	}

	stories := []Story{
		{ID: DemoStoryID, Title: "The Brave Little Fox", Content: braveLittleFox, Difficulty: 1},
		{ID: "story-2", Title: "The Friendly Dragon", Content: friendlyDragon, Difficulty: 1},
	}
	for i := range stories {
		st := &stories[i]
		st.WordCount = len(strings.Fields(st.Content))
		st.ReadingTime = max(1, st.WordCount/100)
		st.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		if err := s.Stories().Create(ctx, st); err != nil {
			return false, fmt.Errorf("seed story: %w", err)
		}
	}

	for i := range 5 {
		start := now.Add(-time.Duration(i) * 24 * time.Hour)
		end := start.Add(20 * time.Minute)
		typ := SessionReading
		if i%2 == 1 {
			typ = SessionMath
		}
		sess := &Session{
			ID:        fmt.Sprintf("session-%d", i),
			UserID:    DemoChildID,
			Type:      typ,
			StartedAt: start,
			EndedAt:   &end,
			Duration:  15 + 2*i,
			Completed: true,
		}
		if err := s.Sessions().Create(ctx, sess); err != nil {
			return false, fmt.Errorf("seed session: %w", err)
		}
	}

	if err := s.ReadingProgress().Create(ctx, &ReadingProgress{
		ID: "rp-1", UserID: DemoChildID, StoryID: DemoStoryID, SessionID: "session-0",
		WordsRead: 150, CurrentPosition: 150, Accuracy: 92, UpdatedAt: now,
	}); err != nil {
		return false, fmt.Errorf("seed reading progress: %w", err)
	}

	if err := s.MathProgress().Create(ctx, &MathProgress{
		ID: "mp-1", UserID: DemoChildID, SessionID: "session-1",
		ProblemsAttempted: 10, ProblemsCorrect: 8, CurrentLevel: 2, Streak: 5, UpdatedAt: now,
	}); err != nil {
		return false, fmt.Errorf("seed math progress: %w", err)
	}

	for i, state := range []string{"focused", "happy", "confused", "focused"} {
		v := &VibeState{
			ID:         fmt.Sprintf("vibe-%d", i+1),
			UserID:     DemoChildID,
			SessionID:  "session-0",
			State:      state,
			RecordedAt: now.Add(-time.Duration(4-i) * 15 * time.Minute),
		}
		if err := s.Vibes().Append(ctx, v); err != nil {
			return false, fmt.Errorf("seed vibe: %w", err)
		}
	}

	return true, nil
}

// activityTables hold per-user activity removed by Reset.
var activityTables = []string{
	"sessions", "reading_progress", "math_progress", "vibe_states", "chat_messages", "quizzes",
}

// Reset deletes all activity recorded for a user in one transaction.
// The account itself is kept.
func (s *Store) Reset(ctx context.Context, userID string) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	for _, table := range activityTables {
		query, args := builder().Delete(table).Where(entsql.EQ("user_id", userID)).Query()
		if _, err := exec(ctx, tx, query, args); err != nil {
			tx.Rollback()
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}
