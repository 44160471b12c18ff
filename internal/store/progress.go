package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var readingProgressColumns = []string{
	"id", "user_id", "story_id", "session_id", "words_read",
	"current_position", "completed", "accuracy", "updated_at",
}

type readingProgressRepo struct {
	drv *entsql.Driver
}

func (r *readingProgressRepo) Create(ctx context.Context, p *ReadingProgress) error {
	if p.ID == "" {
		p.ID = newID()
	}
	query, args := builder().Insert("reading_progress").
		Columns(readingProgressColumns...).
		Values(p.ID, p.UserID, p.StoryID, nullString(p.SessionID), p.WordsRead,
			p.CurrentPosition, boolInt(p.Completed), p.Accuracy, millis(p.UpdatedAt)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("insert reading progress: %w", err)
	}
	return nil
}

func (r *readingProgressRepo) Update(ctx context.Context, p *ReadingProgress) error {
	query, args := builder().Update("reading_progress").
		Set("words_read", p.WordsRead).
		Set("current_position", p.CurrentPosition).
		Set("completed", boolInt(p.Completed)).
		Set("accuracy", p.Accuracy).
		Set("updated_at", millis(p.UpdatedAt)).
		Where(entsql.EQ("id", p.ID)).
		Query()
	n, err := exec(ctx, r.drv, query, args)
	if err != nil {
		return fmt.Errorf("update reading progress: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *readingProgressRepo) Get(ctx context.Context, id string) (*ReadingProgress, error) {
	return r.first(ctx, entsql.EQ("id", id))
}

func (r *readingProgressRepo) Find(ctx context.Context, userID, storyID string) (*ReadingProgress, error) {
	return r.first(ctx, entsql.And(entsql.EQ("user_id", userID), entsql.EQ("story_id", storyID)))
}

func (r *readingProgressRepo) ListByUser(ctx context.Context, userID string) ([]ReadingProgress, error) {
	return r.list(ctx, entsql.EQ("user_id", userID))
}

func (r *readingProgressRepo) first(ctx context.Context, p *entsql.Predicate) (*ReadingProgress, error) {
	list, err := r.list(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *readingProgressRepo) list(ctx context.Context, p *entsql.Predicate) ([]ReadingProgress, error) {
	query, args := builder().Select(readingProgressColumns...).
		From(entsql.Table("reading_progress")).
		Where(p).
		OrderBy(entsql.Desc("updated_at")).
		Query()

	var out []ReadingProgress
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			rp        ReadingProgress
			sessionID sql.NullString
			completed bool
			updated   int64
		)
		if err := rows.Scan(&rp.ID, &rp.UserID, &rp.StoryID, &sessionID, &rp.WordsRead,
			&rp.CurrentPosition, &completed, &rp.Accuracy, &updated); err != nil {
			return err
		}
		rp.SessionID = sessionID.String
		rp.Completed = completed
		rp.UpdatedAt = fromMillis(updated)
		out = append(out, rp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query reading progress: %w", err)
	}
	return out, nil
}

var mathProgressColumns = []string{
	"id", "user_id", "session_id", "problems_attempted", "problems_correct",
	"current_level", "streak", "updated_at",
}

type mathProgressRepo struct {
	drv *entsql.Driver
}

func (r *mathProgressRepo) Create(ctx context.Context, p *MathProgress) error {
	if p.ID == "" {
		p.ID = newID()
	}
	query, args := builder().Insert("math_progress").
		Columns(mathProgressColumns...).
		Values(p.ID, p.UserID, nullString(p.SessionID), p.ProblemsAttempted, p.ProblemsCorrect,
			p.CurrentLevel, p.Streak, millis(p.UpdatedAt)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("insert math progress: %w", err)
	}
	return nil
}

func (r *mathProgressRepo) Update(ctx context.Context, p *MathProgress) error {
	query, args := builder().Update("math_progress").
		Set("problems_attempted", p.ProblemsAttempted).
		Set("problems_correct", p.ProblemsCorrect).
		Set("current_level", p.CurrentLevel).
		Set("streak", p.Streak).
		Set("updated_at", millis(p.UpdatedAt)).
		Where(entsql.EQ("id", p.ID)).
		Query()
	n, err := exec(ctx, r.drv, query, args)
	if err != nil {
		return fmt.Errorf("update math progress: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mathProgressRepo) Get(ctx context.Context, id string) (*MathProgress, error) {
	list, err := r.list(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *mathProgressRepo) ListByUser(ctx context.Context, userID string) ([]MathProgress, error) {
	return r.list(ctx, entsql.EQ("user_id", userID))
}

func (r *mathProgressRepo) list(ctx context.Context, p *entsql.Predicate) ([]MathProgress, error) {
	query, args := builder().Select(mathProgressColumns...).
		From(entsql.Table("math_progress")).
		Where(p).
		OrderBy(entsql.Desc("updated_at")).
		Query()

	var out []MathProgress
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			mp        MathProgress
			sessionID sql.NullString
			updated   int64
		)
		if err := rows.Scan(&mp.ID, &mp.UserID, &sessionID, &mp.ProblemsAttempted, &mp.ProblemsCorrect,
			&mp.CurrentLevel, &mp.Streak, &updated); err != nil {
			return err
		}
		mp.SessionID = sessionID.String
		mp.UpdatedAt = fromMillis(updated)
		out = append(out, mp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query math progress: %w", err)
	}
	return out, nil
}
