package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var quizColumns = []string{
	"id", "user_id", "story_id", "section", "questions", "answers", "score",
	"total_questions", "passed", "feedback", "created_at", "completed_at",
}

type quizRepo struct {
	drv *entsql.Driver
}

func (r *quizRepo) Create(ctx context.Context, q *Quiz) error {
	if len(q.Questions) == 0 {
		return errors.New("quiz has no questions")
	}
	if q.ID == "" {
		q.ID = newID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	questions, err := marshalJSON(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	var section any
	if q.Section != nil {
		section = *q.Section
	}
	query, args := builder().Insert("quizzes").
		Columns("id", "user_id", "story_id", "section", "questions", "total_questions", "created_at").
		Values(q.ID, q.UserID, q.StoryID, section, questions, len(q.Questions), millis(q.CreatedAt)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (r *quizRepo) Get(ctx context.Context, id string) (*Quiz, error) {
	list, err := r.list(ctx, entsql.EQ("id", id), 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *quizRepo) FindPending(ctx context.Context, userID, storyID string, section *int) (*Quiz, error) {
	preds := []*entsql.Predicate{
		entsql.EQ("user_id", userID),
		entsql.EQ("story_id", storyID),
		entsql.IsNull("completed_at"),
	}
	if section != nil {
		preds = append(preds, entsql.EQ("section", *section))
	} else {
		preds = append(preds, entsql.IsNull("section"))
	}
	list, err := r.list(ctx, entsql.And(preds...), 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *quizRepo) Complete(ctx context.Context, id string, res QuizResult) error {
	answers, err := marshalJSON(res.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	query, args := builder().Update("quizzes").
		Set("answers", answers).
		Set("score", res.Score).
		Set("passed", boolInt(res.Passed)).
		Set("feedback", res.Feedback).
		Set("completed_at", millis(res.CompletedAt)).
		Where(entsql.And(entsql.EQ("id", id), entsql.IsNull("completed_at"))).
		Query()
	n, err := exec(ctx, r.drv, query, args)
	if err != nil {
		return fmt.Errorf("complete quiz: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyCompleted
}

func (r *quizRepo) ListCompleted(ctx context.Context, userID string) ([]Quiz, error) {
	return r.list(ctx, entsql.And(entsql.EQ("user_id", userID), entsql.NotNull("completed_at")), 0)
}

func (r *quizRepo) list(ctx context.Context, p *entsql.Predicate, limit int) ([]Quiz, error) {
	sel := builder().Select(quizColumns...).
		From(entsql.Table("quizzes")).
		Where(p).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("rowid"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	var out []Quiz
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		q, err := scanQuiz(rows)
		if err != nil {
			return err
		}
		out = append(out, *q)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	return out, nil
}

func scanQuiz(rows *entsql.Rows) (*Quiz, error) {
	var (
		q         Quiz
		section   sql.NullInt64
		questions string
		answers   sql.NullString
		score     sql.NullInt64
		total     int
		passed    sql.NullBool
		feedback  sql.NullString
		created   int64
		completed sql.NullInt64
	)
	if err := rows.Scan(&q.ID, &q.UserID, &q.StoryID, &section, &questions, &answers, &score,
		&total, &passed, &feedback, &created, &completed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questions), &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions of %s: %w", q.ID, err)
	}
	if answers.Valid && answers.String != "" {
		if err := json.Unmarshal([]byte(answers.String), &q.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s: %w", q.ID, err)
		}
	}
	if section.Valid {
		s := int(section.Int64)
		q.Section = &s
	}
	if score.Valid {
		s := int(score.Int64)
		q.Score = &s
	}
	if passed.Valid {
		p := passed.Bool
		q.Passed = &p
	}
	q.Feedback = feedback.String
	q.CreatedAt = fromMillis(created)
	q.CompletedAt = fromNullMillis(completed)
	return &q, nil
}
