package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var storyColumns = []string{"id", "title", "content", "sections", "difficulty", "word_count", "reading_time", "created_at"}

type storyRepo struct {
	drv *entsql.Driver
}

func (r *storyRepo) Create(ctx context.Context, s *Story) error {
	if s.ID == "" {
		s.ID = newID()
	}
	var sections any
	if len(s.Sections) > 0 {
		enc, err := marshalJSON(s.Sections)
		if err != nil {
			return fmt.Errorf("encode sections: %w", err)
		}
		sections = enc
	}
	query, args := builder().Insert("stories").
		Columns(storyColumns...).
		Values(s.ID, s.Title, s.Content, sections, s.Difficulty, s.WordCount, s.ReadingTime, millis(s.CreatedAt)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func (r *storyRepo) Get(ctx context.Context, id string) (*Story, error) {
	stories, err := r.list(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, ErrNotFound
	}
	return &stories[0], nil
}

func (r *storyRepo) List(ctx context.Context) ([]Story, error) {
	return r.list(ctx, nil)
}

func (r *storyRepo) list(ctx context.Context, p *entsql.Predicate) ([]Story, error) {
	sel := builder().Select(storyColumns...).From(entsql.Table("stories"))
	if p != nil {
		sel.Where(p)
	}
	query, args := sel.OrderBy("created_at", "id").Query()

	var out []Story
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			s        Story
			sections sql.NullString
			created  int64
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Content, &sections, &s.Difficulty, &s.WordCount, &s.ReadingTime, &created); err != nil {
			return err
		}
		if sections.Valid && sections.String != "" {
			if err := json.Unmarshal([]byte(sections.String), &s.Sections); err != nil {
				return fmt.Errorf("decode sections of %s: %w", s.ID, err)
			}
		}
		s.CreatedAt = fromMillis(created)
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	return out, nil
}
