package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var chatColumns = []string{"id", "user_id", "story_id", "role", "content", "created_at"}

type chatRepo struct {
	drv *entsql.Driver
}

func (r *chatRepo) Append(ctx context.Context, m *ChatMessage) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query, args := builder().Insert("chat_messages").
		Columns(chatColumns...).
		Values(m.ID, m.UserID, m.StoryID, string(m.Role), m.Content, millis(m.CreatedAt)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *chatRepo) List(ctx context.Context, userID, storyID string) ([]ChatMessage, error) {
	query, args := builder().Select(chatColumns...).
		From(entsql.Table("chat_messages")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("story_id", storyID))).
		OrderBy("created_at", "rowid").
		Query()

	var out []ChatMessage
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			m       ChatMessage
			role    string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.StoryID, &role, &m.Content, &created); err != nil {
			return err
		}
		m.Role = ChatRole(role)
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	return out, nil
}

func (r *chatRepo) Clear(ctx context.Context, userID, storyID string) error {
	query, args := builder().Delete("chat_messages").
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("story_id", storyID))).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("clear chat messages: %w", err)
	}
	return nil
}
