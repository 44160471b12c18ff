package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var vibeColumns = []string{"id", "user_id", "session_id", "state", "notes", "recorded_at"}

type vibeRepo struct {
	drv *entsql.Driver
}

func (r *vibeRepo) Append(ctx context.Context, v *VibeState) error {
	if v.ID == "" {
		v.ID = newID()
	}
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now().UTC()
	}
	query, args := builder().Insert("vibe_states").
		Columns(vibeColumns...).
		Values(v.ID, v.UserID, nullString(v.SessionID), v.State, nullString(v.Notes), millis(v.RecordedAt)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("insert vibe state: %w", err)
	}
	return nil
}

func (r *vibeRepo) ListByUser(ctx context.Context, userID string) ([]VibeState, error) {
	return r.list(ctx, entsql.EQ("user_id", userID), entsql.Desc("recorded_at"), entsql.Desc("rowid"))
}

func (r *vibeRepo) ListBySession(ctx context.Context, sessionID string) ([]VibeState, error) {
	return r.list(ctx, entsql.EQ("session_id", sessionID), "recorded_at", "rowid")
}

func (r *vibeRepo) list(ctx context.Context, p *entsql.Predicate, order ...string) ([]VibeState, error) {
	query, args := builder().Select(vibeColumns...).
		From(entsql.Table("vibe_states")).
		Where(p).
		OrderBy(order...).
		Query()

	var out []VibeState
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			v         VibeState
			sessionID sql.NullString
			notes     sql.NullString
			recorded  int64
		)
		if err := rows.Scan(&v.ID, &v.UserID, &sessionID, &v.State, &notes, &recorded); err != nil {
			return err
		}
		v.SessionID = sessionID.String
		v.Notes = notes.String
		v.RecordedAt = fromMillis(recorded)
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query vibe states: %w", err)
	}
	return out, nil
}
