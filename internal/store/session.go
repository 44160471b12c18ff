package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var sessionColumns = []string{"id", "user_id", "type", "started_at", "ended_at", "duration", "completed"}

type sessionRepo struct {
	drv *entsql.Driver
}

func (r *sessionRepo) Create(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = newID()
	}
	query, args := builder().Insert("sessions").
		Columns(sessionColumns...).
		Values(s.ID, s.UserID, string(s.Type), millis(s.StartedAt), nullMillis(s.EndedAt), s.Duration, boolInt(s.Completed)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Update(ctx context.Context, s *Session) error {
	query, args := builder().Update("sessions").
		Set("ended_at", nullMillis(s.EndedAt)).
		Set("duration", s.Duration).
		Set("completed", boolInt(s.Completed)).
		Where(entsql.EQ("id", s.ID)).
		Query()
	n, err := exec(ctx, r.drv, query, args)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	sessions, err := r.list(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNotFound
	}
	return &sessions[0], nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	return r.list(ctx, entsql.EQ("user_id", userID))
}

func (r *sessionRepo) list(ctx context.Context, p *entsql.Predicate) ([]Session, error) {
	query, args := builder().Select(sessionColumns...).
		From(entsql.Table("sessions")).
		Where(p).
		OrderBy(entsql.Desc("started_at")).
		Query()

	var out []Session
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			s         Session
			typ       string
			started   int64
			ended     sql.NullInt64
			completed bool
		)
		if err := rows.Scan(&s.ID, &s.UserID, &typ, &started, &ended, &s.Duration, &completed); err != nil {
			return err
		}
		s.Type = SessionType(typ)
		s.StartedAt = fromMillis(started)
		s.EndedAt = fromNullMillis(ended)
		s.Completed = completed
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	return out, nil
}
