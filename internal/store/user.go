package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var userColumns = []string{"id", "username", "display_name", "role", "parent_id", "created_at"}

type userRepo struct {
	drv *entsql.Driver
}

func (r *userRepo) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	query, args := builder().Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Username, u.DisplayName, string(u.Role), nullString(u.ParentID), millis(u.CreatedAt)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, id string) (*User, error) {
	return r.first(ctx, entsql.EQ("id", id))
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.first(ctx, entsql.EQ("username", username))
}

func (r *userRepo) first(ctx context.Context, p *entsql.Predicate) (*User, error) {
	query, args := builder().Select(userColumns...).
		From(entsql.Table("users")).
		Where(p).
		Limit(1).
		Query()

	var found *User
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			u        User
			role     string
			parentID sql.NullString
			created  int64
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &role, &parentID, &created); err != nil {
			return err
		}
		u.Role = Role(role)
		u.ParentID = parentID.String
		u.CreatedAt = fromMillis(created)
		found = &u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}
