package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

const selectUser = `
	SELECT
		u.id, u.role, u.name, u.email, u.mobile, u.active, u.meta,
		ARRAY(SELECT ul.language_id FROM user_languages ul WHERE ul.user_id = u.id ORDER BY ul.language_id) AS language_ids,
		ARRAY(SELECT ut.town_id FROM user_towns ut WHERE ut.user_id = u.id ORDER BY ut.town_id) AS town_ids
	FROM users u
`

type userRow struct {
	ID          int64         `db:"id"`
	Role        string        `db:"role"`
	Name        string        `db:"name"`
	Email       string        `db:"email"`
	Mobile      string        `db:"mobile"`
	Active      bool          `db:"active"`
	Meta        []byte        `db:"meta"`
	LanguageIDs pq.Int64Array `db:"language_ids"`
	TownIDs     pq.Int64Array `db:"town_ids"`
}

func (row *userRow) toUser() (*booking.User, error) {
	u := &booking.User{
		ID:          row.ID,
		Role:        booking.Role(row.Role),
		Name:        row.Name,
		Email:       row.Email,
		Mobile:      row.Mobile,
		Active:      row.Active,
		LanguageIDs: []int64(row.LanguageIDs),
		TownIDs:     []int64(row.TownIDs),
	}
	if len(row.Meta) > 0 {
		if err := json.Unmarshal(row.Meta, &u.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode meta of user %d: %w", row.ID, err)
		}
	}
	return u, nil
}

func (r *Repository) UserByID(ctx context.Context, id int64) (*booking.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, selectUser+" WHERE u.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, booking.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toUser()
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (*booking.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, selectUser+" WHERE lower(u.email) = lower($1)", email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, booking.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return row.toUser()
}

func (r *Repository) ListTranslators(ctx context.Context, exclude int64) ([]*booking.User, error) {
	query := selectUser + " WHERE u.role = $1 AND u.active AND u.id <> $2 ORDER BY u.id"

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, booking.RoleTranslator, exclude); err != nil {
		return nil, fmt.Errorf("failed to list translators: %w", err)
	}

	users := make([]*booking.User, 0, len(rows))
	for i := range rows {
		u, err := rows[i].toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *Repository) LanguageName(ctx context.Context, languageID int64) (string, error) {
	var name string
	if err := r.db.GetContext(ctx, &name, "SELECT name FROM languages WHERE id = $1", languageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("language %d: %w", languageID, booking.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get language: %w", err)
	}
	return name, nil
}

func (r *Repository) CustomerTowns(ctx context.Context, customerID int64) ([]int64, error) {
	var towns []int64
	if err := r.db.SelectContext(ctx, &towns, "SELECT town_id FROM user_towns WHERE user_id = $1 ORDER BY town_id", customerID); err != nil {
		return nil, fmt.Errorf("failed to list customer towns: %w", err)
	}
	return towns, nil
}

func (r *Repository) BlacklistedTranslators(ctx context.Context, customerID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT translator_id FROM users_blacklist WHERE user_id = $1 ORDER BY translator_id", customerID); err != nil {
		return nil, fmt.Errorf("failed to list blacklist: %w", err)
	}
	return ids, nil
}
