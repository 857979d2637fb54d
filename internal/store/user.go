package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"event-scheduler/internal/model"
)

const DefaultTimezone = "UTC"

// NormalizeTag lowercases a tag and drops a leading '@'.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "@"))
}

func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	var tag *string
	if t := NormalizeTag(u.Tag); t != "" {
		tag = &t
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (user_id, name, tag) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET name = EXCLUDED.name,
		     tag = COALESCE(EXCLUDED.tag, users.tag),
		     updated_at = NOW()
		 RETURNING name, COALESCE(tag, '')`,
		u.ID, strings.TrimSpace(u.Name), tag,
	).Scan(&u.Name, &u.Tag)
	if err != nil {
		var pgErr *pgconn.PgError
		// unique violation on users.tag
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTagTaken
		}
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, name, COALESCE(tag, '') FROM users WHERE user_id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Tag)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ResolveLabels maps participant labels to user ids. A label is a numeric
// user id, a tag (with or without '@') or a display name, matched without
// case. Tags win over names; a name shared by several users is ambiguous and
// stays unresolved. Resolved ids come back sorted and deduplicated;
// unresolved labels keep their input order.
func (s *Store) ResolveLabels(ctx context.Context, labels []string) ([]int64, []string, error) {
	type pending struct {
		raw, key string
	}
	seen := map[int64]struct{}{}
	var lookups []pending
	var keys []string
	for _, raw := range labels {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			seen[id] = struct{}{}
			continue
		}
		key := NormalizeTag(raw)
		lookups = append(lookups, pending{raw: raw, key: key})
		keys = append(keys, key)
	}

	byTag := map[string]int64{}
	byName := map[string][]int64{}
	if len(keys) > 0 {
		rows, err := s.pool.Query(ctx,
			`SELECT user_id, COALESCE(tag, ''), LOWER(name)
			 FROM users
			 WHERE tag = ANY($1) OR LOWER(name) = ANY($1)`, keys,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve labels: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var tag, name string
			if err := rows.Scan(&id, &tag, &name); err != nil {
				return nil, nil, err
			}
			if tag != "" {
				byTag[tag] = id
			}
			byName[name] = append(byName[name], id)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
	}

	unresolved := []string{}
	for _, l := range lookups {
		if id, ok := byTag[l.key]; ok {
			seen[id] = struct{}{}
			continue
		}
		if ids := byName[l.key]; len(ids) == 1 {
			seen[ids[0]] = struct{}{}
			continue
		}
		unresolved = append(unresolved, l.raw)
	}

	resolved := make([]int64, 0, len(seen))
	for id := range seen {
		resolved = append(resolved, id)
	}
	sort.Slice(resolved, func(i, j int) bool { return resolved[i] < resolved[j] })
	return resolved, unresolved, nil
}

// Timezone returns the user's IANA zone, DefaultTimezone when unset.
func (s *Store) Timezone(ctx context.Context, userID int64) (string, error) {
	var tz string
	err := s.pool.QueryRow(ctx,
		`SELECT timezone FROM user_settings WHERE user_id = $1`, userID,
	).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultTimezone, nil
	}
	if err != nil {
		return "", fmt.Errorf("timezone %d: %w", userID, err)
	}
	return tz, nil
}

// SetTimezone stores tz as given; callers validate the zone name.
func (s *Store) SetTimezone(ctx context.Context, userID int64, tz string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, timezone) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET timezone = EXCLUDED.timezone`,
		userID, tz,
	)
	if err != nil {
		return fmt.Errorf("set timezone %d: %w", userID, err)
	}
	return nil
}
