package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"planpoker/internal/app/db"
	"planpoker/internal/app/room"
)

// sqliteStore keeps each room as a JSON text column with a revision counter.
// Apply writes only if the revision it read is still current and retries otherwise.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database file at path and returns a RoomStore.
func NewSQLiteStore(ctx context.Context, path string) (RoomStore, error) {
	sqlDB, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{db: sqlDB}, nil
}

func (s *sqliteStore) Insert(ctx context.Context, r room.Room) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", r.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, doc, rev, created_at, updated_at) VALUES (?, ?, 1, ?, ?)`,
		r.ID, string(doc), r.CreatedAt, nowMillis(),
	)
	if err != nil {
		if db.IsSQLiteUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert room %s: %w", r.ID, err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (room.Room, error) {
	r, _, err := s.load(ctx, id)
	return r, err
}

func (s *sqliteStore) load(ctx context.Context, id string) (room.Room, int64, error) {
	var (
		doc string
		rev int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT doc, rev FROM rooms WHERE id = ?`, id).Scan(&doc, &rev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return room.Room{}, 0, ErrNotFound
		}
		return room.Room{}, 0, fmt.Errorf("get room %s: %w", id, err)
	}

	r, err := decodeRoom([]byte(doc))
	if err != nil {
		return room.Room{}, 0, err
	}
	return r, rev, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]room.Room, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []room.Room
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		r, err := decodeRoom([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

func (s *sqliteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) Apply(ctx context.Context, id string, m room.Mutation) (room.Room, room.Outcome, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		current, rev, err := s.load(ctx, id)
		if err != nil {
			return room.Room{}, room.Unchanged, err
		}

		next, out, err := applyMutation(current, m)
		if err != nil {
			return room.Room{}, room.Unchanged, err
		}

		var res sql.Result
		switch out {
		case room.Unchanged:
			return next, out, nil
		case room.Updated:
			encoded, err := json.Marshal(next)
			if err != nil {
				return room.Room{}, room.Unchanged, fmt.Errorf("encode room %s: %w", id, err)
			}
			res, err = s.db.ExecContext(ctx,
				`UPDATE rooms SET doc = ?, rev = rev + 1, updated_at = ? WHERE id = ? AND rev = ?`,
				string(encoded), nowMillis(), id, rev,
			)
			if err != nil {
				return room.Room{}, room.Unchanged, fmt.Errorf("update room %s: %w", id, err)
			}
		case room.Deleted:
			res, err = s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ? AND rev = ?`, id, rev)
			if err != nil {
				return room.Room{}, room.Unchanged, fmt.Errorf("delete room %s: %w", id, err)
			}
		}

		n, err := res.RowsAffected()
		if err != nil {
			return room.Room{}, room.Unchanged, fmt.Errorf("write room %s: %w", id, err)
		}
		if n == 1 {
			return next, out, nil
		}
	}
	return room.Room{}, room.Unchanged, ErrConflict
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
