package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"planpoker/internal/app/db"
	"planpoker/internal/app/room"
)

// postgresStore keeps each room as a JSONB document. Apply locks the row with
// SELECT ... FOR UPDATE so the mutation runs against the committed state.
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres, migrates the schema and returns a RoomStore.
func NewPostgresStore(ctx context.Context, dsn string) (RoomStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires a database DSN")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Insert(ctx context.Context, r room.Room) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", r.ID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO rooms (id, doc, rev, created_at, updated_at) VALUES ($1, $2, 1, $3, NOW())`,
		r.ID, string(doc), time.UnixMilli(r.CreatedAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert room %s: %w", r.ID, err)
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context, id string) (room.Room, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM rooms WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return room.Room{}, ErrNotFound
		}
		return room.Room{}, fmt.Errorf("get room %s: %w", id, err)
	}
	return decodeRoom(doc)
}

func (s *postgresStore) List(ctx context.Context) ([]room.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []room.Room
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		r, err := decodeRoom(doc)
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

func (s *postgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return n, nil
}

func (s *postgresStore) Apply(ctx context.Context, id string, m room.Mutation) (room.Room, room.Outcome, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return room.Room{}, room.Unchanged, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM rooms WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return room.Room{}, room.Unchanged, ErrNotFound
		}
		return room.Room{}, room.Unchanged, fmt.Errorf("lock room %s: %w", id, err)
	}

	current, err := decodeRoom(doc)
	if err != nil {
		return room.Room{}, room.Unchanged, err
	}

	next, out, err := applyMutation(current, m)
	if err != nil {
		return room.Room{}, room.Unchanged, err
	}

	switch out {
	case room.Unchanged:
		return next, out, nil
	case room.Updated:
		encoded, err := json.Marshal(next)
		if err != nil {
			return room.Room{}, room.Unchanged, fmt.Errorf("encode room %s: %w", id, err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE rooms SET doc = $2, rev = rev + 1, updated_at = NOW() WHERE id = $1`,
			id, string(encoded),
		); err != nil {
			return room.Room{}, room.Unchanged, fmt.Errorf("update room %s: %w", id, err)
		}
	case room.Deleted:
		if _, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id); err != nil {
			return room.Room{}, room.Unchanged, fmt.Errorf("delete room %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return room.Room{}, room.Unchanged, fmt.Errorf("commit room %s: %w", id, err)
	}
	return next, out, nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func decodeRoom(doc []byte) (room.Room, error) {
	var r room.Room
	if err := json.Unmarshal(doc, &r); err != nil {
		return room.Room{}, fmt.Errorf("decode room document: %w", err)
	}
	return r, nil
}
