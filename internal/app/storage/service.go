/*
Package storage implements the Room Store: one document per room, keyed by room
identifier, with an atomic conditional read-modify-write primitive (Apply).

Backends differ only in how they make Apply atomic: the memory store holds a
mutex, Postgres locks the row inside a transaction, and SQLite and MongoDB write
with a revision predicate and retry when another writer got there first.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"planpoker/internal/app/room"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// maxApplyAttempts bounds optimistic retries in revision-based backends.
const maxApplyAttempts = 8

var (
	// ErrNotFound is returned when no document exists for the room ID.
	ErrNotFound = errors.New("room not found")

	// ErrAlreadyExists is returned by Insert when the room ID is taken.
	ErrAlreadyExists = errors.New("room already exists")

	// ErrConflict is returned when Apply kept losing revision races.
	ErrConflict = errors.New("room modified concurrently")
)

// ServiceConfig holds the configuration required to open a room store.
type ServiceConfig struct {
	Driver        string
	DatabaseDSN   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// RoomStore defines the public interface of the room document store.
type RoomStore interface {
	// Insert stores a new room document.
	Insert(ctx context.Context, r room.Room) error

	// Get returns the room document.
	Get(ctx context.Context, id string) (room.Room, error)

	// List returns every room, oldest first.
	List(ctx context.Context) ([]room.Room, error)

	// Count returns the number of stored rooms.
	Count(ctx context.Context) (int, error)

	// Apply runs m against the stored document and commits its outcome atomically.
	// It returns the resulting document (the pre-image for Unchanged, the last
	// state before removal for Deleted). Errors returned by m are passed through.
	Apply(ctx context.Context, id string, m room.Mutation) (room.Room, room.Outcome, error)

	// Close releases the backend's resources.
	Close() error
}

// NewRoomStore is the factory function for RoomStore.
func NewRoomStore(ctx context.Context, cfg ServiceConfig) (RoomStore, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseDSN)
	case DriverSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case DriverMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// applyMutation runs m on a copy of current. An Updated outcome that empties
// the room is turned into Deleted, and any other Updated result must satisfy
// the room invariants before it may be written.
func applyMutation(current room.Room, m room.Mutation) (room.Room, room.Outcome, error) {
	next := current.Clone()

	out, err := m(&next)
	if err != nil {
		return current, room.Unchanged, err
	}

	switch out {
	case room.Unchanged:
		return current, room.Unchanged, nil
	case room.Deleted:
		return next, room.Deleted, nil
	}

	if len(next.Users) == 0 {
		return next, room.Deleted, nil
	}
	if err := next.Validate(); err != nil {
		return current, room.Unchanged, fmt.Errorf("mutation broke room invariant: %w", err)
	}
	return next, room.Updated, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
