package storage

import (
	"context"
	"sort"
	"sync"

	"planpoker/internal/app/room"
)

// memoryStore keeps rooms in process memory. It backs development runs and tests.
type memoryStore struct {
	mu    sync.Mutex
	rooms map[string]room.Room
}

// NewMemoryStore returns an empty in-memory RoomStore.
func NewMemoryStore() RoomStore {
	return &memoryStore{rooms: make(map[string]room.Room)}
}

func (s *memoryStore) Insert(ctx context.Context, r room.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[r.ID]; ok {
		return ErrAlreadyExists
	}
	s.rooms[r.ID] = r.Clone()
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (room.Room, error) {
	if err := ctx.Err(); err != nil {
		return room.Room{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return room.Room{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *memoryStore) List(ctx context.Context) ([]room.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := make([]room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms), nil
}

func (s *memoryStore) Apply(ctx context.Context, id string, m room.Mutation) (room.Room, room.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return room.Room{}, room.Unchanged, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[id]
	if !ok {
		return room.Room{}, room.Unchanged, ErrNotFound
	}

	next, out, err := applyMutation(current, m)
	if err != nil {
		return room.Room{}, room.Unchanged, err
	}

	switch out {
	case room.Updated:
		s.rooms[id] = next.Clone()
	case room.Deleted:
		delete(s.rooms, id)
	}
	return next.Clone(), out, nil
}

func (s *memoryStore) Close() error { return nil }
