/*
Package room defines the authoritative Room document and the transitions that mutate it.

Every state change is expressed as a Mutation: a function that inspects and edits
a room in place and reports whether the document changed, was left untouched, or
must be deleted. Stores apply a Mutation atomically against the committed document,
so the predicates it checks (ownership, membership, spectator mode) can never be
invalidated by a concurrent writer between the check and the write.
*/
package room

import (
	"errors"
	"time"

	"planpoker/internal/app/user"
)

// Room is one voting session. Its JSON encoding is the room projection sent to clients.
type Room struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	OwnerID   string      `json:"ownerId"`
	Users     []user.User `json:"users"`
	Revealed  bool        `json:"revealed"`
	Cards     []user.Card `json:"cards"`
	CreatedAt int64       `json:"createdAt"`
}

// New builds the initial document of a room owned by owner.
func New(id, name string, owner user.User, cards []user.Card, now time.Time) Room {
	if len(cards) == 0 {
		cards = user.DefaultDeck()
	}

	return Room{
		ID:        id,
		Name:      name,
		OwnerID:   owner.ID,
		Users:     []user.User{owner},
		Revealed:  false,
		Cards:     append([]user.Card(nil), cards...),
		CreatedAt: now.UnixMilli(),
	}
}

// Clone returns a deep copy of r.
func (r Room) Clone() Room {
	users := make([]user.User, len(r.Users))
	for i, u := range r.Users {
		users[i] = u.Clone()
	}
	r.Users = users
	r.Cards = append([]user.Card(nil), r.Cards...)
	return r
}

// Find returns the index of the participant with the given ID, or -1.
func (r Room) Find(userID string) int {
	for i, u := range r.Users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

// HasCard reports whether c belongs to the room's deck.
func (r Room) HasCard(c user.Card) bool {
	for _, card := range r.Cards {
		if card == c {
			return true
		}
	}
	return false
}

// UserIDs returns the participant IDs in join order.
func (r Room) UserIDs() []string {
	ids := make([]string, len(r.Users))
	for i, u := range r.Users {
		ids[i] = u.ID
	}
	return ids
}

var (
	errEmpty          = errors.New("room has no users")
	errOwnerMissing   = errors.New("room owner is not a member")
	errOwnerSpectator = errors.New("room owner is a spectator")
	errDuplicateUser  = errors.New("room has duplicate user ids")
)

// Validate checks the document invariants that must hold for every stored room.
func (r Room) Validate() error {
	if len(r.Users) == 0 {
		return errEmpty
	}

	seen := make(map[string]struct{}, len(r.Users))
	for _, u := range r.Users {
		if _, dup := seen[u.ID]; dup {
			return errDuplicateUser
		}
		seen[u.ID] = struct{}{}
	}

	i := r.Find(r.OwnerID)
	if i < 0 {
		return errOwnerMissing
	}
	if r.Users[i].Spectator {
		return errOwnerSpectator
	}
	return nil
}
