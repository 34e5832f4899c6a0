package room

import (
	"planpoker/internal/app/user"
	"planpoker/internal/pkg/errs"
)

// Outcome tells a store what to do with the document after a Mutation ran.
type Outcome int

const (
	// Unchanged leaves the stored document as it was; nothing is written.
	Unchanged Outcome = iota

	// Updated replaces the stored document with the mutated one.
	Updated

	// Deleted removes the document.
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return "invalid"
	}
}

// Mutation edits r in place. A non-nil error aborts the write and is returned
// to the caller unchanged.
type Mutation func(r *Room) (Outcome, error)

// AddUser appends u to the end of the member list.
func AddUser(u user.User) Mutation {
	return func(r *Room) (Outcome, error) {
		if r.Find(u.ID) >= 0 {
			return Unchanged, errs.NewError(errs.ErrValidation, "Participant is already in this room.")
		}
		r.Users = append(r.Users, u.Clone())
		return Updated, nil
	}
}

// CastVote records vote for the participant and marks them ready.
func CastVote(userID string, vote user.Card) Mutation {
	return func(r *Room) (Outcome, error) {
		i := r.Find(userID)
		if i < 0 {
			return Unchanged, errs.NewError(errs.ErrNotBound, "You are no longer a member of this room.")
		}
		if r.Users[i].Spectator {
			return Unchanged, errs.NewError(errs.ErrForbidden, "Spectators cannot vote.")
		}
		if !r.HasCard(vote) {
			return Unchanged, errs.NewError(errs.ErrValidation, "Vote must be one of the room's cards.")
		}

		v := vote
		r.Users[i].Vote = &v
		r.Users[i].IsReady = true
		return Updated, nil
	}
}

// SetSpectator switches the participant in or out of spectator mode. Entering
// spectator mode clears the vote in the same write.
func SetSpectator(userID string, spectator bool) Mutation {
	return func(r *Room) (Outcome, error) {
		i := r.Find(userID)
		if i < 0 {
			return Unchanged, errs.NewError(errs.ErrNotBound, "You are no longer a member of this room.")
		}
		if r.OwnerID == userID && spectator {
			return Unchanged, errs.NewError(errs.ErrForbidden, "The room owner cannot be a spectator.")
		}
		if r.Users[i].Spectator == spectator {
			return Unchanged, nil
		}

		r.Users[i].Spectator = spectator
		if spectator {
			r.Users[i].ClearVote()
		}
		return Updated, nil
	}
}

// Reveal exposes the votes of the current round. Only the owner may reveal.
func Reveal(requesterID string) Mutation {
	return func(r *Room) (Outcome, error) {
		if r.OwnerID != requesterID {
			return Unchanged, errs.NewError(errs.ErrForbidden, "Only the room owner can reveal votes.")
		}
		if r.Revealed {
			return Unchanged, nil
		}
		r.Revealed = true
		return Updated, nil
	}
}

// Reset starts a new round: votes are cleared and results hidden. Only the
// owner may reset.
func Reset(requesterID string) Mutation {
	return func(r *Room) (Outcome, error) {
		if r.OwnerID != requesterID {
			return Unchanged, errs.NewError(errs.ErrForbidden, "Only the room owner can reset votes.")
		}
		r.Revealed = false
		for i := range r.Users {
			r.Users[i].ClearVote()
		}
		return Updated, nil
	}
}

// Removal describes the result of removing a participant.
type Removal struct {
	// Outcome is Unchanged when the participant was already absent, Deleted
	// when the room became empty and Updated otherwise.
	Outcome Outcome

	// NewOwnerID is set when ownership moved to another participant.
	NewOwnerID string
}

// RemoveParticipant returns r without userID. When the last participant leaves
// the outcome is Deleted; when the owner leaves, ownership passes to the
// earliest-joined remaining participant, who also leaves spectator mode.
func RemoveParticipant(r Room, userID string) (Room, Removal) {
	i := r.Find(userID)
	if i < 0 {
		return r, Removal{Outcome: Unchanged}
	}

	users := make([]user.User, 0, len(r.Users)-1)
	users = append(users, r.Users[:i]...)
	users = append(users, r.Users[i+1:]...)
	r.Users = users
	if len(r.Users) == 0 {
		return r, Removal{Outcome: Deleted}
	}

	removal := Removal{Outcome: Updated}
	if r.OwnerID == userID {
		r.OwnerID = r.Users[0].ID
		r.Users[0].Spectator = false
		removal.NewOwnerID = r.OwnerID
	}
	return r, removal
}

// Leave is the Mutation form of RemoveParticipant. Removing an absent
// participant is a no-op, which makes leave idempotent.
func Leave(userID string) Mutation {
	return func(r *Room) (Outcome, error) {
		next, removal := RemoveParticipant(*r, userID)
		*r = next
		return removal.Outcome, nil
	}
}
