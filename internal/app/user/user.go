/*
Package user contains the participant model of a voting room.

It defines the User struct embedded in every room document and the Card value
type shared by room decks and cast votes.
*/
package user

// DefaultEmoji is the display marker assigned when a participant joins without one.
const DefaultEmoji = "👤"

// User is one participant of a room. It is created on create/join and lives
// only as long as that membership; a rejoin always gets a new ID.
type User struct {
	// ID is unique within the room and never reused.
	ID string `json:"id"`

	// Name is the display name supplied at join time.
	Name string `json:"name"`

	// Emoji is a presentation marker, DefaultEmoji when omitted.
	Emoji string `json:"emoji"`

	// IsReady is true once the participant has voted in the current round.
	IsReady bool `json:"isReady"`

	// Vote is the current round's card, nil while unset.
	Vote *Card `json:"vote"`

	// Spectator participants cannot vote.
	Spectator bool `json:"spectator"`
}

// New returns a participant with an unset vote.
func New(id, name, emoji string) User {
	if emoji == "" {
		emoji = DefaultEmoji
	}

	return User{
		ID:    id,
		Name:  name,
		Emoji: emoji,
	}
}

// ClearVote unsets the vote and the ready flag.
func (u *User) ClearVote() {
	u.Vote = nil
	u.IsReady = false
}

// Clone returns a copy that shares no memory with u.
func (u User) Clone() User {
	if u.Vote != nil {
		v := *u.Vote
		u.Vote = &v
	}
	return u
}
