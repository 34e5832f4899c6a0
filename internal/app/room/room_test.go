package room

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planpoker/internal/app/user"
	"planpoker/internal/pkg/errs"
)

func deck(values ...float64) []user.Card {
	cards := make([]user.Card, 0, len(values))
	for _, v := range values {
		cards = append(cards, user.NumberCard(v))
	}
	return cards
}

func newRoom(t *testing.T) Room {
	t.Helper()
	r := New("R", "Sprint 12", user.New("alice", "Alice", ""), deck(1, 2, 3), time.UnixMilli(1700000000000))
	require.NoError(t, r.Validate())
	return r
}

// apply runs m the way a store would: on a copy, keeping it only when it changed.
func apply(t *testing.T, r Room, m Mutation) (Room, Outcome, error) {
	t.Helper()
	next := r.Clone()
	out, err := m(&next)
	if err != nil || out == Unchanged {
		return r, out, err
	}
	return next, out, nil
}

func mustApply(t *testing.T, r Room, m Mutation) Room {
	t.Helper()
	next, _, err := apply(t, r, m)
	require.NoError(t, err)
	return next
}

func TestNewRoom(t *testing.T) {
	r := newRoom(t)

	assert.Equal(t, "alice", r.OwnerID)
	require.Len(t, r.Users, 1)
	assert.Equal(t, "Alice", r.Users[0].Name)
	assert.False(t, r.Revealed)
	assert.Equal(t, int64(1700000000000), r.CreatedAt)
	assert.Equal(t, deck(1, 2, 3), r.Cards)
}

func TestNewRoomDefaultsDeck(t *testing.T) {
	r := New("R", "Sprint", user.New("alice", "Alice", ""), nil, time.Now())
	assert.Equal(t, user.DefaultDeck(), r.Cards)
}

func TestAddUserPreservesJoinOrder(t *testing.T) {
	r := newRoom(t)
	for i := range 5 {
		r = mustApply(t, r, AddUser(user.New(fmt.Sprintf("u%d", i), fmt.Sprintf("User %d", i), "")))
	}

	assert.Equal(t, []string{"alice", "u0", "u1", "u2", "u3", "u4"}, r.UserIDs())
	assert.NoError(t, r.Validate())

	_, _, err := apply(t, r, AddUser(user.New("u2", "Again", "")))
	assert.True(t, errs.Is(err, errs.ErrValidation))
}

func TestVoteRevealResetRestoresRound(t *testing.T) {
	r := newRoom(t)
	r = mustApply(t, r, AddUser(user.New("bob", "Bob", "")))
	r = mustApply(t, r, AddUser(user.New("carol", "Carol", "")))

	r = mustApply(t, r, CastVote("alice", user.NumberCard(2)))
	r = mustApply(t, r, CastVote("bob", user.NumberCard(3)))
	r = mustApply(t, r, Reveal("alice"))

	assert.True(t, r.Revealed)
	require.NotNil(t, r.Users[0].Vote)
	assert.Equal(t, user.NumberCard(2), *r.Users[0].Vote)
	assert.True(t, r.Users[1].IsReady)
	assert.False(t, r.Users[2].IsReady)

	r = mustApply(t, r, Reset("alice"))

	assert.False(t, r.Revealed)
	for _, u := range r.Users {
		assert.Nil(t, u.Vote, u.ID)
		assert.False(t, u.IsReady, u.ID)
	}
}

func TestOwnerOnlyTransitions(t *testing.T) {
	r := newRoom(t)
	r = mustApply(t, r, AddUser(user.New("bob", "Bob", "")))

	for name, m := range map[string]Mutation{"reveal": Reveal("bob"), "reset": Reset("bob")} {
		t.Run(name, func(t *testing.T) {
			next, out, err := apply(t, r, m)
			assert.True(t, errs.Is(err, errs.ErrForbidden))
			assert.Equal(t, Unchanged, out)
			assert.Equal(t, r, next)
		})
	}
}

func TestCastVoteRules(t *testing.T) {
	r := newRoom(t)
	r = mustApply(t, r, AddUser(user.New("bob", "Bob", "")))
	r = mustApply(t, r, SetSpectator("bob", true))

	_, _, err := apply(t, r, CastVote("bob", user.NumberCard(1)))
	assert.True(t, errs.Is(err, errs.ErrForbidden), "spectators cannot vote")

	_, _, err = apply(t, r, CastVote("alice", user.NumberCard(42)))
	assert.True(t, errs.Is(err, errs.ErrValidation), "vote outside the deck")

	_, _, err = apply(t, r, CastVote("ghost", user.NumberCard(1)))
	assert.True(t, errs.Is(err, errs.ErrNotBound))
}

func TestSetSpectator(t *testing.T) {
	r := newRoom(t)
	r = mustApply(t, r, AddUser(user.New("bob", "Bob", "")))
	r = mustApply(t, r, CastVote("bob", user.NumberCard(3)))

	r = mustApply(t, r, SetSpectator("bob", true))
	bob := r.Users[r.Find("bob")]
	assert.True(t, bob.Spectator)
	assert.Nil(t, bob.Vote)
	assert.False(t, bob.IsReady)

	_, out, err := apply(t, r, SetSpectator("bob", true))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)

	r = mustApply(t, r, SetSpectator("bob", false))
	assert.False(t, r.Users[r.Find("bob")].Spectator)

	_, _, err = apply(t, r, SetSpectator("alice", true))
	assert.True(t, errs.Is(err, errs.ErrForbidden), "owner cannot spectate")
}

func TestRemoveParticipant(t *testing.T) {
	base := newRoom(t)
	base = mustApply(t, base, AddUser(user.New("bob", "Bob", "")))
	base = mustApply(t, base, AddUser(user.New("carol", "Carol", "")))
	base = mustApply(t, base, SetSpectator("bob", true))

	t.Run("non owner", func(t *testing.T) {
		next, removal := RemoveParticipant(base, "carol")
		assert.Equal(t, Updated, removal.Outcome)
		assert.Empty(t, removal.NewOwnerID)
		assert.Equal(t, []string{"alice", "bob"}, next.UserIDs())
		assert.Equal(t, "alice", next.OwnerID)
	})

	t.Run("owner passes to earliest joined", func(t *testing.T) {
		next, removal := RemoveParticipant(base, "alice")
		assert.Equal(t, Updated, removal.Outcome)
		assert.Equal(t, "bob", removal.NewOwnerID)
		assert.Equal(t, "bob", next.OwnerID)
		assert.False(t, next.Users[0].Spectator, "new owner leaves spectator mode")
		assert.NoError(t, next.Validate())
		assert.True(t, base.Users[1].Spectator, "input room is not modified")
	})

	t.Run("absent participant", func(t *testing.T) {
		next, removal := RemoveParticipant(base, "ghost")
		assert.Equal(t, Unchanged, removal.Outcome)
		assert.Equal(t, base, next)
	})

	t.Run("last participant", func(t *testing.T) {
		solo := newRoom(t)
		next, removal := RemoveParticipant(solo, "alice")
		assert.Equal(t, Deleted, removal.Outcome)
		assert.Empty(t, next.Users)
	})
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := newRoom(t)
	r = mustApply(t, r, AddUser(user.New("bob", "Bob", "")))

	once, out, err := apply(t, r, Leave("bob"))
	require.NoError(t, err)
	assert.Equal(t, Updated, out)

	twice, out, err := apply(t, once, Leave("bob"))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Equal(t, once, twice)
}

func TestValidate(t *testing.T) {
	r := newRoom(t)

	empty := r.Clone()
	empty.Users = nil
	assert.Error(t, empty.Validate())

	orphan := r.Clone()
	orphan.OwnerID = "nobody"
	assert.Error(t, orphan.Validate())

	spectating := r.Clone()
	spectating.Users[0].Spectator = true
	assert.Error(t, spectating.Validate())
}
