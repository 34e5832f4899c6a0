package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"planpoker/internal/app/room"
	"planpoker/internal/app/storage"
	"planpoker/internal/app/user"
	"planpoker/internal/pkg/errs"
	"planpoker/internal/pkg/logx"
	"planpoker/internal/pkg/metrics"
	"planpoker/internal/pkg/randx"
)

const (
	// MaxRoomNameLength is the maximum room name length in runes.
	MaxRoomNameLength = 64

	// MaxUserNameLength is the maximum participant name length in runes.
	MaxUserNameLength = 32

	// DefaultCommandTimeout bounds one store round-trip when no timeout is configured.
	DefaultCommandTimeout = 5 * time.Second

	// roomCodeAttempts is how many fresh room codes Create tries before giving up.
	roomCodeAttempts = 5

	// leaveAttempts bounds the store writes Leave makes to remove a participant.
	leaveAttempts = 4

	defaultLeaveRetryDelay = 100 * time.Millisecond
	maxLeaveRetryDelay     = time.Second
)

// Session is the per-connection context of the engine: the outbound channel
// and the room/participant binding established by create or join. A Session
// is owned by one connection worker and must not be shared.
type Session struct {
	ch     Channel
	roomID string
	userID string
}

// NewSession returns an unbound Session delivering to ch.
func NewSession(ch Channel) *Session {
	return &Session{ch: ch}
}

// RoomID returns the bound room ID, empty while unbound.
func (s *Session) RoomID() string { return s.roomID }

// UserID returns the bound participant ID, empty while unbound.
func (s *Session) UserID() string { return s.userID }

// Bound reports whether the session is bound to a participant.
func (s *Session) Bound() bool { return s.userID != "" }

func (s *Session) bind(roomID, userID string) {
	s.roomID = roomID
	s.userID = userID
}

func (s *Session) clear() {
	s.roomID = ""
	s.userID = ""
}

// Engine executes room commands. Each command performs exactly one atomic
// store operation and then fans out the resulting room state.
type Engine struct {
	store    storage.RoomStore
	registry *Registry
	fanout   *Fanout
	timeout  time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	leaveRetryDelay time.Duration
}

// NewEngine constructs an Engine. A non-positive timeout selects DefaultCommandTimeout.
func NewEngine(store storage.RoomStore, registry *Registry, fanout *Fanout, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	return &Engine{
		store:    store,
		registry: registry,
		fanout:   fanout,
		timeout:  timeout,
		now:      time.Now,
		logger:   logx.Component("Engine"),

		leaveRetryDelay: defaultLeaveRetryDelay,
	}
}

// Handle dispatches cmd for s. The returned error is a *errs.CustomError
// suitable for a room:error reply.
func (e *Engine) Handle(ctx context.Context, s *Session, cmd Command) error {
	var err error

	switch c := cmd.(type) {
	case CreateRoom:
		_, err = e.Create(ctx, s, c)
	case JoinRoom:
		_, err = e.Join(ctx, s, c)
	case Vote:
		_, err = e.Vote(ctx, s, c.Vote)
	case Spectate:
		_, err = e.SetSpectator(ctx, s, c.Spectator)
	case Reveal:
		_, err = e.Reveal(ctx, s)
	case Reset:
		_, err = e.Reset(ctx, s)
	case Leave:
		err = e.Leave(ctx, s)
	default:
		err = errs.NewError(errs.ErrUnknownCommand)
	}

	outcome := "ok"
	if err != nil {
		outcome = strconv.Itoa(errs.CodeOf(err))
	}
	metrics.CommandProcessed(string(cmd.Type()), outcome)

	return err
}

// Create opens a new room owned by the requester and binds the session to the owner.
func (e *Engine) Create(ctx context.Context, s *Session, c CreateRoom) (room.Room, error) {
	if s.Bound() {
		return room.Room{}, errs.NewError(errs.ErrValidation, "Leave your current room first.")
	}

	roomName, err := cleanName(c.RoomName, "Room name", MaxRoomNameLength)
	if err != nil {
		return room.Room{}, err
	}
	ownerName, err := cleanName(c.OwnerName, "Your name", MaxUserNameLength)
	if err != nil {
		return room.Room{}, err
	}
	if err := validateDeck(c.Cards); err != nil {
		return room.Room{}, err
	}

	owner := user.New(randx.ParticipantID(), ownerName, strings.TrimSpace(c.OwnerEmoji))

	var created room.Room
	for attempt := 0; ; attempt++ {
		code, err := randx.RoomCode()
		if err != nil {
			e.logger.Error().Err(err).Msg("Failed to generate room code.")
			return room.Room{}, errs.NewError(errs.ErrUnknown)
		}

		created = room.New(code, roomName, owner, c.Cards, e.now())
		err = e.insert(ctx, created)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrAlreadyExists) && attempt+1 < roomCodeAttempts {
			e.logger.Warn().Str("room_id", code).Msg("Room code collision, retrying.")
			continue
		}
		return room.Room{}, e.storeError(TypeCreateRoom, err)
	}

	e.registry.Bind(owner.ID, s.ch)
	s.bind(created.ID, owner.ID)

	e.logger.Info().
		Str("room_id", created.ID).
		Str("user_id", owner.ID).
		Int("cards", len(created.Cards)).
		Msg("Room created.")

	e.fanout.SendTo(owner.ID, e.encodeReply(TypeRoomCreated, CreatedPayload{Room: created, OwnerID: owner.ID}))
	return created, nil
}

// Join adds the requester to an existing room. The joiner receives room:joined;
// every other member receives room:updated.
func (e *Engine) Join(ctx context.Context, s *Session, c JoinRoom) (room.Room, error) {
	if s.Bound() {
		return room.Room{}, errs.NewError(errs.ErrValidation, "Leave your current room first.")
	}

	roomID := strings.TrimSpace(c.RoomID)
	if roomID == "" {
		return room.Room{}, errs.NewError(errs.ErrValidation, "Room ID is required.")
	}
	if !randx.IsValidRoomCode(roomID) {
		return room.Room{}, errs.NewError(errs.ErrRoomNotFound)
	}
	userName, err := cleanName(c.UserName, "Your name", MaxUserNameLength)
	if err != nil {
		return room.Room{}, err
	}

	joiner := user.New(randx.ParticipantID(), userName, strings.TrimSpace(c.Emoji))

	// Updates committed right after the append are held until room:joined is queued.
	held := holdChannel(s.ch)
	e.registry.Bind(joiner.ID, held)

	updated, _, err := e.apply(ctx, TypeJoinRoom, roomID, room.AddUser(joiner))
	if err != nil {
		e.registry.UnbindIf(joiner.ID, held)
		return room.Room{}, err
	}

	s.bind(roomID, joiner.ID)
	if err := held.release(e.encodeReply(TypeRoomJoined, JoinedPayload{Room: updated, UserID: joiner.ID})); err != nil {
		metrics.DeliveryDropped()
		e.logger.Debug().Err(err).Str("user_id", joiner.ID).Msg("Dropped join reply.")
	}
	e.registry.Bind(joiner.ID, s.ch)

	e.logger.Info().
		Str("room_id", roomID).
		Str("user_id", joiner.ID).
		Int("total_users", len(updated.Users)).
		Msg("Participant joined room.")

	e.broadcast(updated, joiner.ID)
	return updated, nil
}

// Vote records the requester's card and broadcasts to the whole room.
func (e *Engine) Vote(ctx context.Context, s *Session, vote user.Card) (room.Room, error) {
	return e.mutateAndBroadcast(ctx, s, TypeVote, func(userID string) room.Mutation {
		return room.CastVote(userID, vote)
	})
}

// SetSpectator toggles spectator mode for the requester and broadcasts to the whole room.
func (e *Engine) SetSpectator(ctx context.Context, s *Session, spectator bool) (room.Room, error) {
	return e.mutateAndBroadcast(ctx, s, TypeSpectate, func(userID string) room.Mutation {
		return room.SetSpectator(userID, spectator)
	})
}

// Reveal exposes the round's votes. Only the owner may reveal.
func (e *Engine) Reveal(ctx context.Context, s *Session) (room.Room, error) {
	return e.mutateAndBroadcast(ctx, s, TypeReveal, room.Reveal)
}

// Reset clears the round's votes. Only the owner may reset.
func (e *Engine) Reset(ctx context.Context, s *Session) (room.Room, error) {
	return e.mutateAndBroadcast(ctx, s, TypeReset, room.Reset)
}

// Leave releases the session's binding and removes the participant from its
// room. It is used both for the explicit leave command and on disconnect, and
// is a no-op for an unbound session or a participant already gone. The store
// removal outlives ctx and is retried with backoff on store failures.
func (e *Engine) Leave(ctx context.Context, s *Session) error {
	if !s.Bound() {
		return nil
	}

	roomID, userID := s.roomID, s.userID
	e.registry.UnbindIf(userID, s.ch)
	s.clear()

	r, out, err := e.removeParticipant(context.WithoutCancel(ctx), roomID, userID)
	if err != nil {
		if errs.Is(err, errs.ErrRoomNotFound) {
			return nil
		}
		return err
	}

	switch out {
	case room.Deleted:
		e.logger.Info().Str("room_id", roomID).Str("user_id", userID).Msg("Last participant left. Room deleted.")
	case room.Updated:
		e.logger.Info().
			Str("room_id", roomID).
			Str("user_id", userID).
			Str("owner_id", r.OwnerID).
			Int("total_users", len(r.Users)).
			Msg("Participant left room.")
		e.broadcast(r, "")
	}
	return nil
}

func (e *Engine) removeParticipant(ctx context.Context, roomID, userID string) (room.Room, room.Outcome, error) {
	retryDelay := e.leaveRetryDelay
	for attempt := 1; ; attempt++ {
		r, out, err := e.apply(ctx, TypeLeave, roomID, room.Leave(userID))
		if err == nil || !errs.Is(err, errs.ErrStore) || attempt == leaveAttempts {
			return r, out, err
		}

		e.logger.Warn().
			Str("room_id", roomID).
			Str("user_id", userID).
			Int("attempt", attempt).
			Dur("retry_in", retryDelay).
			Msg("Failed to remove participant, retrying.")

		time.Sleep(retryDelay)
		if retryDelay < maxLeaveRetryDelay {
			retryDelay *= 2
			if retryDelay > maxLeaveRetryDelay {
				retryDelay = maxLeaveRetryDelay
			}
		}
	}
}

func (e *Engine) mutateAndBroadcast(ctx context.Context, s *Session, t MessageType, build func(userID string) room.Mutation) (room.Room, error) {
	if !s.Bound() {
		return room.Room{}, errs.NewError(errs.ErrNotBound)
	}

	r, _, err := e.apply(ctx, t, s.roomID, build(s.userID))
	if err != nil {
		return room.Room{}, err
	}

	e.broadcast(r, "")
	return r, nil
}

func (e *Engine) insert(ctx context.Context, r room.Room) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	defer metrics.ObserveStore(string(TypeCreateRoom), started)

	return e.store.Insert(ctx, r)
}

func (e *Engine) apply(ctx context.Context, t MessageType, roomID string, m room.Mutation) (room.Room, room.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	r, out, err := e.store.Apply(ctx, roomID, m)
	metrics.ObserveStore(string(t), started)

	if err != nil {
		return room.Room{}, room.Unchanged, e.storeError(t, err)
	}
	return r, out, nil
}

// storeError passes rule violations through and folds everything else the
// store reports into ErrRoomNotFound or ErrStore.
func (e *Engine) storeError(t MessageType, err error) error {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		return customErr
	}
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	e.logger.Error().Err(err).Str("command", string(t)).Msg("Room store operation failed.")
	return errs.NewError(errs.ErrStore)
}

// encodeReply returns nil when payload cannot be encoded; sending nil is a no-op.
func (e *Engine) encodeReply(t MessageType, payload any) []byte {
	msg, err := EncodeMessage(t, payload)
	if err != nil {
		e.logger.Error().Err(err).Str("type", string(t)).Msg("Failed to encode reply.")
		return nil
	}
	return msg
}

func (e *Engine) broadcast(r room.Room, exclude string) {
	msg, err := EncodeMessage(TypeRoomUpdated, UpdatedPayload{Room: r})
	if err != nil {
		e.logger.Error().Err(err).Str("room_id", r.ID).Msg("Failed to encode room update.")
		return
	}
	e.fanout.SendToRoom(r, msg, exclude)
}

func cleanName(raw, field string, maxRunes int) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errs.NewError(errs.ErrValidation, field+" is required.")
	}
	if utf8.RuneCountInString(name) > maxRunes {
		return "", errs.NewError(errs.ErrValidation, field+" must be at most "+strconv.Itoa(maxRunes)+" characters.")
	}
	return name, nil
}

func validateDeck(cards []user.Card) error {
	seen := make(map[user.Card]struct{}, len(cards))
	for _, c := range cards {
		if c.IsZero() {
			return errs.NewError(errs.ErrValidation, "Cards must not be empty.")
		}
		if _, dup := seen[c]; dup {
			return errs.NewError(errs.ErrValidation, "Cards must be unique.")
		}
		seen[c] = struct{}{}
	}
	return nil
}
