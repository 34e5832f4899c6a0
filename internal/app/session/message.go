/*
Package session runs the room session engine.

This file defines the wire envelope shared by inbound commands and outbound
results, and decodes inbound frames into the closed set of Command variants.
*/
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"planpoker/internal/app/room"
	"planpoker/internal/app/user"
	"planpoker/internal/pkg/errs"
)

// MessageType is the "type" tag of an envelope.
type MessageType string

const (
	TypeCreateRoom MessageType = "room:create"
	TypeJoinRoom   MessageType = "room:join"
	TypeVote       MessageType = "user:vote"
	TypeSpectate   MessageType = "user:spectate"
	TypeReveal     MessageType = "room:reveal"
	TypeReset      MessageType = "room:reset"
	TypeLeave      MessageType = "room:leave"

	TypeRoomCreated MessageType = "room:created"
	TypeRoomJoined  MessageType = "room:joined"
	TypeRoomUpdated MessageType = "room:updated"
	TypeRoomError   MessageType = "room:error"
)

// Envelope is the frame shape in both directions.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command is one decoded inbound command. The set of implementations is closed.
type Command interface {
	Type() MessageType
}

// CreateRoom opens a new room owned by the requester.
type CreateRoom struct {
	RoomName   string      `json:"roomName"`
	OwnerName  string      `json:"ownerName"`
	OwnerEmoji string      `json:"ownerEmoji,omitempty"`
	Cards      []user.Card `json:"cards,omitempty"`
}

// JoinRoom adds the requester to an existing room.
type JoinRoom struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
	Emoji    string `json:"emoji,omitempty"`
}

// Vote casts the requester's card for the current round.
type Vote struct {
	Vote user.Card `json:"vote"`
}

// Spectate switches the requester in or out of spectator mode.
type Spectate struct {
	Spectator bool `json:"spectator"`
}

// Reveal exposes the votes of the current round.
type Reveal struct{}

// Reset clears the votes and starts a new round.
type Reset struct{}

// Leave removes the requester from their room without closing the connection.
type Leave struct{}

func (CreateRoom) Type() MessageType { return TypeCreateRoom }
func (JoinRoom) Type() MessageType   { return TypeJoinRoom }
func (Vote) Type() MessageType       { return TypeVote }
func (Spectate) Type() MessageType   { return TypeSpectate }
func (Reveal) Type() MessageType     { return TypeReveal }
func (Reset) Type() MessageType      { return TypeReset }
func (Leave) Type() MessageType      { return TypeLeave }

// DecodeCommand parses one inbound frame. Malformed JSON yields
// ErrInvalidJSONFormat, an unknown type tag ErrUnknownCommand and a payload
// that does not fit its command ErrValidation.
func DecodeCommand(frame []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	var cmd Command
	switch env.Type {
	case TypeCreateRoom:
		var c CreateRoom
		if err := decodePayload(env.Payload, &c); err != nil {
			return nil, err
		}
		cmd = c
	case TypeJoinRoom:
		var c JoinRoom
		if err := decodePayload(env.Payload, &c); err != nil {
			return nil, err
		}
		cmd = c
	case TypeVote:
		var c struct {
			Vote *user.Card `json:"vote"`
		}
		if err := decodePayload(env.Payload, &c); err != nil {
			return nil, err
		}
		if c.Vote == nil {
			return nil, errs.NewError(errs.ErrValidation, "A vote is required.")
		}
		cmd = Vote{Vote: *c.Vote}
	case TypeSpectate:
		var c Spectate
		if err := decodePayload(env.Payload, &c); err != nil {
			return nil, err
		}
		cmd = c
	case TypeReveal:
		cmd = Reveal{}
	case TypeReset:
		cmd = Reset{}
	case TypeLeave:
		cmd = Leave{}
	default:
		return nil, errs.NewError(errs.ErrUnknownCommand, fmt.Sprintf("Unknown command %q.", env.Type))
	}
	return cmd, nil
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return errs.NewError(errs.ErrInvalidJSONFormat)
		}
		return errs.NewError(errs.ErrValidation, "Malformed command payload.")
	}
	return nil
}

// CreatedPayload is the body of room:created.
type CreatedPayload struct {
	Room    room.Room `json:"room"`
	OwnerID string    `json:"ownerId"`
}

// JoinedPayload is the body of room:joined.
type JoinedPayload struct {
	Room   room.Room `json:"room"`
	UserID string    `json:"userId"`
}

// UpdatedPayload is the body of room:updated.
type UpdatedPayload struct {
	Room room.Room `json:"room"`
}

// ErrorPayload is the body of room:error.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// EncodeMessage builds an outbound frame.
func EncodeMessage(t MessageType, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Payload: body})
}

// EncodeError builds a room:error frame for err. Errors that are not a
// CustomError are reported with the generic ErrUnknown message.
func EncodeError(err error) []byte {
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	frame, _ := EncodeMessage(TypeRoomError, ErrorPayload{
		Message: customErr.Message,
		Code:    customErr.Code,
	})
	return frame
}
