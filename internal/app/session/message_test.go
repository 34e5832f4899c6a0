package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planpoker/internal/app/user"
	"planpoker/internal/pkg/errs"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Command
	}{
		{
			name:  "create",
			frame: `{"type":"room:create","payload":{"roomName":"R","ownerName":"Alice","ownerEmoji":"🦊","cards":[1,"?"]}}`,
			want:  CreateRoom{RoomName: "R", OwnerName: "Alice", OwnerEmoji: "🦊", Cards: []user.Card{user.NumberCard(1), user.TokenCard("?")}},
		},
		{
			name:  "join",
			frame: `{"type":"room:join","payload":{"roomId":"AbCd1234","userName":"Bob"}}`,
			want:  JoinRoom{RoomID: "AbCd1234", UserName: "Bob"},
		},
		{
			name:  "vote number",
			frame: `{"type":"user:vote","payload":{"vote":0.5}}`,
			want:  Vote{Vote: user.NumberCard(0.5)},
		},
		{
			name:  "spectate",
			frame: `{"type":"user:spectate","payload":{"spectator":true}}`,
			want:  Spectate{Spectator: true},
		},
		{
			name:  "reveal without payload",
			frame: `{"type":"room:reveal"}`,
			want:  Reveal{},
		},
		{
			name:  "reset with empty payload",
			frame: `{"type":"room:reset","payload":{}}`,
			want:  Reset{},
		},
		{
			name:  "leave",
			frame: `{"type":"room:leave","payload":null}`,
			want:  Leave{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		code  int
	}{
		{"not json", `{"type":`, errs.ErrInvalidJSONFormat},
		{"unknown type", `{"type":"room:explode","payload":{}}`, errs.ErrUnknownCommand},
		{"missing type", `{"payload":{}}`, errs.ErrUnknownCommand},
		{"vote missing", `{"type":"user:vote","payload":{}}`, errs.ErrValidation},
		{"vote null", `{"type":"user:vote","payload":{"vote":null}}`, errs.ErrValidation},
		{"vote bool", `{"type":"user:vote","payload":{"vote":true}}`, errs.ErrValidation},
		{"wrong field type", `{"type":"room:join","payload":{"roomId":42}}`, errs.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(tt.frame))
			require.Error(t, err)
			assert.Equal(t, tt.code, errs.CodeOf(err))
		})
	}
}

func TestEncodeError(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal(EncodeError(errs.NewError(errs.ErrForbidden, "Only the room owner can reveal votes.")), &env))
	assert.Equal(t, TypeRoomError, env.Type)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, errs.ErrForbidden, p.Code)
	assert.Equal(t, "Only the room owner can reveal votes.", p.Message)

	require.NoError(t, json.Unmarshal(EncodeError(errors.New("socket: broken pipe")), &env))
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, errs.ErrUnknown, p.Code)
	assert.NotContains(t, p.Message, "broken pipe")
}
