package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"planpoker/internal/app/room"
)

const recvTimeout = time.Second

// fakeChannel records queued frames and can be closed to simulate a gone peer.
type fakeChannel struct {
	mu     sync.Mutex
	closed bool
	frames chan []byte
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{frames: make(chan []byte, 64)}
}

func (f *fakeChannel) TrySend(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrChannelClosed
	}
	select {
	case f.frames <- msg:
		return nil
	default:
		return ErrBackpressure
	}
}

func (f *fakeChannel) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeChannel) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

type received struct {
	Type    MessageType
	Room    room.Room
	OwnerID string
	UserID  string
	Error   ErrorPayload
}

// recv waits for the next frame on ch and decodes it.
func recv(t *testing.T, ch *fakeChannel) received {
	t.Helper()

	select {
	case frame := <-ch.frames:
		return decodeFrame(t, frame)
	case <-time.After(recvTimeout):
		t.Fatal("timed out waiting for a message")
		return received{}
	}
}

// recvType waits for the next frame and requires it to have type want.
func recvType(t *testing.T, ch *fakeChannel, want MessageType) received {
	t.Helper()

	got := recv(t, ch)
	require.Equal(t, want, got.Type)
	return got
}

// expectNone requires that no frame is queued on ch.
func expectNone(t *testing.T, ch *fakeChannel) {
	t.Helper()

	select {
	case frame := <-ch.frames:
		t.Fatalf("unexpected message: %s", frame)
	case <-time.After(20 * time.Millisecond):
	}
}

func decodeFrame(t *testing.T, frame []byte) received {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))

	out := received{Type: env.Type}
	switch env.Type {
	case TypeRoomCreated:
		var p CreatedPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out.Room, out.OwnerID = p.Room, p.OwnerID
	case TypeRoomJoined:
		var p JoinedPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out.Room, out.UserID = p.Room, p.UserID
	case TypeRoomUpdated:
		var p UpdatedPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out.Room = p.Room
	case TypeRoomError:
		require.NoError(t, json.Unmarshal(env.Payload, &out.Error))
	default:
		t.Fatalf("unexpected message type %q", env.Type)
	}
	return out
}
