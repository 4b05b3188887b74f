package nats

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
	"github.com/nilsonaj/racko-frontend/pkg/proto"
)

func TestRoomSubject(t *testing.T) {
	subject := BuildRoomSubject("AB12CD")
	assert.Equal(t, "racko.room.AB12CD.snapshot", subject)

	code, ok := ParseRoomSubject(subject)
	require.True(t, ok)
	assert.Equal(t, "AB12CD", code)

	for _, bad := range []string{"racko.room..snapshot", "racko.room.A.B.snapshot", "im.logic.upstream", "racko.room.AB12CD"} {
		_, ok := ParseRoomSubject(bad)
		assert.False(t, ok, bad)
	}
}

func TestShardForIsStable(t *testing.T) {
	assert.Equal(t, 0, ShardFor("anything", 1))

	first := ShardFor(BuildRoomSubject("AB12CD"), 16)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ShardFor(BuildRoomSubject("AB12CD"), 16))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 16)
}

type recordingHandler struct {
	mu   sync.Mutex
	envs []*proto.SnapshotEnvelope
}

func (h *recordingHandler) OnSnapshotReceived(ctx context.Context, env *proto.SnapshotEnvelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.envs = append(h.envs, env)
}

func TestHandleMessage(t *testing.T) {
	h := &recordingHandler{}
	s := NewSnapshotSubscriber(nil, h, SubscriberConfig{})

	valid, err := json.Marshal(&proto.SnapshotEnvelope{
		Origin:   "node-b",
		RoomCode: "AB12CD",
		Snapshot: &racko.Snapshot{RoomCode: "AB12CD", MaxPlayers: 2, Seq: 7},
	})
	require.NoError(t, err)
	mismatched, err := json.Marshal(&proto.SnapshotEnvelope{RoomCode: "ZZ99ZZ", Snapshot: &racko.Snapshot{}})
	require.NoError(t, err)
	empty, err := json.Marshal(&proto.SnapshotEnvelope{RoomCode: "AB12CD"})
	require.NoError(t, err)

	subject := BuildRoomSubject("AB12CD")
	s.handleMessage(context.Background(), subject, []byte("{not json"))
	s.handleMessage(context.Background(), subject, mismatched)
	s.handleMessage(context.Background(), subject, empty)
	s.handleMessage(context.Background(), subject, valid)

	require.Len(t, h.envs, 1)
	assert.Equal(t, "node-b", h.envs[0].Origin)
	assert.Equal(t, uint64(7), h.envs[0].Snapshot.Seq)
}
