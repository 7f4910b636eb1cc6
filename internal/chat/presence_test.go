package chat

import (
	"testing"

	"slimechat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceJoinThenLeave(t *testing.T) {
	registry := NewPresenceRegistry()

	_, err := registry.Join("conn-1", models.ChatUser{ID: "u1", Name: "Ann", Color: "#ff0000"})
	require.NoError(t, err)
	assert.Len(t, registry.ListActive(), 1)

	session, existed := registry.Leave("conn-1")
	assert.True(t, existed)
	assert.Equal(t, "u1", session.User.ID)
	assert.Empty(t, registry.ListActive())
}

func TestPresenceLeaveUnknownIsNoOp(t *testing.T) {
	registry := NewPresenceRegistry()

	_, existed := registry.Leave("never-joined")
	assert.False(t, existed)
	assert.Empty(t, registry.ListActive())
}

func TestPresenceDuplicateConnectionRejected(t *testing.T) {
	registry := NewPresenceRegistry()

	_, err := registry.Join("conn-1", models.ChatUser{ID: "u1"})
	require.NoError(t, err)

	_, err = registry.Join("conn-1", models.ChatUser{ID: "u2"})
	assert.ErrorIs(t, err, ErrDuplicateConnection)

	// Original session survives the rejected join
	active := registry.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, "u1", active[0].User.ID)
}

func TestPresenceSnapshotPreservesJoinOrder(t *testing.T) {
	registry := NewPresenceRegistry()

	for _, id := range []string{"c", "a", "b"} {
		_, err := registry.Join(id, models.ChatUser{ID: "user-" + id})
		require.NoError(t, err)
	}

	active := registry.ListActive()
	require.Len(t, active, 3)
	assert.Equal(t, "user-c", active[0].User.ID)
	assert.Equal(t, "user-a", active[1].User.ID)
	assert.Equal(t, "user-b", active[2].User.ID)
}

func TestPresenceSnapshotIsDetached(t *testing.T) {
	registry := NewPresenceRegistry()

	_, err := registry.Join("conn-1", models.ChatUser{ID: "u1"})
	require.NoError(t, err)

	snapshot := registry.ListActive()
	registry.Leave("conn-1")

	// The earlier snapshot still holds the point-in-time view
	assert.Len(t, snapshot, 1)
	assert.Empty(t, registry.ListActive())
}
