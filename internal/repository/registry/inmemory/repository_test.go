package inmemory

import (
	"log/slog"
	"testing"

	"github.com/reviewroom/server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo() *repo {
	return NewRepo(slog.Default())
}

func TestJoinSeedsFirstMember(t *testing.T) {
	r := newTestRepo()
	frame := 42

	snapshot := r.Join("p1", "user-1", &domain.PlaybackUpdate{
		IsPlaying:    true,
		CurrentFrame: &frame,
	})

	assert.Equal(t, []string{"user-1"}, snapshot.People)
	assert.True(t, snapshot.IsPlaying)
	assert.Equal(t, 42, snapshot.CurrentFrame)

	// the second joiner inherits the session state, their payload does
	// not reseed it
	otherFrame := 7
	snapshot = r.Join("p1", "user-2", &domain.PlaybackUpdate{CurrentFrame: &otherFrame})
	assert.Len(t, snapshot.People, 2)
	assert.Equal(t, 42, snapshot.CurrentFrame)
}

func TestJoinIdempotent(t *testing.T) {
	r := newTestRepo()

	r.Join("p1", "user-1", nil)
	snapshot := r.Join("p1", "user-1", nil)

	assert.Equal(t, []string{"user-1"}, snapshot.People)
	assert.Equal(t, []string{"p1"}, r.RoomsOf("user-1"))
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	r := newTestRepo()

	r.Join("p1", "user-1", nil)
	r.Join("p1", "user-2", nil)

	snapshot, deleted := r.Leave("p1", "user-1")
	assert.False(t, deleted)
	assert.Equal(t, []string{"user-2"}, snapshot.People)

	snapshot, deleted = r.Leave("p1", "user-2")
	assert.True(t, deleted)
	assert.Empty(t, snapshot.People)

	_, ok := r.GetRoom("p1")
	assert.False(t, ok)

	// a later join recreates the room seeded from that joiner's payload
	frame := 10
	snapshot = r.Join("p1", "user-3", &domain.PlaybackUpdate{CurrentFrame: &frame})
	assert.Equal(t, []string{"user-3"}, snapshot.People)
	assert.Equal(t, 10, snapshot.CurrentFrame)
}

func TestLeaveNotPresentIsNoop(t *testing.T) {
	r := newTestRepo()

	r.Join("p1", "user-1", nil)
	snapshot, deleted := r.Leave("p1", "user-2")

	assert.False(t, deleted)
	assert.Equal(t, []string{"user-1"}, snapshot.People)
}

// presence invariant: a room is in a user's presence entry exactly when the
// user is in the room's people set
func TestPresenceInvariant(t *testing.T) {
	r := newTestRepo()

	check := func() {
		t.Helper()
		for _, userId := range []string{"user-1", "user-2"} {
			for _, roomId := range []string{"p1", "p2"} {
				inPresence := false
				for _, id := range r.RoomsOf(userId) {
					if id == roomId {
						inPresence = true
					}
				}

				inRoom := false
				if snapshot, ok := r.GetRoom(roomId); ok {
					for _, id := range snapshot.People {
						if id == userId {
							inRoom = true
						}
					}
				}

				require.Equal(t, inRoom, inPresence,
					"presence mismatch for %s in %s", userId, roomId)
			}
		}
	}

	r.Join("p1", "user-1", nil)
	check()
	r.Join("p2", "user-1", nil)
	check()
	r.Join("p1", "user-2", nil)
	check()
	r.Leave("p1", "user-1")
	check()
	r.Leave("p2", "user-1")
	check()
	assert.Empty(t, r.RoomsOf("user-1"))
	r.Leave("p1", "user-2")
	check()
}

func TestEnsureRoomDoesNotAddPeople(t *testing.T) {
	r := newTestRepo()

	snapshot := r.EnsureRoom("p1")
	assert.Empty(t, snapshot.People)
	assert.Equal(t, "p1", snapshot.PlaylistId)

	// opening twice returns the same room
	r.Join("p1", "user-1", nil)
	snapshot = r.EnsureRoom("p1")
	assert.Equal(t, []string{"user-1"}, snapshot.People)
}

func TestUpdatePlaybackLastWriteWins(t *testing.T) {
	r := newTestRepo()
	r.Join("p1", "user-1", nil)

	f1, f2 := 10, 20
	r.UpdatePlayback("p1", &domain.PlaybackUpdate{CurrentFrame: &f1})
	snapshot := r.UpdatePlayback("p1", &domain.PlaybackUpdate{CurrentFrame: &f2})

	assert.Equal(t, 20, snapshot.CurrentFrame)
}
