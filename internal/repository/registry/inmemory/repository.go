package inmemory

import (
	"log/slog"
	"sync"

	"github.com/reviewroom/server/internal/domain"
)

// repo is the authoritative per-process view of room state. All mutation of
// rooms and of the user→rooms presence index goes through its methods under
// a single mutex, which is what keeps the two structures consistent: a user
// is in a room's people set exactly when the room is in the user's presence
// entry.
type repo struct {
	mu       sync.Mutex
	rooms    map[string]*domain.Room
	presence map[string]map[string]struct{}
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:    make(map[string]*domain.Room),
		presence: make(map[string]map[string]struct{}),
		logger:   logger,
	}
}

// EnsureRoom creates an empty room entry if absent and returns its snapshot.
// Opening a session is informational: nobody is added to the people set.
func (r *repo) EnsureRoom(roomId string) domain.Snapshot {
	funcName := "registry.inmemory.EnsureRoom"
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomId]
	if !ok {
		room = domain.NewRoom(roomId)
		r.rooms[roomId] = room
		r.logger.Debug(funcName, "created", roomId)
	}

	return room.Snapshot()
}

// Join adds userId to the room, creating it if absent. The first member of a
// fresh room seeds its playback state from their payload since there is
// nothing to inherit. Joining twice is a no-op on the people set.
func (r *repo) Join(roomId, userId string, seed *domain.PlaybackUpdate) domain.Snapshot {
	funcName := "registry.inmemory.Join"
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomId]
	if !ok {
		room = domain.NewRoom(roomId)
		r.rooms[roomId] = room
	}

	if room.Empty() && seed != nil {
		room.ApplyPlaybackUpdate(seed)
	}
	room.State.PlaylistId = roomId

	room.AddPerson(userId)
	if r.presence[userId] == nil {
		r.presence[userId] = make(map[string]struct{})
	}
	r.presence[userId][roomId] = struct{}{}

	r.logger.Debug(funcName, "room_id", roomId, "user_id", userId)
	return room.Snapshot()
}

// Leave removes userId from the room and from the presence index. A room
// whose people set becomes empty is deleted, not kept as a placeholder. The
// returned snapshot reports the post-removal membership so lingering
// subscribers still get a final people list.
func (r *repo) Leave(roomId, userId string) (domain.Snapshot, bool) {
	funcName := "registry.inmemory.Leave"
	r.mu.Lock()
	defer r.mu.Unlock()

	if rooms, ok := r.presence[userId]; ok {
		delete(rooms, roomId)
		if len(rooms) == 0 {
			delete(r.presence, userId)
		}
	}

	room, ok := r.rooms[roomId]
	if !ok {
		return domain.NewRoom(roomId).Snapshot(), false
	}

	room.RemovePerson(userId)
	snapshot := room.Snapshot()

	if room.Empty() {
		delete(r.rooms, roomId)
		r.logger.Debug(funcName, "deleted", roomId)
		return snapshot, true
	}

	r.logger.Debug(funcName, "room_id", roomId, "user_id", userId)
	return snapshot, false
}

// UpdatePlayback overwrites the room's playback fields from u, creating the
// room if absent, and returns the resulting snapshot.
func (r *repo) UpdatePlayback(roomId string, u *domain.PlaybackUpdate) domain.Snapshot {
	funcName := "registry.inmemory.UpdatePlayback"
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomId]
	if !ok {
		room = domain.NewRoom(roomId)
		r.rooms[roomId] = room
	}

	room.ApplyPlaybackUpdate(u)

	r.logger.Debug(funcName, "room_id", roomId)
	return room.Snapshot()
}

// RoomsOf returns the rooms userId is currently present in. Disconnect
// cleanup iterates this instead of scanning the whole registry.
func (r *repo) RoomsOf(userId string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]string, 0, len(r.presence[userId]))
	for roomId := range r.presence[userId] {
		rooms = append(rooms, roomId)
	}
	return rooms
}

func (r *repo) GetRoom(roomId string) (domain.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomId]
	if !ok {
		return domain.Snapshot{}, false
	}
	return room.Snapshot(), true
}
