package broadcast

import "sync"

// Conn is the write side of one live stream. Both the Fiber WebSocket
// connection and test fakes satisfy it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// TextMessage matches the WebSocket text frame opcode.
const TextMessage = 1

// Registry maps room names to the set of live connections subscribed to
// them. It owns the sets exclusively: subscriptions, removals on send
// failure and removals on disconnect all go through Subscribe/Unsubscribe,
// never through direct set manipulation by callers.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{}
	// conn -> room, so a re-subscribe moves the connection instead of
	// leaving it in two rooms.
	subscriptions map[Conn]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:         make(map[string]map[Conn]struct{}),
		subscriptions: make(map[Conn]string),
	}
}

// Subscribe adds conn to room's set. Idempotent: re-adding a present member
// is a no-op. A connection lives in at most one room; subscribing while
// already subscribed elsewhere removes it from the old room first.
func (r *Registry) Subscribe(conn Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.subscriptions[conn]; ok {
		if prev == room {
			return
		}
		r.removeLocked(conn, prev)
	}

	set, ok := r.rooms[room]
	if !ok {
		set = make(map[Conn]struct{})
		r.rooms[room] = set
	}
	set[conn] = struct{}{}
	r.subscriptions[conn] = room
}

// Unsubscribe removes conn from room's set if present; absent members are
// ignored.
func (r *Registry) Unsubscribe(conn Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subscriptions[conn] != room {
		return
	}
	r.removeLocked(conn, room)
	delete(r.subscriptions, conn)
}

func (r *Registry) removeLocked(conn Conn, room string) {
	if set, ok := r.rooms[room]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.rooms, room)
		}
	}
}

// Members returns a snapshot of room's connection set. Mutating the returned
// slice never affects the registry.
func (r *Registry) Members(room string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.rooms[room]
	if !ok {
		return nil
	}
	members := make([]Conn, 0, len(set))
	for conn := range set {
		members = append(members, conn)
	}
	return members
}

// Room returns the room conn is currently subscribed to, if any.
func (r *Registry) Room(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.subscriptions[conn]
	return room, ok
}

// ConnCount returns the total number of subscribed connections.
func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscriptions)
}

// RoomCount returns the number of rooms with at least one subscriber.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Snapshot returns room -> subscriber count for every active room.
func (r *Registry) Snapshot() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]int, len(r.rooms))
	for room, set := range r.rooms {
		stats[room] = len(set)
	}
	return stats
}
