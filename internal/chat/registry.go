package chat

import (
	"log/slog"
	"sync"

	"github.com/Ramazanov01/chatserver/internal/eventlog"
)

// Registry is the bounded table of live sessions, keyed by username. One
// mutex serializes structural mutation, uniqueness checks, and every scan
// that depends on them (room listing, broadcast enumeration). Delivery to a
// looked-up session happens under the same lock so a concurrent disconnect
// can never yield a send to a removed session; the send itself is a
// non-blocking push onto the session's buffered Out channel, so the lock is
// never held across a socket write.
type Registry struct {
	mu       sync.Mutex
	capacity int
	sessions map[string]*Session
	events   *eventlog.Log
	logger   *slog.Logger
}

func NewRegistry(capacity int, events *eventlog.Log, logger *slog.Logger) *Registry {
	if capacity <= 0 {
		capacity = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		capacity: capacity,
		sessions: make(map[string]*Session, capacity),
		events:   events,
		logger:   logger,
	}
}

// Add registers a handshaked session. The capacity and uniqueness checks
// and the insert are one atomic step: of two concurrent handshakes with the
// same name, exactly one succeeds.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.capacity {
		return ErrServerFull
	}
	if _, exists := r.sessions[s.Username]; exists {
		return ErrUsernameTaken
	}
	r.sessions[s.Username] = s
	ConnectedClients.Set(float64(len(r.sessions)))
	return nil
}

// Remove tears down the session: it leaves the table, its Out channel is
// closed to stop the writer goroutine, and the connection is closed. The
// session ID guards against removing a newer session that reused the name.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	cur, ok := r.sessions[s.Username]
	if !ok || cur.ID != s.ID {
		r.mu.Unlock()
		s.Conn.Close()
		return
	}
	delete(r.sessions, s.Username)
	close(s.Out)
	ConnectedClients.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	s.Conn.Close()
	r.events.Appendf("[DISCONNECT] %s disconnected.", s.Username)
	r.logger.Info("user left", "username", s.Username)
}

func (r *Registry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[name]
	return ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Broadcast delivers line to every member of room except excludeName.
// Per-recipient delivery is best-effort; one slow client never aborts the
// scan or blocks the sender.
func (r *Registry) Broadcast(room, line, excludeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.room == room && s.Username != excludeName {
			sendLine(s, line)
		}
	}
}

// Whisper delivers line to the named session only. It reports whether the
// target was found so the caller can surface an explicit error instead of
// dropping the message silently.
func (r *Registry) Whisper(target, line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[target]
	if !ok {
		return false
	}
	sendLine(s, line)
	return true
}

// Notify implements transfer.Notifier for the pipeline workers.
func (r *Registry) Notify(username, line string) bool {
	return r.Whisper(username, line)
}

// Rooms returns one entry per member currently in a room, in no particular
// order. Duplicates are intentional: each member contributes one line to
// the /rooms listing.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.room != "" {
			names = append(names, s.room)
		}
	}
	return names
}

// JoinRoom moves the session into room and reports the room it left.
// Joining the current room is a no-op.
func (r *Registry) JoinRoom(s *Session, room string) (old string, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old = s.room
	if old == room {
		return old, false
	}
	s.room = room
	return old, true
}

// LeaveRoom clears the session's room and returns the room it was in,
// which may be empty.
func (r *Registry) LeaveRoom(s *Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := s.room
	s.room = ""
	return old
}

func (r *Registry) RoomOf(s *Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return s.room
}

// CloseAll notifies every live session and force-closes its connection.
// Used only on shutdown; the writes bypass the Out channels so the notice
// reaches the socket before it closes.
func (r *Registry) CloseAll(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.Conn.Write([]byte(message + "\n"))
		s.Conn.Close()
	}
}

func sendLine(s *Session, line string) {
	// Non-blocking: drop when the client's buffer is full rather than
	// stalling the registry lock on a slow receiver.
	select {
	case s.Out <- line:
	default:
	}
}
