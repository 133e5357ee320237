package chat

import (
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Ramazanov01/chatserver/internal/eventlog"
)

func newTestRegistry(t *testing.T, capacity int) *Registry {
	t.Helper()
	events := eventlog.New(filepath.Join(t.TempDir(), "log.txt"), nil)
	return NewRegistry(capacity, events, nil)
}

func newTestSession(t *testing.T, name string) *Session {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return &Session{
		ID:       uuid.NewString(),
		Conn:     server,
		Username: name,
		Out:      make(chan string, 64),
	}
}

func TestRegistry_AddRejectsDuplicateUsername(t *testing.T) {
	r := newTestRegistry(t, 10)

	if err := r.Add(newTestSession(t, "alice")); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := r.Add(newTestSession(t, "alice")); err != ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegistry_ConcurrentAddsHaveOneWinner(t *testing.T) {
	r := newTestRegistry(t, 10)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Add(newTestSession(t, "alice"))
		}()
	}
	wg.Wait()
	close(errs)

	var failures int
	for err := range errs {
		if err == ErrUsernameTaken {
			failures++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one rejected add, got %d", failures)
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 registered session, got %d", r.Count())
	}
}

func TestRegistry_AddRejectsWhenFull(t *testing.T) {
	r := newTestRegistry(t, 1)

	if err := r.Add(newTestSession(t, "alice")); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := r.Add(newTestSession(t, "bob")); err != ErrServerFull {
		t.Fatalf("expected ErrServerFull, got %v", err)
	}
}

func TestRegistry_BroadcastExcludesSenderAndOtherRooms(t *testing.T) {
	r := newTestRegistry(t, 10)

	alice := newTestSession(t, "alice")
	bob := newTestSession(t, "bob")
	carol := newTestSession(t, "carol")
	for _, s := range []*Session{alice, bob, carol} {
		if err := r.Add(s); err != nil {
			t.Fatalf("add %s: %v", s.Username, err)
		}
	}
	r.JoinRoom(alice, "golang")
	r.JoinRoom(bob, "golang")
	r.JoinRoom(carol, "rust")

	r.Broadcast("golang", "[alice]: hello", "alice")

	got := waitForLine(t, bob.Out)
	if got != "[alice]: hello" {
		t.Fatalf("unexpected broadcast line: %q", got)
	}
	assertNoLine(t, alice.Out)
	assertNoLine(t, carol.Out)
}

func TestRegistry_WhisperTargetsExactlyOne(t *testing.T) {
	r := newTestRegistry(t, 10)

	alice := newTestSession(t, "alice")
	bob := newTestSession(t, "bob")
	if err := r.Add(alice); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(bob); err != nil {
		t.Fatal(err)
	}

	if !r.Whisper("bob", "[WHISPER alice]: hi") {
		t.Fatal("whisper to live session reported not found")
	}
	if got := waitForLine(t, bob.Out); got != "[WHISPER alice]: hi" {
		t.Fatalf("unexpected whisper line: %q", got)
	}
	assertNoLine(t, alice.Out)

	if r.Whisper("ghost", "boo") {
		t.Fatal("whisper to unknown user reported delivered")
	}
}

func TestRegistry_RoomsListOneLinePerMember(t *testing.T) {
	r := newTestRegistry(t, 10)

	alice := newTestSession(t, "alice")
	bob := newTestSession(t, "bob")
	idle := newTestSession(t, "idle")
	for _, s := range []*Session{alice, bob, idle} {
		if err := r.Add(s); err != nil {
			t.Fatal(err)
		}
	}
	r.JoinRoom(alice, "golang")
	r.JoinRoom(bob, "golang")

	rooms := r.Rooms()
	if len(rooms) != 2 {
		t.Fatalf("expected 2 entries (one per member), got %v", rooms)
	}
	for _, room := range rooms {
		if room != "golang" {
			t.Fatalf("unexpected room entry: %q", room)
		}
	}
}

func TestRegistry_JoinRoomSwitchesMembership(t *testing.T) {
	r := newTestRegistry(t, 10)

	alice := newTestSession(t, "alice")
	if err := r.Add(alice); err != nil {
		t.Fatal(err)
	}

	if old, changed := r.JoinRoom(alice, "roomA"); old != "" || !changed {
		t.Fatalf("first join: old=%q changed=%v", old, changed)
	}
	if old, changed := r.JoinRoom(alice, "roomB"); old != "roomA" || !changed {
		t.Fatalf("second join: old=%q changed=%v", old, changed)
	}
	if old, changed := r.JoinRoom(alice, "roomB"); changed {
		t.Fatalf("rejoining same room reported a change (old=%q)", old)
	}

	r.Broadcast("roomA", "stale", "")
	assertNoLine(t, alice.Out)

	r.Broadcast("roomB", "fresh", "")
	if got := waitForLine(t, alice.Out); got != "fresh" {
		t.Fatalf("unexpected line after switch: %q", got)
	}
}

func TestRegistry_RemoveStopsDelivery(t *testing.T) {
	r := newTestRegistry(t, 10)

	bob := newTestSession(t, "bob")
	if err := r.Add(bob); err != nil {
		t.Fatal(err)
	}
	r.JoinRoom(bob, "golang")

	r.Remove(bob)

	if r.Exists("bob") {
		t.Fatal("removed session still exists")
	}
	if r.Whisper("bob", "hi") {
		t.Fatal("whisper delivered to removed session")
	}
	if rooms := r.Rooms(); len(rooms) != 0 {
		t.Fatalf("removed session still listed in rooms: %v", rooms)
	}
}

func waitForLine(t *testing.T, ch <-chan string) string {
	t.Helper()
	deadline := time.NewTimer(1 * time.Second)
	defer deadline.Stop()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("out channel closed while waiting for a line")
		}
		return s
	case <-deadline.C:
		t.Fatal("timeout waiting for a line")
		return ""
	}
}

func assertNoLine(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case s := <-ch:
		if strings.TrimSpace(s) != "" {
			t.Fatalf("unexpected delivery: %q", s)
		}
	case <-time.After(50 * time.Millisecond):
	}
}
