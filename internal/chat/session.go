package chat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Ramazanov01/chatserver/internal/transfer"
)

// handshake reads the proposed username, validates it, and registers the
// session. A rejected handshake gets exactly one [ERROR] line and the
// connection is closed without ever creating a session.
func (s *Server) handshake(conn *connReader) {
	line, err := readLine(conn.r)
	if err != nil {
		conn.c.Close()
		return
	}
	username := strings.TrimSpace(line)
	if !validName(username, MaxUsernameLen) {
		writeLine(conn.c, "[ERROR] Invalid username.")
		conn.c.Close()
		return
	}

	sess := &Session{
		ID:       uuid.NewString(),
		Conn:     conn.c,
		Username: username,
		Out:      make(chan string, 64),
		limiter:  rate.NewLimiter(rate.Limit(s.cfg.MessageRate), s.cfg.MessageBurst),
	}
	if err := s.reg.Add(sess); err != nil {
		switch err {
		case ErrUsernameTaken:
			writeLine(conn.c, "[ERROR] Username already taken.")
		case ErrServerFull:
			writeLine(conn.c, "[ERROR] Server is full.")
		default:
			writeLine(conn.c, "[ERROR] Invalid username.")
		}
		conn.c.Close()
		return
	}

	StartOutboundWriter(sess)
	sendLine(sess, "[INFO] Joined successfully.")
	s.events.Appendf("[LOGIN] user '%s' connected", username)
	s.logger.Info("user registered",
		"username", username, "addr", conn.c.RemoteAddr().String(), "session", sess.ID)

	go s.runSession(sess, conn.r)
}

// runSession is the per-session command loop. It ends on read failure,
// /exit, or peer disconnect; teardown always goes through Registry.Remove.
func (s *Server) runSession(sess *Session, reader *bufio.Reader) {
	defer s.reg.Remove(sess)

	for {
		line, err := readLine(reader)
		if err != nil {
			return
		}
		if line == "" {
			continue
		}
		if !sess.limiter.Allow() {
			sendLine(sess, "[ERROR] Too many messages, slow down.")
			continue
		}
		if s.dispatch(sess, reader, line) {
			return
		}
	}
}

func (s *Server) dispatch(sess *Session, reader *bufio.Reader, line string) (done bool) {
	cmd, rest, _ := strings.Cut(line, " ")

	label := strings.TrimPrefix(cmd, "/")
	switch cmd {
	case "/join", "/rooms", "/leave", "/broadcast", "/whisper", "/sendfile", "/exit":
	default:
		label = "unknown"
	}
	start := time.Now()
	defer func() {
		CommandsTotal.WithLabelValues(label).Inc()
		CommandDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	switch cmd {
	case "/join":
		s.handleJoin(sess, rest)
	case "/rooms":
		s.handleRooms(sess)
	case "/leave":
		s.handleLeave(sess)
	case "/broadcast":
		s.handleBroadcast(sess, rest)
	case "/whisper":
		s.handleWhisper(sess, rest)
	case "/sendfile":
		s.handleSendFile(sess, reader, rest)
	case "/exit":
		return true
	default:
		sendLine(sess, "[ERROR] Unknown command.")
	}
	return false
}

func (s *Server) handleJoin(sess *Session, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		sendLine(sess, "[ERROR] Usage: /join <roomname>")
		return
	}
	room := fields[0]
	if !validName(room, MaxRoomLen) {
		sendLine(sess, "[ERROR] Invalid room name.")
		return
	}

	if old, changed := s.reg.JoinRoom(sess, room); changed {
		if old != "" {
			s.events.Appendf("[ROOM] user '%s' left room '%s'", sess.Username, old)
		}
		s.events.Appendf("[ROOM] user '%s' joined room '%s'", sess.Username, room)
	}
	sendLine(sess, fmt.Sprintf("[INFO] You joined room '%s'", room))
}

func (s *Server) handleRooms(sess *Session) {
	sendLine(sess, "[ROOMS] Available rooms:")
	for _, room := range s.reg.Rooms() {
		sendLine(sess, room)
	}
}

func (s *Server) handleLeave(sess *Session) {
	old := s.reg.LeaveRoom(sess)
	sendLine(sess, "[INFO] Left room.")
	s.events.Appendf("[ROOM] user '%s' left room '%s'", sess.Username, old)
}

func (s *Server) handleBroadcast(sess *Session, args string) {
	room := s.reg.RoomOf(sess)
	if room == "" {
		sendLine(sess, "[ERROR] Not in a room.")
		return
	}
	msg := strings.TrimSpace(args)
	if msg == "" {
		sendLine(sess, "[ERROR] Usage: /broadcast <message>")
		return
	}

	s.reg.Broadcast(room, fmt.Sprintf("[%s]: %s", sess.Username, msg), sess.Username)
	s.events.Appendf("[BROADCAST] %s: %s", sess.Username, msg)
}

func (s *Server) handleWhisper(sess *Session, args string) {
	target, msg, _ := strings.Cut(args, " ")
	msg = strings.TrimSpace(msg)
	if target == "" || msg == "" {
		sendLine(sess, "[ERROR] Usage: /whisper <user> <msg>")
		return
	}

	if !s.reg.Whisper(target, fmt.Sprintf("[WHISPER %s]: %s", sess.Username, msg)) {
		sendLine(sess, fmt.Sprintf("[ERROR] User '%s' not found.", target))
		return
	}
	s.events.Appendf("[WHISPER] %s -> %s: %s", sess.Username, target, msg)
}

// handleSendFile is the transfer intake. All admission checks run before a
// single payload byte is read; the declared size is then a hard contract,
// satisfied with one blocking ReadFull on the session's own connection.
func (s *Server) handleSendFile(sess *Session, reader *bufio.Reader, args string) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		sendLine(sess, "[ERROR] Usage: /sendfile <file> <size> <receiver>")
		return
	}
	filename, receiver := fields[0], fields[2]
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || size <= 0 || len(filename) > MaxFilenameLen {
		sendLine(sess, "[ERROR] Usage: /sendfile <file> <size> <receiver>")
		return
	}
	if size > MaxFileSize {
		sendLine(sess, "[ERROR] File too large (max 3MB).")
		return
	}
	if !s.reg.Exists(receiver) {
		sendLine(sess, "[ERROR] Receiver not found or offline.")
		return
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(reader, data); err != nil {
		sendLine(sess, "[ERROR] Incomplete file received.")
		return
	}

	// Raw side-channel backup, overwritten by each intake.
	if err := os.WriteFile(s.cfg.BackupFile, data, 0o644); err != nil {
		s.logger.Error("backup write failed", "path", s.cfg.BackupFile, "error", err)
		sendLine(sess, "[ERROR] Cannot save file on server.")
		return
	}

	t := transfer.New(sess.Username, receiver, filename, data)
	if err := s.queue.Enqueue(t); err != nil {
		sendLine(sess, "[ERROR] Upload queue full.")
		return
	}
	sendLine(sess, "[INFO] File sent successfully.")
}

// validName reports whether name is non-empty, within max bytes, and
// strictly alphanumeric. Applies to usernames and room names alike.
func validName(name string, max int) bool {
	if name == "" || len(name) > max {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		// last line without newline
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}
