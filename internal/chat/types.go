package chat

import (
	"net"

	"golang.org/x/time/rate"
)

const (
	MaxUsernameLen = 16
	MaxRoomLen     = 32
	MaxFilenameLen = 255
	MaxFileSize    = 3 << 20
)

// Session is the server-side state of one handshaked client. The session
// goroutine owns it; other goroutines reach it only through the Registry,
// and the room field is read and written under the Registry lock.
type Session struct {
	ID       string
	Conn     net.Conn
	Username string
	Out      chan string // outbound lines drained by the writer goroutine

	room    string
	limiter *rate.Limiter
}

var (
	ErrUsernameInvalid = errorString("username_invalid")
	ErrUsernameTaken   = errorString("username_taken")
	ErrServerFull      = errorString("server_full")
)

type errorString string

func (e errorString) Error() string { return string(e) }
