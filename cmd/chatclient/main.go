// Command chatclient is the interactive terminal client. It performs the
// username handshake, forwards command lines, colors server replies, and
// validates files locally before streaming them after a /sendfile header.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const maxFileSize = 3 << 20

var (
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

var allowedExts = map[string]bool{
	".txt": true,
	".pdf": true,
	".png": true,
	".jpg": true,
}

func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: chatclient <server_ip> <port>")
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", net.JoinHostPort(os.Args[1], os.Args[2]))
	if err != nil {
		fmt.Println(errStyle.Render("[ERROR] " + err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	stdin := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter username (max 16 chars, alphanumeric): ")
	if !stdin.Scan() {
		return
	}
	fmt.Fprintf(conn, "%s\n", strings.TrimSpace(stdin.Text()))

	server := bufio.NewReader(conn)
	reply, err := server.ReadString('\n')
	if err != nil {
		fmt.Println(errStyle.Render("[ERROR] Connection closed."))
		os.Exit(1)
	}
	if strings.Contains(reply, "[ERROR]") {
		fmt.Print(errStyle.Render(reply))
		os.Exit(1)
	}
	fmt.Print(infoStyle.Render(reply))

	go receiveLoop(server)

	for {
		fmt.Print(">> ")
		if !stdin.Scan() {
			break
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/sendfile") {
			args := strings.Fields(line)[1:]
			if len(args) != 2 {
				fmt.Println(errStyle.Render("[ERROR] Usage: /sendfile <filename> <user>"))
				continue
			}
			sendFile(conn, args[0], args[1])
			continue
		}

		fmt.Fprintf(conn, "%s\n", line)
		if line == "/exit" {
			break
		}
	}
	fmt.Println("\n[CLIENT] Connection closed.")
}

func receiveLoop(server *bufio.Reader) {
	for {
		line, err := server.ReadString('\n')
		if err != nil {
			fmt.Println("\n[CLIENT] Connection closed.")
			os.Exit(0)
		}
		switch {
		case strings.Contains(line, "[ERROR]"):
			fmt.Print(errStyle.Render(line))
		case strings.Contains(line, "[INFO]"):
			fmt.Print(infoStyle.Render(line))
		default:
			fmt.Print(line)
		}
		fmt.Print(">> ")
	}
}

// sendFile enforces the client-side contract (file exists, size within the
// 3MB cap, allowed extension), then sends the header line followed by the
// raw bytes. The server re-validates size and receiver on its side.
func sendFile(conn net.Conn, filename, receiver string) {
	st, err := os.Stat(filename)
	if err != nil {
		fmt.Println(errStyle.Render(fmt.Sprintf("[ERROR] Cannot open file '%s'.", filename)))
		return
	}
	if st.Size() > maxFileSize {
		fmt.Println(errStyle.Render("[ERROR] File exceeds 3MB limit."))
		return
	}
	if !allowedExts[strings.ToLower(filepath.Ext(filename))] {
		fmt.Println(errStyle.Render("[ERROR] Unsupported file type."))
		return
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Println(errStyle.Render(fmt.Sprintf("[ERROR] Cannot open file '%s'.", filename)))
		return
	}

	fmt.Fprintf(conn, "/sendfile %s %d %s\n", filepath.Base(filename), len(data), receiver)
	if _, err := conn.Write(data); err != nil {
		fmt.Println(errStyle.Render("[ERROR] File send failed."))
		return
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("[INFO] File '%s' sent to %s.", filename, receiver)))
}
