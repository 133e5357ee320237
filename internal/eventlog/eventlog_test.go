package eventlog

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
)

var lineRe = regexp.MustCompile(`^[A-Z][a-z]{2} [A-Z][a-z]{2} [ 0-9]\d \d{2}:\d{2}:\d{2} \d{4} - .+$`)

func TestLog_AppendFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	l := New(path, nil)
	var mirror bytes.Buffer
	l.mirror = &mirror

	l.Append("[START] Server started.")
	l.Appendf("[LOGIN] user '%s' connected", "alice")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !lineRe.MatchString(line) {
			t.Errorf("malformed log line: %q", line)
		}
	}
	if !strings.HasSuffix(lines[0], " - [START] Server started.") {
		t.Errorf("unexpected first line: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], " - [LOGIN] user 'alice' connected") {
		t.Errorf("unexpected second line: %q", lines[1])
	}
	if mirror.String() != string(data) {
		t.Error("stdout mirror differs from the log file")
	}
}

func TestLog_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	l := New(path, nil)
	l.mirror = &bytes.Buffer{}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append("[ROOM] user 'x' joined room 'y'")
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 intact lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !lineRe.MatchString(line) {
			t.Fatalf("interleaved or malformed line: %q", line)
		}
	}
}
