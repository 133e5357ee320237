package chat

import (
	"bufio"
	"io"
	"strings"
	"testing"
)

func TestValidName(t *testing.T) {
	cases := []struct {
		name string
		max  int
		want bool
	}{
		{"alice", MaxUsernameLen, true},
		{"Bob42", MaxUsernameLen, true},
		{"", MaxUsernameLen, false},
		{"sixteencharacter", MaxUsernameLen, true},
		{"seventeencharacte", MaxUsernameLen, false},
		{"with space", MaxUsernameLen, false},
		{"tab\tchar", MaxUsernameLen, false},
		{"emoji🙂", MaxUsernameLen, false},
		{"under_score", MaxUsernameLen, false},
		{"golang", MaxRoomLen, true},
		{strings.Repeat("r", 32), MaxRoomLen, true},
		{strings.Repeat("r", 33), MaxRoomLen, false},
	}
	for _, tc := range cases {
		if got := validName(tc.name, tc.max); got != tc.want {
			t.Errorf("validName(%q, %d) = %v, want %v", tc.name, tc.max, got, tc.want)
		}
	}
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("first\r\nsecond\nlast without newline"))

	if line, err := readLine(r); err != nil || line != "first" {
		t.Fatalf("first line: %q, %v", line, err)
	}
	if line, err := readLine(r); err != nil || line != "second" {
		t.Fatalf("second line: %q, %v", line, err)
	}
	if line, err := readLine(r); err != nil || line != "last without newline" {
		t.Fatalf("trailing line: %q, %v", line, err)
	}
	if _, err := readLine(r); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}
