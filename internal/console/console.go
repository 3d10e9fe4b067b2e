// Package console implements view.UI on a line-oriented terminal.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// UI writes notifications to Out and reads answers from In, one line each.
type UI struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	// AssumeYes answers every confirmation with yes without reading input.
	AssumeYes bool
}

func New(in io.Reader, out io.Writer) *UI {
	return &UI{in: bufio.NewReader(in), out: out}
}

// Notify prints msg on its own line.
func (u *UI) Notify(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintln(u.out, msg)
}

// Confirm asks a yes/no question. Anything but y, yes or 是 is a no.
func (u *UI) Confirm(msg string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.AssumeYes {
		fmt.Fprintf(u.out, "%s [y/N] y\n", msg)
		return true
	}
	fmt.Fprintf(u.out, "%s [y/N] ", msg)
	line, ok := u.readLine()
	if !ok {
		fmt.Fprintln(u.out)
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes", "是":
		return true
	}
	return false
}

// Prompt reads one line. ok is false at end of input.
func (u *UI) Prompt(msg string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprint(u.out, msg)
	line, ok := u.readLine()
	if !ok {
		fmt.Fprintln(u.out)
	}
	return line, ok
}

func (u *UI) readLine() (string, bool) {
	line, err := u.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}
