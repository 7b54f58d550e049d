package session

import (
	"strings"

	"github.com/samber/lo"
)

const (
	// DefaultConfirmCommand is the interpreter command that asks for confirmation.
	DefaultConfirmCommand = "rmdisk"
	// DefaultConfirmFlag is appended to an approved command line.
	DefaultConfirmFlag = "-confirm=true"
	// DefaultConfirmMarker prefixes the interpreter's confirmation message.
	DefaultConfirmMarker = "CONFIRM_RMDISK:"
)

// Resolver rewrites a script snapshot after a human approves or denies a confirmation.
// It only holds configuration; Approve and Deny are pure.
type Resolver struct {
	// Command is the name of the command needing confirmation, matched case-insensitively.
	Command string
	// Flag is the approval flag appended to the command line.
	Flag string
	// Marker is stripped from confirmation messages before display.
	Marker string
}

// DefaultResolver returns a resolver for the interpreter's disk removal command.
func DefaultResolver() Resolver {
	return Resolver{
		Command: DefaultConfirmCommand,
		Flag:    DefaultConfirmFlag,
		Marker:  DefaultConfirmMarker,
	}
}

// Approve appends the confirmation flag to the first unflagged target line.
// It returns the snapshot unchanged and false when there is no such line.
func (r Resolver) Approve(snapshot string) (string, bool) {
	lines := splitLines(snapshot)
	idx := r.locate(lines)
	if idx < 0 {
		return snapshot, false
	}

	body, terminator := cutTerminator(lines[idx])
	lines[idx] = strings.TrimSpace(body) + " " + r.Flag + terminator
	return strings.Join(lines, ""), true
}

// Deny removes the first unflagged target line.
// It returns the snapshot unchanged and false when there is no such line.
func (r Resolver) Deny(snapshot string) (string, bool) {
	lines := splitLines(snapshot)
	idx := r.locate(lines)
	if idx < 0 {
		return snapshot, false
	}

	kept := append(lines[:idx:idx], lines[idx+1:]...)
	return strings.Join(kept, ""), true
}

// StripMarker removes the interpreter's confirmation marker from a message.
func (r Resolver) StripMarker(message string) string {
	if r.Marker == "" {
		return strings.TrimSpace(message)
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(message), r.Marker))
}

// locate returns the index of the first line that starts with the command and
// does not carry the flag yet, or -1.
func (r Resolver) locate(lines []string) int {
	command := strings.ToLower(strings.TrimSpace(r.Command))
	if command == "" {
		return -1
	}
	flag := strings.ToLower(r.Flag)

	_, idx, found := lo.FindIndexOf(lines, func(line string) bool {
		normalized := strings.ToLower(strings.TrimSpace(line))
		return strings.HasPrefix(normalized, command) &&
			!strings.Contains(normalized, flag)
	})
	if !found {
		return -1
	}
	return idx
}

// splitLines splits after every newline so each piece keeps its terminator and
// strings.Join(lines, "") reproduces the input.
func splitLines(text string) []string {
	return strings.SplitAfter(text, "\n")
}

// cutTerminator separates a line from its "\n" or "\r\n" ending.
func cutTerminator(line string) (string, string) {
	if strings.HasSuffix(line, "\r\n") {
		return strings.TrimSuffix(line, "\r\n"), "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return strings.TrimSuffix(line, "\n"), "\n"
	}
	return line, ""
}
