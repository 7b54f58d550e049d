// Package session implements the client side of the script execution protocol:
// the per-run state, the confirmation resolver and the controller that drives
// submit/continue/approve/deny exchanges against the interpreter.
package session

import (
	"strings"

	"github.com/atinylittleshell/mia/internal/interpreter"
)

// Mode is the resting or in-flight state of a session.
type Mode int

const (
	ModeIdle Mode = iota
	ModeBusy
	ModePaused
	ModeAwaitingConfirmation
)

func (m Mode) String() string {
	switch m {
	case ModeBusy:
		return "busy"
	case ModePaused:
		return "paused"
	case ModeAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "idle"
	}
}

// Confirmation is the interpreter's request to approve a destructive command.
type Confirmation struct {
	Message string
	// ScriptSnapshot is the exact text whose submission produced this request.
	ScriptSnapshot string
}

// Session holds the state of one script run. It does no I/O.
type Session struct {
	scriptText string
	output     []string
	// failed[i] marks output[i] as a client-side exchange error.
	failed    []bool
	mode      Mode
	remaining []string
	pending   *Confirmation
}

// NewSession returns an empty, idle session.
func NewSession() *Session {
	return &Session{mode: ModeIdle}
}

// Reset clears everything and returns the session to idle.
func (s *Session) Reset() {
	*s = Session{mode: ModeIdle}
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// ApplyResponse folds an interpreter response into the session.
// submitted is the text that produced resp; it becomes the confirmation snapshot.
func (s *Session) ApplyResponse(resp *interpreter.ScriptResponse, submitted string) {
	s.appendOutput(resp.Output, false)

	switch resp.Kind {
	case interpreter.KindConfirmationRequired:
		s.pending = &Confirmation{Message: resp.Message, ScriptSnapshot: submitted}
		s.remaining = nil
		s.mode = ModeAwaitingConfirmation
	case interpreter.KindPaused:
		s.remaining = append([]string(nil), resp.Remaining...)
		s.pending = nil
		s.mode = ModePaused
	default:
		s.remaining = nil
		s.pending = nil
		s.mode = ModeIdle
	}
}

func (s *Session) appendOutput(chunk string, failed bool) {
	if chunk != "" {
		s.output = append(s.output, chunk)
		s.failed = append(s.failed, failed)
	}
}

// checkpoint is the resting state saved while an exchange is in flight.
type checkpoint struct {
	mode      Mode
	remaining []string
	pending   *Confirmation
}

// begin moves the session into ModeBusy and returns what it was doing before.
// Paused lines and pending confirmations live in the checkpoint until the exchange ends.
func (s *Session) begin() checkpoint {
	cp := checkpoint{mode: s.mode, remaining: s.remaining, pending: s.pending}
	s.remaining = nil
	s.pending = nil
	s.mode = ModeBusy
	return cp
}

// restore puts back the state saved by begin, used when an exchange fails.
func (s *Session) restore(cp checkpoint) {
	s.mode = cp.mode
	s.remaining = cp.remaining
	s.pending = cp.pending
}

// Snapshot is an immutable copy of a session for display and tests.
type Snapshot struct {
	Generation uint64
	ScriptText string
	Output     []string
	// Failed is parallel to Output and marks chunks reporting a failed exchange.
	Failed    []bool
	Mode      Mode
	Remaining []string
	Pending   *Confirmation
}

func (s *Session) snapshot(generation uint64) Snapshot {
	snap := Snapshot{
		Generation: generation,
		ScriptText: s.scriptText,
		Output:     append([]string(nil), s.output...),
		Failed:     append([]bool(nil), s.failed...),
		Mode:       s.mode,
		Remaining:  append([]string(nil), s.remaining...),
	}
	if s.pending != nil {
		pending := *s.pending
		snap.Pending = &pending
	}
	return snap
}

// ChunkFailed reports whether Output[i] records a failed exchange.
func (s Snapshot) ChunkFailed(i int) bool {
	return i >= 0 && i < len(s.Failed) && s.Failed[i]
}

// OutputText joins the output log the way it is displayed.
func (s Snapshot) OutputText() string {
	return strings.Join(s.Output, "\n")
}
