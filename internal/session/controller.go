package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/atinylittleshell/mia/internal/interpreter"
	"go.uber.org/zap"
)

// Trigger is an external action applied to the controller.
type Trigger string

const (
	TriggerSubmit   Trigger = "submit"
	TriggerContinue Trigger = "continue"
	TriggerApprove  Trigger = "approve"
	TriggerDeny     Trigger = "deny"
	TriggerReset    Trigger = "reset"
)

// ErrorPrefix starts the output chunk written for a failed exchange.
const ErrorPrefix = "error: "

// Outcome summarizes how a trigger ended, for recording.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomePaused       Outcome = "paused"
	OutcomeConfirmation Outcome = "confirmation"
	OutcomeError        Outcome = "error"
)

// Run describes one finished exchange.
type Run struct {
	Trigger Trigger
	// Script is the text sent to the interpreter (remaining lines joined for continue).
	Script  string
	Outcome Outcome
	// Message is the confirmation prompt or the transport error text.
	Message string
	Output  string
}

// Recorder receives every finished exchange. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// Options configures a Controller.
type Options struct {
	// Interpreter executes scripts. Required.
	Interpreter interpreter.ScriptRunner

	// Resolver rewrites scripts after a confirmation. Zero value means DefaultResolver.
	Resolver Resolver

	// Recorder is optional.
	Recorder Recorder

	// Logger for debug output. If nil, a no-op logger is used.
	Logger *zap.Logger
}

// Controller drives one Session through the script execution protocol.
// Triggers block for exactly one exchange; concurrent triggers while busy are
// rejected with ErrBusy.
type Controller struct {
	interp   interpreter.ScriptRunner
	resolver Resolver
	recorder Recorder
	logger   *zap.Logger

	mu         sync.Mutex
	session    *Session
	generation uint64
}

// NewController creates a controller with a fresh idle session.
func NewController(opts Options) (*Controller, error) {
	if opts.Interpreter == nil {
		return nil, fmt.Errorf("session controller requires an interpreter")
	}

	resolver := opts.Resolver
	if resolver.Command == "" {
		resolver = DefaultResolver()
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		interp:     opts.Interpreter,
		resolver:   resolver,
		recorder:   opts.Recorder,
		logger:     logger,
		session:    NewSession(),
		generation: 1,
	}, nil
}

// Resolver returns the resolver used for approve and deny.
func (c *Controller) Resolver() Resolver {
	return c.resolver
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.snapshot(c.generation)
}

// Allowed reports whether trigger would be accepted in the current mode.
func (c *Controller) Allowed(trigger Trigger) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return allowed(trigger, c.session.mode)
}

func allowed(trigger Trigger, mode Mode) bool {
	switch trigger {
	case TriggerSubmit:
		return mode != ModeBusy
	case TriggerContinue:
		return mode == ModePaused
	case TriggerApprove, TriggerDeny:
		return mode == ModeAwaitingConfirmation
	case TriggerReset:
		return true
	default:
		return false
	}
}

// Reset discards the current session and starts a new one. A response still in
// flight for the old session is dropped when it arrives.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = NewSession()
	c.generation++
	c.logger.Debug("session reset", zap.Uint64("generation", c.generation))
}

// Submit sends text to the interpreter as a fresh script.
func (c *Controller) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyScript
	}

	ex, err := c.begin(TriggerSubmit)
	if err != nil {
		return err
	}
	c.submit(ctx, ex, text)
	return nil
}

// Continue resumes a paused script by sending only its remaining lines.
func (c *Controller) Continue(ctx context.Context) error {
	ex, err := c.begin(TriggerContinue)
	if err != nil {
		return err
	}

	remaining := ex.saved.remaining
	submitted := strings.Join(remaining, "\n")
	resp, callErr := c.interp.Continue(ctx, remaining)
	c.finish(ctx, ex, submitted, false, resp, callErr)
	return nil
}

// Approve resubmits the confirmation snapshot with the confirmation flag added.
func (c *Controller) Approve(ctx context.Context) error {
	return c.resolve(ctx, TriggerApprove, c.resolver.Approve)
}

// Deny resubmits the confirmation snapshot without the command that asked for it.
func (c *Controller) Deny(ctx context.Context) error {
	return c.resolve(ctx, TriggerDeny, c.resolver.Deny)
}

func (c *Controller) resolve(ctx context.Context, trigger Trigger, rewrite func(string) (string, bool)) error {
	ex, err := c.begin(trigger)
	if err != nil {
		return err
	}

	snapshot := ex.saved.pending.ScriptSnapshot
	text, changed := rewrite(snapshot)
	if !changed {
		c.logger.Warn("no unconfirmed command found in snapshot, resubmitting unchanged",
			zap.String("trigger", string(trigger)),
			zap.String("command", c.resolver.Command))
	}

	if strings.TrimSpace(text) == "" {
		// Nothing left to run once the only command was denied.
		c.finish(ctx, ex, text, true, &interpreter.ScriptResponse{Kind: interpreter.KindCompleted}, nil)
		return nil
	}

	c.submit(ctx, ex, text)
	return nil
}

// exchange tracks one in-flight trigger.
type exchange struct {
	trigger    Trigger
	session    *Session
	generation uint64
	saved      checkpoint
}

func (c *Controller) begin(trigger Trigger) (exchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mode := c.session.mode
	if mode == ModeBusy {
		return exchange{}, ErrBusy
	}
	if !allowed(trigger, mode) {
		return exchange{}, fmt.Errorf("%w: %s while %s", ErrInvalidTrigger, trigger, mode)
	}

	ex := exchange{
		trigger:    trigger,
		session:    c.session,
		generation: c.generation,
		saved:      c.session.begin(),
	}
	c.logger.Debug("exchange started",
		zap.String("trigger", string(trigger)),
		zap.Stringer("from", mode),
		zap.Uint64("generation", ex.generation))
	return ex, nil
}

func (c *Controller) submit(ctx context.Context, ex exchange, text string) {
	resp, err := c.interp.Submit(ctx, text)
	c.finish(ctx, ex, text, true, resp, err)
}

// finish applies the result of an exchange, unless the session was reset meanwhile.
func (c *Controller) finish(ctx context.Context, ex exchange, submitted string, fresh bool, resp *interpreter.ScriptResponse, callErr error) {
	c.mu.Lock()
	if ex.generation != c.generation || ex.session != c.session {
		c.mu.Unlock()
		c.logger.Debug("dropping response for a reset session",
			zap.String("trigger", string(ex.trigger)),
			zap.Uint64("generation", ex.generation))
		return
	}

	sess := ex.session
	if fresh {
		sess.scriptText = submitted
	}

	run := Run{Trigger: ex.trigger, Script: submitted}
	if callErr != nil {
		sess.restore(ex.saved)
		run.Outcome = OutcomeError
		run.Message = callErr.Error()
		run.Output = ErrorPrefix + callErr.Error()
		sess.appendOutput(run.Output, true)
	} else {
		sess.ApplyResponse(resp, submitted)
		run.Outcome = outcomeOf(resp.Kind)
		run.Message = resp.Message
		run.Output = resp.Output
	}
	mode := sess.mode
	c.mu.Unlock()

	if callErr != nil {
		c.logger.Warn("script exchange failed",
			zap.String("trigger", string(ex.trigger)),
			zap.Stringer("mode", mode),
			zap.Error(callErr))
	} else {
		c.logger.Info("script exchange finished",
			zap.String("trigger", string(ex.trigger)),
			zap.Stringer("kind", resp.Kind),
			zap.Stringer("mode", mode))
	}

	if c.recorder != nil {
		if err := c.recorder.Record(ctx, run); err != nil {
			c.logger.Warn("failed to record script run", zap.Error(err))
		}
	}
}

func outcomeOf(kind interpreter.ResponseKind) Outcome {
	switch kind {
	case interpreter.KindPaused:
		return OutcomePaused
	case interpreter.KindConfirmationRequired:
		return OutcomeConfirmation
	default:
		return OutcomeCompleted
	}
}
