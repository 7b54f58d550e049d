// Package batch runs a script through the session controller without the console:
// pauses are continued and confirmations are resolved by policy.
package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atinylittleshell/mia/internal/render"
	"github.com/atinylittleshell/mia/internal/session"
	"github.com/atinylittleshell/mia/internal/styles"
	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"
)

// ConfirmPolicy decides how confirmation requests are answered.
type ConfirmPolicy string

// Confirmation policies.
const (
	PolicyAsk     ConfirmPolicy = "ask"
	PolicyApprove ConfirmPolicy = "approve"
	PolicyDeny    ConfirmPolicy = "deny"
)

// ParsePolicy validates a policy name.
func ParsePolicy(name string) (ConfirmPolicy, error) {
	switch policy := ConfirmPolicy(strings.ToLower(strings.TrimSpace(name))); policy {
	case PolicyAsk, PolicyApprove, PolicyDeny:
		return policy, nil
	default:
		return "", fmt.Errorf("unknown confirm policy %q (want ask, approve or deny)", name)
	}
}

// DefaultMaxRounds bounds a run when Options.MaxRounds is zero.
const DefaultMaxRounds = 100

var (
	// ErrTooManyRounds stops a run whose interpreter never finishes.
	ErrTooManyRounds = errors.New("script did not finish within the round limit")
	// ErrRunFailed is returned when an exchange reported an error.
	ErrRunFailed = errors.New("script run failed")
)

// Options configures a Runner.
type Options struct {
	Controller *session.Controller
	Out        io.Writer
	// In answers confirmation and step prompts. Required for PolicyAsk and Step.
	In     io.Reader
	Policy ConfirmPolicy
	// Step waits for Enter before each continue.
	Step bool
	// MaxRounds bounds the number of exchanges. Zero means DefaultMaxRounds.
	MaxRounds int
	// Width wraps output; zero disables wrapping.
	Width int
	// Spinner, when set, animates while an exchange is in flight.
	Spinner *render.Spinner
	Logger  *zap.Logger
}

// Result summarizes a finished run.
type Result struct {
	Rounds   int
	Approved int
	Denied   int
	Mode     session.Mode
}

// Runner drives one controller until each submitted script is idle again.
type Runner struct {
	opts    Options
	in      *bufio.Reader
	printed int
}

// NewRunner validates opts and fills in defaults.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("batch runner requires a controller")
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAsk
	}
	if (opts.Policy == PolicyAsk || opts.Step) && opts.In == nil {
		return nil, fmt.Errorf("policy %q and step mode need an input", opts.Policy)
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := &Runner{opts: opts}
	if opts.In != nil {
		r.in = bufio.NewReader(opts.In)
	}
	return r, nil
}

// Run submits script and drives the session until it is idle again.
func (r *Runner) Run(ctx context.Context, script string) (Result, error) {
	c := r.opts.Controller
	result := Result{}

	r.printed = len(c.Snapshot().Output)

	err := r.exchange("running script", func() error { return c.Submit(ctx, script) })
	for err == nil {
		result.Rounds++
		snap := c.Snapshot()
		result.Mode = snap.Mode

		if r.flush(snap) {
			return result, ErrRunFailed
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if result.Rounds >= r.opts.MaxRounds && snap.Mode != session.ModeIdle {
			return result, ErrTooManyRounds
		}

		switch snap.Mode {
		case session.ModeIdle:
			fmt.Fprintln(r.opts.Out, styles.SUCCESS(render.SymbolSuccess+" script finished"))
			return result, nil

		case session.ModePaused:
			if r.opts.Step {
				if !r.prompt(styles.PROMPT("paused, press Enter to continue (q to stop) ")) {
					return result, nil
				}
			} else {
				fmt.Fprintln(r.opts.Out, styles.DIM(render.SymbolPaused+" paused, continuing"))
			}
			err = r.exchange("continuing", func() error { return c.Continue(ctx) })

		case session.ModeAwaitingConfirmation:
			message := c.Resolver().StripMarker(snap.Pending.Message)
			if r.approve(message) {
				result.Approved++
				err = r.exchange("approving", func() error { return c.Approve(ctx) })
			} else {
				result.Denied++
				err = r.exchange("denying", func() error { return c.Deny(ctx) })
			}

		default:
			return result, fmt.Errorf("unexpected session mode %s", snap.Mode)
		}
	}

	return result, err
}

func (r *Runner) exchange(message string, trigger func() error) error {
	if r.opts.Spinner != nil {
		r.opts.Spinner.Start(message)
		defer r.opts.Spinner.Stop()
	}
	return trigger()
}

// flush prints output chunks not printed yet and reports whether one was an error.
func (r *Runner) flush(snap session.Snapshot) bool {
	failed := false
	for i := min(r.printed, len(snap.Output)); i < len(snap.Output); i++ {
		chunk := snap.Output[i]
		text := strings.TrimRight(chunk, "\n")
		if r.opts.Width > 0 {
			text = wordwrap.String(text, r.opts.Width)
		}
		if snap.ChunkFailed(i) {
			failed = true
			fmt.Fprintln(r.opts.Out, styles.ERROR(render.SymbolError+" "+text))
			r.opts.Logger.Warn("batch exchange failed", zap.String("output", chunk))
			continue
		}
		fmt.Fprintln(r.opts.Out, text)
	}
	r.printed = len(snap.Output)
	return failed
}

func (r *Runner) approve(message string) bool {
	switch r.opts.Policy {
	case PolicyApprove:
		fmt.Fprintln(r.opts.Out, styles.PROMPT(render.SymbolConfirm+" "+message+" (approved)"))
		return true
	case PolicyDeny:
		fmt.Fprintln(r.opts.Out, styles.PROMPT(render.SymbolConfirm+" "+message+" (denied)"))
		return false
	}

	fmt.Fprint(r.opts.Out, styles.PROMPT(render.SymbolConfirm+" "+message+" [y/N] "))
	line, _ := r.in.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// prompt waits for a line; it returns false on "q" or end of input.
func (r *Runner) prompt(text string) bool {
	fmt.Fprint(r.opts.Out, text)
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(line)) != "q"
}
