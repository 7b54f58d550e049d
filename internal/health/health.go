// Package health polls the interpreter's health endpoint on a fixed interval.
// It shares nothing with the script session; consumers read Reports.
package health

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/atinylittleshell/mia/internal/interpreter"
	"go.uber.org/zap"
)

const DefaultInterval = 30 * time.Second

type Status int

const (
	StatusChecking Status = iota
	StatusConnected
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "checking"
	}
}

// Report is the result of one probe.
type Report struct {
	Status    Status
	Version   string
	Host      string
	CheckedAt time.Time
	Err       error
	// Outdated is set when the server reports a version below the configured minimum.
	Outdated bool
}

type Options struct {
	Checker interpreter.HealthChecker
	// Interval between probes. Zero means DefaultInterval.
	Interval time.Duration
	// MinServerVersion is an optional semver lower bound.
	MinServerVersion string
	Logger           *zap.Logger
	// Now is used for CheckedAt; tests may override it.
	Now func() time.Time
}

// Prober runs health checks in the background and publishes the latest Report.
type Prober struct {
	checker    interpreter.HealthChecker
	interval   time.Duration
	minVersion *semver.Version
	logger     *zap.Logger
	now        func() time.Time

	updates chan Report

	mu      sync.Mutex
	latest  Report
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewProber(opts Options) (*Prober, error) {
	if opts.Checker == nil {
		return nil, fmt.Errorf("health prober requires a checker")
	}

	p := &Prober{
		checker:  opts.Checker,
		interval: opts.Interval,
		logger:   opts.Logger,
		now:      opts.Now,
		updates:  make(chan Report, 1),
		latest:   Report{Status: StatusChecking},
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}

	if opts.MinServerVersion != "" {
		v, err := semver.NewVersion(opts.MinServerVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum server version %q: %w", opts.MinServerVersion, err)
		}
		p.minVersion = v
	}

	return p, nil
}

// Probe performs a single check, stores it as the latest report and returns it.
func (p *Prober) Probe(ctx context.Context) Report {
	info, err := p.checker.Health(ctx)
	report := Report{CheckedAt: p.now()}

	switch {
	case err != nil:
		report.Status = StatusDisconnected
		report.Err = err
	case info.Status != "" && !strings.EqualFold(info.Status, "ok"):
		report.Status = StatusDisconnected
		report.Version = info.Version
		report.Host = info.Host
		report.Err = fmt.Errorf("server reported status %q", info.Status)
	default:
		report.Status = StatusConnected
		report.Version = info.Version
		report.Host = info.Host
		report.Outdated = p.outdated(info.Version)
	}

	p.logger.Debug("health probe",
		zap.Stringer("status", report.Status),
		zap.String("version", report.Version),
		zap.Error(report.Err))

	p.publish(report)
	return report
}

func (p *Prober) outdated(version string) bool {
	if p.minVersion == nil || version == "" {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		p.logger.Debug("server version is not semver", zap.String("version", version))
		return false
	}
	return v.LessThan(p.minVersion)
}

// publish replaces any unread report so readers always see the newest one.
func (p *Prober) publish(report Report) {
	p.mu.Lock()
	p.latest = report
	p.mu.Unlock()

	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- report:
	default:
	}
}

// Latest returns the most recent report, StatusChecking before the first probe.
func (p *Prober) Latest() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Updates delivers reports as they are produced. Only the newest unread report is kept.
func (p *Prober) Updates() <-chan Report {
	return p.updates
}

// Start probes immediately and then on every interval until Stop or ctx is done.
// Calling Start on a running prober does nothing.
func (p *Prober) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	stopped := make(chan struct{})
	p.stopped = stopped
	p.mu.Unlock()

	go p.loop(ctx, stopped)
}

func (p *Prober) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.probeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeOnce(ctx)
		}
	}
}

func (p *Prober) probeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()
	p.Probe(probeCtx)
}

// Stop ends the background loop and waits for it to exit.
func (p *Prober) Stop() {
	p.mu.Lock()
	cancel, stopped := p.cancel, p.stopped
	p.cancel, p.stopped = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}
