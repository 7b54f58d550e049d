package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atinylittleshell/mia/internal/interpreter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingChecker struct {
	calls atomic.Int32
	info  *interpreter.Health
	err   error
}

func (c *countingChecker) Health(ctx context.Context) (*interpreter.Health, error) {
	c.calls.Add(1)
	return c.info, c.err
}

func TestNewProber(t *testing.T) {
	_, err := NewProber(Options{})
	assert.Error(t, err)

	_, err = NewProber(Options{Checker: interpreter.NewMock(), MinServerVersion: "not-a-version"})
	assert.Error(t, err)

	p, err := NewProber(Options{Checker: interpreter.NewMock()})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, p.interval)
	assert.Equal(t, StatusChecking, p.Latest().Status)
}

func TestProbe(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		info       *interpreter.Health
		err        error
		minVersion string
		status     Status
		outdated   bool
	}{
		{
			name:   "reachable",
			info:   &interpreter.Health{Status: "ok", Version: "1.2.0", Host: "ip-10"},
			status: StatusConnected,
		},
		{
			name:   "unreachable",
			err:    &interpreter.TransportError{Op: "health", Err: errors.New("connection refused")},
			status: StatusDisconnected,
		},
		{
			name:   "unhealthy status",
			info:   &interpreter.Health{Status: "degraded"},
			status: StatusDisconnected,
		},
		{
			name:       "older than minimum",
			info:       &interpreter.Health{Status: "ok", Version: "0.9.0"},
			minVersion: "1.0.0",
			status:     StatusConnected,
			outdated:   true,
		},
		{
			name:       "non semver version is never outdated",
			info:       &interpreter.Health{Status: "ok", Version: "dev"},
			minVersion: "1.0.0",
			status:     StatusConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &countingChecker{info: tt.info, err: tt.err}
			p, err := NewProber(Options{
				Checker:          checker,
				MinServerVersion: tt.minVersion,
				Logger:           zap.NewNop(),
				Now:              func() time.Time { return fixed },
			})
			require.NoError(t, err)

			report := p.Probe(context.Background())
			assert.Equal(t, tt.status, report.Status)
			assert.Equal(t, tt.outdated, report.Outdated)
			assert.Equal(t, fixed, report.CheckedAt)
			assert.Equal(t, report, p.Latest())
			if tt.status == StatusDisconnected {
				assert.Error(t, report.Err)
			}
		})
	}
}

func TestUpdatesKeepsOnlyNewest(t *testing.T) {
	checker := &countingChecker{info: &interpreter.Health{Status: "ok", Version: "1"}}
	p, err := NewProber(Options{Checker: checker})
	require.NoError(t, err)

	p.Probe(context.Background())
	checker.info = &interpreter.Health{Status: "ok", Version: "2"}
	p.Probe(context.Background())

	report := <-p.Updates()
	assert.Equal(t, "2", report.Version)

	select {
	case <-p.Updates():
		t.Fatal("expected a single pending report")
	default:
	}
}

func TestStartProbesImmediatelyAndOnInterval(t *testing.T) {
	checker := &countingChecker{info: &interpreter.Health{Status: "ok"}}
	p, err := NewProber(Options{Checker: checker, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	p.Start(context.Background())
	p.Start(context.Background())

	select {
	case report := <-p.Updates():
		assert.Equal(t, StatusConnected, report.Status)
	case <-time.After(time.Second):
		t.Fatal("no report after start")
	}

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	calls := checker.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, checker.calls.Load())

	p.Stop()
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "checking", StatusChecking.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "disconnected", StatusDisconnected.String())
}
