package render

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atinylittleshell/mia/internal/interpreter"
	"github.com/atinylittleshell/mia/internal/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeSymbolAndLabel(t *testing.T) {
	modes := []session.Mode{
		session.ModeIdle,
		session.ModeBusy,
		session.ModePaused,
		session.ModeAwaitingConfirmation,
	}
	labels := map[string]bool{}
	for _, mode := range modes {
		assert.NotEmpty(t, ModeSymbol(mode))
		labels[ModeLabel(mode)] = true
	}
	assert.Len(t, labels, len(modes))
	assert.Equal(t, "waiting for confirmation", ModeLabel(session.ModeAwaitingConfirmation))
}

func TestWelcome(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		info      WelcomeInfo
		termWidth int
		wantLogo  bool
		wantTexts []string
	}{
		{
			name:      "release build on a wide terminal",
			info:      WelcomeInfo{Version: "1.0.0", ServerURL: "http://localhost:8080"},
			termWidth: 100,
			wantLogo:  true,
			wantTexts: []string{"MIA file-system console", "version: 1.0.0", "server:  http://localhost:8080", "tip:"},
		},
		{
			name:      "dev build",
			info:      WelcomeInfo{Version: "dev"},
			termWidth: 100,
			wantLogo:  true,
			wantTexts: []string{"development", "not configured"},
		},
		{
			name:      "update available",
			info:      WelcomeInfo{Version: "1.0.0", LatestVersion: "1.1.0"},
			termWidth: 100,
			wantLogo:  true,
			wantTexts: []string{"update available: 1.1.0"},
		},
		{
			name:      "narrow terminal drops the logo",
			info:      WelcomeInfo{Version: "1.0.0"},
			termWidth: 30,
			wantLogo:  false,
			wantTexts: []string{"MIA file-system console", "version: 1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Welcome(tt.info, tt.termWidth, now)
			for _, want := range tt.wantTexts {
				assert.Contains(t, out, want)
			}
			assert.Equal(t, tt.wantLogo, strings.Contains(out, "|_| |_| |_|_|"))
		})
	}
}

func TestTipOfTheDayIsStableWithinADay(t *testing.T) {
	morning := time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 5, 5, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, getTipOfTheDay(morning), getTipOfTheDay(evening))
	assert.NotEmpty(t, getTipOfTheDay(morning))
}

func TestLogoLinesShareAWidth(t *testing.T) {
	for _, line := range miaLogo {
		assert.Equal(t, lipgloss.Width(miaLogo[0]), lipgloss.Width(line))
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner(t *testing.T) {
	var out syncBuffer
	s := NewSpinner(&out)
	s.interval = 5 * time.Millisecond

	assert.False(t, s.Running())
	s.Stop()

	s.Start("running script")
	s.Start("still running")
	assert.True(t, s.Running())

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "still running")
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())
	assert.True(t, strings.HasSuffix(out.String(), "\r\033[K"))
}

func TestContentTree(t *testing.T) {
	root := interpreter.TreeNode{
		Name: "/",
		Type: "folder",
		Children: []interpreter.TreeNode{
			{Name: "users.txt", Type: "file"},
			{Name: "docs", Type: "folder", Children: []interpreter.TreeNode{
				{Name: "notes.txt", Type: "file"},
			}},
			{Name: "empty", Type: "folder"},
		},
	}

	out := ContentTree(root).String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "/", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "users.txt")
	assert.Contains(t, lines[2], "docs/")
	assert.Contains(t, lines[3], "notes.txt")
	assert.Contains(t, lines[4], "empty/")
}
