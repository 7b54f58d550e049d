package render

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// SpinnerFrames contains the braille spinner animation frames
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a single status line while an exchange is in flight.
// It is used for batch output; the console uses the bubbles spinner.
type Spinner struct {
	writer   io.Writer
	frames   []string
	interval time.Duration

	mu      sync.Mutex
	message string
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a stopped spinner writing to w.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		writer:   w,
		frames:   SpinnerFrames,
		interval: 80 * time.Millisecond,
	}
}

// Start begins animating message. Starting a running spinner only updates the message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = message
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate(s.stop, s.done)
}

func (s *Spinner) animate(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	for {
		s.mu.Lock()
		fmt.Fprintf(s.writer, "\r\033[K%s %s", s.frames[frame], s.message)
		s.mu.Unlock()
		frame = (frame + 1) % len(s.frames)

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the animation and clears the line. It is safe to call on a stopped spinner.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done

	s.mu.Lock()
	fmt.Fprint(s.writer, "\r\033[K")
	s.mu.Unlock()
}

// Running reports whether the spinner is animating.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
