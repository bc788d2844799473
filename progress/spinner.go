package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

var spinnerParts = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows a message with an animated glyph while running and the
// elapsed time once stopped.
type Spinner struct {
	mu      sync.Mutex
	message string

	started time.Time
	stopped time.Time
	now     func() time.Time
}

func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		started: time.Now(),
		now:     time.Now,
	}
}

func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

func (s *Spinner) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	if message := strings.TrimSpace(s.message); message != "" {
		sb.WriteString(message)
		sb.WriteString(" ")
	}

	if s.stopped.IsZero() {
		// one frame every 100ms
		frame := int(s.now().Sub(s.started)/(100*time.Millisecond)) % len(spinnerParts)
		sb.WriteString(spinnerParts[frame])
		sb.WriteString(" ")
	} else {
		fmt.Fprintf(&sb, "(%s)", s.stopped.Sub(s.started).Round(time.Millisecond))
	}

	return sb.String()
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped.IsZero() {
		s.stopped = s.now()
	}
}
