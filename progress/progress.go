package progress

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const defaultTermHeight = 24

type State interface {
	String() string
}

// Progress redraws a stack of states in place until it is stopped.
type Progress struct {
	mu sync.Mutex
	// buffer output to minimize flickering on all terminals
	w  *bufio.Writer
	fd int

	pos    int
	states []State

	ticker *time.Ticker
	done   chan struct{}
	exited chan struct{}
}

func NewProgress(w io.Writer) *Progress {
	p := &Progress{
		w:      bufio.NewWriter(w),
		fd:     -1,
		ticker: time.NewTicker(100 * time.Millisecond),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	if f, ok := w.(*os.File); ok {
		p.fd = int(f.Fd())
	}

	// hide cursor
	fmt.Fprint(p.w, "\033[?25l")
	go p.start()
	return p
}

// IsTerminal reports whether w is a terminal progress output can redraw.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Progress) stop() bool {
	select {
	case <-p.done:
		return false
	default:
	}

	close(p.done)
	<-p.exited

	p.mu.Lock()
	for _, state := range p.states {
		if spinner, ok := state.(*Spinner); ok {
			spinner.Stop()
		}
	}
	p.mu.Unlock()

	p.render()
	return true
}

func (p *Progress) Stop() bool {
	stopped := p.stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	if stopped {
		fmt.Fprintln(p.w)
	}

	// show cursor
	fmt.Fprint(p.w, "\033[?25h")
	p.w.Flush()
	return stopped
}

func (p *Progress) Add(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.states = append(p.states, state)
}

func (p *Progress) height() int {
	if p.fd >= 0 {
		if _, height, err := term.GetSize(p.fd); err == nil && height > 0 {
			return height
		}
	}

	return defaultTermHeight
}

func (p *Progress) render() {
	height := p.height()

	p.mu.Lock()
	defer p.mu.Unlock()

	for range p.pos - 1 {
		fmt.Fprint(p.w, "\033[A")
	}

	fmt.Fprint(p.w, "\033[1G")

	// render progress lines
	n := min(len(p.states), height)
	for i := len(p.states) - n; i < len(p.states); i++ {
		fmt.Fprint(p.w, p.states[i].String(), "\033[K")
		if i < len(p.states)-1 {
			fmt.Fprint(p.w, "\n")
		}
	}

	p.pos = n
	p.w.Flush()
}

func (p *Progress) start() {
	defer close(p.exited)
	defer p.ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.render()
		}
	}
}
