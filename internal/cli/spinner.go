package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates msg on one line of out until stopped or until its
// context ends. The line is cleared either way.
type spinner struct {
	msg    string
	out    io.Writer
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startSpinner(ctx context.Context, out io.Writer, msg string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	s := &spinner{msg: msg, out: out, cancel: cancel, done: make(chan struct{})}
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len(s.msg)+4))
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.msg))
		}
	}
}

// Stop ends the animation and waits for the line to be cleared. Calls
// after the first return immediately.
func (s *spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Fail stops the spinner and prints msg as an error.
func (s *spinner) Fail(msg string) {
	s.Stop()
	printError("%s", msg)
}
