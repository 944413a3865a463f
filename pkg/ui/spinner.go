package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner holds spinner animation frames
type Spinner struct {
	Frames   []string
	Interval time.Duration
}

var (
	dotsSpinner = Spinner{
		Frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Interval: 80 * time.Millisecond,
	}
	lineSpinner = Spinner{
		Frames:   []string{"-", "\\", "|", "/"},
		Interval: 100 * time.Millisecond,
	}
)

// DefaultSpinner returns a braille-dot spinner on Unicode terminals,
// ASCII line spinner (-\|/) otherwise.
func DefaultSpinner() Spinner {
	if UnicodeTerminal() {
		return dotsSpinner
	}
	return lineSpinner
}

// Activity animates a spinner next to a message until stopped.
// On non-terminal writers the message is printed once with no animation.
type Activity struct {
	w       io.Writer
	msg     string
	animate bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// StartActivity begins an activity line on w.
func StartActivity(w io.Writer, msg string) *Activity {
	a := &Activity{
		w:       w,
		msg:     msg,
		animate: IsTerminal(w),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if !a.animate {
		fmt.Fprintf(w, "%s...\n", msg)
		close(a.done)
		return a
	}
	go a.run(DefaultSpinner())
	return a
}

func (a *Activity) run(s Spinner) {
	defer close(a.done)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(a.w, "\r%s %s", SpinnerStyle.Render(s.Frames[i%len(s.Frames)]), a.msg)
		select {
		case <-a.stop:
			fmt.Fprint(a.w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the animation. Safe to call more than once.
func (a *Activity) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}
