package virtual

import (
	"sort"
	"time"
)

// Scheduler delivers deferred callbacks on the host's event loop. It plays
// the role of requestAnimationFrame and setTimeout.
type Scheduler interface {
	// RequestFrame runs fn on the next frame.
	RequestFrame(fn func()) (cancel func())

	// AfterFunc runs fn once d has elapsed.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Loop is a deterministic, single-threaded Scheduler with a virtual clock.
// The host calls Frame once per rendered frame and Advance as time passes;
// nothing runs in the background.
type Loop struct {
	now    time.Duration
	seq    uint64
	frames []*task
	timers []*task
}

type task struct {
	id       uint64
	due      time.Duration
	fn       func()
	canceled bool
}

// NewLoop creates a loop whose virtual clock starts at zero.
func NewLoop() *Loop {
	return &Loop{}
}

// Now returns the virtual time elapsed since the loop was created.
func (l *Loop) Now() time.Duration { return l.now }

// RequestFrame queues fn for the next Frame call.
func (l *Loop) RequestFrame(fn func()) func() {
	t := l.newTask(0, fn)
	l.frames = append(l.frames, t)
	return func() { t.canceled = true }
}

// AfterFunc schedules fn to run once the clock has advanced by d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	t := l.newTask(l.now+max(d, 0), fn)
	l.timers = append(l.timers, t)
	return func() { t.canceled = true }
}

func (l *Loop) newTask(due time.Duration, fn func()) *task {
	l.seq++
	return &task{id: l.seq, due: due, fn: fn}
}

// Frame runs the frame callbacks queued before the call. Callbacks queued
// while running are deferred to the next Frame. It returns how many ran.
func (l *Loop) Frame() int {
	queued := l.frames
	l.frames = nil

	ran := 0
	for _, t := range queued {
		if t.canceled {
			continue
		}
		t.fn()
		ran++
	}
	return ran
}

// Advance moves the clock forward by d and fires every timer that became
// due, in deadline order. It returns how many ran.
func (l *Loop) Advance(d time.Duration) int {
	l.now += max(d, 0)

	ran := 0
	for {
		t := l.nextDue()
		if t == nil {
			return ran
		}
		t.fn()
		ran++
	}
}

// nextDue removes and returns the earliest due timer.
func (l *Loop) nextDue() *task {
	live := l.timers[:0]
	for _, t := range l.timers {
		if !t.canceled {
			live = append(live, t)
		}
	}
	l.timers = live

	sort.SliceStable(l.timers, func(i, j int) bool {
		if l.timers[i].due != l.timers[j].due {
			return l.timers[i].due < l.timers[j].due
		}
		return l.timers[i].id < l.timers[j].id
	})
	if len(l.timers) == 0 || l.timers[0].due > l.now {
		return nil
	}
	t := l.timers[0]
	l.timers = l.timers[1:]
	return t
}

// Settle runs frames until none are queued or maxFrames is reached. It
// returns the number of frames run.
func (l *Loop) Settle(maxFrames int) int {
	n := 0
	for n < maxFrames && l.Pending() > 0 {
		l.Frame()
		n++
	}
	return n
}

// Pending returns the number of live frame callbacks.
func (l *Loop) Pending() int {
	n := 0
	for _, t := range l.frames {
		if !t.canceled {
			n++
		}
	}
	return n
}

// Timers returns the number of live timers.
func (l *Loop) Timers() int {
	n := 0
	for _, t := range l.timers {
		if !t.canceled {
			n++
		}
	}
	return n
}
