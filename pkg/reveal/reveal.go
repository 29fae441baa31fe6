// Package reveal plans and plays the progressive "typing" display of assistant
// text. It is presentation only and never touches the conversation log.
package reveal

import (
	"context"
	"time"
)

const (
	// InstantCeiling is the length (in runes) above which text is shown in one step.
	InstantCeiling = 500
	InstantDelay   = 100 * time.Millisecond
)

type threshold struct {
	maxRunes int
	delay    time.Duration
}

var thresholds = []threshold{
	{maxRunes: 50, delay: 30 * time.Millisecond},
	{maxRunes: 150, delay: 20 * time.Millisecond},
	{maxRunes: 300, delay: 10 * time.Millisecond},
	{maxRunes: InstantCeiling, delay: 5 * time.Millisecond},
}

// DelayFor returns the per-rune delay for a text of n runes. Longer text never
// gets a longer delay.
func DelayFor(n int) time.Duration {
	for _, th := range thresholds {
		if n <= th.maxRunes {
			return th.delay
		}
	}
	return 0
}

// Step is one partial-reveal state: wait Delay, then show Text.
type Step struct {
	Delay time.Duration
	Text  string
}

// Plan is the pure reveal schedule for text.
func Plan(text string) []Step {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []Step{{Text: ""}}
	}
	if n > InstantCeiling {
		return []Step{{Delay: InstantDelay, Text: text}}
	}
	d := DelayFor(n)
	steps := make([]Step, n)
	for i := range runes {
		steps[i] = Step{Delay: d, Text: string(runes[:i+1])}
	}
	return steps
}

// Frame is emitted while a reveal plays. ID identifies the entry being revealed.
type Frame struct {
	ID   int
	Text string
	Done bool
}

// Scheduler plays plans in real time. Each Reveal call owns its own cursor, so
// overlapping reveals of different entries never interfere.
type Scheduler struct {
	sleep func(ctx context.Context, d time.Duration) error
}

func NewScheduler() *Scheduler {
	return &Scheduler{sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reveal plays text for entry id and closes the returned channel when done or
// when ctx is cancelled. The last frame of a completed reveal has Done set.
func (s *Scheduler) Reveal(ctx context.Context, id int, text string) <-chan Frame {
	out := make(chan Frame)
	steps := Plan(text)
	go func() {
		defer close(out)
		for i, st := range steps {
			if err := s.sleep(ctx, st.Delay); err != nil {
				return
			}
			f := Frame{ID: id, Text: st.Text, Done: i == len(steps)-1}
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
