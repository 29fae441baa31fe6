package reveal

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayFor_Monotonic(t *testing.T) {
	prev := DelayFor(0)
	for n := 1; n <= InstantCeiling+10; n++ {
		d := DelayFor(n)
		require.LessOrEqual(t, d, prev, "n=%d", n)
		prev = d
	}
	require.Equal(t, 30*time.Millisecond, DelayFor(10))
	require.Equal(t, 5*time.Millisecond, DelayFor(InstantCeiling))
}

func TestPlan_PerRune(t *testing.T) {
	steps := Plan("olá")
	require.Len(t, steps, 3)
	require.Equal(t, "o", steps[0].Text)
	require.Equal(t, "ol", steps[1].Text)
	require.Equal(t, "olá", steps[2].Text)
	for _, st := range steps {
		require.Equal(t, DelayFor(3), st.Delay)
	}
}

func TestPlan_AboveCeilingIsImmediate(t *testing.T) {
	long := strings.Repeat("x", InstantCeiling+1)
	steps := Plan(long)
	require.Len(t, steps, 1)
	require.Equal(t, long, steps[0].Text)
	require.Equal(t, InstantDelay, steps[0].Delay)

	atCeiling := Plan(strings.Repeat("y", InstantCeiling))
	require.Len(t, atCeiling, InstantCeiling)
}

func TestPlan_Empty(t *testing.T) {
	require.Equal(t, []Step{{Text: ""}}, Plan(""))
}

func instantScheduler() *Scheduler {
	return &Scheduler{sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() }}
}

func TestReveal_EmitsFramesAndCloses(t *testing.T) {
	s := instantScheduler()
	var frames []Frame
	for f := range s.Reveal(context.Background(), 7, "abc") {
		frames = append(frames, f)
	}
	require.Equal(t, []Frame{
		{ID: 7, Text: "a"},
		{ID: 7, Text: "ab"},
		{ID: 7, Text: "abc", Done: true},
	}, frames)
}

func TestReveal_ConcurrentRevealsDoNotShareCursor(t *testing.T) {
	s := instantScheduler()
	var wg sync.WaitGroup
	results := make([]Frame, 2)
	foreign := make([]bool, 2)
	for i, text := range []string{"first entry", "second"} {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			for f := range s.Reveal(context.Background(), i, text) {
				if f.ID != i {
					foreign[i] = true
				}
				results[i] = f
			}
		}(i, text)
	}
	wg.Wait()
	require.Equal(t, []bool{false, false}, foreign)
	require.Equal(t, []Frame{
		{ID: 0, Text: "first entry", Done: true},
		{ID: 1, Text: "second", Done: true},
	}, results)
}

func TestReveal_Cancel(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Reveal(ctx, 1, "a fairly slow reveal")
	<-ch
	cancel()
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}
