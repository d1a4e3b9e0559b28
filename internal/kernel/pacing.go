package kernel

import (
	"context"
	"time"
)

// pacer holds a loop to a fixed tick rate.
type pacer struct {
	interval time.Duration
	next     time.Time
}

func newPacer(rate float64) *pacer {
	if rate <= 0 {
		return &pacer{}
	}
	return &pacer{interval: time.Duration(float64(time.Second) / rate)}
}

// wait sleeps until the next tick is due. A loop that fell more than one
// interval behind restarts its schedule from now instead of bursting to
// catch up. An unpaced loop returns immediately.
func (p *pacer) wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}
	now := time.Now()
	if p.next.IsZero() || now.Sub(p.next) > p.interval {
		p.next = now
	}
	p.next = p.next.Add(p.interval)

	d := p.next.Sub(now)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stepper is the fixed-step accumulator of the simulation loop.
type stepper struct {
	step time.Duration
	max  int
	acc  time.Duration
}

// advance adds elapsed time and returns how many fixed steps are due, at most
// max. Time beyond the cap is dropped, keeping only the partial step.
func (s *stepper) advance(elapsed time.Duration) int {
	if s.step <= 0 {
		return 0
	}
	s.acc += elapsed
	n := int(s.acc / s.step)
	if s.max > 0 && n > s.max {
		n = s.max
		s.acc %= s.step
		return n
	}
	s.acc -= time.Duration(n) * s.step
	return n
}
