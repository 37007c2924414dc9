// Package scheduler 以固定间隔驱动 cycle。间隔从上一个 cycle 结束时刻起算，
// cycle 之间绝不重叠；取消只在 cycle 边界和休眠中生效，绝不打断进行中的 cycle。
package scheduler

import (
	"context"
	"time"

	"marketpipe/internal/gateway/broker"
	"marketpipe/internal/logger"
)

// Runner executes one cycle. The error is informational: a failed cycle has
// already persisted its artifact and the loop simply continues.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// IntervalScheduler runs cycles back to back with a fixed gap in between.
type IntervalScheduler struct {
	Interval time.Duration
	Once     bool

	// StopIfMarketClosed consults Clock before each cycle and exits the
	// whole loop when the market is closed. Clock is re-fetched at every
	// boundary; a reading is never reused.
	StopIfMarketClosed bool
	Clock              broker.MarketClock

	nowFn func() time.Time
	log   logger.StageLogger
}

func NewIntervalScheduler(interval time.Duration, once bool) *IntervalScheduler {
	return &IntervalScheduler{
		Interval: interval,
		Once:     once,
		nowFn:    time.Now,
		log:      logger.Stage("scheduler"),
	}
}

// Start runs the loop until ctx is cancelled, the market-closed stop fires,
// or (in once mode) the first cycle finishes. The returned error is a
// cancellation cause or the single cycle's error in once mode.
func (s *IntervalScheduler) Start(ctx context.Context, runner Runner) error {
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			s.log.Infof("stopping: %v", err)
			return err
		}

		if stop, err := s.marketClosed(ctx); err != nil {
			s.log.Warnf("market clock unavailable, continuing: %v", err)
		} else if stop {
			return nil
		}

		started := s.nowFn()
		err := runner.Run(ctx)
		elapsed := s.nowFn().Sub(started)
		if err != nil {
			s.log.Warnf("cycle %d failed after %s: %v", i, elapsed.Round(time.Millisecond), err)
		} else {
			s.log.Infof("cycle %d finished in %s", i, elapsed.Round(time.Millisecond))
		}

		if s.Once {
			return err
		}

		s.log.Infof("sleeping %s until next cycle", s.Interval)
		if !s.sleep(ctx) {
			s.log.Infof("stopping: %v", ctx.Err())
			return ctx.Err()
		}
	}
}

// marketClosed reports whether the loop should exit because the market is
// closed. Only consulted when StopIfMarketClosed is set.
func (s *IntervalScheduler) marketClosed(ctx context.Context) (bool, error) {
	if !s.StopIfMarketClosed || s.Clock == nil {
		return false, nil
	}
	clock, err := s.Clock.GetClock(ctx)
	if err != nil {
		return false, err
	}
	if clock.IsOpen {
		return false, nil
	}
	s.log.Infof("market is closed, stopping; next open %s", clock.NextOpen.Format(time.RFC3339))
	return true, nil
}

func (s *IntervalScheduler) sleep(ctx context.Context) bool {
	timer := time.NewTimer(s.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
