package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marketpipe/internal/gateway/broker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClock struct {
	readings []broker.Clock
	err      error
	calls    int
}

func (c *scriptedClock) GetClock(ctx context.Context) (broker.Clock, error) {
	if c.err != nil {
		return broker.Clock{}, c.err
	}
	reading := c.readings[c.calls]
	if c.calls < len(c.readings)-1 {
		c.calls++
	}
	return reading, nil
}

func TestOnceModeRunsSingleCycle(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, true)
	runs := 0
	err := s.Start(context.Background(), RunnerFunc(func(ctx context.Context) error {
		runs++
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestOnceModeReturnsCycleError(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, true)
	cycleErr := fmt.Errorf("stage pre_analysis: ServiceUnavailable")
	err := s.Start(context.Background(), RunnerFunc(func(ctx context.Context) error {
		return cycleErr
	}))
	assert.Equal(t, cycleErr, err)
}

func TestLoopContinuesAfterFailedCycle(t *testing.T) {
	s := NewIntervalScheduler(time.Millisecond, false)
	ctx, cancel := context.WithCancel(context.Background())

	runs := 0
	err := s.Start(ctx, RunnerFunc(func(ctx context.Context) error {
		runs++
		if runs == 1 {
			return fmt.Errorf("first cycle fails")
		}
		cancel()
		return nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, runs, "a failed cycle does not stop the loop")
}

func TestStopsWhenMarketClosed(t *testing.T) {
	s := NewIntervalScheduler(time.Millisecond, false)
	s.StopIfMarketClosed = true
	s.Clock = &scriptedClock{readings: []broker.Clock{
		{IsOpen: true, AsOf: time.Now()},
		{IsOpen: false, NextOpen: time.Now().Add(12 * time.Hour), AsOf: time.Now()},
	}}

	runs := 0
	err := s.Start(context.Background(), RunnerFunc(func(ctx context.Context) error {
		runs++
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, runs, "clock is re-read at every boundary")
}

func TestClockFailureDoesNotStopLoop(t *testing.T) {
	s := NewIntervalScheduler(time.Millisecond, true)
	s.StopIfMarketClosed = true
	s.Clock = &scriptedClock{err: fmt.Errorf("clock endpoint down")}

	runs := 0
	err := s.Start(context.Background(), RunnerFunc(func(ctx context.Context) error {
		runs++
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, runs, "an unreadable clock degrades to running the cycle")
}

func TestCancelDuringSleep(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, false)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx, RunnerFunc(func(ctx context.Context) error { return nil }))
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
