package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tripenjoy/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsTasksPeriodically(t *testing.T) {
	var runs atomic.Int64
	s, err := NewScheduler(Task{
		Name:     "counter",
		Interval: 20 * time.Millisecond,
		Run: func(ctx context.Context) (int64, error) {
			runs.Add(1)
			return 1, nil
		},
	})
	require.NoError(t, err)

	s.Start()
	defer func() { assert.NoError(t, s.Shutdown()) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RunNow(t *testing.T) {
	boom := errors.New("db down")
	s, err := NewScheduler(
		Task{Name: "ok", Interval: time.Hour, Run: func(ctx context.Context) (int64, error) { return 3, nil }},
		Task{Name: "broken", Interval: time.Hour, Run: func(ctx context.Context) (int64, error) { return 0, boom }},
	)
	require.NoError(t, err)
	defer s.Shutdown()

	n, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = s.RunNow(context.Background(), "broken")
	assert.ErrorIs(t, err, boom)

	_, err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestScheduler_TimeoutBoundsContext(t *testing.T) {
	s, err := NewScheduler(Task{
		Name:     "slow",
		Interval: time.Hour,
		Timeout:  10 * time.Millisecond,
		Run: func(ctx context.Context) (int64, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
	})
	require.NoError(t, err)
	defer s.Shutdown()

	_, err = s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewScheduler_RejectsBadTasks(t *testing.T) {
	noop := func(ctx context.Context) (int64, error) { return 0, nil }

	_, err := NewScheduler(Task{Name: "zero", Run: noop})
	assert.Error(t, err)

	_, err = NewScheduler(
		Task{Name: "twice", Interval: time.Minute, Run: noop},
		Task{Name: "twice", Interval: time.Minute, Run: noop},
	)
	assert.Error(t, err)
}

func TestDefaultTasks(t *testing.T) {
	var called []string
	sweep := func(name string) func(ctx context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			called = append(called, name)
			return 0, nil
		}
	}
	tasks := DefaultTasks(config.JobsConfig{
		VoucherExpiryInterval: time.Minute,
		StalePaymentInterval:  time.Minute,
		StayCompleteInterval:  time.Hour,
	}, Sweeper{
		ExpireVouchers:        sweep("vouchers"),
		FailStalePayments:     sweep("payments"),
		CompleteFinishedStays: sweep("stays"),
	})

	s, err := NewScheduler(tasks...)
	require.NoError(t, err)
	defer s.Shutdown()

	for _, name := range []string{JobVoucherExpiry, JobStalePayments, JobStayComplete} {
		_, err := s.RunNow(context.Background(), name)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"vouchers", "payments", "stays"}, called)
}
