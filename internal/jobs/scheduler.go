// Package jobs runs the periodic maintenance that keeps bookings, payments
// and vouchers consistent with the clock.
package jobs

import (
	"context"
	"fmt"
	"time"

	"tripenjoy/internal/shared/config"
	"tripenjoy/pkg/logger"

	"github.com/go-co-op/gocron/v2"
)

// Task is one periodic sweep. Run reports how many rows it changed.
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) (int64, error)
}

// Scheduler runs tasks on fixed intervals. A task never overlaps itself.
type Scheduler struct {
	scheduler gocron.Scheduler
	tasks     map[string]Task
	log       *logger.Logger
}

func NewScheduler(tasks ...Task) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	sched := &Scheduler{scheduler: s, tasks: make(map[string]Task, len(tasks)), log: logger.GetDefault()}
	for _, task := range tasks {
		if err := sched.add(task); err != nil {
			_ = s.Shutdown()
			return nil, err
		}
	}
	return sched, nil
}

func (s *Scheduler) add(task Task) error {
	if task.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", task.Name)
	}
	if _, dup := s.tasks[task.Name]; dup {
		return fmt.Errorf("job %s registered twice", task.Name)
	}
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(task.Interval),
		gocron.NewTask(func() { s.execute(context.Background(), task) }),
		gocron.WithName(task.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", task.Name, err)
	}
	s.tasks[task.Name] = task
	return nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.log.Info("Maintenance scheduler started", "jobs", len(s.tasks))
}

// Shutdown waits for running jobs to finish.
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

// RunNow executes a registered task synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int64, error) {
	task, ok := s.tasks[name]
	if !ok {
		return 0, fmt.Errorf("unknown job %s", name)
	}
	return s.execute(ctx, task)
}

func (s *Scheduler) execute(ctx context.Context, task Task) (int64, error) {
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	start := time.Now()
	affected, err := task.Run(ctx)
	if err != nil {
		s.log.ErrorWithContext(ctx, "Scheduled job failed", err, map[string]interface{}{
			"job":      task.Name,
			"affected": affected,
		})
		return affected, err
	}
	s.log.LogJobRun(ctx, task.Name, affected, time.Since(start))
	return affected, nil
}

// Sweeper is the set of maintenance operations the default jobs call.
type Sweeper struct {
	ExpireVouchers        func(ctx context.Context) (int64, error)
	FailStalePayments     func(ctx context.Context) (int64, error)
	CompleteFinishedStays func(ctx context.Context) (int64, error)
}

const (
	JobVoucherExpiry = "voucher-expiry"
	JobStalePayments = "stale-payments"
	JobStayComplete  = "stay-complete"
)

// DefaultTasks binds the sweeps to the configured intervals.
func DefaultTasks(cfg config.JobsConfig, sw Sweeper) []Task {
	return []Task{
		{Name: JobVoucherExpiry, Interval: cfg.VoucherExpiryInterval, Timeout: time.Minute, Run: sw.ExpireVouchers},
		{Name: JobStalePayments, Interval: cfg.StalePaymentInterval, Timeout: time.Minute, Run: sw.FailStalePayments},
		{Name: JobStayComplete, Interval: cfg.StayCompleteInterval, Timeout: 5 * time.Minute, Run: sw.CompleteFinishedStays},
	}
}
