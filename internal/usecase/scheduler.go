package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsPortal/internal/metrics"
	"NewsPortal/internal/ports"
)

// Task is one recurring unit of work. Run can be called directly.
type Task struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler binds tasks to the cron-like driver.
type Scheduler struct {
	driver  ports.Scheduler
	tasks   []Task
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring tasks.
func NewScheduler(driver ports.Scheduler, m *metrics.Metrics, logger *slog.Logger, tasks ...Task) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, tasks: tasks, metrics: m, logger: logger}
}

// Tasks returns the registered tasks.
func (s *Scheduler) Tasks() []Task {
	return s.tasks
}

// Start registers every task with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	for _, task := range s.tasks {
		if err := s.driver.Schedule(task.Name, task.Spec, s.tick(task)); err != nil {
			return fmt.Errorf("schedule %s: %w", task.Name, err)
		}
		s.logger.Info("task scheduled", "task", task.Name, "spec", task.Spec)
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// RunTask executes one task by name outside of the timer.
func (s *Scheduler) RunTask(ctx context.Context, name string) error {
	for _, task := range s.tasks {
		if task.Name == name {
			return s.execute(ctx, task)
		}
	}
	return fmt.Errorf("task %s is not registered", name)
}

// tick wraps a task so a failing or panicking run is logged and never
// propagates to the driver.
func (s *Scheduler) tick(task Task) func(context.Context) {
	return func(ctx context.Context) {
		if err := s.execute(ctx, task); err != nil {
			s.logger.Error("task failed", "task", task.Name, "error", err)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, task Task) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
		if err != nil {
			s.metrics.TaskFailed(task.Name)
		}
	}()

	started := time.Now()
	err = task.Run(ctx)
	s.logger.Debug("task finished", "task", task.Name, "took", time.Since(started), "error", err)
	return err
}
