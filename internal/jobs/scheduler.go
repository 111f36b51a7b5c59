package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// Runner is one maintenance job.
type Runner interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs the maintenance jobs on cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a UTC scheduler.
func NewScheduler() (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: scheduler}, nil
}

// Register validates the cron expression and schedules the job.
func (s *Scheduler) Register(cronExpr string, runner Runner) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", cronExpr, runner.Name(), err)
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			start := time.Now()
			if err := runner.Run(ctx); err != nil {
				log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", runner.Name(), err)
				return
			}
			log.Printf("✅ [SCHEDULER] Job '%s' completed in %v", runner.Name(), time.Since(start))
		}),
		gocron.WithName(runner.Name()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", runner.Name(), err)
	}

	log.Printf("📅 [SCHEDULER] Registered job '%s' (cron: %s)", runner.Name(), cronExpr)
	return nil
}

// Start begins running the scheduled jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	log.Println("⏰ Job scheduler started")
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	log.Println("⏹️  Stopping job scheduler...")
	return s.scheduler.Shutdown()
}
