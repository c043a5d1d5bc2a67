package scheduler

import (
	"fmt"
	"log"
	"time"

	"estate-marketplace/internal/cleanup"
	"estate-marketplace/internal/views"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the background jobs: the deletion sweep on a fixed
// interval and, when Redis view counters are enabled, a minutely flush.
// The jobs run off the request path and never block foreground traffic.
type Scheduler struct {
	cron          *cron.Cron
	sweep         *cleanup.Service
	sweepCfg      cleanup.Config
	sweepInterval time.Duration
	counter       *views.Counter
	isRunning     bool
}

// NewScheduler creates a new scheduler. counter may be nil when Redis view
// counters are disabled.
func NewScheduler(sweep *cleanup.Service, sweepCfg cleanup.Config, sweepInterval time.Duration, counter *views.Counter) *Scheduler {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &Scheduler{
		cron:          cron.New(),
		sweep:         sweep,
		sweepCfg:      sweepCfg,
		sweepInterval: sweepInterval,
		counter:       counter,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.sweepInterval)
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.sweep.Run(s.sweepCfg); err != nil {
			// Retried on the next tick
			log.Printf("Scheduler: sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	if s.counter != nil {
		_, err = s.cron.AddFunc("@every 1m", func() {
			if err := s.counter.Flush(); err != nil {
				log.Printf("Scheduler: view counter flush failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: started (sweep %s)", spec)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Println("Scheduler: stopped")
	}
}

// RunSweepNow immediately executes the deletion sweep (for manual trigger)
func (s *Scheduler) RunSweepNow() (*cleanup.Result, error) {
	log.Println("Scheduler: manual trigger - running sweep...")
	return s.sweep.Run(s.sweepCfg)
}
