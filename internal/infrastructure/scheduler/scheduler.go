package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
)

type State int

const (
	Disabled State = iota
	Armed
	Stopped
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Armed:
		return "armed"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type Job func(ctx context.Context) error

type Options struct {
	Enabled  bool
	Spec     string
	Timezone string
}

// Standard five-field expressions plus descriptors such as @daily.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler runs a job on a cron schedule. It is Disabled when constructed
// with Enabled=false or an unusable schedule, Armed otherwise, and Stopped
// for good after Stop.
type Scheduler struct {
	mu       sync.Mutex
	state    State
	next     time.Time
	spec     string
	location *time.Location
	schedule cron.Schedule

	job    Job
	logger Logger
	clock  Clock

	stop chan struct{}
	done chan struct{}
	runs sync.WaitGroup
}

// New validates opts and, when everything is usable, arms the scheduler.
// A nil clock means the wall clock.
func New(opts Options, job Job, logger Logger, clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	s := &Scheduler{
		state:  Disabled,
		spec:   strings.TrimSpace(opts.Spec),
		job:    job,
		logger: logger,
		clock:  clock,
	}

	if !opts.Enabled {
		logger.Infof("Automatic backup is disabled")
		return s
	}

	schedule, err := ParseSpec(s.spec)
	if err != nil {
		logger.Errorf("Invalid BACKUP_SCHEDULE cron expression %q: %v", s.spec, err)
		return s
	}

	location, err := loadLocation(opts.Timezone)
	if err != nil {
		logger.Errorf("Invalid timezone %q: %v", opts.Timezone, err)
		return s
	}

	s.schedule = schedule
	s.location = location
	s.state = Armed
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop()

	logger.Infof("Automatic backup scheduler started, schedule: %s, timezone: %s", s.spec, location)
	return s
}

// ParseSpec validates a cron expression without arming anything.
func ParseSpec(spec string) (cron.Schedule, error) {
	return parser.Parse(strings.TrimSpace(spec))
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextRun reports the upcoming tick while Armed.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Armed || s.next.IsZero() {
		return time.Time{}, false
	}
	return s.next, true
}

func (s *Scheduler) Spec() string {
	return s.spec
}

// Stop disarms the scheduler and waits for running jobs. It is a no-op unless
// the scheduler is Armed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != Armed {
		s.mu.Unlock()
		return
	}
	s.state = Stopped
	s.next = time.Time{}
	close(s.stop)
	s.mu.Unlock()

	<-s.done
	s.runs.Wait()
	s.logger.Infof("Backup scheduler stopped")
}

func (s *Scheduler) loop() {
	defer close(s.done)

	var last time.Time
	for {
		now := s.clock.Now().In(s.location)
		from := now
		if from.Before(last) {
			from = last
		}
		next := s.schedule.Next(from)
		if next.IsZero() {
			s.logger.Errorf("Schedule %q has no future activation", s.spec)
			return
		}

		s.mu.Lock()
		s.next = next
		s.mu.Unlock()

		timer := s.clock.NewTimer(next.Sub(now))
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C():
			last = next
			s.fire()
		}
	}
}

// fire runs the job on its own goroutine so a slow backup never delays the
// next tick.
func (s *Scheduler) fire() {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorf("Automatic backup panicked: %v", r)
			}
		}()

		s.logger.Infof("Starting automatic backup...")
		if err := s.job(context.Background()); err != nil {
			s.logger.Errorf("Automatic backup failed: %v", err)
		}
	}()
}
