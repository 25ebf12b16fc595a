package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeTimer struct {
	d time.Duration
	c chan time.Time
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }
func (t *fakeTimer) Stop() bool          { return true }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers chan *fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, timers: make(chan *fakeTimer, 16)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{d: d, c: make(chan time.Time, 1)}
	c.timers <- t
	return t
}

// tick moves the clock to the timer's deadline and fires it.
func (c *fakeClock) tick(t *fakeTimer) {
	c.mu.Lock()
	c.now = c.now.Add(t.d)
	now := c.now
	c.mu.Unlock()
	t.c <- now
}

func (c *fakeClock) nextTimer() *fakeTimer {
	select {
	case t := <-c.timers:
		return t
	case <-time.After(2 * time.Second):
		return nil
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Infof(template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(template, args...))
}

func (l *recordingLogger) Errorf(template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(template, args...))
}

func (l *recordingLogger) Warnf(template string, args ...interface{}) {}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func waitFor(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestScheduler(t *testing.T) {
	Convey("Given a Scheduler", t, func() {
		start := time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)
		clock := newFakeClock(start)
		log := &recordingLogger{}

		ran := make(chan struct{}, 16)
		job := func(ctx context.Context) error {
			ran <- struct{}{}
			return nil
		}

		Convey("When automatic backup is disabled", func() {
			s := New(Options{Enabled: false, Spec: "0 2 * * *", Timezone: "UTC"}, job, log, clock)

			Convey("It should stay Disabled and never arm a timer", func() {
				So(s.State(), ShouldEqual, Disabled)
				So(len(clock.timers), ShouldEqual, 0)
				_, ok := s.NextRun()
				So(ok, ShouldBeFalse)
			})

			Convey("Stop should be a no-op", func() {
				s.Stop()
				So(s.State(), ShouldEqual, Disabled)
			})
		})

		Convey("When the cron expression is invalid", func() {
			s := New(Options{Enabled: true, Spec: "not-a-cron", Timezone: "UTC"}, job, log, clock)

			Convey("It should log the error and stay Disabled", func() {
				So(s.State(), ShouldEqual, Disabled)
				So(log.errorCount(), ShouldEqual, 1)
				So(log.errors[0], ShouldContainSubstring, "not-a-cron")
				So(len(clock.timers), ShouldEqual, 0)
			})
		})

		Convey("When the timezone is unknown", func() {
			s := New(Options{Enabled: true, Spec: "0 2 * * *", Timezone: "Mars/Olympus"}, job, log, clock)

			Convey("It should log the error and stay Disabled", func() {
				So(s.State(), ShouldEqual, Disabled)
				So(log.errorCount(), ShouldEqual, 1)
			})
		})

		Convey("When armed with a daily schedule", func() {
			s := New(Options{Enabled: true, Spec: "0 2 * * *", Timezone: "UTC"}, job, log, clock)
			defer s.Stop()

			So(s.State(), ShouldEqual, Armed)

			first := clock.nextTimer()
			So(first, ShouldNotBeNil)

			Convey("It should wait until the next matching minute", func() {
				So(first.d, ShouldEqual, time.Hour)
				next, ok := s.NextRun()
				So(ok, ShouldBeTrue)
				So(next.Equal(time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})

			Convey("It should run the job on each tick and re-arm", func() {
				clock.tick(first)
				So(waitFor(ran), ShouldBeTrue)

				second := clock.nextTimer()
				So(second, ShouldNotBeNil)
				So(second.d, ShouldEqual, 24*time.Hour)

				clock.tick(second)
				So(waitFor(ran), ShouldBeTrue)
			})
		})

		Convey("When the timezone shifts the wall clock", func() {
			// 23:00 UTC is 01:00 in Kyiv during winter.
			clock := newFakeClock(time.Date(2025, 1, 15, 23, 0, 0, 0, time.UTC))
			s := New(Options{Enabled: true, Spec: "0 2 * * *", Timezone: "Europe/Kiev"}, job, log, clock)
			defer s.Stop()

			Convey("It should fire at 02:00 local time", func() {
				So(s.State(), ShouldEqual, Armed)
				timer := clock.nextTimer()
				So(timer, ShouldNotBeNil)
				So(timer.d, ShouldEqual, time.Hour)
			})
		})

		Convey("When the job fails", func() {
			failing := func(ctx context.Context) error {
				defer func() { ran <- struct{}{} }()
				return errors.New("pg_dump exited with code 1")
			}
			s := New(Options{Enabled: true, Spec: "*/5 * * * *", Timezone: "UTC"}, failing, log, clock)
			defer s.Stop()

			clock.tick(clock.nextTimer())
			So(waitFor(ran), ShouldBeTrue)

			Convey("It should log the failure and keep the schedule armed", func() {
				next := clock.nextTimer()
				So(next, ShouldNotBeNil)
				So(next.d, ShouldEqual, 5*time.Minute)
				So(s.State(), ShouldEqual, Armed)
			})
		})

		Convey("When a job is still running at the next tick", func() {
			release := make(chan struct{})
			blocking := func(ctx context.Context) error {
				ran <- struct{}{}
				<-release
				return nil
			}
			s := New(Options{Enabled: true, Spec: "* * * * *", Timezone: "UTC"}, blocking, log, clock)

			clock.tick(clock.nextTimer())
			So(waitFor(ran), ShouldBeTrue)

			Convey("It should still arm and fire the following tick", func() {
				clock.tick(clock.nextTimer())
				So(waitFor(ran), ShouldBeTrue)

				close(release)
				s.Stop()
				So(s.State(), ShouldEqual, Stopped)
			})
		})

		Convey("When stopped", func() {
			s := New(Options{Enabled: true, Spec: "0 2 * * *", Timezone: "UTC"}, job, log, clock)
			timer := clock.nextTimer()
			So(timer, ShouldNotBeNil)

			s.Stop()

			Convey("It should be Stopped for good", func() {
				So(s.State(), ShouldEqual, Stopped)
				_, ok := s.NextRun()
				So(ok, ShouldBeFalse)

				s.Stop()
				So(s.State(), ShouldEqual, Stopped)
			})

			Convey("It should no longer run the job", func() {
				timer.c <- start.Add(time.Hour)
				fired := false
				select {
				case <-ran:
					fired = true
				case <-time.After(50 * time.Millisecond):
				}
				So(fired, ShouldBeFalse)
			})
		})
	})

	Convey("ParseSpec", t, func() {
		Convey("It should accept five-field expressions and descriptors", func() {
			_, err := ParseSpec("0 2 * * *")
			So(err, ShouldBeNil)
			_, err = ParseSpec("@daily")
			So(err, ShouldBeNil)
		})

		Convey("It should reject six-field expressions", func() {
			_, err := ParseSpec("0 0 2 * * *")
			So(err, ShouldNotBeNil)
		})
	})
}
