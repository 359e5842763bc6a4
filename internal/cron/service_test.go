package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
	wait bool
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	if t.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	bad := &testJob{name: "fail", err: errors.New("boom")}
	registry, err := NewRegistry(ok, bad)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: lock})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	ran, err := service.RunOnce(context.Background())
	if err != nil || !ran {
		t.Fatalf("expected cycle to run, got ran=%v err=%v", ran, err)
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected each job once, got %d and %d", ok.runs, bad.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("expected lock released once, held=%v releases=%d", lock.held, lock.releases)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "noop"}
	registry, _ := NewRegistry(job)
	service, _ := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: &fakeLock{held: true}})

	ran, err := service.RunOnce(context.Background())
	if err != nil || ran {
		t.Fatalf("expected skipped cycle, got ran=%v err=%v", ran, err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock")
	}
}

func TestRunOnceSurfacesLockErrors(t *testing.T) {
	service, _ := NewService(ServiceParams{Logger: testLogger(), Lock: &fakeLock{acquireErr: errors.New("redis down")}})
	if _, err := service.RunOnce(context.Background()); err == nil {
		t.Fatal("expected acquire error")
	}
}

func TestJobTimeoutBoundsSlowJobs(t *testing.T) {
	slow := &testJob{name: "slow", wait: true}
	after := &testJob{name: "after"}
	registry, _ := NewRegistry(slow, after)
	service, _ := NewService(ServiceParams{
		Logger:     testLogger(),
		Registry:   registry,
		Lock:       &fakeLock{},
		JobTimeout: 20 * time.Millisecond,
	})

	if _, err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if after.runs != 1 {
		t.Fatalf("job after a timed out job must still run")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "tick"}
	registry, _ := NewRegistry(job)
	service, _ := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: &fakeLock{}, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
	if job.runs != 1 {
		t.Fatalf("expected the immediate cycle to run once, got %d", job.runs)
	}
}

func TestNewServiceValidates(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected lock error")
	}
}
