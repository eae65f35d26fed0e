package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/karimadly/soukly-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquires int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, registry *Registry, lock Lock) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	registry := NewRegistry(Entry{Job: success}, Entry{Job: failure})
	service := newTestService(t, registry, &fakeLock{})

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("runs: success=%d fail=%d", success.runs, failure.runs)
	}
}

func TestRunCycleHonorsPerJobCadence(t *testing.T) {
	fast := &testJob{name: "fast"}
	slow := &testJob{name: "slow"}
	registry := NewRegistry(
		Entry{Job: fast, Every: time.Minute},
		Entry{Job: slow, Every: time.Hour},
	)
	service := newTestService(t, registry, &fakeLock{})

	clock := time.Now()
	service.now = func() time.Time { return clock }

	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if fast.runs != 2 {
		t.Fatalf("fast runs = %d, want 2", fast.runs)
	}
	if slow.runs != 1 {
		t.Fatalf("slow runs = %d, want 1", slow.runs)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	registry := NewRegistry(Entry{Job: job})
	lock := &fakeLock{held: true}
	service := newTestService(t, registry, lock)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran despite held lock: %d", job.runs)
	}
}

func TestRunCycleSkipsLockWhenNothingDue(t *testing.T) {
	job := &testJob{name: "job"}
	registry := NewRegistry(Entry{Job: job, Every: time.Hour})
	lock := &fakeLock{}
	service := newTestService(t, registry, lock)

	clock := time.Now()
	service.now = func() time.Time { return clock }

	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if lock.acquires != 1 {
		t.Fatalf("lock acquired %d times, want 1", lock.acquires)
	}
	if job.runs != 1 {
		t.Fatalf("job runs = %d, want 1", job.runs)
	}
}
