package cronengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"oss.nandlabs.io/ecscheduler/cronspec"
	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/jobstore/memstore"
	"oss.nandlabs.io/ecscheduler/registry"
)

func newHandlerTestJob(t *testing.T) (*registry.Registry, *jobmodel.Job) {
	t.Helper()
	reg := registry.New(memstore.New())
	job, err := reg.Create(context.Background(), cronspec.JobInput{
		TaskDefinition: strPtr("alpha"), Schedule: strPtr("0 0 12 * * *"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return reg, job
}

func TestHandlerAddedAnnotatesEstimatedNextRun(t *testing.T) {
	reg, job := newHandlerTestJob(t)
	h := NewAnnotatingHandler(reg)

	next := time.Now().Add(time.Hour)
	h.OnEvent(Event{Kind: Added, JobID: job.ID, NextRun: &next})

	got, err := reg.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.EstimatedNextRun == nil || !got.EstimatedNextRun.Equal(next) {
		t.Fatalf("EstimatedNextRun = %v, want %v", got.EstimatedNextRun, next)
	}
}

func TestHandlerAddedWithNoNextRunDoesNothing(t *testing.T) {
	reg, job := newHandlerTestJob(t)
	h := NewAnnotatingHandler(reg)

	h.OnEvent(Event{Kind: Added, JobID: job.ID, NextRun: nil})

	got, err := reg.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.EstimatedNextRun != nil {
		t.Fatalf("EstimatedNextRun = %v, want nil", got.EstimatedNextRun)
	}
}

func TestHandlerExecutedCheckedTasksOnlyUpdatesNextRun(t *testing.T) {
	reg, job := newHandlerTestJob(t)
	h := NewAnnotatingHandler(reg)

	next := time.Now().Add(time.Hour)
	result := jobmodel.CheckedTasks
	h.OnEvent(Event{Kind: Executed, JobID: job.ID, NextRun: &next, Result: &result})

	got, err := reg.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastRun != nil {
		t.Fatalf("CHECKED_TASKS must not set LastRun, got %v", got.LastRun)
	}
	if got.EstimatedNextRun == nil || !got.EstimatedNextRun.Equal(next) {
		t.Fatalf("EstimatedNextRun = %v, want %v", got.EstimatedNextRun, next)
	}
}

func TestHandlerExecutedStartedTasksAnnotatesLastRun(t *testing.T) {
	reg, job := newHandlerTestJob(t)
	h := NewAnnotatingHandler(reg)

	scheduled := time.Now().Add(-time.Minute)
	next := time.Now().Add(time.Hour)
	result := jobmodel.StartedTasks
	tasks := []jobmodel.TaskInfo{{TaskID: "t1", HostID: "h1"}}
	h.OnEvent(Event{
		Kind: Executed, JobID: job.ID, ScheduledRunTime: scheduled,
		NextRun: &next, Result: &result, TaskInfo: tasks,
	})

	got, err := reg.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastRun == nil || !got.LastRun.Equal(scheduled) {
		t.Fatalf("LastRun = %v, want %v", got.LastRun, scheduled)
	}
	if len(got.LastRunTasks) != 1 || got.LastRunTasks[0].TaskID != "t1" {
		t.Fatalf("LastRunTasks = %v, want [{t1 h1}]", got.LastRunTasks)
	}
	if got.EstimatedNextRun == nil || !got.EstimatedNextRun.Equal(next) {
		t.Fatalf("EstimatedNextRun = %v, want %v", got.EstimatedNextRun, next)
	}
}

func TestHandlerAnnotationsAreNeverPersisted(t *testing.T) {
	store := memstore.New()
	reg := registry.New(store)
	job, err := reg.Create(context.Background(), cronspec.JobInput{
		TaskDefinition: strPtr("alpha"), Schedule: strPtr("0 0 12 * * *"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	h := NewAnnotatingHandler(reg)

	scheduled := time.Now()
	result := jobmodel.StartedTasks
	tasks := []jobmodel.TaskInfo{{TaskID: "t1"}}
	h.OnEvent(Event{Kind: Executed, JobID: job.ID, ScheduledRunTime: scheduled, Result: &result, TaskInfo: tasks})

	reloaded, err := registry.Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	reloadedJob, err := reloaded.Get(job.ID)
	if err != nil {
		t.Fatalf("Get after reload failed: %v", err)
	}
	if reloadedJob.LastRun != nil || len(reloadedJob.LastRunTasks) != 0 {
		t.Fatalf("annotated fields survived a store reload: LastRun=%v LastRunTasks=%v", reloadedJob.LastRun, reloadedJob.LastRunTasks)
	}
}

func TestHandlerMissingJobIsSwallowed(t *testing.T) {
	reg := registry.New(memstore.New())
	h := NewAnnotatingHandler(reg)

	result := jobmodel.StartedTasks
	// Must not panic even though "ghost" was never created.
	h.OnEvent(Event{Kind: Executed, JobID: "ghost", Result: &result})
	h.OnEvent(Event{Kind: Added, JobID: "ghost", NextRun: timePtr(time.Now())})
}

func TestHandlerErrorEventLogsWithoutPanicking(t *testing.T) {
	reg, job := newHandlerTestJob(t)
	h := NewAnnotatingHandler(reg)
	h.OnEvent(Event{Kind: ErrorEvent, JobID: job.ID, Err: errors.New("boom")})
	h.OnEvent(Event{Kind: ErrorEvent, JobID: job.ID})
}

func TestHandlerMissedEventLogsWithoutPanicking(t *testing.T) {
	reg, job := newHandlerTestJob(t)
	h := NewAnnotatingHandler(reg)
	h.OnEvent(Event{Kind: Missed, JobID: job.ID, ScheduledRunTime: time.Now()})
}

func TestHandlerUnknownEventKindLogsWithoutPanicking(t *testing.T) {
	reg, job := newHandlerTestJob(t)
	h := NewAnnotatingHandler(reg)
	h.OnEvent(Event{Kind: EventKind(99), JobID: job.ID})
}
