package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/taskrunner"
)

type fakeRunner struct {
	running      []taskrunner.RunningTask
	listErr      error
	listFamilies []string
	runCalls     []taskrunner.RunArgs
	runResults   [][]taskrunner.StartedTask
	runErr       error
	callIndex    int
}

func (f *fakeRunner) ListRunning(_ context.Context, _ string, family string, _ bool) ([]taskrunner.RunningTask, error) {
	f.listFamilies = append(f.listFamilies, family)
	return f.running, f.listErr
}

func (f *fakeRunner) RunTask(_ context.Context, args taskrunner.RunArgs) ([]taskrunner.StartedTask, error) {
	f.runCalls = append(f.runCalls, args)
	var result []taskrunner.StartedTask
	if f.callIndex < len(f.runResults) {
		result = f.runResults[f.callIndex]
	}
	f.callIndex++
	return result, f.runErr
}

// countIDs fabricates n started tasks numbered from start, each carrying
// a distinct host ID so tests can assert HostID survives the executor's
// dispatch path.
func countIDs(n, start int) []taskrunner.StartedTask {
	tasks := make([]taskrunner.StartedTask, n)
	for i := range tasks {
		idx := start + i
		tasks[i] = taskrunner.StartedTask{
			TaskID: fmt.Sprintf("t%d", idx),
			HostID: fmt.Sprintf("host-%d", idx),
		}
	}
	return tasks
}

func TestFireReturnsCheckedTasksWhenAlreadySatisfied(t *testing.T) {
	runner := &fakeRunner{running: []taskrunner.RunningTask{{TaskID: "r1"}, {TaskID: "r2"}, {TaskID: "r3"}}}
	e := New(runner, "cluster", "ecschedulerd")
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{ID: "alpha", TaskCount: 3}}

	result, tasks, err := e.Fire(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != jobmodel.CheckedTasks {
		t.Fatalf("result = %v, want CheckedTasks", result)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %v", tasks)
	}
	if len(runner.runCalls) != 0 {
		t.Fatalf("expected no RunTask calls, got %d", len(runner.runCalls))
	}
}

func TestFireLaunchesShortfallInOneBatch(t *testing.T) {
	runner := &fakeRunner{
		running:    []taskrunner.RunningTask{{TaskID: "r1"}},
		runResults: [][]taskrunner.StartedTask{countIDs(2, 0)},
	}
	e := New(runner, "cluster", "ecschedulerd")
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{ID: "alpha", TaskCount: 3}}

	result, tasks, err := e.Fire(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != jobmodel.StartedTasks {
		t.Fatalf("result = %v, want StartedTasks", result)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 started tasks, got %d", len(tasks))
	}
	if len(runner.runCalls) != 1 || runner.runCalls[0].Count != 2 {
		t.Fatalf("expected a single RunTask call with count=2, got %+v", runner.runCalls)
	}
	for _, info := range tasks {
		if info.HostID == "" {
			t.Fatalf("expected HostID to be populated, got %+v", tasks)
		}
	}
}

func TestFireBatchesThirteenNeededIntoTenThenThree(t *testing.T) {
	runner := &fakeRunner{
		runResults: [][]taskrunner.StartedTask{countIDs(10, 0), countIDs(3, 10)},
	}
	e := New(runner, "cluster", "ecschedulerd")
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{ID: "alpha", TaskCount: 13}}

	result, tasks, err := e.Fire(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != jobmodel.StartedTasks {
		t.Fatalf("result = %v, want StartedTasks", result)
	}
	if len(tasks) != 13 {
		t.Fatalf("expected 13 started tasks total, got %d", len(tasks))
	}
	if len(runner.runCalls) != 2 {
		t.Fatalf("expected 2 RunTask calls, got %d", len(runner.runCalls))
	}
	if runner.runCalls[0].Count != 10 || runner.runCalls[1].Count != 3 {
		t.Fatalf("expected batch counts [10,3], got [%d,%d]", runner.runCalls[0].Count, runner.runCalls[1].Count)
	}
}

func TestFireTagsOverridesWithoutMutatingJobInput(t *testing.T) {
	runner := &fakeRunner{runResults: [][]taskrunner.StartedTask{countIDs(3, 0)}}
	e := New(runner, "cluster", "ecschedulerd")
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "beta", TaskCount: 3,
		Overrides: []jobmodel.Override{{ContainerName: "c", Environment: map[string]string{"FOO": "1"}}},
	}}

	_, _, err := e.Fire(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.runCalls) != 1 {
		t.Fatalf("expected 1 RunTask call, got %d", len(runner.runCalls))
	}
	ov := runner.runCalls[0].ContainerOverrides
	if len(ov) != 1 || ov[0].Name != "c" {
		t.Fatalf("unexpected container overrides: %+v", ov)
	}
	if ov[0].Environment["FOO"] != "1" || ov[0].Environment[jobmodel.OverrideTag] != "beta" {
		t.Fatalf("expected FOO and override tag in launched env, got %v", ov[0].Environment)
	}
	// the job's own override must be untouched.
	if _, tagged := job.Overrides[0].Environment[jobmodel.OverrideTag]; tagged {
		t.Fatalf("executor mutated the job's own overrides: %v", job.Overrides[0].Environment)
	}
	if len(job.Overrides[0].Environment) != 1 {
		t.Fatalf("job overrides grew extra keys: %v", job.Overrides[0].Environment)
	}
}

func TestFireCountsOnlyTaggedTasksWhenOverridesPresent(t *testing.T) {
	runner := &fakeRunner{running: []taskrunner.RunningTask{
		{TaskID: "tagged-1", ContainerOverrideTag: "beta"},
		{TaskID: "other-job", ContainerOverrideTag: "gamma"},
		{TaskID: "untagged"},
	}}
	e := New(runner, "cluster", "ecschedulerd")
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{
		ID: "beta", TaskCount: 2,
		Overrides: []jobmodel.Override{{ContainerName: "c"}},
	}}
	runner.runResults = [][]taskrunner.StartedTask{countIDs(1, 0)}

	result, tasks, err := e.Fire(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// running count for "beta" is 1 (only the tagged task); expected 2, so 1 is needed.
	if result != jobmodel.StartedTasks {
		t.Fatalf("result = %v, want StartedTasks", result)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 started task, got %d", len(tasks))
	}
	if runner.runCalls[0].Count != 1 {
		t.Fatalf("expected RunTask count=1, got %d", runner.runCalls[0].Count)
	}
}

func TestFirePropagatesListRunningError(t *testing.T) {
	wantErr := errors.New("runner unavailable")
	runner := &fakeRunner{listErr: wantErr}
	e := New(runner, "cluster", "ecschedulerd")
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{ID: "alpha", TaskCount: 1}}

	_, _, err := e.Fire(context.Background(), job)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Fire error = %v, want %v", err, wantErr)
	}
}

func TestFireUsesTaskDefinitionOverIDForFamilyName(t *testing.T) {
	runner := &fakeRunner{}
	e := New(runner, "cluster", "ecschedulerd")
	job := &jobmodel.Job{PersistedJob: jobmodel.PersistedJob{ID: "alpha", TaskDefinition: "alpha-def", TaskCount: 0}}

	if _, _, err := e.Fire(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.listFamilies) != 1 || runner.listFamilies[0] != "alpha-def" {
		t.Fatalf("expected ListRunning to be called with family %q, got %v", "alpha-def", runner.listFamilies)
	}
}
