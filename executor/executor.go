// Package executor fires one job: reconciling its current running-task
// count against what its trigger wants, and dispatching new tasks in
// batches when short (§4.5).
package executor

import (
	"context"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
	"oss.nandlabs.io/ecscheduler/taskrunner"
	"oss.nandlabs.io/ecscheduler/trigger"
)

var logger = l3.Get()

// Executor launches tasks for jobs against a Runner, using the identity
// string stamped onto each RunTask call's StartedBy field.
type Executor struct {
	runner   taskrunner.Runner
	cluster  string
	identity string
}

// New returns an Executor that launches tasks in cluster, identifying
// itself as identity on every RunTask call.
func New(runner taskrunner.Runner, cluster, identity string) *Executor {
	return &Executor{runner: runner, cluster: cluster, identity: identity}
}

// Fire reconciles job's desired task count against its running count and
// launches the shortfall, returning CHECKED_TASKS when nothing was
// needed or STARTED_TASKS with the list of newly started tasks.
func (e *Executor) Fire(ctx context.Context, job *jobmodel.Job) (jobmodel.ExecResult, []jobmodel.TaskInfo, error) {
	taskName := job.TaskDefinition
	if taskName == "" {
		taskName = job.ID
	}

	hasOverrides := len(job.Overrides) > 0
	running, err := e.runner.ListRunning(ctx, e.cluster, taskName, hasOverrides)
	if err != nil {
		return jobmodel.CheckedTasks, nil, err
	}

	runningCount := e.countRunning(job, running, hasOverrides)

	expected, err := trigger.For(job).DetermineTaskCount(ctx, job)
	if err != nil {
		return jobmodel.CheckedTasks, nil, err
	}

	needed := expected - runningCount
	if needed <= 0 {
		return jobmodel.CheckedTasks, nil, nil
	}

	started := e.dispatch(ctx, job, taskName, needed)
	return jobmodel.StartedTasks, started, nil
}

func (e *Executor) countRunning(job *jobmodel.Job, running []taskrunner.RunningTask, hasOverrides bool) int {
	if !hasOverrides || len(running) == 0 {
		return len(running)
	}
	count := 0
	for _, t := range running {
		if t.ContainerOverrideTag == job.ID {
			count++
		}
	}
	return count
}

// dispatch launches needed tasks in batches of at most jobmodel.MaxBatch,
// accumulating task info from every batch and logging (not aborting on)
// per-batch failures.
func (e *Executor) dispatch(ctx context.Context, job *jobmodel.Job, taskName string, needed int) []jobmodel.TaskInfo {
	overrides := e.buildOverrides(job)

	var started []jobmodel.TaskInfo
	remaining := needed
	for remaining > 0 {
		batch := remaining
		if batch > jobmodel.MaxBatch {
			batch = jobmodel.MaxBatch
		}

		launched, err := e.runner.RunTask(ctx, taskrunner.RunArgs{
			Cluster:            e.cluster,
			TaskDefinition:     taskName,
			StartedBy:          e.identity,
			Count:              batch,
			ContainerOverrides: overrides,
		})
		if err != nil {
			logger.WarnF("executor: job %q batch launch reported failures: %v", job.ID, err)
		}
		for _, t := range launched {
			started = append(started, jobmodel.TaskInfo{TaskID: t.TaskID, HostID: t.HostID})
		}
		remaining -= batch
	}
	return started
}

func (e *Executor) buildOverrides(job *jobmodel.Job) []taskrunner.ContainerOverride {
	if len(job.Overrides) == 0 {
		return nil
	}
	out := make([]taskrunner.ContainerOverride, len(job.Overrides))
	for i, o := range job.Overrides {
		cp := o.Clone()
		env := cp.Environment
		if env == nil {
			env = make(map[string]string, 1)
		}
		env[jobmodel.OverrideTag] = job.ID
		out[i] = taskrunner.ContainerOverride{Name: cp.ContainerName, Environment: env}
	}
	return out
}
