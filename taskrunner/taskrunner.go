// Package taskrunner is the executor's contract for launching and
// listing ECS tasks (§4.5, §6): the dependency the executor drives, kept
// separate from the executor's own counting/batching logic so it can be
// grounded on a fake in tests.
package taskrunner

import "context"

// RunningTask identifies one task the runner reports as RUNNING.
type RunningTask struct {
	TaskID string
	// ContainerOverrideTag is the value, if any, of the OverrideTag
	// environment entry on one of the task's container overrides —
	// empty when the task carries no such entry.
	ContainerOverrideTag string
}

// ContainerOverride is a single container's environment overlay,
// translated from jobmodel.Override into the runner's native shape.
type ContainerOverride struct {
	Name        string
	Environment map[string]string
}

// StartedTask identifies one task RunTask actually launched: its task ID
// and the ID of the host (container instance) it landed on, when the
// backend reports one.
type StartedTask struct {
	TaskID string
	HostID string
}

// RunArgs describes one batch launch request.
type RunArgs struct {
	Cluster            string
	TaskDefinition      string
	StartedBy           string
	Count               int
	ContainerOverrides  []ContainerOverride
}

// Runner lists and launches ECS tasks for a task definition family.
type Runner interface {
	// ListRunning returns the running tasks for family in cluster,
	// fetching full task descriptions (and so ContainerOverrideTag) only
	// when withOverrides is true.
	ListRunning(ctx context.Context, cluster, family string, withOverrides bool) ([]RunningTask, error)
	// RunTask launches args.Count new tasks in one batch call, returning
	// the tasks successfully started, each carrying the host (container
	// instance) it landed on. A partial failure (some tasks started, some
	// rejected) returns the started tasks and a non-nil error describing
	// the rejections; callers log and continue.
	RunTask(ctx context.Context, args RunArgs) (started []StartedTask, err error)
}
