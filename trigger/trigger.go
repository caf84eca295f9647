// Package trigger computes the desired running-task count for a job
// (§4.4), dispatching by the named strategy recorded on the job's
// Trigger field. Unknown names resolve to noop.
package trigger

import (
	"context"
	"math"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/managers"
	"oss.nandlabs.io/ecscheduler/queuedepth"
)

// Strategy computes the number of tasks a job wants running right now.
type Strategy interface {
	DetermineTaskCount(ctx context.Context, job *jobmodel.Job) (int, error)
}

const (
	// NoOp is the default trigger: run taskCount tasks, capped by maxCount.
	NoOp = "noop"
	// SQS scales task count to queue depth.
	SQS = "sqs"
)

var registry = managers.NewItemManager[Strategy]()

func init() {
	registry.Register(NoOp, noopStrategy{})
}

// Register installs a named strategy, replacing any prior registration
// under the same name. Used to wire the sqs strategy once a queuedepth
// client is available (the client carries AWS session state the trigger
// package itself has no business constructing).
func Register(name string, s Strategy) {
	registry.Register(name, s)
}

// For resolves the strategy named by job.Trigger.Type, falling back to
// noop when the trigger is absent or the name is unrecognized.
func For(job *jobmodel.Job) Strategy {
	if job.Trigger == nil || job.Trigger.Type == "" {
		return registry.Get(NoOp)
	}
	if s := registry.Get(job.Trigger.Type); s != nil {
		return s
	}
	return registry.Get(NoOp)
}

// capAt returns desired bounded above by maxCount, or desired
// unbounded when maxCount is nil (the "maxCount|∞" rule).
func capAt(desired int, maxCount *int) int {
	if maxCount == nil {
		return desired
	}
	if desired > *maxCount {
		return *maxCount
	}
	return desired
}

type noopStrategy struct{}

func (noopStrategy) DetermineTaskCount(_ context.Context, job *jobmodel.Job) (int, error) {
	return capAt(job.TaskCount, job.MaxCount), nil
}

// NewSQSStrategy returns the queue-depth-scaled trigger strategy, reading
// ApproximateNumberOfMessages through client for the queue named on each
// job's trigger.
func NewSQSStrategy(client queuedepth.Client) Strategy {
	return &sqsStrategy{client: client}
}

type sqsStrategy struct {
	client queuedepth.Client
}

func (s *sqsStrategy) DetermineTaskCount(ctx context.Context, job *jobmodel.Job) (int, error) {
	if job.Trigger == nil || job.Trigger.QueueName == "" {
		return capAt(job.TaskCount, job.MaxCount), nil
	}

	depth, err := s.client.ApproximateMessages(ctx, job.Trigger.QueueName)
	if err != nil {
		return 0, err
	}
	if depth == 0 {
		return 0, nil
	}

	scaled := 0
	if job.Trigger.MessagesPerTask > 0 {
		scaled = int(math.Ceil(float64(depth) / float64(job.Trigger.MessagesPerTask)))
	}

	desired := scaled
	if desired < job.TaskCount {
		desired = job.TaskCount
	}
	return capAt(desired, job.MaxCount), nil
}
