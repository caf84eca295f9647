// Package ecsrunner implements taskrunner.Runner against AWS ECS,
// mirroring s3store's session/client construction for its own AWS
// service.
package ecsrunner

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/ecs/ecsiface"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
	"oss.nandlabs.io/ecscheduler/taskrunner"
)

var logger = l3.Get()

// Runner is an ECS-backed taskrunner.Runner.
type Runner struct {
	client ecsiface.ECSAPI
}

// New opens a Runner against the default AWS session/region.
func New() (*Runner, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return &Runner{client: ecs.New(sess)}, nil
}

// ListRunning lists RUNNING tasks for family in cluster. When
// withOverrides is true, each task is re-fetched via DescribeTasks so
// its container overrides can be inspected for the job's override tag.
func (r *Runner) ListRunning(ctx context.Context, cluster, family string, withOverrides bool) ([]taskrunner.RunningTask, error) {
	var taskArns []*string
	err := r.client.ListTasksPagesWithContext(ctx, &ecs.ListTasksInput{
		Cluster:       aws.String(cluster),
		Family:        aws.String(family),
		DesiredStatus: aws.String(ecs.DesiredStatusRunning),
	}, func(page *ecs.ListTasksOutput, _ bool) bool {
		taskArns = append(taskArns, page.TaskArns...)
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(taskArns) == 0 {
		return nil, nil
	}
	if !withOverrides {
		out := make([]taskrunner.RunningTask, len(taskArns))
		for i, arn := range taskArns {
			out[i] = taskrunner.RunningTask{TaskID: aws.StringValue(arn)}
		}
		return out, nil
	}

	descOut, err := r.client.DescribeTasksWithContext(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(cluster),
		Tasks:   taskArns,
	})
	if err != nil {
		return nil, err
	}

	out := make([]taskrunner.RunningTask, 0, len(descOut.Tasks))
	for _, t := range descOut.Tasks {
		out = append(out, taskrunner.RunningTask{
			TaskID:               aws.StringValue(t.TaskArn),
			ContainerOverrideTag: overrideTagValue(t.Overrides),
		})
	}
	return out, nil
}

func overrideTagValue(overrides *ecs.TaskOverride) string {
	if overrides == nil {
		return ""
	}
	for _, co := range overrides.ContainerOverrides {
		for _, kv := range co.Environment {
			if aws.StringValue(kv.Name) == jobmodel.OverrideTag {
				return aws.StringValue(kv.Value)
			}
		}
	}
	return ""
}

// RunTask launches args.Count tasks, returning those actually started
// along with the container instance each landed on. A non-empty
// Failures list on the response is logged and folded into the returned
// error without discarding any tasks that did start.
func (r *Runner) RunTask(ctx context.Context, args taskrunner.RunArgs) ([]taskrunner.StartedTask, error) {
	input := &ecs.RunTaskInput{
		Cluster:        aws.String(args.Cluster),
		TaskDefinition: aws.String(args.TaskDefinition),
		StartedBy:      aws.String(args.StartedBy),
		Count:          aws.Int64(int64(args.Count)),
	}
	if len(args.ContainerOverrides) > 0 {
		input.Overrides = &ecs.TaskOverride{ContainerOverrides: toECSOverrides(args.ContainerOverrides)}
	}

	out, err := r.client.RunTaskWithContext(ctx, input)
	if err != nil {
		return nil, err
	}

	started := make([]taskrunner.StartedTask, 0, len(out.Tasks))
	for _, t := range out.Tasks {
		started = append(started, taskrunner.StartedTask{
			TaskID: aws.StringValue(t.TaskArn),
			HostID: aws.StringValue(t.ContainerInstanceArn),
		})
	}

	if len(out.Failures) > 0 {
		logger.WarnF("ecsrunner: %d task(s) failed to start for %s: %v", len(out.Failures), args.TaskDefinition, out.Failures)
		return started, failuresError(out.Failures)
	}
	return started, nil
}

func toECSOverrides(overrides []taskrunner.ContainerOverride) []*ecs.ContainerOverride {
	out := make([]*ecs.ContainerOverride, len(overrides))
	for i, o := range overrides {
		env := make([]*ecs.KeyValuePair, 0, len(o.Environment))
		for k, v := range o.Environment {
			env = append(env, &ecs.KeyValuePair{Name: aws.String(k), Value: aws.String(v)})
		}
		out[i] = &ecs.ContainerOverride{Name: aws.String(o.Name), Environment: env}
	}
	return out
}

type failuresError []*ecs.Failure

func (f failuresError) Error() string {
	msg := "ecsrunner: task launch reported failures:"
	for _, fail := range f {
		msg += " " + aws.StringValue(fail.Reason)
	}
	return msg
}
