package cronspec

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"oss.nandlabs.io/ecscheduler/jobmodel"
)

const (
	minTasks = 1
	maxTasks = 50
)

// revisionSuffix matches a colon optionally followed by digits, so any task
// definition ARN/name containing a colon is rejected, and with it any
// explicit revision number, which a job is never allowed to pin to.
var revisionSuffix = regexp.MustCompile(`:\d*`)

// JobInput is the wire shape of a create or update request body. Every
// field is a pointer so its absence (not provided) is distinguishable
// from its zero value (explicitly cleared), which both ValidateCreate
// and ValidateUpdate rely on.
type JobInput struct {
	ID             *string             `json:"id,omitempty"`
	TaskDefinition *string             `json:"taskDefinition,omitempty"`
	Schedule       *string             `json:"schedule,omitempty"`
	TaskCount      *int                `json:"taskCount,omitempty"`
	MaxCount       *int                `json:"maxCount,omitempty"`
	ScheduleStart  *time.Time          `json:"scheduleStart,omitempty"`
	ScheduleEnd    *time.Time          `json:"scheduleEnd,omitempty"`
	Timezone       *string             `json:"timezone,omitempty"`
	Suspended      *bool               `json:"suspended,omitempty"`
	Trigger        *jobmodel.Trigger   `json:"trigger,omitempty"`
	Overrides      *[]jobmodel.Override `json:"overrides,omitempty"`
}

// JobPatch is the validated result of an update request: every non-nil
// field replaces the corresponding field on the stored job. id is never
// part of a patch — update silently ignores it, per the reserved-field
// rule.
type JobPatch struct {
	TaskDefinition *string
	Schedule       *string
	ParsedSchedule *jobmodel.ParsedSchedule
	TaskCount      *int
	MaxCount       *int
	ScheduleStart  *time.Time
	ScheduleEnd    *time.Time
	Timezone       *string
	Suspended      *bool
	Trigger        *jobmodel.Trigger
	Overrides      *[]jobmodel.Override
}

// ValidateCreate builds a PersistedJob from a create request, defaulting
// id from taskDefinition and taskCount to the dialect minimum. It
// accumulates every failing field instead of stopping at the first.
func ValidateCreate(input JobInput) (*jobmodel.PersistedJob, error) {
	fieldErrors := map[string]string{}

	id := ""
	if input.TaskDefinition == nil || strings.TrimSpace(*input.TaskDefinition) == "" {
		fieldErrors["taskDefinition"] = "required"
	} else if revisionSuffix.MatchString(*input.TaskDefinition) {
		fieldErrors["taskDefinition"] = "task definition names cannot contain revision numbers"
	}

	if input.ID != nil && strings.TrimSpace(*input.ID) != "" {
		id = *input.ID
	} else if input.TaskDefinition != nil {
		id = *input.TaskDefinition
	}
	if id == "" {
		fieldErrors["id"] = "required"
	} else if revisionSuffix.MatchString(id) {
		fieldErrors["id"] = "task definition names cannot contain revision numbers"
	}

	var parsedSchedule *jobmodel.ParsedSchedule
	var rewrittenSchedule string
	if input.Schedule == nil || strings.TrimSpace(*input.Schedule) == "" {
		fieldErrors["schedule"] = "required"
	} else {
		ps, rewritten, err := ParseDialect(*input.Schedule)
		if err != nil {
			fieldErrors["parsedSchedule"] = err.Error()
		} else {
			parsedSchedule = ps
			rewrittenSchedule = rewritten
		}
	}

	taskCount := minTasks
	if input.TaskCount != nil {
		taskCount = *input.TaskCount
		if taskCount < minTasks || taskCount > maxTasks {
			fieldErrors["taskCount"] = rangeMsg(minTasks, maxTasks)
		}
	}

	var maxCount *int
	if input.MaxCount != nil {
		if *input.MaxCount < minTasks || *input.MaxCount > maxTasks {
			fieldErrors["maxCount"] = rangeMsg(minTasks, maxTasks)
		} else {
			mc := *input.MaxCount
			maxCount = &mc
		}
	}

	timezone := ""
	if input.Timezone != nil {
		timezone = *input.Timezone
		if _, err := time.LoadLocation(timezone); err != nil {
			fieldErrors["timezone"] = "unrecognized IANA timezone"
		}
	}

	if input.Trigger != nil {
		validateTrigger(input.Trigger, fieldErrors)
	}

	if input.Overrides != nil {
		validateOverrides(*input.Overrides, fieldErrors)
	}

	if len(fieldErrors) > 0 {
		return nil, jobmodel.NewInvalidJobData(id, fieldErrors)
	}

	job := &jobmodel.PersistedJob{
		ID:             id,
		TaskDefinition: *input.TaskDefinition,
		Schedule:       rewrittenSchedule,
		ParsedSchedule: parsedSchedule,
		TaskCount:      taskCount,
		MaxCount:       maxCount,
		Timezone:       timezone,
		Trigger:        input.Trigger,
	}
	if input.ScheduleStart != nil {
		job.ScheduleStart = input.ScheduleStart
	}
	if input.ScheduleEnd != nil {
		job.ScheduleEnd = input.ScheduleEnd
	}
	if input.Suspended != nil {
		job.Suspended = *input.Suspended
	}
	if input.Overrides != nil {
		job.Overrides = *input.Overrides
	}
	return job, nil
}

// ValidateUpdate validates an update request body against the same rules
// as ValidateCreate, minus any required-field constraints — omission is
// legal, it just leaves the existing field untouched.
func ValidateUpdate(jobID string, input JobInput) (*JobPatch, error) {
	fieldErrors := map[string]string{}
	patch := &JobPatch{}

	if input.TaskDefinition != nil {
		if strings.TrimSpace(*input.TaskDefinition) == "" {
			fieldErrors["taskDefinition"] = "required"
		} else if revisionSuffix.MatchString(*input.TaskDefinition) {
			fieldErrors["taskDefinition"] = "task definition names cannot contain revision numbers"
		} else {
			patch.TaskDefinition = input.TaskDefinition
		}
	}

	if input.Schedule != nil {
		ps, rewritten, err := ParseDialect(*input.Schedule)
		if err != nil {
			fieldErrors["parsedSchedule"] = err.Error()
		} else {
			patch.Schedule = &rewritten
			patch.ParsedSchedule = ps
		}
	}

	if input.TaskCount != nil {
		if *input.TaskCount < minTasks || *input.TaskCount > maxTasks {
			fieldErrors["taskCount"] = rangeMsg(minTasks, maxTasks)
		} else {
			patch.TaskCount = input.TaskCount
		}
	}

	if input.MaxCount != nil {
		if *input.MaxCount < minTasks || *input.MaxCount > maxTasks {
			fieldErrors["maxCount"] = rangeMsg(minTasks, maxTasks)
		} else {
			patch.MaxCount = input.MaxCount
		}
	}

	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			fieldErrors["timezone"] = "unrecognized IANA timezone"
		} else {
			patch.Timezone = input.Timezone
		}
	}

	if input.Trigger != nil {
		validateTrigger(input.Trigger, fieldErrors)
		patch.Trigger = input.Trigger
	}

	if input.Overrides != nil {
		validateOverrides(*input.Overrides, fieldErrors)
		patch.Overrides = input.Overrides
	}

	patch.ScheduleStart = input.ScheduleStart
	patch.ScheduleEnd = input.ScheduleEnd
	patch.Suspended = input.Suspended

	if len(fieldErrors) > 0 {
		return nil, jobmodel.NewInvalidJobData(jobID, fieldErrors)
	}
	return patch, nil
}

func validateTrigger(t *jobmodel.Trigger, fieldErrors map[string]string) {
	if t.Type == "" {
		fieldErrors["trigger.type"] = "required"
		return
	}
	if t.Type == "sqs" && t.QueueName == "" {
		fieldErrors["trigger.queueName"] = `sqs trigger type requires "queueName" field`
	}
	if t.MessagesPerTask < 0 {
		fieldErrors["trigger.messagesPerTask"] = "must be at least 1"
	}
}

func validateOverrides(overrides []jobmodel.Override, fieldErrors map[string]string) {
	for _, o := range overrides {
		if o.ContainerName == "" {
			fieldErrors["overrides"] = "containerName is required for each override"
			return
		}
	}
}

func rangeMsg(min, max int) string {
	return "must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)
}
