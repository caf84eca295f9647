// Package webapi is the HTTP API adapter (§4.9, §6): CRUD over jobs,
// pagination, and the two discovery endpoints (/ and /spec), wired
// directly over the registry and the ops bus.
package webapi

import (
	"time"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

// Link is the HATEOAS-ish sub-object every job representation carries.
type Link struct {
	Rel   string `json:"rel"`
	Title string `json:"title"`
	Href  string `json:"href"`
}

// JobView is a job on the wire: every public field from §3 plus its link.
type JobView struct {
	ID               string                  `json:"id"`
	TaskDefinition   string                  `json:"taskDefinition"`
	Schedule         string                  `json:"schedule"`
	ParsedSchedule   *jobmodel.ParsedSchedule `json:"parsedSchedule,omitempty"`
	TaskCount        int                     `json:"taskCount"`
	MaxCount         *int                    `json:"maxCount,omitempty"`
	ScheduleStart    *time.Time              `json:"scheduleStart,omitempty"`
	ScheduleEnd      *time.Time              `json:"scheduleEnd,omitempty"`
	Timezone         string                  `json:"timezone,omitempty"`
	Suspended        bool                    `json:"suspended"`
	Trigger          *jobmodel.Trigger       `json:"trigger,omitempty"`
	Overrides        []jobmodel.Override     `json:"overrides,omitempty"`
	LastRun          *time.Time              `json:"lastRun,omitempty"`
	LastRunTasks     []jobmodel.TaskInfo     `json:"lastRunTasks,omitempty"`
	EstimatedNextRun *time.Time              `json:"estimatedNextRun,omitempty"`
	Link             Link                    `json:"link"`
}

func toView(job *jobmodel.Job) JobView {
	return JobView{
		ID:               job.ID,
		TaskDefinition:   job.TaskDefinition,
		Schedule:         job.Schedule,
		ParsedSchedule:   job.ParsedSchedule,
		TaskCount:        job.TaskCount,
		MaxCount:         job.MaxCount,
		ScheduleStart:    job.ScheduleStart,
		ScheduleEnd:      job.ScheduleEnd,
		Timezone:         job.Timezone,
		Suspended:        job.Suspended,
		Trigger:          job.Trigger,
		Overrides:        job.Overrides,
		LastRun:          job.LastRun,
		LastRunTasks:     job.LastRunTasks,
		EstimatedNextRun: job.EstimatedNextRun,
		Link:             Link{Rel: "item", Title: "Job for " + job.ID, Href: "/jobs/" + job.ID},
	}
}

// pageLink is one rendered prev/next link in a collection response.
type pageLink struct {
	Skip  int `json:"skip"`
	Count int `json:"count"`
}

// JobsPage is the collection response shape for GET /jobs.
type JobsPage struct {
	Jobs  []JobView `json:"jobs"`
	Prev  *pageLink `json:"prev,omitempty"`
	Next  *pageLink `json:"next,omitempty"`
	Total int       `json:"total"`
}

// errorBody is the generic JSON error response shape.
type errorBody struct {
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// resourceList is the response shape for GET /.
type resourceList struct {
	Resources []resource `json:"resources"`
}

type resource struct {
	Link Link `json:"link"`
}

// renderLink builds the link for frame (skip, count, total), or nil if
// the frame rule in §6 says it should be omitted: total must be
// positive, the frame itself must cover at least one record
// (skip+count > 0), and skip must still be within range (skip < total).
func renderLink(skip, count, total int) *pageLink {
	if total <= 0 {
		return nil
	}
	if skip+count <= 0 {
		return nil
	}
	if skip >= total {
		return nil
	}
	if skip < 0 {
		skip = 0
	}
	return &pageLink{Skip: skip, Count: count}
}
