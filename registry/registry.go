// Package registry is the in-memory authoritative map of jobs (§4.2): a
// map guarded by a sync.RWMutex, mediating every read and write and
// enforcing the create/update-schema validation on the way in. Reads
// (get, getAll) take the read side and return defensive copies; writes
// (create, delete, update, annotate) take the write side.
package registry

import (
	"context"
	"sync"
	"time"

	"oss.nandlabs.io/ecscheduler/cronspec"
	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/jobstore"
	"oss.nandlabs.io/ecscheduler/l3"
	"oss.nandlabs.io/ecscheduler/metrics"
)

var logger = l3.Get()

// Registry is the in-memory job map. All methods are safe for concurrent
// use; Load must complete (or fail) before any other method is called.
type Registry struct {
	mu    sync.RWMutex
	store jobstore.Store
	jobs  map[string]*jobmodel.Job
}

// New returns an empty registry backed by store. Callers almost always
// want Load instead, which also populates it from the backend.
func New(store jobstore.Store) *Registry {
	return &Registry{store: store, jobs: make(map[string]*jobmodel.Job)}
}

// Load builds a registry from every record store.LoadAll returns,
// re-validating each record's parsedSchedule against the cron validator
// (§9's resolved open question); no other field is re-validated. A
// single invalid record aborts the whole load.
func Load(ctx context.Context, store jobstore.Store) (*Registry, error) {
	records, err := store.LoadAll(ctx)
	if err != nil {
		return nil, jobmodel.NewJobPersistenceError("", err)
	}

	r := New(store)
	for _, rec := range records {
		if err := cronspec.ValidateParsedSchedule(rec.ParsedSchedule); err != nil {
			return nil, jobmodel.NewInvalidJobData(rec.ID, map[string]string{"parsedSchedule": err.Error()})
		}
		r.jobs[rec.ID] = &jobmodel.Job{PersistedJob: *rec}
	}
	logger.InfoF("registry: loaded %d job(s)", len(r.jobs))
	metrics.JobsTotal.Set(float64(len(r.jobs)))
	return r, nil
}

// Total returns the number of registered jobs.
func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// GetAll returns a defensive-copy snapshot of every registered job,
// taken eagerly under the read lock so callers never hold the lock for
// the duration of their own processing.
func (r *Registry) GetAll() []*jobmodel.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*jobmodel.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Clone())
	}
	return out
}

// Get returns a defensive copy of the job registered under id, or
// JobNotFoundError if no such job exists.
func (r *Registry) Get(id string) (*jobmodel.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, jobmodel.NewJobNotFound(id)
	}
	return j.Clone(), nil
}

// Create validates input via the create-schema, rejects a duplicate id
// with JobAlreadyExistsError, persists through the store, and only then
// inserts into the map. A store failure is wrapped as
// JobPersistenceError and never leaves the job half-inserted.
func (r *Registry) Create(ctx context.Context, input cronspec.JobInput) (*jobmodel.Job, error) {
	persisted, err := cronspec.ValidateCreate(input)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[persisted.ID]; exists {
		return nil, jobmodel.NewJobAlreadyExists(persisted.ID)
	}

	if err := r.store.Create(ctx, persisted.ID, persisted); err != nil {
		return nil, jobmodel.NewJobPersistenceError(persisted.ID, err)
	}

	job := &jobmodel.Job{PersistedJob: *persisted}
	r.jobs[persisted.ID] = job
	logger.InfoF("registry: created job %q", persisted.ID)
	metrics.JobsTotal.Set(float64(len(r.jobs)))
	return job.Clone(), nil
}

// Delete removes id from the store and the map. Fails with
// JobNotFoundError if absent, or JobPersistenceError if the store call
// fails — in which case the in-memory entry is left untouched.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[id]; !exists {
		return jobmodel.NewJobNotFound(id)
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return jobmodel.NewJobPersistenceError(id, err)
	}
	delete(r.jobs, id)
	logger.InfoF("registry: deleted job %q", id)
	metrics.JobsTotal.Set(float64(len(r.jobs)))
	return nil
}

// Update validates the patch via the update-schema, persists the merged
// record, and only then applies it to the in-memory job. The reserved
// id field is never part of a JobPatch (cronspec.ValidateUpdate never
// produces one), so it can never change here.
func (r *Registry) Update(ctx context.Context, id string, input cronspec.JobInput) (*jobmodel.Job, error) {
	patch, err := cronspec.ValidateUpdate(id, input)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		return nil, jobmodel.NewJobNotFound(id)
	}

	merged := job.PersistedJob.Clone()
	applyPatch(merged, patch)

	if err := r.store.Update(ctx, id, merged); err != nil {
		return nil, jobmodel.NewJobPersistenceError(id, err)
	}

	job.PersistedJob = *merged
	logger.InfoF("registry: updated job %q", id)
	return job.Clone(), nil
}

func applyPatch(job *jobmodel.PersistedJob, patch *cronspec.JobPatch) {
	if patch.TaskDefinition != nil {
		job.TaskDefinition = *patch.TaskDefinition
	}
	if patch.Schedule != nil {
		job.Schedule = *patch.Schedule
	}
	if patch.ParsedSchedule != nil {
		job.ParsedSchedule = patch.ParsedSchedule
	}
	if patch.TaskCount != nil {
		job.TaskCount = *patch.TaskCount
	}
	if patch.MaxCount != nil {
		job.MaxCount = patch.MaxCount
	}
	if patch.ScheduleStart != nil {
		job.ScheduleStart = patch.ScheduleStart
	}
	if patch.ScheduleEnd != nil {
		job.ScheduleEnd = patch.ScheduleEnd
	}
	if patch.Timezone != nil {
		job.Timezone = *patch.Timezone
	}
	if patch.Suspended != nil {
		job.Suspended = *patch.Suspended
	}
	if patch.Trigger != nil {
		job.Trigger = patch.Trigger
	}
	if patch.Overrides != nil {
		job.Overrides = *patch.Overrides
	}
}

// persistableFields names every field annotate must reject because the
// persistence schema (create/update) would accept it — annotate is for
// the three transient fields only.
var persistableFields = map[string]bool{
	"taskDefinition": true, "schedule": true, "taskCount": true,
	"maxCount": true, "scheduleStart": true, "scheduleEnd": true,
	"timezone": true, "suspended": true, "trigger": true, "overrides": true,
}

// Annotation is the transient field set the event handler writes after a
// scheduler lifecycle event. Only non-nil fields are applied.
type Annotation struct {
	LastRun          *time.Time
	LastRunTasks     []jobmodel.TaskInfo
	EstimatedNextRun *time.Time
}

// Annotate merges fields into the in-memory job only; nothing is
// persisted. Asking to set id is ImmutableJobFieldsError; asking to set
// any field the persistence schema would accept is
// JobFieldsRequirePersistenceError — annotate exists only for lastRun /
// lastRunTasks / estimatedNextRun.
func (r *Registry) Annotate(id string, fields map[string]any) error {
	var immutable, needsPersistence []string
	for name := range fields {
		if name == "id" {
			immutable = append(immutable, name)
			continue
		}
		if persistableFields[name] {
			needsPersistence = append(needsPersistence, name)
		}
	}
	if len(immutable) > 0 {
		return jobmodel.NewImmutableJobFields(id, immutable)
	}
	if len(needsPersistence) > 0 {
		return jobmodel.NewJobFieldsRequirePersistence(id, needsPersistence)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		return jobmodel.NewJobNotFound(id)
	}
	for name, val := range fields {
		switch name {
		case "lastRun":
			if t, ok := val.(*time.Time); ok {
				job.LastRun = t
			}
		case "lastRunTasks":
			if tasks, ok := val.([]jobmodel.TaskInfo); ok {
				job.LastRunTasks = tasks
			}
		case "estimatedNextRun":
			if t, ok := val.(*time.Time); ok {
				job.EstimatedNextRun = t
			}
		}
	}
	return nil
}
