// Package cronengine owns the cron entries derived from registered jobs
// and fires their executor when due (§4.6), then reports lifecycle
// events to a handler (§4.7). It re-expresses the original
// single-process cron engine as a dispatcher goroutine driven by a
// precise wake timer plus a slower poll tick, directly grounded in
// chrono/impl.go's defaultScheduler.run loop — minus chrono's
// multi-instance storage/locking, since one process owns the registry.
package cronengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"oss.nandlabs.io/ecscheduler/executor"
	"oss.nandlabs.io/ecscheduler/cronspec"
	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
	"oss.nandlabs.io/ecscheduler/registry"
)

var logger = l3.Get()

// misfireGrace is how far past its scheduled time a firing may lag
// before the engine reports it as missed instead of executing it, per
// the default job options named in §4.6.
const misfireGrace = 3600 * time.Second

// pollInterval is the slower background tick that recomputes every
// entry's next-fire time, catching any drift between the precise timer
// and wall-clock jumps (e.g. after the process was suspended).
const pollInterval = time.Minute

// entry is the engine's local view of one job's firing schedule.
type entry struct {
	job         jobmodel.Job
	schedule    *cronspec.Schedule
	scheduleEnd *time.Time
	paused      bool
	running     int32
	nextRun     time.Time
}

// Engine fires jobs' executor calls as their schedules come due.
type Engine struct {
	mu      sync.RWMutex
	entries map[string]*entry
	reg     *registry.Registry
	exec    *executor.Executor
	handler EventHandler

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	wake    chan struct{}
}

// New returns an Engine that fires through exec, resolves jobs from reg,
// and reports lifecycle events to handler.
func New(reg *registry.Registry, exec *executor.Executor, handler EventHandler) *Engine {
	return &Engine{
		entries: make(map[string]*entry),
		reg:     reg,
		exec:    exec,
		handler: handler,
		wake:    make(chan struct{}, 1),
	}
}

// Start inserts an entry for every job currently in the registry, then
// starts the dispatcher goroutine.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errAlreadyRunning
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.running = true
	e.mu.Unlock()

	inserted := 0
	for _, job := range e.reg.GetAll() {
		if e.insert(job) {
			inserted++
		}
	}
	logger.InfoF("cronengine: started with %d job(s) inserted", inserted)

	e.wg.Add(1)
	go e.run()
	return nil
}

// Stop cancels the dispatcher goroutine and waits for in-flight firings
// to finish. The Engine must be discarded afterward; Start does not
// support restart.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return errNotRunning
	}
	e.cancel()
	e.running = false
	e.mu.Unlock()

	e.wg.Wait()
	logger.Info("cronengine: stopped")
	return nil
}

// Notify reacts to a job operation posted on the ops bus: ADD/MODIFY
// (re)insert the entry from the registry's current copy of the job;
// REMOVE drops it, logging (not failing) a not-found lookup since the
// entry may already be gone; an unrecognized kind is a programming
// error.
func (e *Engine) Notify(op jobmodel.JobOperation) error {
	switch op.Kind {
	case jobmodel.OpAdd, jobmodel.OpModify:
		job, err := e.reg.Get(op.JobID)
		if err != nil {
			logger.WarnF("cronengine: notify %s for %q: %v", op.Kind, op.JobID, err)
			return nil
		}
		e.insert(job)
		return nil
	case jobmodel.OpRemove:
		e.remove(op.JobID)
		return nil
	default:
		return jobmodel.ErrUnknownOperationKind
	}
}

// insert compiles job's schedule and (re)installs its entry, replacing
// any existing one for the same id. Reports an Added/Modified event
// carrying the computed next-fire time, or none if the job is suspended.
func (e *Engine) insert(job *jobmodel.Job) bool {
	sched, err := cronspec.Compile(job.ParsedSchedule, job.Timezone)
	if err != nil {
		logger.ErrorF("cronengine: job %q has an uncompilable schedule: %v", job.ID, err)
		return false
	}

	en := &entry{job: *job, schedule: sched, scheduleEnd: job.ScheduleEnd, paused: job.Suspended}
	if !en.paused {
		en.nextRun = en.computeNext(time.Now())
	}

	e.mu.Lock()
	_, existed := e.entries[job.ID]
	e.entries[job.ID] = en
	e.mu.Unlock()
	e.signalWake()

	kind := Added
	if existed {
		kind = Modified
	}
	e.emit(Event{Kind: kind, JobID: job.ID, NextRun: en.nextRunPtr()})
	return true
}

// remove drops id's entry. A missing entry is logged, not propagated —
// the engine may be asked to remove a job it never successfully
// compiled, or one already removed concurrently.
func (e *Engine) remove(id string) {
	e.mu.Lock()
	_, exists := e.entries[id]
	delete(e.entries, id)
	e.mu.Unlock()

	if !exists {
		logger.WarnF("cronengine: remove %q: no such entry", id)
		return
	}
	e.signalWake()
	e.emit(Event{Kind: Removed, JobID: id})
}

// computeNext returns the entry's next fire time starting from the
// later of from and the job's scheduleStart (if any), or the zero Time
// once scheduleEnd has passed.
func (en *entry) computeNext(from time.Time) time.Time {
	base := from
	if en.job.ScheduleStart != nil && en.job.ScheduleStart.After(base) {
		base = *en.job.ScheduleStart
	}
	next := en.schedule.Next(base)
	if next.IsZero() {
		return next
	}
	if en.scheduleEnd != nil && next.After(*en.scheduleEnd) {
		return time.Time{}
	}
	return next
}

func (en *entry) nextRunPtr() *time.Time {
	if en.paused || en.nextRun.IsZero() {
		return nil
	}
	t := en.nextRun
	return &t
}

func (e *Engine) signalWake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) emit(evt Event) {
	if e.handler != nil {
		e.handler.OnEvent(evt)
	}
}

func (e *Engine) nextWakeDuration() time.Duration {
	now := time.Now()
	var earliest time.Time
	for _, en := range e.entries {
		if en.paused || en.nextRun.IsZero() {
			continue
		}
		if earliest.IsZero() || en.nextRun.Before(earliest) {
			earliest = en.nextRun
		}
	}
	if earliest.IsZero() {
		return pollInterval
	}
	if d := earliest.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (e *Engine) run() {
	defer e.wg.Done()

	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	e.mu.RLock()
	d := e.nextWakeDuration()
	e.mu.RUnlock()
	timer := time.NewTimer(d)
	defer timer.Stop()

	resetTimer := func() {
		e.mu.RLock()
		next := e.nextWakeDuration()
		e.mu.RUnlock()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(next)
	}

	for {
		select {
		case <-e.ctx.Done():
			return
		case now := <-timer.C:
			e.checkAndExecute(now)
			resetTimer()
		case now := <-pollTicker.C:
			e.checkAndExecute(now)
			resetTimer()
		case <-e.wake:
			resetTimer()
		}
	}
}

// checkAndExecute fires every entry whose nextRun is due, each in its
// own goroutine guarded by an atomic CAS so a slow-running firing is
// never overlapped by the next one (the single-instance realization of
// maxInstances=1).
func (e *Engine) checkAndExecute(now time.Time) {
	e.mu.RLock()
	var due []*entry
	for _, en := range e.entries {
		if en.paused || en.nextRun.IsZero() || en.nextRun.After(now) {
			continue
		}
		due = append(due, en)
	}
	e.mu.RUnlock()

	for _, en := range due {
		if !atomic.CompareAndSwapInt32(&en.running, 0, 1) {
			continue
		}

		scheduled := en.nextRun
		if now.Sub(scheduled) > misfireGrace {
			atomic.StoreInt32(&en.running, 0)
			e.emit(Event{Kind: Missed, JobID: en.job.ID, ScheduledRunTime: scheduled})
			e.advance(en, now)
			continue
		}

		e.wg.Add(1)
		go e.fire(en, scheduled)
	}
}

func (e *Engine) fire(en *entry, scheduled time.Time) {
	defer e.wg.Done()
	defer atomic.StoreInt32(&en.running, 0)

	result, tasks, err := e.exec.Fire(e.ctx, &en.job)
	if err != nil {
		e.emit(Event{Kind: ErrorEvent, JobID: en.job.ID, Err: err})
	} else {
		e.emit(Event{Kind: Executed, JobID: en.job.ID, ScheduledRunTime: scheduled, Result: &result, TaskInfo: tasks})
	}
	e.advance(en, time.Now())
}

// advance recomputes en's next fire time from base and reports a
// Modified event.
func (e *Engine) advance(en *entry, base time.Time) {
	next := en.computeNext(base)

	e.mu.Lock()
	en.nextRun = next
	e.mu.Unlock()
	e.signalWake()

	e.emit(Event{Kind: Modified, JobID: en.job.ID, NextRun: en.nextRunPtr()})
}
