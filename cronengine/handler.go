package cronengine

import (
	"time"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/metrics"
	"oss.nandlabs.io/ecscheduler/registry"
)

// AnnotatingHandler writes engine events back onto their job's transient
// fields via registry.Annotate (§4.7). JobNotFound from a concurrently
// deleted job is logged and swallowed; annotate failures never escape
// OnEvent, since nothing recovers from a panicking event handler.
type AnnotatingHandler struct {
	reg *registry.Registry
}

// NewAnnotatingHandler returns an EventHandler that annotates jobs in reg.
func NewAnnotatingHandler(reg *registry.Registry) *AnnotatingHandler {
	return &AnnotatingHandler{reg: reg}
}

func (h *AnnotatingHandler) OnEvent(evt Event) {
	switch evt.Kind {
	case Added, Modified:
		h.annotateNextRun(evt.JobID, evt.NextRun)
	case Executed:
		h.handleExecuted(evt)
	case ErrorEvent:
		if evt.Err != nil {
			logger.ErrorF("cronengine: job %q firing error: %v", evt.JobID, evt.Err)
		} else {
			logger.ErrorF("cronengine: job %q firing error", evt.JobID)
		}
	case Missed:
		metrics.MissedFiringsTotal.Inc()
		logger.ErrorF("cronengine: job %q missed its scheduled run at %s", evt.JobID, evt.ScheduledRunTime)
	case Removed:
		// no annotation to make; the job no longer exists in the registry.
	default:
		logger.WarnF("cronengine: unrecognized event kind for job %q", evt.JobID)
	}
}

func (h *AnnotatingHandler) handleExecuted(evt Event) {
	if evt.Result == nil {
		logger.WarnF("cronengine: job %q executed with no result code", evt.JobID)
		return
	}
	switch *evt.Result {
	case jobmodel.CheckedTasks:
		metrics.FiringsTotal.WithLabelValues("checked_tasks").Inc()
		h.annotateNextRun(evt.JobID, evt.NextRun)
	case jobmodel.StartedTasks:
		metrics.FiringsTotal.WithLabelValues("started_tasks").Inc()
		metrics.TasksStartedTotal.Add(float64(len(evt.TaskInfo)))
		fields := map[string]any{
			"lastRun":      timePtr(evt.ScheduledRunTime),
			"lastRunTasks": evt.TaskInfo,
		}
		if evt.NextRun != nil {
			fields["estimatedNextRun"] = evt.NextRun
		}
		h.annotate(evt.JobID, fields)
	default:
		logger.WarnF("cronengine: job %q executed with unknown result code", evt.JobID)
	}
}

func (h *AnnotatingHandler) annotateNextRun(jobID string, nextRun *time.Time) {
	if nextRun == nil {
		return
	}
	h.annotate(jobID, map[string]any{"estimatedNextRun": nextRun})
}

func (h *AnnotatingHandler) annotate(jobID string, fields map[string]any) {
	if err := h.reg.Annotate(jobID, fields); err != nil {
		if _, ok := err.(*jobmodel.JobNotFoundError); ok {
			logger.WarnF("cronengine: annotate %q: job no longer registered", jobID)
			return
		}
		logger.ErrorF("cronengine: annotate %q failed: %v", jobID, err)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
