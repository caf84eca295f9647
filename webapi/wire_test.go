package webapi

import (
	"testing"

	"oss.nandlabs.io/ecscheduler/jobmodel"
)

func TestToViewCopiesPublicAndAnnotatedFields(t *testing.T) {
	maxCount := 4
	job := &jobmodel.Job{
		PersistedJob: jobmodel.PersistedJob{
			ID: "alpha", TaskDefinition: "alpha", Schedule: "0 0 12 * * *",
			TaskCount: 2, MaxCount: &maxCount,
		},
		LastRunTasks: []jobmodel.TaskInfo{{TaskID: "t1"}},
	}
	view := toView(job)

	if view.ID != "alpha" || view.Link.Href != "/jobs/alpha" || view.Link.Rel != "item" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Link.Title != "Job for alpha" {
		t.Fatalf("Link.Title = %q", view.Link.Title)
	}
	if len(view.LastRunTasks) != 1 {
		t.Fatalf("LastRunTasks not carried over: %+v", view)
	}
}

func TestRenderLinkOmittedWhenTotalIsZero(t *testing.T) {
	if got := renderLink(0, 10, 0); got != nil {
		t.Fatalf("renderLink = %+v, want nil when total is 0", got)
	}
}

func TestRenderLinkOmittedWhenSkipBeyondTotal(t *testing.T) {
	if got := renderLink(100, 10, 50); got != nil {
		t.Fatalf("renderLink = %+v, want nil when skip >= total", got)
	}
}

func TestRenderLinkOmittedWhenFrameCoversNothing(t *testing.T) {
	// raw skip+count <= 0 must be checked before skip is clamped for
	// display, or a first-page "prev" frame would wrongly produce a link.
	if got := renderLink(-10, 10, 50); got != nil {
		t.Fatalf("renderLink = %+v, want nil when raw skip+count <= 0", got)
	}
}

func TestRenderLinkProducedForValidFrame(t *testing.T) {
	got := renderLink(10, 10, 50)
	if got == nil {
		t.Fatal("renderLink = nil, want a link")
	}
	if got.Skip != 10 || got.Count != 10 {
		t.Fatalf("renderLink = %+v, want {Skip:10 Count:10}", got)
	}
}

func TestRenderLinkClampsNegativeSkip(t *testing.T) {
	got := renderLink(-5, 10, 50)
	if got == nil {
		t.Fatal("renderLink = nil, want a clamped link")
	}
	if got.Skip != 0 {
		t.Fatalf("renderLink.Skip = %d, want 0 (clamped)", got.Skip)
	}
}

func TestRenderLinkPrevIsNilAtFirstPage(t *testing.T) {
	// skip=0, count=10 -> prev frame is (-10, 10, total): raw skip+count = 0, omitted.
	if got := renderLink(0-10, 10, 50); got != nil {
		t.Fatalf("prev link at first page = %+v, want nil", got)
	}
}
