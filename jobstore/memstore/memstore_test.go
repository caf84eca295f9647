package memstore

import (
	"context"
	"testing"

	"oss.nandlabs.io/ecscheduler/jobmodel"
)

func TestStore_CreateLoadAll(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := &jobmodel.PersistedJob{ID: "a", TaskDefinition: "a", Schedule: "0 0 0"}
	if err := s.Create(ctx, "a", job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 || all[0].ID != "a" {
		t.Fatalf("expected one job with id 'a', got %+v", all)
	}
}

func TestStore_CreateDefensiveCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := &jobmodel.PersistedJob{ID: "a", TaskDefinition: "a", Schedule: "0 0 0"}
	if err := s.Create(ctx, "a", job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	job.TaskDefinition = "mutated-after-create"

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if all[0].TaskDefinition != "a" {
		t.Fatalf("expected stored copy to be unaffected by post-create mutation, got %q", all[0].TaskDefinition)
	}
}

func TestStore_Delete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Create(ctx, "a", &jobmodel.PersistedJob{ID: "a"})
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no jobs after delete, got %+v", all)
	}
}
