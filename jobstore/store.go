// Package jobstore defines the persistence contract the registry talks
// to and a handful of concrete backends, selected at startup by Resolve.
package jobstore

import (
	"context"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

// Store is the uniform persistence API every backend implements. All
// backends preserve byte-identical JSON semantics of the job payload;
// the registry is the only caller and never swallows a Store failure —
// every error a backend returns is expected to already be (or to be
// wrapped by the caller into) a *jobmodel.JobPersistenceError.
type Store interface {
	// LoadAll returns every stored record, each carrying its id.
	LoadAll(ctx context.Context) ([]*jobmodel.PersistedJob, error)
	// Create persists a new record under id. Backends do not need to
	// check for a pre-existing id — the registry already rejected
	// duplicates before calling down.
	Create(ctx context.Context, id string, data *jobmodel.PersistedJob) error
	// Update replaces the record stored under id in full.
	Update(ctx context.Context, id string, data *jobmodel.PersistedJob) error
	// Delete removes the record stored under id.
	Delete(ctx context.Context, id string) error
}
