// Package ecscheduler implements a cron-driven batch task scheduler for
// ECS: a job registry, a cron dialect and engine that evaluates schedules
// and dispatches runs, trigger strategies that decide how many tasks a
// run needs, an executor that reconciles already-running tasks against
// that count before launching the remainder, and an HTTP API for
// managing jobs.
//
// The scheduling and execution path is split across sub-packages:
//
//	import "oss.nandlabs.io/ecscheduler/jobmodel"   // job and task-run types
//	import "oss.nandlabs.io/ecscheduler/cronspec"   // cron dialect parsing
//	import "oss.nandlabs.io/ecscheduler/registry"   // in-memory job registry over a store
//	import "oss.nandlabs.io/ecscheduler/cronengine" // schedule evaluation and dispatch
//	import "oss.nandlabs.io/ecscheduler/trigger"    // task-count strategies
//	import "oss.nandlabs.io/ecscheduler/executor"   // running-task reconciliation and launch
//	import "oss.nandlabs.io/ecscheduler/taskrunner" // pluggable task-launch backend
//	import "oss.nandlabs.io/ecscheduler/jobstore"   // pluggable job persistence
//	import "oss.nandlabs.io/ecscheduler/webapi"     // HTTP API adapter
//
// The cmd/ecschedulerd package wires these into the daemon entrypoint.
package ecscheduler
