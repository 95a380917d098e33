// Package fairq provides a fairness-aware, multi-tenant priority scheduler
// for Go. It assigns dynamic priorities to work items, selects which tenant
// to serve next under a pluggable fairness algorithm, prevents starvation
// through aging and forced boosts, retries failed work with priority decay,
// and adapts its capacity limits under burst load.
//
// fairq is designed as a library, not a service. Construct a
// scheduler.Scheduler, enqueue items from any number of producers, and run
// consumers (or a worker.Pool) that dequeue and process them with a
// caller-supplied processor function.
//
// # Quick Start
//
//	s, err := scheduler.New(
//	    scheduler.WithPolicy(fairq.DefaultPolicy()),
//	)
//
// # Architecture
//
// Each tenant owns an independently locked priority queue. A fairness
// manager chooses the queue to serve on every dequeue using one of four
// algorithms (weighted-fair, lottery, stride, proportional-share), expressed
// as a closed strategy set. Background maintenance ages resident items,
// boosts starved queues, and restores burst allowances — all driven by an
// injectable clock so tests never sleep.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package fairq
