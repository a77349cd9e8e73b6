// Package burnq provides a small, embeddable burn-task queue for
// firmware deployment: controllers submit burn requests, any number of
// burner devices race to claim them, and every state change is audited
// and broadcast to observers.
//
// # Core Concepts
//
// The burnq model is intentionally small:
//
//  1. Service
//  2. BurnRequest
//  3. Worker
//  4. Feed
//  5. Simulator
//
// # Service
//
// The Service is the single entry point for every operation: Submit,
// Claim, Complete, Fail, Get, List and History. It holds no state of
// its own; every call reads or writes the durable store behind it, so
// independent processes (a dashboard, a controller, a fleet of burners)
// can all share one store safely.
//
// Services can be backed by different stores:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres (module github.com/petrijr/burnq/postgres)
//
// # BurnRequest and the claim protocol
//
// A BurnRequest moves through a strict one-way state machine:
//
//	pending -> processing -> completed | failed
//
// The pending -> processing edge is the claim: an atomic take-ownership
// of the oldest pending request. At most one burner ever wins a given
// request, concurrent claimants never block each other, and a claimant
// that finds nothing (or only rows mid-claim by others) gets
// ErrNoPendingRequest immediately. The terminal edges are conditional
// writes that verify status and ownership atomically, so a non-owner
// can never finish someone else's burn.
//
// Every successful transition appends an immutable audit record,
// retrievable with Service.History.
//
// There is deliberately no reclaim of stalled work: a burner that
// claims a request and then crashes leaves it processing, owned by the
// dead burner, forever. Choosing a timeout or heartbeat policy is left
// to operators; List(StatusProcessing) finds such requests and Fail
// (under the owning burner id) retires them.
//
// # Worker
//
// A Worker (package pkg/worker) is the burner loop: claim, run a
// caller-supplied BurnFunc against the flashing hardware, report the
// outcome, repeat. Workers scale horizontally against one store.
//
// # Feed
//
// The Feed (package pkg/feed) broadcasts a ChangeEvent for every
// successful write, to subscribers of a single request or of all
// requests. Delivery is advisory and best-effort; a subscriber that
// misses an event falls back to Service.Get. For cross-process
// delivery over Redis, see module github.com/petrijr/burnq/redis.
//
// # Simulator
//
// Simulator bundles an in-memory Service, a Feed and simulated burner
// workers into a single process-local helper for development and
// tests. It is intentionally not crash-durable.
//
// For runnable programs, see the /examples directory.
package burnq
