// Package worker implements the burner side of the burn-task queue:
// a loop that claims pending burn requests, hands them to a
// caller-supplied BurnFunc (the code that actually talks to the
// flashing hardware), and reports completion or failure back through
// the service.
//
// Any number of workers may run against the same store; the claim
// protocol guarantees each request goes to exactly one of them.
package worker
