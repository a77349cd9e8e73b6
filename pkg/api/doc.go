// Package api defines the public types of the burnq burn-task queue:
// the BurnRequest record and its status state machine, the Service
// interface, the error taxonomy, change events, audit records, and the
// Observer plumbing shared by logging, metrics and the notification feed.
//
// Most users import the root burnq package instead, which re-exports
// everything here alongside the backend constructors.
package api
