package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives callbacks from the service after every successful
// write. The notification feed, logging and metrics all plug in here.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay the caller that performed the
// write. Observers are advisory: the store row, not the callback, is the
// source of truth.
type Observer interface {
	// OnRequestSubmitted is called once when a request is created.
	OnRequestSubmitted(ctx context.Context, req *BurnRequest)

	// OnRequestClaimed is called when a burner wins the claim on a
	// request. req.CompletedBy identifies the winner.
	OnRequestClaimed(ctx context.Context, req *BurnRequest)

	// OnRequestCompleted is called when a request reaches StatusCompleted.
	OnRequestCompleted(ctx context.Context, req *BurnRequest)

	// OnRequestFailed is called when a request reaches StatusFailed.
	// req.ErrorMessage carries the burner's reported error.
	OnRequestFailed(ctx context.Context, req *BurnRequest)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRequestSubmitted(ctx context.Context, req *BurnRequest) {}
func (NoopObserver) OnRequestClaimed(ctx context.Context, req *BurnRequest)   {}
func (NoopObserver) OnRequestCompleted(ctx context.Context, req *BurnRequest) {}
func (NoopObserver) OnRequestFailed(ctx context.Context, req *BurnRequest)    {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRequestSubmitted(ctx context.Context, req *BurnRequest) {
	for _, o := range c.observers {
		o.OnRequestSubmitted(ctx, req)
	}
}

func (c *CompositeObserver) OnRequestClaimed(ctx context.Context, req *BurnRequest) {
	for _, o := range c.observers {
		o.OnRequestClaimed(ctx, req)
	}
}

func (c *CompositeObserver) OnRequestCompleted(ctx context.Context, req *BurnRequest) {
	for _, o := range c.observers {
		o.OnRequestCompleted(ctx, req)
	}
}

func (c *CompositeObserver) OnRequestFailed(ctx context.Context, req *BurnRequest) {
	for _, o := range c.observers {
		o.OnRequestFailed(ctx, req)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs request lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRequestSubmitted(ctx context.Context, req *BurnRequest) {
	o.Logger.InfoContext(ctx, "burn_request_submitted",
		slog.String("request_id", req.ID),
		slog.String("firmware_id", req.FirmwareID),
		slog.String("firmware_version", req.FirmwareVersion),
		slog.String("initiated_by", req.InitiatedBy),
	)
}

func (o *LoggingObserver) OnRequestClaimed(ctx context.Context, req *BurnRequest) {
	o.Logger.InfoContext(ctx, "burn_request_claimed",
		slog.String("request_id", req.ID),
		slog.String("burner", req.CompletedBy),
	)
}

func (o *LoggingObserver) OnRequestCompleted(ctx context.Context, req *BurnRequest) {
	o.Logger.InfoContext(ctx, "burn_request_completed",
		slog.String("request_id", req.ID),
		slog.String("burner", req.CompletedBy),
	)
}

func (o *LoggingObserver) OnRequestFailed(ctx context.Context, req *BurnRequest) {
	o.Logger.ErrorContext(ctx, "burn_request_failed",
		slog.String("request_id", req.ID),
		slog.String("burner", req.CompletedBy),
		slog.String("error", req.ErrorMessage),
	)
}

// BasicMetrics collects simple counters over the request lifecycle.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	submitted atomic.Int64
	claimed   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Submitted int64
	Claimed   int64
	Completed int64
	Failed    int64

	// InFlight is the number of claimed requests not yet terminal,
	// as seen by this observer.
	InFlight int64
}

func (m *BasicMetrics) OnRequestSubmitted(ctx context.Context, req *BurnRequest) {
	m.submitted.Add(1)
}

func (m *BasicMetrics) OnRequestClaimed(ctx context.Context, req *BurnRequest) {
	m.claimed.Add(1)
}

func (m *BasicMetrics) OnRequestCompleted(ctx context.Context, req *BurnRequest) {
	m.completed.Add(1)
}

func (m *BasicMetrics) OnRequestFailed(ctx context.Context, req *BurnRequest) {
	m.failed.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	claimed := m.claimed.Load()
	completed := m.completed.Load()
	failed := m.failed.Load()

	return BasicMetricsSnapshot{
		Submitted: m.submitted.Load(),
		Claimed:   claimed,
		Completed: completed,
		Failed:    failed,
		InFlight:  claimed - completed - failed,
	}
}
