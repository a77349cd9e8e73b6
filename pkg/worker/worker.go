package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/petrijr/burnq/pkg/api"
)

// BurnFunc performs the actual firmware burn for a claimed request.
// Returning nil reports the request completed; returning an error
// reports it failed with the error's message.
type BurnFunc func(ctx context.Context, req *api.BurnRequest) error

// DefaultPollInterval is how long Run sleeps after finding no work.
const DefaultPollInterval = 500 * time.Millisecond

// Worker is a burner: it claims pending burn requests from a Service,
// executes them with a BurnFunc, and reports the outcome.
//
// Workers hold no task state of their own. If a worker's process dies
// mid-burn, the claimed request stays in the processing state owned by
// this worker's id; nothing reclaims it. Operators who restart a burner
// under the same id can inspect such requests with
// Service.List(StatusProcessing) and fail them by hand.
type Worker struct {
	service  api.Service
	burnerID string
	burn     BurnFunc

	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithPollInterval sets how long Run idles between claim attempts that
// find no pending work.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithLogger sets the worker's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Worker that burns on behalf of burnerID.
func New(service api.Service, burnerID string, burn BurnFunc, opts ...Option) *Worker {
	w := &Worker{
		service:      service,
		burnerID:     burnerID,
		burn:         burn,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ProcessOne claims and executes a single burn request.
// Returns (processed, error):
//   - processed == false, err == nil: no pending request was available.
//   - processed == true, err == nil: a request was burned and reported,
//     whether the burn itself succeeded or failed.
//   - err != nil: the claim or the outcome report failed; after a claim
//     error the caller must not assume no claim happened (see
//     api.PersistenceError).
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	req, err := w.service.Claim(ctx, w.burnerID)
	if err != nil {
		if errors.Is(err, api.ErrNoPendingRequest) {
			return false, nil
		}
		return false, err
	}

	w.logger.InfoContext(ctx, "burn_started",
		slog.String("request_id", req.ID),
		slog.String("firmware_id", req.FirmwareID),
		slog.String("firmware_version", req.FirmwareVersion),
		slog.String("burner", w.burnerID),
	)

	if burnErr := w.burn(ctx, req); burnErr != nil {
		if _, err := w.service.Fail(ctx, req.ID, w.burnerID, burnErr.Error()); err != nil {
			return true, err
		}
		w.logger.WarnContext(ctx, "burn_failed",
			slog.String("request_id", req.ID),
			slog.String("error", burnErr.Error()),
		)
		return true, nil
	}

	if _, err := w.service.Complete(ctx, req.ID, w.burnerID); err != nil {
		return true, err
	}
	w.logger.InfoContext(ctx, "burn_completed",
		slog.String("request_id", req.ID),
	)
	return true, nil
}

// Run claims and burns requests until ctx is cancelled, sleeping
// pollInterval whenever the queue is empty. Claim and report errors are
// logged and retried on the next iteration rather than stopping the
// worker; the error return is always ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		processed, err := w.ProcessOne(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "burn_worker_error",
				slog.String("burner", w.burnerID),
				slog.Any("error", err),
			)
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}
