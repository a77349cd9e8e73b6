package burnq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/petrijr/burnq/internal/service"
	"github.com/petrijr/burnq/pkg/feed"
	"github.com/petrijr/burnq/pkg/worker"
)

// Simulator bundles an in-memory Service, a change Feed, and simulated
// burner workers into a single process-local helper for development and
// testing: submit requests, start a few simulated burners, and watch
// the lifecycle on the feed without any real hardware or external
// store.
//
// Typical usage:
//
//	sim := burnq.NewSimulator()
//	defer sim.Stop()
//
//	sub := sim.Feed.Subscribe(feed.SubscribeOptions{})
//	_ = sim.StartBurners(ctx, 2, nil)
//
//	req, _ := sim.Service.Submit(ctx, burnq.SubmitParams{...})
//	// events for req arrive on sub.C()
//
// Simulator is intentionally not crash-durable.
type Simulator struct {
	// Service is the in-memory burn queue used by this simulator.
	Service Service

	// Feed receives a ChangeEvent for every write on Service.
	Feed *feed.Feed

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSimulator constructs a Simulator with an in-memory service wired
// to a fresh feed.
func NewSimulator() *Simulator {
	return NewSimulatorWithObserver(nil)
}

// NewSimulatorWithObserver is like NewSimulator but additionally wires
// obs (for example a LoggingObserver or BasicMetrics) alongside the feed.
func NewSimulatorWithObserver(obs Observer) *Simulator {
	f := feed.New()
	return &Simulator{
		Service: service.NewInMemoryServiceWithObserver(NewCompositeObserver(f, obs)),
		Feed:    f,
	}
}

// DefaultSimulatedBurn is the BurnFunc used when StartBurners is given
// nil: it pretends to flash for a few milliseconds and always succeeds.
func DefaultSimulatedBurn(ctx context.Context, req *BurnRequest) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil
	}
}

// StartBurners starts 'concurrency' simulated burner goroutines, named
// sim-burner-1..n, each claiming and burning with the given BurnFunc
// (DefaultSimulatedBurn if nil) until Stop is called or ctx ends.
//
// If StartBurners is called more than once without Stop, it returns an error.
func (s *Simulator) StartBurners(ctx context.Context, concurrency int, burn worker.BurnFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("burnq: Simulator already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}
	if burn == nil {
		burn = DefaultSimulatedBurn
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	// Simulated burners are chatty at default log levels; keep them quiet.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		w := worker.New(
			s.Service,
			fmt.Sprintf("sim-burner-%d", i+1),
			burn,
			worker.WithPollInterval(10*time.Millisecond),
			worker.WithLogger(quiet),
		)
		go func() {
			defer s.wg.Done()
			_ = w.Run(ctx)
		}()
	}

	return nil
}

// Stop cancels all burner goroutines started by StartBurners, waits for
// them to exit, and closes the feed.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	running := s.running
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if running && cancel != nil {
		cancel()
		s.wg.Wait()
	}
	s.Feed.Close()
}
