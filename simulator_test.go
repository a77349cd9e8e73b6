package burnq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/burnq/pkg/feed"
)

func TestSimulatorBurnsSubmittedRequests(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sim := NewSimulator()
	defer sim.Stop()

	sub := sim.Feed.Subscribe(feed.SubscribeOptions{Buffer: 64})

	require.NoError(t, sim.StartBurners(ctx, 2, nil))
	require.Error(t, sim.StartBurners(ctx, 1, nil), "second start without Stop must fail")

	const requests = 5
	ids := make(map[string]bool, requests)
	for i := 0; i < requests; i++ {
		req, err := Submit(ctx, sim.Service, SubmitParams{
			FirmwareID:      "F1",
			FirmwareVersion: "v1.0",
			InitiatedBy:     "controller-A",
		})
		require.NoError(t, err)
		ids[req.ID] = false
	}

	// Wait until every request has produced a completed event.
	remaining := requests
	for remaining > 0 {
		select {
		case ev := <-sub.C():
			if ev.Type != EventRequestCompleted {
				continue
			}
			done, seen := ids[ev.Request.ID]
			require.True(t, seen, "completed event for unknown request %s", ev.Request.ID)
			require.False(t, done, "duplicate completion for %s", ev.Request.ID)
			ids[ev.Request.ID] = true
			remaining--
		case <-ctx.Done():
			t.Fatalf("timed out with %d requests unfinished", remaining)
		}
	}

	// Every request was burned by a simulated burner, exactly once.
	for id := range ids {
		got, err := Get(ctx, sim.Service, id)
		require.NoError(t, err)
		require.Equal(t, StatusCompleted, got.Status)
		require.Contains(t, got.CompletedBy, "sim-burner-")
	}
}

func TestSimulatorFailureBurns(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metrics := &BasicMetrics{}
	sim := NewSimulatorWithObserver(metrics)
	defer sim.Stop()

	require.NoError(t, sim.StartBurners(ctx, 1, func(ctx context.Context, req *BurnRequest) error {
		return errors.New("no target device")
	}))

	req, err := Submit(ctx, sim.Service, SubmitParams{
		FirmwareID:      "F1",
		FirmwareVersion: "v1.0",
		InitiatedBy:     "controller-A",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := Get(ctx, sim.Service, req.ID)
		return err == nil && got.Status == StatusFailed
	}, 5*time.Second, 10*time.Millisecond, "request should fail")

	got, err := Get(ctx, sim.Service, req.ID)
	require.NoError(t, err)
	require.Equal(t, "no target device", got.ErrorMessage)

	snap := metrics.Snapshot()
	require.Equal(t, int64(1), snap.Failed)
}

func TestSimulatorStopIsIdempotent(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	require.NoError(t, sim.StartBurners(context.Background(), 1, nil))

	sim.Stop()
	sim.Stop()

	// After Stop the feed is closed; new subscriptions are dead.
	sub := sim.Feed.Subscribe(feed.SubscribeOptions{})
	_, ok := <-sub.C()
	require.False(t, ok, "expected closed subscription after Stop")
}
