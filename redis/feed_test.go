package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/burnq/internal/service"
	"github.com/petrijr/burnq/pkg/api"
	"github.com/petrijr/burnq/redis/internal/testutil"
)

func newTestClient(t *testing.T) *goredis.Client {
	t.Helper()

	addr := testutil.GetRedisAddress(t)
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func waitEvent(t *testing.T, sub *Subscription) api.ChangeEvent {
	t.Helper()

	select {
	case ev, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed while waiting for event")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return api.ChangeEvent{}
}

func TestRedisFeed_PublishesLifecycleEvents(t *testing.T) {
	client := newTestClient(t)
	feed := NewRedisFeed(client, "burnq-test:")
	svc := service.NewInMemoryServiceWithObserver(feed)

	ctx := context.Background()

	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sub.Close()
	})

	req, err := svc.Submit(ctx, api.SubmitParams{
		FirmwareID:      "fw-11",
		FirmwareVersion: "1.4.2",
		InitiatedBy:     "alice",
	})
	require.NoError(t, err)

	ev := waitEvent(t, sub)
	require.Equal(t, api.EventRequestSubmitted, ev.Type)
	require.Equal(t, req.ID, ev.Request.ID)
	require.Equal(t, api.StatusPending, ev.Request.Status)
	require.Equal(t, "fw-11", ev.Request.FirmwareID)

	_, err = svc.Claim(ctx, "burner-A")
	require.NoError(t, err)

	ev = waitEvent(t, sub)
	require.Equal(t, api.EventRequestClaimed, ev.Type)
	require.Equal(t, "burner-A", ev.Request.CompletedBy)

	_, err = svc.Fail(ctx, req.ID, "burner-A", "flash timeout on sector 12")
	require.NoError(t, err)

	ev = waitEvent(t, sub)
	require.Equal(t, api.EventRequestFailed, ev.Type)
	require.Equal(t, api.StatusFailed, ev.Request.Status)
	require.Equal(t, "flash timeout on sector 12", ev.Request.ErrorMessage)
}

func TestRedisFeed_PerRequestChannel(t *testing.T) {
	client := newTestClient(t)
	feed := NewRedisFeed(client, "burnq-test-single:")
	svc := service.NewInMemoryServiceWithObserver(feed)

	ctx := context.Background()

	first, err := svc.Submit(ctx, api.SubmitParams{
		FirmwareID:      "fw-20",
		FirmwareVersion: "0.9.0",
		InitiatedBy:     "bob",
	})
	require.NoError(t, err)

	sub, err := feed.SubscribeRequest(ctx, first.ID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sub.Close()
	})

	// Events for other requests must not reach this subscription.
	_, err = svc.Submit(ctx, api.SubmitParams{
		FirmwareID:      "fw-21",
		FirmwareVersion: "0.9.1",
		InitiatedBy:     "bob",
	})
	require.NoError(t, err)

	claimed, err := svc.Claim(ctx, "burner-B")
	require.NoError(t, err)
	require.Equal(t, first.ID, claimed.ID)

	ev := waitEvent(t, sub)
	require.Equal(t, api.EventRequestClaimed, ev.Type)
	require.Equal(t, first.ID, ev.Request.ID)

	_, err = svc.Complete(ctx, first.ID, "burner-B")
	require.NoError(t, err)

	ev = waitEvent(t, sub)
	require.Equal(t, api.EventRequestCompleted, ev.Type)
	require.Equal(t, first.ID, ev.Request.ID)
}

func TestRedisFeed_RoundTripsTimestamps(t *testing.T) {
	at := time.Unix(0, 1700000000123456789)
	req := &api.BurnRequest{
		ID:              "req-ts",
		FirmwareID:      "fw-1",
		FirmwareVersion: "1.0.0",
		Status:          api.StatusPending,
		InitiatedBy:     "alice",
		CreatedAt:       at,
		UpdatedAt:       at,
	}

	data, err := encodeEvent(api.EventRequestSubmitted, req, at)
	require.NoError(t, err)

	ev, err := decodeEvent(data)
	require.NoError(t, err)
	require.Equal(t, api.EventRequestSubmitted, ev.Type)
	require.True(t, ev.Request.CreatedAt.Equal(at))
	require.True(t, ev.At.Equal(at))
}
