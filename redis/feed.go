// Package redis provides a Redis-backed change feed for burn requests.
//
// The in-process feed in pkg/feed only reaches subscribers inside the
// same binary. RedisFeed publishes the same events over Redis pub/sub
// so dashboards and other processes can follow the queue:
//
//	<prefix>requests        all request events
//	<prefix>requests:<id>   events for a single request
//
// Delivery keeps the feed's contract: best-effort, no replay. A
// subscriber that connects after an event fired must query the service
// directly for current state.
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/burnq/pkg/api"
)

// DefaultPrefix is used when no channel prefix is given.
const DefaultPrefix = "burnq:"

// RedisFeed publishes burn request change events to Redis pub/sub.
// It implements api.Observer, so it plugs into any Service constructor
// that accepts one, alone or inside a CompositeObserver.
type RedisFeed struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ api.Observer = (*RedisFeed)(nil)

// NewRedisFeed constructs a RedisFeed.
// prefix is optional but recommended (e.g. "burnq:").
func NewRedisFeed(client *redis.Client, prefix string) *RedisFeed {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisFeed{
		client: client,
		prefix: prefix,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for publish failures and returns f.
func (f *RedisFeed) WithLogger(logger *slog.Logger) *RedisFeed {
	if logger != nil {
		f.logger = logger
	}
	return f
}

func (f *RedisFeed) channelAll() string {
	return f.prefix + "requests"
}

func (f *RedisFeed) channelRequest(id string) string {
	return f.prefix + "requests:" + id
}

// eventPayload is the wire form of api.ChangeEvent. Field names match
// the burn_requests columns so non-Go subscribers can consume the feed.
type eventPayload struct {
	Type            string `json:"type"`
	ID              string `json:"id"`
	FirmwareID      string `json:"firmware_id"`
	FirmwareVersion string `json:"firmware_version"`
	Status          string `json:"status"`
	InitiatedBy     string `json:"initiated_by"`
	CompletedBy     string `json:"completed_by,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
	At              int64  `json:"at"`
}

func encodeEvent(typ api.EventType, req *api.BurnRequest, at time.Time) ([]byte, error) {
	return json.Marshal(eventPayload{
		Type:            string(typ),
		ID:              req.ID,
		FirmwareID:      req.FirmwareID,
		FirmwareVersion: req.FirmwareVersion,
		Status:          string(req.Status),
		InitiatedBy:     req.InitiatedBy,
		CompletedBy:     req.CompletedBy,
		ErrorMessage:    req.ErrorMessage,
		CreatedAt:       req.CreatedAt.UnixNano(),
		UpdatedAt:       req.UpdatedAt.UnixNano(),
		At:              at.UnixNano(),
	})
}

func decodeEvent(data []byte) (api.ChangeEvent, error) {
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return api.ChangeEvent{}, err
	}
	return api.ChangeEvent{
		Type: api.EventType(p.Type),
		Request: api.BurnRequest{
			ID:              p.ID,
			FirmwareID:      p.FirmwareID,
			FirmwareVersion: p.FirmwareVersion,
			Status:          api.Status(p.Status),
			InitiatedBy:     p.InitiatedBy,
			CompletedBy:     p.CompletedBy,
			ErrorMessage:    p.ErrorMessage,
			CreatedAt:       time.Unix(0, p.CreatedAt),
			UpdatedAt:       time.Unix(0, p.UpdatedAt),
		},
		At: time.Unix(0, p.At),
	}, nil
}

func (f *RedisFeed) publish(ctx context.Context, typ api.EventType, req *api.BurnRequest) {
	if req == nil {
		return
	}
	data, err := encodeEvent(typ, req, time.Now())
	if err != nil {
		f.logger.ErrorContext(ctx, "feed encode failed", "event", string(typ), "request_id", req.ID, "error", err)
		return
	}
	// Observer callbacks must not fail the write that triggered them,
	// so publish errors are logged and dropped.
	if err := f.client.Publish(ctx, f.channelAll(), data).Err(); err != nil {
		f.logger.ErrorContext(ctx, "feed publish failed", "channel", f.channelAll(), "error", err)
	}
	if err := f.client.Publish(ctx, f.channelRequest(req.ID), data).Err(); err != nil {
		f.logger.ErrorContext(ctx, "feed publish failed", "channel", f.channelRequest(req.ID), "error", err)
	}
}

func (f *RedisFeed) OnRequestSubmitted(ctx context.Context, req *api.BurnRequest) {
	f.publish(ctx, api.EventRequestSubmitted, req)
}

func (f *RedisFeed) OnRequestClaimed(ctx context.Context, req *api.BurnRequest) {
	f.publish(ctx, api.EventRequestClaimed, req)
}

func (f *RedisFeed) OnRequestCompleted(ctx context.Context, req *api.BurnRequest) {
	f.publish(ctx, api.EventRequestCompleted, req)
}

func (f *RedisFeed) OnRequestFailed(ctx context.Context, req *api.BurnRequest) {
	f.publish(ctx, api.EventRequestFailed, req)
}

// Subscription delivers decoded change events from a Redis channel.
type Subscription struct {
	pubsub *redis.PubSub
	ch     chan api.ChangeEvent
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// C returns the channel events are delivered on. It is closed when the
// subscription is closed or the underlying pub/sub connection ends.
func (s *Subscription) C() <-chan api.ChangeEvent {
	return s.ch
}

// Close unsubscribes and releases the pub/sub connection. Safe to call
// multiple times.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.pubsub.Close()
}

// Subscribe follows every request event published under the feed's
// prefix. Events fired before Subscribe returns are not delivered.
func (f *RedisFeed) Subscribe(ctx context.Context) (*Subscription, error) {
	return f.subscribe(ctx, f.channelAll())
}

// SubscribeRequest follows events for a single request ID.
func (f *RedisFeed) SubscribeRequest(ctx context.Context, requestID string) (*Subscription, error) {
	return f.subscribe(ctx, f.channelRequest(requestID))
}

func (f *RedisFeed) subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := f.client.Subscribe(ctx, channel)

	// Wait for the subscription to be confirmed so callers see every
	// event published after Subscribe returns.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &Subscription{
		pubsub: pubsub,
		ch:     make(chan api.ChangeEvent),
		done:   make(chan struct{}),
		logger: f.logger,
	}
	go sub.run(pubsub.Channel())
	return sub, nil
}

func (s *Subscription) run(msgs <-chan *redis.Message) {
	defer close(s.ch)
	for msg := range msgs {
		ev, err := decodeEvent([]byte(msg.Payload))
		if err != nil {
			s.logger.Error("feed decode failed", "channel", msg.Channel, "error", err)
			continue
		}
		select {
		case s.ch <- ev:
		case <-s.done:
			return
		}
	}
}
