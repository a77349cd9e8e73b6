// Package feed implements the in-process change notification feed: a
// publish/subscribe hub that fans burn request change events out to any
// number of subscribers, keyed by request id or covering all requests.
//
// The feed plugs into a service as an api.Observer, so it composes with
// logging and metrics via api.NewCompositeObserver.
//
// Delivery is best-effort and advisory. Events for one request arrive
// in the order they were published; there is no ordering guarantee
// across requests. A subscriber whose buffer is full loses the event (a
// drop counter records this) and a subscriber created after an event
// fired never sees it; in both cases the subscriber recovers by
// querying the service directly. The store row is always the source of
// truth.
package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petrijr/burnq/pkg/api"
)

// DefaultBuffer is the subscription channel capacity used when
// SubscribeOptions.Buffer is not positive.
const DefaultBuffer = 16

// Feed is a pub/sub hub for burn request change events.
// The zero value is not usable; call New.
type Feed struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
	closed bool
}

// Ensure Feed implements Observer so it can be wired into a service.
var _ api.Observer = (*Feed)(nil)

// New creates an empty Feed.
func New() *Feed {
	return &Feed{subs: make(map[int]*Subscription)}
}

// SubscribeOptions selects which events a subscription receives.
type SubscribeOptions struct {
	// RequestID limits the subscription to a single request.
	// Empty subscribes to all requests.
	RequestID string

	// Buffer is the channel capacity. Events published while the buffer
	// is full are dropped for this subscriber. Defaults to DefaultBuffer.
	Buffer int
}

// Subscription is one subscriber's view of the feed.
type Subscription struct {
	id        int
	requestID string
	ch        chan api.ChangeEvent
	feed      *Feed

	closeOnce sync.Once
	dropped   atomic.Int64
}

// C returns the channel events are delivered on. It is closed when the
// subscription or the feed is closed.
func (s *Subscription) C() <-chan api.ChangeEvent { return s.ch }

// Dropped returns how many events were lost because the subscriber was
// not keeping up.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close removes the subscription from the feed and closes its channel.
// It is safe to call multiple times.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
		close(s.ch)
	})
}

// Subscribe registers a new subscriber. Subscribing to a closed feed
// returns a subscription whose channel is already closed.
func (f *Feed) Subscribe(opts SubscribeOptions) *Subscription {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	sub := &Subscription{
		requestID: opts.RequestID,
		ch:        make(chan api.ChangeEvent, buffer),
		feed:      f,
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(sub.ch)
		return sub
	}
	f.nextID++
	sub.id = f.nextID
	f.subs[sub.id] = sub
	f.mu.Unlock()

	return sub
}

// Close shuts the feed down and closes every subscription channel.
// Publishing to a closed feed is a no-op.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	subs := f.subs
	f.subs = make(map[int]*Subscription)
	f.mu.Unlock()

	for _, sub := range subs {
		sub.closeOnce.Do(func() {
			close(sub.ch)
		})
	}
}

// publish fans an event out to every matching subscriber without ever
// blocking the publisher. Holding the lock across the sends keeps the
// per-request ordering: two writes to the same request are serialized
// by the store, and their events pass through here one at a time.
func (f *Feed) publish(ev api.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	for _, sub := range f.subs {
		if sub.requestID != "" && sub.requestID != ev.Request.ID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

func (f *Feed) event(t api.EventType, req *api.BurnRequest) api.ChangeEvent {
	return api.ChangeEvent{
		Type:    t,
		Request: *req.Clone(),
		At:      time.Now(),
	}
}

func (f *Feed) OnRequestSubmitted(ctx context.Context, req *api.BurnRequest) {
	f.publish(f.event(api.EventRequestSubmitted, req))
}

func (f *Feed) OnRequestClaimed(ctx context.Context, req *api.BurnRequest) {
	f.publish(f.event(api.EventRequestClaimed, req))
}

func (f *Feed) OnRequestCompleted(ctx context.Context, req *api.BurnRequest) {
	f.publish(f.event(api.EventRequestCompleted, req))
}

func (f *Feed) OnRequestFailed(ctx context.Context, req *api.BurnRequest) {
	f.publish(f.event(api.EventRequestFailed, req))
}
