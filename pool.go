package nostr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// how long the pool keeps waiting for OK confirmations before a
// publish's status channel is closed
const publishResultWindow = 30 * time.Second

type PublishResult int

const (
	PublishSent      PublishResult = 0
	PublishFailed    PublishResult = -1
	PublishSucceeded PublishResult = 1
)

func (pr PublishResult) String() string {
	switch pr {
	case PublishSent:
		return "sent"
	case PublishFailed:
		return "failed"
	case PublishSucceeded:
		return "success"
	}
	return "unknown"
}

// PublishStatus is one relay's view of one published event.
type PublishStatus struct {
	RelayURL string
	Result   PublishResult
	Reason   string
}

// publishResults collects the statuses of one publish. OK callbacks can
// race the confirmation-window timer, so sends and the close are
// serialized behind the mutex; anything arriving after the close is
// dropped.
type publishResults struct {
	mutex  sync.Mutex
	closed bool
	ch     chan PublishStatus
}

func newPublishResults(capacity int) *publishResults {
	return &publishResults{ch: make(chan PublishStatus, capacity)}
}

func (pr *publishResults) send(status PublishStatus) {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()
	if pr.closed {
		return
	}
	nonBlockingSend(pr.ch, status)
}

func (pr *publishResults) close() {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	close(pr.ch)
}

// Pool owns any number of relay sessions and fans publish and subscribe
// calls out across them. It is the only writer to its relay and
// subscription registries; sessions report upward through their status
// hooks and never touch pool state themselves.
type Pool struct {
	relays        *xsync.MapOf[string, *Relay]
	subscriptions *xsync.MapOf[string, *Subscription]

	relayOptions []RelayOption
}

// NewPool creates an empty Pool. The given options are applied to every
// relay the pool creates.
func NewPool(opts ...RelayOption) *Pool {
	return &Pool{
		relays:        xsync.NewMapOf[string, *Relay](),
		subscriptions: xsync.NewMapOf[string, *Subscription](),
		relayOptions:  opts,
	}
}

// AddRelay registers a relay URL and starts connecting to it in the
// background. Adding a URL that is already present (after
// normalization) just returns the existing session.
func (pool *Pool) AddRelay(url string) (*Relay, error) {
	nm := NormalizeURL(url)
	if nm == "" {
		return nil, fmt.Errorf("%w: invalid relay URL '%s'", ErrFormat, url)
	}

	if existing, ok := pool.relays.Load(nm); ok {
		return existing, nil
	}

	relay := NewRelay(nm, pool.relayOptions...)
	relay.StatusHandler = func(r *Relay, status Status) {
		if status == StatusConnected {
			pool.resubscribe(r)
		}
	}

	if actual, loaded := pool.relays.LoadOrStore(nm, relay); loaded {
		return actual, nil
	}

	go relay.Connect(context.Background())
	return relay, nil
}

// RemoveRelay closes the session for the given URL and forgets it.
// Removing an unknown URL is a no-op.
func (pool *Pool) RemoveRelay(url string) {
	nm := NormalizeURL(url)
	relay, ok := pool.relays.LoadAndDelete(nm)
	if !ok {
		return
	}
	pool.subscriptions.Range(func(_ string, sub *Subscription) bool {
		sub.detach(relay.URL)
		return true
	})
	relay.Close()
}

// Relay returns the session for a URL, if the pool has it.
func (pool *Pool) Relay(url string) (*Relay, bool) {
	return pool.relays.Load(NormalizeURL(url))
}

// PublishEvent fans a signed event out to every currently connected
// session. Each relay contributes up to two statuses on the returned
// channel: Sent (or Failed) right away, then Succeeded or Failed when
// its OK arrives. The channel closes after the confirmation window.
func (pool *Pool) PublishEvent(evt *Event) (chan PublishStatus, error) {
	if evt == nil || evt.Sig == "" {
		return nil, fmt.Errorf("%w: refusing to publish unsigned event", ErrValidation)
	}

	results := newPublishResults(pool.relays.Size()*2 + 1)
	pool.relays.Range(func(url string, relay *Relay) bool {
		if relay.Status() != StatusConnected {
			results.send(PublishStatus{RelayURL: url, Result: PublishFailed, Reason: "relay not connected"})
			return true
		}

		err := relay.publish(evt, func(ok bool, reason string) {
			result := PublishSucceeded
			if !ok {
				result = PublishFailed
			}
			results.send(PublishStatus{RelayURL: url, Result: result, Reason: reason})
		})
		if err != nil {
			results.send(PublishStatus{RelayURL: url, Result: PublishFailed, Reason: err.Error()})
			return true
		}
		results.send(PublishStatus{RelayURL: url, Result: PublishSent})
		return true
	})

	time.AfterFunc(publishResultWindow, func() {
		pool.relays.Range(func(_ string, relay *Relay) bool {
			relay.okCallbacks.Delete(evt.ID)
			return true
		})
		results.close()
	})

	return results.ch, nil
}

// Subscribe registers a subscription pool-wide and issues its REQ on
// every connected session. Sessions that connect (or reconnect) later
// get the subscription replayed with its original filter. The id must
// not already be in use.
func (pool *Pool) Subscribe(id string, filter Filter, onEvent func(evt *Event, relay *Relay)) (*Subscription, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: subscription id must not be empty", ErrValidation)
	}

	sub := NewSubscription(id, filter, onEvent)
	if _, loaded := pool.subscriptions.LoadOrStore(id, sub); loaded {
		return nil, fmt.Errorf("%w: subscription id '%s' already in use", ErrValidation, id)
	}

	pool.relays.Range(func(_ string, relay *Relay) bool {
		if relay.Status() == StatusConnected {
			relay.addSubscription(sub)
		}
		return true
	})

	return sub, nil
}

// Unsubscribe sends CLOSE on every session carrying the subscription
// and drops it from the registry.
func (pool *Pool) Unsubscribe(id string) {
	_, ok := pool.subscriptions.LoadAndDelete(id)
	if !ok {
		return
	}
	pool.relays.Range(func(_ string, relay *Relay) bool {
		relay.removeSubscription(id)
		return true
	})
}

// Close tears down every session. Active subscriptions stay registered
// and would be replayed if the relays were re-added.
func (pool *Pool) Close() {
	pool.relays.Range(func(url string, relay *Relay) bool {
		relay.Close()
		return true
	})
}

// resubscribe issues every pool-wide subscription the given session
// isn't carrying yet. Sessions replay their own subscriptions across
// reconnects; this hook covers the ones registered while the session
// was down, each with its original filter.
func (pool *Pool) resubscribe(relay *Relay) {
	pool.subscriptions.Range(func(_ string, sub *Subscription) bool {
		if !sub.LiveOn(relay.URL) {
			relay.addSubscription(sub)
		}
		return true
	})
}
