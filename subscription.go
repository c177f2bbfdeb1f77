package nostr

import "sync"

// Subscription is one pool-wide subscription: an opaque id, the filter
// it was created with, and the set of relay sessions it is currently
// live on. The filter is kept so the exact same REQ can be replayed
// when a session reconnects.
type Subscription struct {
	ID     string
	Filter Filter

	// OnEvent receives every verified event matching the filter.
	OnEvent func(evt *Event, relay *Relay)

	// OnEOSE fires once per relay when it confirms the end of stored events.
	OnEOSE func(relay *Relay)

	mutex sync.Mutex
	live  map[string]bool // relay URL -> REQ issued and not closed
	eosed map[string]bool // relay URL -> EOSE received
}

func NewSubscription(id string, filter Filter, onEvent func(evt *Event, relay *Relay)) *Subscription {
	return &Subscription{
		ID:      id,
		Filter:  filter,
		OnEvent: onEvent,
		live:    make(map[string]bool),
		eosed:   make(map[string]bool),
	}
}

func (sub *Subscription) dispatch(evt *Event, relay *Relay) {
	if sub.OnEvent != nil {
		sub.OnEvent(evt, relay)
	}
}

// attach records that a REQ for this subscription went out on the given
// relay. EOSE state for that relay resets: the relay will stream its
// stored events again.
func (sub *Subscription) attach(url string) {
	sub.mutex.Lock()
	sub.live[url] = true
	delete(sub.eosed, url)
	sub.mutex.Unlock()
}

func (sub *Subscription) detach(url string) {
	sub.mutex.Lock()
	delete(sub.live, url)
	delete(sub.eosed, url)
	sub.mutex.Unlock()
}

func (sub *Subscription) markEOSE(relay *Relay) {
	sub.mutex.Lock()
	already := sub.eosed[relay.URL]
	sub.eosed[relay.URL] = true
	sub.mutex.Unlock()

	if !already && sub.OnEOSE != nil {
		sub.OnEOSE(relay)
	}
}

// EOSEReceived reports whether the given relay has confirmed the end of
// stored events for this subscription.
func (sub *Subscription) EOSEReceived(url string) bool {
	sub.mutex.Lock()
	defer sub.mutex.Unlock()
	return sub.eosed[url]
}

// LiveOn reports whether this subscription is currently issued on the
// given relay.
func (sub *Subscription) LiveOn(url string) bool {
	sub.mutex.Lock()
	defer sub.mutex.Unlock()
	return sub.live[url]
}
