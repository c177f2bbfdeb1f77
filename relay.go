package nostr

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

const (
	defaultConnectTimeout   = 7 * time.Second
	defaultReconnectBase    = 2 * time.Second
	defaultMaxReconnects    = 5
	defaultSendsPerInterval = 10
	defaultSendInterval     = time.Second
)

// Relay is one logical session with one relay endpoint. It owns at most
// one websocket at a time and survives it: when the transport closes,
// the session backs off and redials (bounded linear backoff), and
// messages sent in the meantime wait in the outbound queue.
type Relay struct {
	URL           string
	RequestHeader http.Header // on connect, for auth and stuff

	// reconnect policy; changing these after Connect is not supported
	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectBase        time.Duration

	// ConnectionError surfaces transport failures. Reads are optional;
	// when nobody is listening errors are dropped after being logged.
	ConnectionError chan error

	// Notices receives NOTICE texts, Challenges receives AUTH challenges.
	Notices    chan string
	Challenges chan string

	// StatusHandler observes every state transition. The pool hooks in
	// here to issue pool-wide subscriptions the session doesn't carry yet.
	StatusHandler func(relay *Relay, status Status)

	// InvalidEventHandler observes inbound events dropped for failing
	// id or signature checks. Defaults to logging.
	InvalidEventHandler func(evt *Event, err error)

	mutex      sync.Mutex
	status     Status
	conn       *Connection
	generation uint64 // bumped on every connect/close; stale timers and loops check it
	attempts   int

	limiter      *sendLimiter
	sendInterval time.Duration

	subscriptions *xsync.MapOf[string, *Subscription]
	okCallbacks   *xsync.MapOf[string, func(ok bool, reason string)]
}

type RelayOption func(*Relay)

// WithRateLimit caps outbound messages at n per interval; the excess
// queues and drains as the interval ticks.
func WithRateLimit(n int, interval time.Duration) RelayOption {
	return func(r *Relay) {
		r.limiter = newSendLimiter(n)
		r.sendInterval = interval
	}
}

// WithReconnectPolicy overrides the bounded linear backoff defaults.
// base=0 keeps the default delay; max=0 disables reconnection.
func WithReconnectPolicy(max int, base time.Duration) RelayOption {
	return func(r *Relay) {
		r.MaxReconnectAttempts = max
		r.AutoReconnect = max > 0
		if base > 0 {
			r.ReconnectBase = base
		}
	}
}

func NewRelay(url string, opts ...RelayOption) *Relay {
	r := &Relay{
		URL:                  NormalizeURL(url),
		AutoReconnect:        true,
		MaxReconnectAttempts: defaultMaxReconnects,
		ReconnectBase:        defaultReconnectBase,
		ConnectionError:      make(chan error, 16),
		Notices:              make(chan string, 16),
		Challenges:           make(chan string, 4),
		limiter:              newSendLimiter(defaultSendsPerInterval),
		sendInterval:         defaultSendInterval,
		subscriptions:        xsync.NewMapOf[string, *Subscription](),
		okCallbacks:          xsync.NewMapOf[string, func(ok bool, reason string)](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) String() string {
	return r.URL
}

// Status returns the current session state.
func (r *Relay) Status() Status {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.status
}

func (r *Relay) IsConnected() bool {
	return r.Status() == StatusConnected
}

// Connect tries to establish the websocket. It is a no-op when the
// session is already connecting or connected. If the context carries no
// deadline a default timeout applies. A dial failure schedules a
// reconnect under the normal backoff policy and is also returned.
func (r *Relay) Connect(ctx context.Context) error {
	if r.URL == "" {
		return fmt.Errorf("%w: invalid relay URL '%s'", ErrFormat, r.URL)
	}

	r.mutex.Lock()
	if r.status == StatusConnecting || r.status == StatusConnected {
		r.mutex.Unlock()
		return nil
	}
	r.status = StatusConnecting
	r.generation++
	gen := r.generation
	r.mutex.Unlock()
	r.notifyStatus(StatusConnecting)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, err := NewConnection(ctx, r.URL, r.RequestHeader)
	if err != nil {
		r.mutex.Lock()
		stale := r.generation != gen
		if !stale {
			r.status = StatusDisconnected
		}
		r.mutex.Unlock()
		if !stale {
			r.notifyStatus(StatusDisconnected)
			r.surfaceError(err)
			r.scheduleReconnect(gen)
		}
		return err
	}

	r.mutex.Lock()
	if r.generation != gen {
		// Close (or another connect) won the race while we were dialing
		r.mutex.Unlock()
		conn.Close()
		return nil
	}
	r.conn = conn
	r.status = StatusConnected
	r.attempts = 0
	r.mutex.Unlock()

	go r.readLoop(conn, gen)
	go r.drainLoop(conn, gen)

	// flush whatever queued up while we were away, then re-issue this
	// session's subscriptions. The flush runs first and its sends count
	// against the interval's capacity, so the replayed REQs (and
	// whatever the status hook sends) can't push the first interval
	// past the cap.
	r.deliver(conn, gen, r.limiter.tick())
	r.resubscribeAll()
	r.notifyStatus(StatusConnected)

	return nil
}

// Close tears the session down: reconnection is disabled, any scheduled
// reconnect timer is invalidated, and the transport is closed. Safe to
// call in any state, including during an in-flight connect.
func (r *Relay) Close() error {
	r.mutex.Lock()
	r.AutoReconnect = false
	r.generation++
	conn := r.conn
	r.conn = nil
	r.status = StatusDisconnected
	r.mutex.Unlock()
	r.notifyStatus(StatusDisconnected)

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Publish queues a ["EVENT", ...] message for this relay. Unsigned
// events are a caller error. Delivery is asynchronous; use the pool's
// PublishEvent for OK confirmations.
func (r *Relay) Publish(evt *Event) error {
	return r.publish(evt, nil)
}

func (r *Relay) publish(evt *Event, okCallback func(ok bool, reason string)) error {
	if evt.Sig == "" {
		return fmt.Errorf("%w: refusing to publish unsigned event", ErrValidation)
	}
	b, err := EventEnvelope{Event: *evt}.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFormat, err)
	}
	if okCallback != nil {
		r.okCallbacks.Store(evt.ID, okCallback)
	}
	r.send(b)
	return nil
}

// Subscribe issues a REQ on this relay alone; the session re-issues it
// with the same filter after every reconnect. Multi-relay subscriptions
// go through the Pool.
func (r *Relay) Subscribe(id string, filter Filter, onEvent func(evt *Event, relay *Relay)) *Subscription {
	sub := NewSubscription(id, filter, onEvent)
	r.addSubscription(sub)
	return sub
}

// Unsubscribe sends CLOSE and forgets the subscription.
func (r *Relay) Unsubscribe(id string) {
	r.removeSubscription(id)
}

func (r *Relay) addSubscription(sub *Subscription) {
	r.subscriptions.Store(sub.ID, sub)
	b, err := ReqEnvelope{SubscriptionID: sub.ID, Filters: Filters{sub.Filter}}.MarshalJSON()
	if err != nil {
		InfoLogger.Printf("{%s} failed to encode REQ for %s: %s", r.URL, sub.ID, err)
		return
	}
	sub.attach(r.URL)
	r.send(b)
}

func (r *Relay) removeSubscription(id string) {
	sub, ok := r.subscriptions.LoadAndDelete(id)
	if !ok {
		return
	}
	sub.detach(r.URL)
	b, _ := CloseEnvelope(id).MarshalJSON()
	r.send(b)
}

// resubscribeAll re-issues a REQ for every subscription this session
// carries, each with its original filter. Runs on every reconnect;
// without it a session that dropped would stay silent on all of its
// subscriptions.
func (r *Relay) resubscribeAll() {
	r.subscriptions.Range(func(_ string, sub *Subscription) bool {
		r.addSubscription(sub)
		return true
	})
}

// send is non-blocking. Disconnected sessions queue the message and
// kick a connect; connected ones route it through the rate limiter.
func (r *Relay) send(message []byte) {
	r.mutex.Lock()
	status := r.status
	conn := r.conn
	gen := r.generation
	r.mutex.Unlock()

	if status != StatusConnected || conn == nil {
		r.limiter.enqueue(message)
		if status == StatusDisconnected || status == StatusFailed {
			go r.Connect(context.Background())
		}
		return
	}

	// writes happen inline; queue waits never do
	if out := r.limiter.submit(message); out != nil {
		r.deliver(conn, gen, [][]byte{out})
	}
}

// deliver writes messages in order; on a write failure the unsent tail
// is put back at the head of the queue and the session is flipped to
// Disconnected so the backoff machinery takes over.
func (r *Relay) deliver(conn *Connection, gen uint64, msgs [][]byte) {
	for i, msg := range msgs {
		if err := conn.WriteMessage(msg); err != nil {
			for j := len(msgs) - 1; j >= i; j-- {
				r.limiter.requeue(msgs[j])
			}
			r.handleClose(gen, err)
			return
		}
		debugLogf("{%s} sending %s", r.URL, msg)
	}
}

func (r *Relay) readLoop(conn *Connection, gen uint64) {
	for {
		message, err := conn.ReadMessage()
		if err != nil {
			r.handleClose(gen, err)
			return
		}
		if !r.isCurrent(gen) {
			return
		}
		debugLogf("{%s} received %s", r.URL, message)
		r.dispatchMessage(message)
	}
}

// drainLoop is the limiter's clock: each tick opens a fresh interval
// and sends whatever queued beyond the previous ones' capacity.
func (r *Relay) drainLoop(conn *Connection, gen uint64) {
	ticker := time.NewTicker(r.sendInterval)
	defer ticker.Stop()
	for range ticker.C {
		if !r.isCurrent(gen) {
			return
		}
		r.deliver(conn, gen, r.limiter.tick())
	}
}

func (r *Relay) isCurrent(gen uint64) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.generation == gen
}

// handleClose is the transport-close transition. Only the loops owning
// the current generation get through; they hand ownership to a new
// generation so that exactly one reconnect chain runs.
func (r *Relay) handleClose(gen uint64, err error) {
	r.mutex.Lock()
	if r.generation != gen {
		r.mutex.Unlock()
		return
	}
	r.generation++
	next := r.generation
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	r.status = StatusDisconnected
	r.mutex.Unlock()
	r.notifyStatus(StatusDisconnected)

	if err != nil {
		r.surfaceError(err)
	}
	r.scheduleReconnect(next)
}

func (r *Relay) scheduleReconnect(gen uint64) {
	r.mutex.Lock()
	if !r.AutoReconnect || r.generation != gen {
		r.mutex.Unlock()
		return
	}
	if r.attempts >= r.MaxReconnectAttempts {
		r.status = StatusFailed
		r.mutex.Unlock()
		r.notifyStatus(StatusFailed)
		r.surfaceError(fmt.Errorf("%w: gave up on %s after %d reconnect attempts",
			ErrTransport, r.URL, r.MaxReconnectAttempts))
		return
	}
	r.attempts++
	delay := r.ReconnectBase * time.Duration(r.attempts) // linear backoff
	r.mutex.Unlock()

	time.AfterFunc(delay, func() {
		r.mutex.Lock()
		stale := r.generation != gen || !r.AutoReconnect
		r.mutex.Unlock()
		if stale {
			return
		}
		r.Connect(context.Background())
	})
}

func (r *Relay) dispatchMessage(message []byte) {
	envelope := ParseMessage(message)
	if envelope == nil {
		InfoLogger.Printf("{%s} dropping unparseable message: %s", r.URL, message)
		return
	}

	switch env := envelope.(type) {
	case *NoticeEnvelope:
		InfoLogger.Printf("{%s} NOTICE: %s", r.URL, string(*env))
		nonBlockingSend(r.Notices, string(*env))
	case *AuthEnvelope:
		if env.Challenge != nil {
			nonBlockingSend(r.Challenges, *env.Challenge)
		}
	case *EventEnvelope:
		if env.SubscriptionID == nil {
			return
		}
		sub, ok := r.subscriptions.Load(*env.SubscriptionID)
		if !ok {
			debugLogf("{%s} event for unknown subscription %s", r.URL, *env.SubscriptionID)
			return
		}
		if !env.Event.CheckID() {
			r.reportInvalid(&env.Event, fmt.Errorf("%w: event id doesn't match computed hash", ErrValidation))
			return
		}
		if ok, err := env.Event.CheckSignature(); !ok {
			if err == nil {
				err = fmt.Errorf("%w: bad signature", ErrCrypto)
			}
			r.reportInvalid(&env.Event, err)
			return
		}
		if !sub.Filter.Matches(&env.Event) {
			debugLogf("{%s} event %s doesn't match subscription %s", r.URL, env.Event.ID, sub.ID)
			return
		}
		sub.dispatch(&env.Event, r)
	case *EOSEEnvelope:
		if sub, ok := r.subscriptions.Load(string(*env)); ok {
			sub.markEOSE(r)
		}
	case *OKEnvelope:
		if okCallback, exist := r.okCallbacks.LoadAndDelete(env.EventID); exist {
			okCallback(env.OK, env.Reason)
		}
	case *ClosedEnvelope:
		if sub, ok := r.subscriptions.LoadAndDelete(env.SubscriptionID); ok {
			InfoLogger.Printf("{%s} subscription %s closed by relay: %s", r.URL, env.SubscriptionID, env.Reason)
			sub.detach(r.URL)
		}
	}
}

func (r *Relay) reportInvalid(evt *Event, err error) {
	if r.InvalidEventHandler != nil {
		r.InvalidEventHandler(evt, err)
		return
	}
	InfoLogger.Printf("{%s} dropping event %s: %s", r.URL, evt.ID, err)
}

func (r *Relay) notifyStatus(status Status) {
	debugLogf("{%s} status -> %s", r.URL, status)
	if r.StatusHandler != nil {
		r.StatusHandler(r, status)
	}
}

func (r *Relay) surfaceError(err error) {
	select {
	case r.ConnectionError <- err:
	default:
		InfoLogger.Printf("{%s} %s", r.URL, err)
	}
}

func nonBlockingSend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
