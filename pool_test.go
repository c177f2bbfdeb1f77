package nostr

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestPool() *Pool {
	return NewPool(
		WithReconnectPolicy(5, 50*time.Millisecond),
		WithRateLimit(50, 50*time.Millisecond),
	)
}

func addConnectedRelay(t *testing.T, pool *Pool, url string) *Relay {
	t.Helper()
	relay, err := pool.AddRelay(url)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return relay.Status() == StatusConnected },
		3*time.Second, 10*time.Millisecond, "relay never connected")
	return relay
}

func TestAddRelayIsIdempotent(t *testing.T) {
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		var msg string
		websocket.Message.Receive(conn, &msg)
	})
	defer ws.Close()

	pool := newTestPool()
	defer pool.Close()

	first, err := pool.AddRelay(ws.URL)
	require.NoError(t, err)

	// same endpoint, different spelling
	second, err := pool.AddRelay(ws.URL + "/")
	require.NoError(t, err)
	assert.Same(t, first, second)

	got, ok := pool.Relay(ws.URL)
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestAddRelayRejectsGarbage(t *testing.T) {
	pool := newTestPool()
	_, err := pool.AddRelay("")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestPoolPublishUnsignedIsRejected(t *testing.T) {
	pool := newTestPool()
	_, err := pool.PublishEvent(&Event{Kind: KindTextNote, Content: "hello"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = pool.PublishEvent(nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPoolPublishFanOut(t *testing.T) {
	evt, _ := signedTextNote(t)

	ws := newWebsocketServer(func(conn *websocket.Conn) {
		for {
			var msg string
			if err := websocket.Message.Receive(conn, &msg); err != nil {
				return
			}
			if env, ok := ParseMessage([]byte(msg)).(*EventEnvelope); ok {
				okMsg, _ := OKEnvelope{EventID: env.Event.ID, OK: true}.MarshalJSON()
				websocket.Message.Send(conn, string(okMsg))
			}
		}
	})
	defer ws.Close()

	pool := newTestPool()
	defer pool.Close()
	relay := addConnectedRelay(t, pool, ws.URL)

	statuses, err := pool.PublishEvent(&evt)
	require.NoError(t, err)

	// first the optimistic Sent, then the relay's OK
	var seen []PublishResult
	deadline := time.After(3 * time.Second)
	for len(seen) < 2 {
		select {
		case st := <-statuses:
			assert.Equal(t, relay.URL, st.RelayURL)
			seen = append(seen, st.Result)
		case <-deadline:
			t.Fatalf("got %v, wanted Sent then Succeeded", seen)
		}
	}
	assert.Equal(t, []PublishResult{PublishSent, PublishSucceeded}, seen)
}

func TestLatePublishConfirmationIsDropped(t *testing.T) {
	pr := newPublishResults(2)
	pr.send(PublishStatus{Result: PublishSent})
	pr.close()

	// a straggling OK callback resolving after the confirmation window
	assert.NotPanics(t, func() { pr.send(PublishStatus{Result: PublishSucceeded}) })
	assert.NotPanics(t, pr.close)

	st, ok := <-pr.ch
	require.True(t, ok)
	assert.Equal(t, PublishSent, st.Result)
	_, ok = <-pr.ch
	assert.False(t, ok, "channel must be closed after the window")
}

func TestPublishResultsSurviveCloseRace(t *testing.T) {
	pr := newPublishResults(1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				pr.send(PublishStatus{Result: PublishSucceeded})
			}
		}()
	}
	pr.close()
	wg.Wait()

	for range pr.ch {
	}
}

func TestPoolPublishReportsDisconnectedRelays(t *testing.T) {
	evt, _ := signedTextNote(t)

	pool := newTestPool()
	defer pool.Close()

	// dead endpoint; the session will be stuck connecting or failed
	relay, err := pool.AddRelay("ws://127.0.0.1:1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return relay.Status() != StatusConnected },
		time.Second, 10*time.Millisecond)

	statuses, err := pool.PublishEvent(&evt)
	require.NoError(t, err)

	select {
	case st := <-statuses:
		assert.Equal(t, PublishFailed, st.Result)
	case <-time.After(2 * time.Second):
		t.Fatal("no status for the unreachable relay")
	}
}

func TestPoolSubscribeValidation(t *testing.T) {
	pool := newTestPool()

	_, err := pool.Subscribe("", Filter{}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = pool.Subscribe("dup", Filter{}, nil)
	require.NoError(t, err)
	_, err = pool.Subscribe("dup", Filter{}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPoolSubscriptionReplaysOnReconnect(t *testing.T) {
	type reqRecord struct {
		conn int32
		raw  string
	}

	var conns atomic.Int32
	reqs := make(chan reqRecord, 10)
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		n := conns.Add(1)
		for {
			var msg string
			if err := websocket.Message.Receive(conn, &msg); err != nil {
				return
			}
			reqs <- reqRecord{conn: n, raw: msg}
			if n == 1 {
				return // drop the first connection right after its REQ
			}
		}
	})
	defer ws.Close()

	pool := newTestPool()
	defer pool.Close()
	addConnectedRelay(t, pool, ws.URL)

	filter := Filter{Kinds: []int{KindTextNote}, Tags: TagMap{"t": {"replay"}}}
	_, err := pool.Subscribe("replayed", filter, func(evt *Event, relay *Relay) {})
	require.NoError(t, err)

	var first reqRecord
	select {
	case first = <-reqs:
	case <-time.After(2 * time.Second):
		t.Fatal("initial REQ never arrived")
	}
	require.EqualValues(t, 1, first.conn)

	// the drop triggers a reconnect, which must replay the identical REQ
	var second reqRecord
	select {
	case second = <-reqs:
	case <-time.After(3 * time.Second):
		t.Fatal("REQ was not replayed after reconnect")
	}
	assert.EqualValues(t, 2, second.conn)

	env := ParseMessage([]byte(second.raw))
	req, ok := env.(*ReqEnvelope)
	require.True(t, ok, "expected a REQ, got %s", second.raw)
	assert.Equal(t, "replayed", req.SubscriptionID)
	require.Len(t, req.Filters, 1)
	assert.True(t, FilterEqual(filter, req.Filters[0]), "replayed filter must be the original one")

	// and only once per reconnect
	select {
	case extra := <-reqs:
		t.Fatalf("unexpected extra message after replay: %s", extra.raw)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestPoolUnsubscribeSendsClose(t *testing.T) {
	msgs := make(chan string, 10)
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		for {
			var msg string
			if err := websocket.Message.Receive(conn, &msg); err != nil {
				return
			}
			msgs <- msg
		}
	})
	defer ws.Close()

	pool := newTestPool()
	defer pool.Close()
	addConnectedRelay(t, pool, ws.URL)

	_, err := pool.Subscribe("shortlived", Filter{}, nil)
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		require.IsType(t, &ReqEnvelope{}, ParseMessage([]byte(msg)))
	case <-time.After(2 * time.Second):
		t.Fatal("REQ never arrived")
	}

	pool.Unsubscribe("shortlived")

	select {
	case msg := <-msgs:
		assert.Equal(t, `["CLOSE","shortlived"]`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("CLOSE never arrived")
	}
}

func TestRemoveRelayClosesSession(t *testing.T) {
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		var msg string
		websocket.Message.Receive(conn, &msg)
	})
	defer ws.Close()

	pool := newTestPool()
	relay := addConnectedRelay(t, pool, ws.URL)

	pool.RemoveRelay(ws.URL)
	_, ok := pool.Relay(ws.URL)
	assert.False(t, ok)

	assert.Eventually(t, func() bool { return relay.Status() == StatusDisconnected },
		2*time.Second, 10*time.Millisecond)
}
