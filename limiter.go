package nostr

import "sync"

// sendLimiter caps how many outbound messages leave a session per
// interval. The token count resets fully on each tick; messages over
// capacity wait in FIFO order and are drained as ticks free capacity.
// The limiter holds no timer itself: the owning session drives it from
// its own ticker, which keeps draining cooperative and testable.
type sendLimiter struct {
	mutex    sync.Mutex
	capacity int
	used     int
	queue    [][]byte
}

func newSendLimiter(capacity int) *sendLimiter {
	return &sendLimiter{capacity: capacity}
}

// submit asks to send msg right now. If there is capacity left in the
// current interval (and nothing already waiting ahead of it), the
// message is returned for immediate delivery; otherwise it is queued
// and nil comes back.
func (l *sendLimiter) submit(msg []byte) []byte {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if len(l.queue) == 0 && l.used < l.capacity {
		l.used++
		return msg
	}

	l.queue = append(l.queue, msg)
	return nil
}

// enqueue appends msg without attempting delivery, for messages
// submitted while the session is not connected.
func (l *sendLimiter) enqueue(msg []byte) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.queue = append(l.queue, msg)
}

// requeue puts a message whose delivery failed back at the head of the
// queue so ordering is preserved across reconnects.
func (l *sendLimiter) requeue(msg []byte) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.queue = append([][]byte{msg}, l.queue...)
}

// tick starts a new interval: the token count resets and up to capacity
// queued messages are handed back for delivery, oldest first.
func (l *sendLimiter) tick() [][]byte {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	n := len(l.queue)
	if n > l.capacity {
		n = l.capacity
	}
	l.used = n

	out := l.queue[:n:n]
	l.queue = l.queue[n:]
	return out
}

func (l *sendLimiter) pending() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.queue)
}
