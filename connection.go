package nostr

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Connection wraps one websocket with serialized writes. Reads are only
// ever done from the owning session's read loop.
type Connection struct {
	socket *websocket.Conn
	mutex  sync.Mutex
}

func NewConnection(ctx context.Context, url string, requestHeader http.Header) (*Connection, error) {
	socket, _, err := websocket.DefaultDialer.DialContext(ctx, url, requestHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: error opening websocket to '%s': %s", ErrTransport, url, err)
	}

	return &Connection{socket: socket}, nil
}

func (c *Connection) WriteMessage(data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: failed to write message: %s", ErrTransport, err)
	}
	return nil
}

func (c *Connection) ReadMessage() ([]byte, error) {
	for {
		// the default gorilla ping handler already answers pings
		typ, message, err := c.socket.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read message: %s", ErrTransport, err)
		}
		if typ != websocket.TextMessage || len(message) == 0 {
			continue
		}
		return message, nil
	}
}

func (c *Connection) Close() error {
	return c.socket.Close()
}
