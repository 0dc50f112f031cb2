package signaling

import (
	"sync"
	"testing"
)

func TestClientCloseIdempotent(t *testing.T) {
	c := NewClient("wss://relay.invalid/ws")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()
	c.Close()

	// Sends after close are dropped, never blocked.
	c.SendMessage(&Message{Type: MessageTypeLeaveRoom, Room: "0123456789"})
}
