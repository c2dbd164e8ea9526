// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"sync/atomic"
)

// ChannelTransport hands payloads to a consumer goroutine (the TUI) through a
// buffered channel. Send never blocks: when the consumer lags, the payload is
// dropped and counted.
type ChannelTransport struct {
	ch      chan any
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewChannelTransport creates a transport with the given buffer size (min 1).
func NewChannelTransport(size int) *ChannelTransport {
	return &ChannelTransport{ch: make(chan any, max(1, size))}
}

// C returns the receive side. It is closed by Close.
func (ct *ChannelTransport) C() <-chan any {
	return ct.ch
}

func (ct *ChannelTransport) Send(data any) error {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	if ct.closed {
		return ErrClosed
	}
	select {
	case ct.ch <- data:
	default:
		ct.dropped.Add(1)
	}
	return nil
}

// Dropped returns how many payloads were discarded because the buffer was full.
func (ct *ChannelTransport) Dropped() uint64 {
	return ct.dropped.Load()
}

func (ct *ChannelTransport) Close() error {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if !ct.closed {
		ct.closed = true
		close(ct.ch)
	}
	return nil
}

var _ Transport = (*ChannelTransport)(nil)
