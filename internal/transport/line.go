// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrClosed = errors.New("transport closed")

// LineTransport writes one line per payload, formatted with %v.
type LineTransport struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

func NewLineTransport(w io.Writer) *LineTransport {
	return &LineTransport{w: w}
}

func (lt *LineTransport) Send(data any) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.closed {
		return ErrClosed
	}
	_, err := fmt.Fprintln(lt.w, data)
	return err
}

// Close stops further writes; the writer itself is left open.
func (lt *LineTransport) Close() error {
	lt.mu.Lock()
	lt.closed = true
	lt.mu.Unlock()
	return nil
}

var _ Transport = (*LineTransport)(nil)
