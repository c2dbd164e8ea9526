// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"tuner/internal/log"
)

var ErrSenderClosed = errors.New("UDP sender is closed")

// UDPSender writes reading packets to a single connected UDP peer.
type UDPSender struct {
	mu     sync.Mutex
	conn   *net.UDPConn // nil once closed
	target *net.UDPAddr
}

// NewUDPSender resolves targetAddress ("host:port") and connects a socket to
// it. The local port is chosen by the kernel.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	target, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: resolving target %q: %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("udp: connecting to %q: %w", targetAddress, err)
	}

	log.Debugf("UDP Sender: %s -> %s", conn.LocalAddr(), target)
	return &UDPSender{conn: conn, target: target}, nil
}

// Target returns the resolved peer address.
func (s *UDPSender) Target() *net.UDPAddr {
	return s.target
}

// Send writes one packet. It returns ErrSenderClosed after Close.
func (s *UDPSender) Send(packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(packet); err != nil {
		log.Warnf("UDP Sender: write to %s failed: %v", s.target, err)
		return fmt.Errorf("udp: sending %d bytes: %w", len(packet), err)
	}
	return nil
}

// Close releases the socket. Calling it again is a no-op.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	if err := conn.Close(); err != nil {
		return fmt.Errorf("udp: closing socket to %s: %w", s.target, err)
	}
	log.Debugf("UDP Sender: closed socket to %s", s.target)
	return nil
}

var _ PacketSender = (*UDPSender)(nil)
