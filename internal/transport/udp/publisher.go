// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"tuner/internal/analysis"
	"tuner/internal/log"
)

// DefaultInterval is used when NewUDPPublisher gets a non-positive interval.
const DefaultInterval = 33 * time.Millisecond

// PacketSender is the sending side used by the publisher; *UDPSender in production.
type PacketSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically fetches the latest reading, packs it into the
// binary format described in packet.go and sends it with a PacketSender.
// A reading is sent once; ticks without a new reading are skipped.
type UDPPublisher struct {
	sender   PacketSender
	provider analysis.ReadingProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32
	lastReading uint64 // Sequence of the last reading sent.

	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
func NewUDPPublisher(interval time.Duration, sender PacketSender, provider analysis.ReadingProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("UDPPublisher: UDP sender cannot be nil")
	}
	if provider == nil {
		return nil, errors.New("UDPPublisher: reading provider cannot be nil")
	}

	if interval <= 0 {
		interval = DefaultInterval
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	log.Infof("UDPPublisher: Initializing (Interval: %s, Packet: %d bytes)", interval, PacketSize)

	return &UDPPublisher{
		sender:       sender,
		provider:     provider,
		interval:     interval,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Locals so the goroutine never reads p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				log.Infof("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine and waits for it to exit. Safe to
// call more than once.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		log.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	log.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

// buildAndSendPacket runs on every tick. It reports whether a packet was sent.
func (p *UDPPublisher) buildAndSendPacket() bool {
	r, ok := p.provider.Latest()
	if !ok || r.Sequence == p.lastReading {
		return false
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	if err := NewPacket(p.sequenceNum, r).Encode(p.packetBuffer); err != nil {
		log.Errorf("UDPPublisher: Error packing reading: %v", err)
		return false
	}

	// The sender logs its own errors.
	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return false
	}
	p.lastReading = r.Sequence
	log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	return true
}

// Close stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
