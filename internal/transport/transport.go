// SPDX-License-Identifier: MIT
package transport

import "errors"

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe and must not block the caller for long,
// as Send is called from the audio thread.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans every payload out to several transports.
type Multi []Transport

// NewMulti drops nil entries.
func NewMulti(ts ...Transport) Multi {
	m := make(Multi, 0, len(ts))
	for _, t := range ts {
		if t != nil {
			m = append(m, t)
		}
	}
	return m
}

// Send delivers data to every transport, even when one of them fails.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
