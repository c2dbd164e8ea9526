// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"tuner/internal/analysis"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Flags             | uint8          | 1            | bit0 tone, bit1 note    |
| Frequency         | float32        | 4            | Hz, 0 without tone      |
| Energy            | float32        | 4            | Σx² / sample rate       |
| Cents             | float32        | 4            | Deviation from the note |
+-----------------------------------------------------------------------------+

|<- 4 B ->|<--- 8 B --->|<1 B>|<- 4 B ->|<- 4 B ->|<- 4 B ->|
+---------+-------------+-----+---------+---------+---------+
|   Seq   |  Timestamp  |Flags|  Freq   | Energy  |  Cents  |
+---------+-------------+-----+---------+---------+---------+
*/

// PacketSize is the encoded size of a Packet.
const PacketSize = 25

const (
	FlagTone uint8 = 1 << iota
	FlagNote
)

// Packet is the wire form of one reading.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Flags     uint8
	Frequency float32
	Energy    float32
	Cents     float32
}

// NewPacket converts a reading. Cents are only set when the reading carries a note.
func NewPacket(seq uint32, r analysis.Reading) Packet {
	p := Packet{
		Sequence:  seq,
		Timestamp: r.Time.UnixNano(),
		Energy:    float32(r.Energy),
	}
	if r.Tone {
		p.Flags |= FlagTone
		p.Frequency = float32(r.Frequency)
	}
	if r.Note != nil {
		p.Flags |= FlagNote
		p.Cents = float32(r.Note.Cents)
	}
	return p
}

// Encode appends the big-endian encoding of p to buf.
func (p Packet) Encode(buf *bytes.Buffer) error {
	return binary.Write(buf, binary.BigEndian, p)
}

// DecodePacket parses a datagram produced by Encode.
func DecodePacket(b []byte) (Packet, error) {
	var p Packet
	if len(b) != PacketSize {
		return p, fmt.Errorf("udp: packet is %d bytes, want %d", len(b), PacketSize)
	}
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &p)
	return p, err
}
