// Package packet implements the Quake III datagram framing layer: it
// classifies a raw UDP payload into one of three wire shapes, validates the
// header fields that make up that shape, and — for the connectionless
// "connect" command — drives the huffman and info packages to recover a
// client's user-info map.
package packet

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Framing constants from the wire format (§6).
const (
	MaxPacketLen           = 1400
	FragmentSize           = 1300
	FragmentBit     uint32 = 0x80000000
	Connectionless  uint32 = 0xFFFFFFFF
	sequenceMask    uint32 = 0x7FFFFFFF
)

// Side tells ParsePacket whether to expect a qport field on sequenced and
// fragmented datagrams: client-to-server packets carry one, master/auth
// server ones don't (§4.D).
type Side uint8

const (
	ClientToServer Side = iota
	ServerToClient
)

// PacketKind tags which of the three wire shapes a Packet is.
type PacketKind uint8

const (
	KindConnectionless PacketKind = iota
	KindSequenced
	KindFragmented
)

// Packet is implemented by ConnectionlessPacket, SequencedPacket and
// FragmentedPacket. packetMarker is unexported, so no type outside this
// package can satisfy Packet; Kind is exported separately so callers can
// still switch on the variant.
type Packet interface {
	Kind() PacketKind
	packetMarker()
}

// ConnectionlessPacket carries an out-of-band payload: everything after the
// 0xFFFFFFFF marker, up to MaxPacketLen total bytes.
type ConnectionlessPacket struct {
	Payload []byte
}

func (ConnectionlessPacket) Kind() PacketKind { return KindConnectionless }
func (ConnectionlessPacket) packetMarker()    {}

// SequencedPacket is one non-fragmented in-band datagram.
type SequencedPacket struct {
	Sequence uint32
	QPort    uint16 // zero and meaningless unless HasQPort
	HasQPort bool
	Payload  []byte
}

func (SequencedPacket) Kind() PacketKind { return KindSequenced }
func (SequencedPacket) packetMarker()    {}

// FragmentedPacket is one piece of a larger in-band message. Last reports
// whether this is the final fragment, signalled by a short payload.
type FragmentedPacket struct {
	Sequence   uint32
	QPort      uint16
	HasQPort   bool
	FragStart  uint16
	FragLength uint16
	Payload    []byte
}

func (FragmentedPacket) Kind() PacketKind { return KindFragmented }
func (FragmentedPacket) packetMarker()    {}

// Last reports whether this fragment's length is strictly less than
// FragmentSize, the wire's only "this was the last piece" signal.
func (p FragmentedPacket) Last() bool { return p.FragLength < FragmentSize }

// InvalidSizeError reports a datagram too short to contain the field being
// read at Pos, or (with Want set to MaxPacketLen and Got larger) a datagram
// longer than MaxPacketLen.
type InvalidSizeError struct {
	Pos, Want, Got int
}

func (e *InvalidSizeError) Error() string {
	if e.Got > e.Want {
		return fmt.Sprintf("packet: datagram of %d bytes exceeds the %d-byte maximum", e.Got, e.Want)
	}
	return fmt.Sprintf("packet: need %d bytes at offset %d, have %d", e.Want, e.Pos, e.Got)
}

// InvalidQPortError reports a zero qport field, which the protocol forbids.
type InvalidQPortError struct{}

func (e *InvalidQPortError) Error() string { return "packet: qport is zero" }

// InvalidFragmentStartError reports a fragment start at or beyond MaxPacketLen.
type InvalidFragmentStartError struct{ Got uint16 }

func (e *InvalidFragmentStartError) Error() string {
	return fmt.Sprintf("packet: fragment start %d >= %d", e.Got, MaxPacketLen)
}

// InvalidFragmentLengthError reports a declared fragment length over FragmentSize.
type InvalidFragmentLengthError struct{ Got uint16 }

func (e *InvalidFragmentLengthError) Error() string {
	return fmt.Sprintf("packet: fragment length %d > %d", e.Got, FragmentSize)
}

// FragmentMismatchError reports that the declared fragment length doesn't
// match the bytes actually remaining in the datagram.
type FragmentMismatchError struct{ Declared, Remaining int }

func (e *FragmentMismatchError) Error() string {
	return fmt.Sprintf("packet: fragment declares %d bytes, %d remain", e.Declared, e.Remaining)
}

// InvalidSequencedPacketError reports a non-fragmented payload at or beyond
// FragmentSize, which the wire format never produces for a single piece.
type InvalidSequencedPacketError struct{ Got int }

func (e *InvalidSequencedPacketError) Error() string {
	return fmt.Sprintf("packet: sequenced payload %d bytes >= %d", e.Got, FragmentSize)
}

// rejectPacket logs a ParsePacket rejection at slog.Debug, naming the byte
// length and reason but never the payload, and returns err unchanged.
func rejectPacket(length int, err error) (Packet, error) {
	slog.Debug("packet rejected", "length", length, "reason", err)
	return nil, err
}

// ParsePacket classifies and validates one raw datagram. side selects
// whether sequenced and fragmented datagrams are expected to carry a qport
// field (§4.D). It never panics, returning a structured error for any
// truncated or malformed input.
func ParsePacket(data []byte, side Side) (Packet, error) {
	if len(data) > MaxPacketLen {
		return rejectPacket(len(data), &InvalidSizeError{Pos: 0, Want: MaxPacketLen, Got: len(data)})
	}
	if len(data) < 4 {
		return rejectPacket(len(data), &InvalidSizeError{Pos: 0, Want: 4, Got: len(data)})
	}
	header := binary.LittleEndian.Uint32(data[:4])
	rest := data[4:]

	if header == Connectionless {
		return ConnectionlessPacket{Payload: rest}, nil
	}

	sequence := header & sequenceMask
	fragmented := header&FragmentBit != 0

	var qport uint16
	hasQPort := side == ClientToServer
	if hasQPort {
		if len(rest) < 2 {
			return rejectPacket(len(data), &InvalidSizeError{Pos: 4, Want: 2, Got: len(rest)})
		}
		qport = binary.LittleEndian.Uint16(rest[:2])
		if qport == 0 {
			return rejectPacket(len(data), &InvalidQPortError{})
		}
		rest = rest[2:]
	}

	if !fragmented {
		if len(rest) >= FragmentSize {
			return rejectPacket(len(data), &InvalidSequencedPacketError{Got: len(rest)})
		}
		return SequencedPacket{Sequence: sequence, QPort: qport, HasQPort: hasQPort, Payload: rest}, nil
	}

	if len(rest) < 4 {
		return rejectPacket(len(data), &InvalidSizeError{Pos: len(data) - len(rest), Want: 4, Got: len(rest)})
	}
	fragStart := binary.LittleEndian.Uint16(rest[0:2])
	fragLen := binary.LittleEndian.Uint16(rest[2:4])
	rest = rest[4:]

	if fragStart >= MaxPacketLen {
		return rejectPacket(len(data), &InvalidFragmentStartError{Got: fragStart})
	}
	if fragLen > FragmentSize {
		return rejectPacket(len(data), &InvalidFragmentLengthError{Got: fragLen})
	}
	if int(fragLen) != len(rest) {
		return rejectPacket(len(data), &FragmentMismatchError{Declared: int(fragLen), Remaining: len(rest)})
	}

	return FragmentedPacket{
		Sequence: sequence, QPort: qport, HasQPort: hasQPort,
		FragStart: fragStart, FragLength: fragLen, Payload: rest,
	}, nil
}
