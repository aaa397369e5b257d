package tau2

import (
	"encoding/binary"
	"fmt"
)

// Packet protocol constants (Tau 2 Software IDD, table 3-2).
const (
	// ProcessCode is the first byte of every request and response packet.
	ProcessCode = 0x6E

	// HeaderSize is the fixed packet header: process code, status, reserved,
	// function, two length bytes, then the 2-byte header CRC.
	HeaderSize = 8

	// packetOverhead is the byte count of a packet with no argument: the
	// 8-byte header plus the trailing 2-byte argument CRC slot, which the
	// camera always emits even for empty replies.
	packetOverhead = 10
)

// ErrArgumentLength is returned by Encode when the supplied argument does not
// match the descriptor's declared byte count.
type ErrArgumentLength struct {
	Command string
	Want    int
	Got     int
}

func (e *ErrArgumentLength) Error() string {
	return fmt.Sprintf("%s: argument length mismatch: want %d bytes, got %d", e.Command, e.Want, e.Got)
}

// ErrBadHeader is returned by Decode when the response does not begin with
// the expected process code. The bytes should be purged and the exchange
// retried; they are never data.
type ErrBadHeader struct {
	Got byte
}

func (e *ErrBadHeader) Error() string {
	return fmt.Sprintf("bad response header: process code 0x%02X, want 0x%02X", e.Got, ProcessCode)
}

// Response is a structurally parsed reply packet. Arg holds the reply
// argument bytes (nil when the descriptor declares none).
type Response struct {
	Status Status
	Opcode byte
	Arg    []byte
}

// OK reports whether the camera accepted the command.
func (r *Response) OK() bool { return r.Status == StatusOK }

// PacketSize returns the wire size of a reply carrying replyLen argument
// bytes. The camera pads argument-less replies to the same 10-byte overhead.
func PacketSize(replyLen int) int {
	if replyLen == 0 {
		return packetOverhead
	}
	return HeaderSize + replyLen + 2
}

// Encode builds the wire form of a command packet: 6 header bytes, the
// header CRC, then, when the descriptor carries an argument, the argument
// bytes followed by their own CRC. Multi-byte fields are big-endian.
//
// Argument-less packets are padded with three zero bytes to the 11-byte
// frame the camera firmware expects (reserved slot plus empty CRC).
func Encode(c Command, arg []byte) ([]byte, error) {
	if len(arg) != c.CmdBytes {
		return nil, &ErrArgumentLength{Command: c.Name, Want: c.CmdBytes, Got: len(arg)}
	}

	header := []byte{
		ProcessCode,
		byte(StatusOK),
		0x00, // reserved
		c.Opcode,
		byte(len(arg) >> 8),
		byte(len(arg)),
	}

	packet := make([]byte, 0, HeaderSize+len(arg)+3)
	packet = append(packet, header...)
	packet = binary.BigEndian.AppendUint16(packet, crc16(header))

	if len(arg) > 0 {
		packet = append(packet, arg...)
		packet = binary.BigEndian.AppendUint16(packet, crc16(arg))
	} else {
		packet = append(packet, 0x00, 0x00, 0x00)
	}

	return packet, nil
}

// Decode parses a response packet as delivered by the transport. data must
// already have any transport preamble stripped (the FTDI read path drops two
// leading junk bytes before the real packet start; pure serial links deliver
// the packet directly).
//
// A non-OK status is a semantic failure, not a framing failure: the packet is
// still consumed and the reply bytes are attached to the returned StatusError
// for diagnostics, but the caller must not treat them as data.
func Decode(data []byte, replyLen int) (*Response, error) {
	want := PacketSize(replyLen)
	if len(data) < want {
		return nil, fmt.Errorf("short response: got %d bytes, want %d", len(data), want)
	}
	if data[0] != ProcessCode {
		return nil, &ErrBadHeader{Got: data[0]}
	}

	resp := &Response{
		Status: Status(data[1]),
		Opcode: data[3],
	}
	if replyLen > 0 {
		resp.Arg = data[HeaderSize : HeaderSize+replyLen]
		// Trailing reply CRC bytes are consumed, not verified.
	}

	if !resp.OK() {
		return resp, &StatusError{Op: fmt.Sprintf("opcode 0x%02X", resp.Opcode), Status: resp.Status, Reply: resp.Arg}
	}
	return resp, nil
}
