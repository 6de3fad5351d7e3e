// Package wire implements the 36-byte fixed TLV frame layout (spec.md
// §6) shared by both TCP endpoints (VAM, CM). Encoding follows the
// teacher's binary.LittleEndian + fixed-header-with-checksum idiom
// (kernel/threads/foundation/message_queue.go).
package wire

import (
	"encoding/binary"

	"github.com/nmxmxh/asi-supervisor/internal/asierr"
	"github.com/nmxmxh/asi-supervisor/internal/crc"
)

// FrameSize is the fixed wire size of a TLV frame (§6).
const FrameSize = 36

const (
	offType      = 0
	offLength    = 2
	offCRC       = 4
	offRollCount = 6
	offTimestamp = 8
	offSeq       = 12
	offMsgID     = 14
	offValue     = 16
	valueSize    = 8
)

// Frame is the decoded in-memory representation of a TLV frame.
type Frame struct {
	Type          uint16
	Length        uint16
	RollingCount  uint16
	TimestampMS   uint32
	Sequence      uint16
	MessageID     uint16
	Value         [valueSize]byte
}

// Encode serialises f into a freshly computed, CRC-stamped 36-byte frame.
func Encode(f Frame) [FrameSize]byte {
	var buf [FrameSize]byte
	binary.LittleEndian.PutUint16(buf[offType:], f.Type)
	binary.LittleEndian.PutUint16(buf[offLength:], f.Length)
	binary.LittleEndian.PutUint16(buf[offRollCount:], f.RollingCount)
	binary.LittleEndian.PutUint32(buf[offTimestamp:], f.TimestampMS)
	binary.LittleEndian.PutUint16(buf[offSeq:], f.Sequence)
	binary.LittleEndian.PutUint16(buf[offMsgID:], f.MessageID)
	copy(buf[offValue:offValue+valueSize], f.Value[:])

	chk := checksum(buf)
	binary.LittleEndian.PutUint16(buf[offCRC:], chk)
	return buf
}

// Decode parses a 36-byte wire frame, verifying its CRC-16/CCITT. The
// CRC is computed over bytes [0..4) ++ [6..36), excluding the CRC field
// itself (§6).
func Decode(buf [FrameSize]byte) (Frame, error) {
	wantCRC := binary.LittleEndian.Uint16(buf[offCRC:])
	if checksum(buf) != wantCRC {
		return Frame{}, asierr.ErrCRCMismatch
	}

	var f Frame
	f.Type = binary.LittleEndian.Uint16(buf[offType:])
	f.Length = binary.LittleEndian.Uint16(buf[offLength:])
	f.RollingCount = binary.LittleEndian.Uint16(buf[offRollCount:])
	f.TimestampMS = binary.LittleEndian.Uint32(buf[offTimestamp:])
	f.Sequence = binary.LittleEndian.Uint16(buf[offSeq:])
	f.MessageID = binary.LittleEndian.Uint16(buf[offMsgID:])
	copy(f.Value[:], buf[offValue:offValue+valueSize])
	return f, nil
}

// PeekHeader reads Type and MessageID without verifying the CRC, for
// callers that must classify a frame's role (and so count CRC errors
// against the right counter) even when the frame turns out corrupt.
func PeekHeader(buf [FrameSize]byte) (msgType uint16, messageID uint16) {
	return binary.LittleEndian.Uint16(buf[offType:]), binary.LittleEndian.Uint16(buf[offMsgID:])
}

// checksum computes the CRC over the frame bytes excluding the CRC field.
func checksum(buf [FrameSize]byte) uint16 {
	c := crc.Update(crc.Init, buf[0:offCRC])
	c = crc.Update(c, buf[offRollCount:FrameSize])
	return c
}
