// Package protocol carries the command link between the probe firmware and
// its host. Commands and responses are VLQ-encoded and travel inside small
// blocks: a length byte, a sequence byte, the payload, a big-endian CRC16
// and a 0x7E sync byte.
package protocol

import "errors"

// Block layout
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1

	MessageValueSync = 0x7E
	MessageDest      = 0x10
	MessageSeqMask   = 0x0F
)

// OutputMax sizes the firmware's response scratch buffer. Several blocks
// can queue between two USB flushes.
const OutputMax = 512

// ErrBlockTooLong is returned when a payload does not fit in one block.
var ErrBlockTooLong = errors.New("protocol: block exceeds 64 bytes")

// NextSequence returns the sequence after seq, keeping the 0x10 marker.
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

type scanResult int

const (
	scanShort scanResult = iota
	scanBlock
	scanBad
)

// scan checks whether data starts with a complete, valid block. It returns
// the block length for scanBlock. Leading sync bytes must already be gone.
func scan(data []byte) (int, scanResult) {
	if len(data) < MessageLengthMin {
		return 0, scanShort
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return 0, scanBad
	}
	if data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return 0, scanBad
	}
	if len(data) < n {
		return 0, scanShort
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return 0, scanBad
	}
	want := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if CRC16(data[:n-MessageTrailerSize]) != want {
		return 0, scanBad
	}
	return n, scanBlock
}

// skipToSync drops everything up to and including the next sync byte. It
// reports false when data holds no sync byte at all.
func skipToSync(data []byte) ([]byte, bool) {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:], true
		}
	}
	return nil, false
}

// AppendBlock frames payload with seq and appends the block to dst.
func AppendBlock(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := MessageLengthMin + len(payload)
	if n > MessageLengthMax {
		return dst, ErrBlockTooLong
	}
	start := len(dst)
	dst = append(dst, uint8(n), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync), nil
}
