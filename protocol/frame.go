package protocol

import (
	"bytes"
	"sync/atomic"
)

// Frame is one verified frame
type Frame struct {
	Sequence uint8
	Payload  []byte // aliases the scanned input
	CRC      uint16
}

type scanResult uint8

const (
	scanMore   scanResult = iota // no complete frame yet
	scanFrame                    // a verified frame
	scanResync                   // garbage skipped up to a sync byte
)

// frameScanner splits a byte stream into frames. A bad length, CRC or
// trailer drops it out of sync; it then discards bytes up to and including
// the next sync byte.
type frameScanner struct {
	synced atomic.Bool

	// robot side: frames must be addressed to MessageDest
	checkDest bool
}

func newFrameScanner(checkDest bool) *frameScanner {
	s := &frameScanner{checkDest: checkDest}
	s.synced.Store(true)
	return s
}

// next looks for one frame at the start of data. n is the number of bytes
// consumed, which may be non-zero even for scanMore.
func (s *frameScanner) next(data []byte) (f Frame, n int, res scanResult) {
	for n < len(data) {
		rest := data[n:]

		if !s.synced.Load() {
			i := bytes.IndexByte(rest, MessageValueSync)
			if i < 0 {
				return f, len(data), scanMore
			}
			s.synced.Store(true)
			return f, n + i + 1, scanResync
		}

		if rest[0] == MessageValueSync {
			n++
			continue
		}
		if len(rest) < MessageLengthMin {
			break
		}

		msgLen := int(rest[MessagePositionLen])
		seq := rest[MessagePositionSeq]
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			s.synced.Store(false)
			continue
		}
		if s.checkDest && seq&^MessageSeqMask != MessageDest {
			s.synced.Store(false)
			continue
		}
		if len(rest) < msgLen {
			break
		}

		crc := uint16(rest[msgLen-MessageTrailerCRC])<<8 | uint16(rest[msgLen-MessageTrailerCRC+1])
		if rest[msgLen-1] != MessageValueSync || crc != CRC16(rest[:msgLen-MessageTrailerSize]) {
			s.synced.Store(false)
			continue
		}

		f = Frame{
			Sequence: seq,
			Payload:  rest[MessageHeaderSize : msgLen-MessageTrailerSize],
			CRC:      crc,
		}
		return f, n + msgLen, scanFrame
	}
	return f, n, scanMore
}

// AppendFrame frames payload under seq and appends it to dst
func AppendFrame(dst []byte, seq uint8, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, uint8(len(payload)+MessageLengthMin), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync)
}
