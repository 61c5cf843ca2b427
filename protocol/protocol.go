// Package protocol implements the framed telemetry link between the robot
// and a host: VLQ-encoded messages in length/sequence/CRC16 frames.
//
// Frame layout:
//
//	len seq payload... crc_hi crc_lo 0x7E
//
// len counts the whole frame. seq carries MessageDest in the high nibble
// and a 4-bit sequence number in the low nibble. An empty payload is an
// ACK (or NAK) carrying the sequence the receiver expects next.
package protocol

// Version represents the linebot firmware version
const Version = "0.3.0"

const (
	MessageMax = 512 // robot output buffer; fits several frames

	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3 // offset of the CRC from the frame end
	MessageValueSync   = 0x7E

	MessageDest    = 0x10
	MessageSeqMask = 0x0F
)

// nextSeq returns the sequence byte that follows seq
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
