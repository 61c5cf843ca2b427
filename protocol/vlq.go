package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// EncodeVLQInt writes v as 7-bit groups, most significant first, with the
// top bit set on all but the last byte. Values in [-32, 96) take one byte;
// each extra byte widens the range by 7 bits.
func EncodeVLQInt(output OutputBuffer, v int32) {
	var buf [5]byte
	n := 0
	for shift := 28; shift >= 7; shift -= 7 {
		lim := int32(1) << (shift - 2)
		if v < -lim || v >= 3*lim {
			buf[n] = byte(v>>shift)&0x7F | 0x80
			n++
		}
	}
	buf[n] = byte(v) & 0x7F
	output.Output(buf[:n+1])
}

// EncodeVLQUint writes v in the same form as EncodeVLQInt. Values of 2^31
// and above take five bytes.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt reads one value and advances data past it
func DecodeVLQInt(data *[]byte) (int32, error) {
	in := *data
	if len(in) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := in[0]
	v := uint32(c & 0x7F)
	if c&0x60 == 0x60 {
		// leading group is negative
		v |= ^uint32(0x1F)
	}

	i := 1
	for ; c&0x80 != 0; i++ {
		if i >= len(in) {
			return 0, ErrBufferTooSmall
		}
		if i >= 5 {
			return 0, ErrInvalidVLQ
		}
		c = in[i]
		v = v<<7 | uint32(c&0x7F)
	}

	*data = in[i:]
	return int32(v), nil
}

// DecodeVLQUint reads one value written by EncodeVLQUint
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQBytes writes a length-prefixed byte string
func EncodeVLQBytes(output OutputBuffer, data []byte) {
	EncodeVLQUint(output, uint32(len(data)))
	output.Output(data)
}

// DecodeVLQBytes reads a length-prefixed byte string. The result aliases
// data.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	length, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < length {
		return nil, ErrBufferTooSmall
	}
	result := (*data)[:length]
	*data = (*data)[length:]
	return result, nil
}
