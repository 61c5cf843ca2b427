package protocol

// Message IDs. The firmware registers its commands and responses in this
// order, so both ends agree on the IDs without exchanging the dictionary.
const (
	MsgIdentify         = 0 // host -> robot: identify offset=%u count=%c
	MsgQueryStatus      = 1 // host -> robot: query_status
	MsgSetDebug         = 2 // host -> robot: set_debug enable=%c
	MsgIdentifyResponse = 3 // robot -> host: identify_response offset=%u data=%.*s
	MsgStatus           = 4 // robot -> host: status ...
	MsgFault            = 5 // robot -> host: fault kind=%c clock=%u
	MsgCommand          = 6 // robot -> host: command go=%c clock=%u
)

// Message formats, in ID order
const (
	FormatIdentify         = "offset=%u count=%c"
	FormatQueryStatus      = ""
	FormatSetDebug         = "enable=%c"
	FormatIdentifyResponse = "offset=%u data=%.*s"
	FormatStatus           = "clock=%u state=%c composite=%c lost=%c stop=%c enc_a=%i enc_b=%i rounds=%u right=%c left=%c status=%c"
	FormatFault            = "kind=%c clock=%u"
	FormatCommand          = "go=%c clock=%u"
)

// IdentifyChunk is the largest dictionary slice sent in one response
const IdentifyChunk = 40

// StatusMessage is the periodic robot status report
type StatusMessage struct {
	Clock     uint32
	State     uint8
	Composite uint8
	Lost      uint8
	Stop      uint8
	EncoderA  int32
	EncoderB  int32
	Rounds    uint32
	Right     uint8
	Left      uint8
	Status    uint8
}

// Encode writes the status arguments (without the message ID)
func (m *StatusMessage) Encode(output OutputBuffer) {
	EncodeVLQUint(output, m.Clock)
	EncodeVLQUint(output, uint32(m.State))
	EncodeVLQUint(output, uint32(m.Composite))
	EncodeVLQUint(output, uint32(m.Lost))
	EncodeVLQUint(output, uint32(m.Stop))
	EncodeVLQInt(output, m.EncoderA)
	EncodeVLQInt(output, m.EncoderB)
	EncodeVLQUint(output, m.Rounds)
	EncodeVLQUint(output, uint32(m.Right))
	EncodeVLQUint(output, uint32(m.Left))
	EncodeVLQUint(output, uint32(m.Status))
}

// DecodeStatus reads the status arguments following the message ID
func DecodeStatus(data *[]byte) (StatusMessage, error) {
	var m StatusMessage
	var u [11]uint32
	for i := range u {
		v, err := DecodeVLQInt(data)
		if err != nil {
			return m, err
		}
		u[i] = uint32(v)
	}
	m.Clock = u[0]
	m.State = uint8(u[1])
	m.Composite = uint8(u[2])
	m.Lost = uint8(u[3])
	m.Stop = uint8(u[4])
	m.EncoderA = int32(u[5])
	m.EncoderB = int32(u[6])
	m.Rounds = u[7]
	m.Right = uint8(u[8])
	m.Left = uint8(u[9])
	m.Status = uint8(u[10])
	return m, nil
}

// EventMessage carries a fault or command notification
type EventMessage struct {
	Value uint8 // fault kind, or 1 for go / 0 for pause
	Clock uint32
}

// Encode writes the event arguments (without the message ID)
func (m *EventMessage) Encode(output OutputBuffer) {
	EncodeVLQUint(output, uint32(m.Value))
	EncodeVLQUint(output, m.Clock)
}

// DecodeEvent reads fault or command arguments following the message ID
func DecodeEvent(data *[]byte) (EventMessage, error) {
	v, err := DecodeVLQUint(data)
	if err != nil {
		return EventMessage{}, err
	}
	clock, err := DecodeVLQUint(data)
	if err != nil {
		return EventMessage{}, err
	}
	return EventMessage{Value: uint8(v), Clock: clock}, nil
}
