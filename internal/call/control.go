package call

import "github.com/vmihailenco/msgpack/v5"

// The control channel is a msgpack-framed data channel that rides the
// same encrypted transport as the media. It carries call management
// messages, never media frames.

// Control message types.
const (
	controlTypeBye        = "bye"
	controlTypeDeviceInfo = "device-info"
)

// ControlMessage is the envelope for all control channel traffic.
type ControlMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// DeviceInfoPayload is exchanged once after the channel opens.
type DeviceInfoPayload struct {
	DeviceName    string `msgpack:"deviceName"`
	DeviceVersion string `msgpack:"deviceVersion"`
}

// DecodePayload decodes the message payload into the provided struct
func (m ControlMessage) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// newControlMessage creates a ControlMessage with the given type and payload
func newControlMessage(t string, payload any) (ControlMessage, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return ControlMessage{}, err
	}

	return ControlMessage{
		Type:    t,
		Payload: b,
	}, nil
}
