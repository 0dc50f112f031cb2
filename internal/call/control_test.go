package call

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestControlMessageRoundTrip(t *testing.T) {
	msg, err := newControlMessage(controlTypeDeviceInfo, DeviceInfoPayload{
		DeviceName:    "securecall",
		DeviceVersion: "v1.2.3",
	})
	if err != nil {
		t.Fatal(err)
	}

	wire, err := msgpack.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded ControlMessage
	if err := msgpack.Unmarshal(wire, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != controlTypeDeviceInfo {
		t.Errorf("type = %q, want %q", decoded.Type, controlTypeDeviceInfo)
	}

	var info DeviceInfoPayload
	if err := decoded.DecodePayload(&info); err != nil {
		t.Fatal(err)
	}
	if info.DeviceName != "securecall" || info.DeviceVersion != "v1.2.3" {
		t.Errorf("payload = %+v", info)
	}
}

func TestControlMessageBye(t *testing.T) {
	msg, err := newControlMessage(controlTypeBye, struct{}{})
	if err != nil {
		t.Fatal(err)
	}

	wire, err := msgpack.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded ControlMessage
	if err := msgpack.Unmarshal(wire, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != controlTypeBye {
		t.Errorf("type = %q, want %q", decoded.Type, controlTypeBye)
	}
}
