package protocol

import "fmt"

// ChipType identifies an Espressif chip family.
type ChipType int

const (
	ChipUnknown ChipType = iota
	ChipESP32
	ChipESP32S2
	ChipESP32S3
	ChipESP32C3
)

// chipMagic maps ChipDetectMagicReg values to chip families.
var chipMagic = map[uint32]ChipType{
	ESP32ChipMagic: ChipESP32,
	0x000007C6:     ChipESP32S2,
	0x00000009:     ChipESP32S3,
	0x6921506F:     ChipESP32C3,
	0x1B31506F:     ChipESP32C3,
}

// ChipFromMagic returns the chip family for a magic register value.
func ChipFromMagic(magic uint32) ChipType {
	if ct, ok := chipMagic[magic]; ok {
		return ct
	}
	return ChipUnknown
}

func (ct ChipType) String() string {
	switch ct {
	case ChipESP32:
		return "ESP32"
	case ChipESP32S2:
		return "ESP32-S2"
	case ChipESP32S3:
		return "ESP32-S3"
	case ChipESP32C3:
		return "ESP32-C3"
	default:
		return fmt.Sprintf("unknown(%d)", int(ct))
	}
}

// Response is a decoded ROM loader response packet.
type Response struct {
	// Op is the opcode of the command this response answers
	Op byte

	// Value is the 32-bit header value (register contents for CmdReadReg)
	Value uint32

	// Data is the payload without the trailing status bytes
	Data []byte

	// Status is zero on success
	Status byte

	// Code is the error code when Status is non-zero
	Code byte
}

// Err returns a *ProtocolError when the response reports a failure.
func (r *Response) Err(operation string) error {
	if r.Status == StatusSuccess {
		return nil
	}
	return &ProtocolError{Operation: operation, Status: r.Status, Code: r.Code}
}
