package protocol

import (
	"encoding/binary"
	"fmt"
)

// ParseResponse decodes an unframed response packet.
//
// Response structure:
//
//	[DIR=0x01][CMD][SIZE_L][SIZE_H][VALUE(4)][DATA...][STATUS...]
//
// statusLen is the number of trailing status bytes the loader appends
// (ESP32StatusBytes for the ESP32 ROM).
func ParseResponse(frame []byte, statusLen int) (*Response, error) {
	if len(frame) < HeaderSize {
		return nil, fmt.Errorf("frame too short: got %d bytes, minimum is %d", len(frame), HeaderSize)
	}

	if frame[0] != DirResponse {
		return nil, fmt.Errorf("invalid direction: got 0x%02X, expected 0x%02X", frame[0], DirResponse)
	}

	size := int(binary.LittleEndian.Uint16(frame[2:4]))
	payload := frame[HeaderSize:]
	if len(payload) != size {
		return nil, fmt.Errorf("frame length mismatch: got %d payload bytes, header says %d", len(payload), size)
	}

	if len(payload) < statusLen || statusLen < 2 {
		return nil, fmt.Errorf("payload too short for %d status bytes: got %d", statusLen, len(payload))
	}

	status := payload[len(payload)-statusLen:]
	return &Response{
		Op:     frame[1],
		Value:  binary.LittleEndian.Uint32(frame[4:8]),
		Data:   payload[:len(payload)-statusLen],
		Status: status[0],
		Code:   status[1],
	}, nil
}
