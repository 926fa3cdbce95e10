// Package protocol implements the Espressif ROM serial loader protocol.
//
// This package provides functions to build request packets, SLIP-frame them
// and parse response packets as understood by the ESP32 first-stage ROM
// bootloader.
//
// # Protocol Overview
//
// Every packet is SLIP framed:
//
//	Request:  [0xC0][DIR=0x00][CMD][SIZE(2)][CHECKSUM(4)][DATA...][0xC0]
//	Response: [0xC0][DIR=0x01][CMD][SIZE(2)][VALUE(4)][DATA...][STATUS...][0xC0]
//
// Where:
//   - SIZE = 16-bit payload length (little-endian)
//   - CHECKSUM = XOR of the data block seeded with 0xEF (FlashData/MemData only)
//   - VALUE = register contents for ReadReg, otherwise unused
//   - STATUS = ESP32StatusBytes trailing bytes, first non-zero on failure
//
// # Command Builders
//
// Use the Build* functions to create request packets, then frame them:
//
//	pkt := protocol.BuildReadRegCmd(protocol.ChipDetectMagicReg)
//	_, err := port.Write(protocol.Encode(pkt))
//
// # Response Parsing
//
// Read frames with a FrameReader and decode them with ParseResponse:
//
//	fr := protocol.NewFrameReader(port)
//	frame, err := fr.ReadFrame()
//	resp, err := protocol.ParseResponse(frame, protocol.ESP32StatusBytes)
//	if err := resp.Err("read reg"); err != nil {
//	    // err.Error() returns: "read reg failed: invalid message (0x05)"
//	}
package protocol
