package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BuildCommand constructs an unframed request packet.
//
// Packet structure:
//
//	[DIR=0x00][CMD][SIZE_L][SIZE_H][CHECKSUM(4)][DATA...]
//
// The result still has to be passed through Encode before it is written.
func BuildCommand(op byte, data []byte, checksum uint32) []byte {
	pkt := make([]byte, HeaderSize, HeaderSize+len(data))
	pkt[0] = DirRequest
	pkt[1] = op
	binary.LittleEndian.PutUint16(pkt[2:4], uint16(len(data)))
	binary.LittleEndian.PutUint32(pkt[4:8], checksum)
	return append(pkt, data...)
}

// BuildSyncCmd constructs the Sync command.
//
// Data structure:
//
//	[0x07 0x07 0x12 0x20][0x55 x 32]
func BuildSyncCmd() []byte {
	data := make([]byte, 0, SyncPayloadSize)
	data = append(data, 0x07, 0x07, 0x12, 0x20)
	data = append(data, bytes.Repeat([]byte{0x55}, SyncPayloadSize-4)...)
	return BuildCommand(CmdSync, data, 0)
}

// BuildReadRegCmd constructs a Read Register command for addr.
func BuildReadRegCmd(addr uint32) []byte {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, addr)
	return BuildCommand(CmdReadReg, data, 0)
}

// BuildSpiAttachCmd constructs the SPI Attach command for the default
// SPI pins.
//
// Data structure (ROM variant):
//
//	[HSPI_ARG(4)=0][IS_LEGACY(1)=0][PAD(3)]
func BuildSpiAttachCmd() []byte {
	return BuildCommand(CmdSpiAttach, make([]byte, 8), 0)
}

// BuildSpiSetParamsCmd constructs the SPI Set Params command describing a
// flash chip of totalSize bytes.
//
// Data structure:
//
//	[ID(4)][TOTAL_SIZE(4)][BLOCK_SIZE(4)][SECTOR_SIZE(4)][PAGE_SIZE(4)][STATUS_MASK(4)]
func BuildSpiSetParamsCmd(totalSize uint32) []byte {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint32(data[0:4], 0)
	binary.LittleEndian.PutUint32(data[4:8], totalSize)
	binary.LittleEndian.PutUint32(data[8:12], FlashBlockSize)
	binary.LittleEndian.PutUint32(data[12:16], FlashSectorSize)
	binary.LittleEndian.PutUint32(data[16:20], FlashPageSize)
	binary.LittleEndian.PutUint32(data[20:24], 0xFFFF)
	return BuildCommand(CmdSpiSetParams, data, 0)
}

// BuildChangeBaudCmd constructs the Change Baudrate command. The ROM expects
// oldBaud to be zero; the flasher stub uses it to compute the divider.
func BuildChangeBaudCmd(newBaud, oldBaud uint32) []byte {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], newBaud)
	binary.LittleEndian.PutUint32(data[4:8], oldBaud)
	return BuildCommand(CmdChangeBaudrate, data, 0)
}

// BuildFlashBeginCmd constructs the Flash Begin command. The ROM erases
// eraseSize bytes starting at offset before acknowledging.
//
// Data structure:
//
//	[ERASE_SIZE(4)][NUM_BLOCKS(4)][BLOCK_SIZE(4)][OFFSET(4)]
func BuildFlashBeginCmd(eraseSize, numBlocks, blockSize, offset uint32) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:4], eraseSize)
	binary.LittleEndian.PutUint32(data[4:8], numBlocks)
	binary.LittleEndian.PutUint32(data[8:12], blockSize)
	binary.LittleEndian.PutUint32(data[12:16], offset)
	return BuildCommand(CmdFlashBegin, data, 0)
}

// BuildFlashDataCmd constructs a Flash Data command for block number seq.
// Short blocks are padded with 0xFF up to FlashWriteSize.
//
// Data structure:
//
//	[DATA_SIZE(4)][SEQ(4)][0(4)][0(4)][DATA...]
func BuildFlashDataCmd(seq uint32, block []byte) ([]byte, error) {
	if len(block) == 0 {
		return nil, fmt.Errorf("block cannot be empty")
	}
	if len(block) > FlashWriteSize {
		return nil, fmt.Errorf("block length %d exceeds maximum %d bytes", len(block), FlashWriteSize)
	}

	padded := block
	if len(block) < FlashWriteSize {
		padded = make([]byte, FlashWriteSize)
		copy(padded, block)
		for i := len(block); i < FlashWriteSize; i++ {
			padded[i] = 0xFF
		}
	}

	data := make([]byte, 16, 16+len(padded))
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(padded)))
	binary.LittleEndian.PutUint32(data[4:8], seq)
	data = append(data, padded...)

	return BuildCommand(CmdFlashData, data, Checksum(padded)), nil
}

// BuildFlashEndCmd constructs the Flash End command. When reboot is false
// the ROM stays in the loader and the caller is expected to reset the chip.
func BuildFlashEndCmd(reboot bool) []byte {
	data := make([]byte, 4)
	if !reboot {
		binary.LittleEndian.PutUint32(data, 1)
	}
	return BuildCommand(CmdFlashEnd, data, 0)
}
