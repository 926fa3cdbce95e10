package protocol

// SLIP framing bytes. Every request and response is wrapped in SlipEnd
// markers with SlipEnd/SlipEsc inside the payload escaped.
const (
	SlipEnd    = 0xC0
	SlipEsc    = 0xDB
	SlipEscEnd = 0xDC
	SlipEscEsc = 0xDD
)

// Packet direction byte.
const (
	DirRequest  = 0x00
	DirResponse = 0x01
)

// HeaderSize is the size of the packet header:
// DIR(1) + CMD(1) + SIZE(2) + CHECKSUM/VALUE(4)
const HeaderSize = 8

// ROM loader command opcodes.
const (
	// CmdFlashBegin erases a flash region and prepares a write of N blocks
	CmdFlashBegin = 0x02

	// CmdFlashData writes one block of a FlashBegin transfer
	CmdFlashData = 0x03

	// CmdFlashEnd finishes a flash transfer, optionally rebooting
	CmdFlashEnd = 0x04

	// CmdMemBegin, CmdMemEnd and CmdMemData load code into RAM
	CmdMemBegin = 0x05
	CmdMemEnd   = 0x06
	CmdMemData  = 0x07

	// CmdSync synchronises the autobaud detector of the ROM
	CmdSync = 0x08

	// CmdWriteReg writes a 32-bit register
	CmdWriteReg = 0x09

	// CmdReadReg reads a 32-bit register, the value is returned in the header
	CmdReadReg = 0x0A

	// CmdSpiSetParams configures the SPI flash geometry
	CmdSpiSetParams = 0x0B

	// CmdSpiAttach attaches the SPI flash to the ROM
	CmdSpiAttach = 0x0D

	// CmdChangeBaudrate switches the UART to a new baud rate
	CmdChangeBaudrate = 0x0F

	// CmdSpiFlashMD5 returns the MD5 of a flash region
	CmdSpiFlashMD5 = 0x13
)

// Error codes reported in the second status byte of a failed response.
const (
	StatusSuccess = 0x00

	ErrInvalidMessage  = 0x05
	ErrFailedToAct     = 0x06
	ErrInvalidCRC      = 0x07
	ErrFlashWrite      = 0x08
	ErrFlashRead       = 0x09
	ErrFlashReadLength = 0x0A
	ErrDeflate         = 0x0B
)

// ChecksumSeed is the initial value of the FlashData/MemData XOR checksum.
const ChecksumSeed = 0xEF

// ESP32StatusBytes is the number of trailing status bytes the ESP32 ROM
// appends to every response.
const ESP32StatusBytes = 4

// Flash geometry used by the ROM loader.
const (
	// FlashWriteSize is the ROM FlashData block size (1 KiB)
	FlashWriteSize = 0x400

	// FlashSectorSize is the smallest erasable unit (4 KiB)
	FlashSectorSize = 0x1000

	// FlashBlockSize is the erase block size reported to SPI_SET_PARAMS (64 KiB)
	FlashBlockSize = 0x10000

	// FlashPageSize is the program page size (256 bytes)
	FlashPageSize = 0x100
)

// ESP32 register addresses.
const (
	// ChipDetectMagicReg holds a per-family magic value readable from the ROM
	ChipDetectMagicReg = 0x40001000

	// ESP32ChipMagic is the value of ChipDetectMagicReg on an ESP32
	ESP32ChipMagic = 0x00F01D83

	// UartClkDivReg is the UART0 clock divider register
	UartClkDivReg = 0x3FF40014

	// UartClkDivMask masks the integer part of the divider
	UartClkDivMask = 0xFFFFF
)

// Baud rates.
const (
	// ROMBaudRate is the rate the ROM autobauds at after reset
	ROMBaudRate = 115200

	// FlashBaudRate is the rate negotiated with CmdChangeBaudrate
	FlashBaudRate = 460800
)

// SyncPayloadSize is the size of the CmdSync payload.
const SyncPayloadSize = 36
