// Package romsim simulates the ESP32 ROM serial loader behind an in-memory
// serial port. It is used by tests and by the mock device example.
package romsim

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/qtshock/qtshockd/protocol"
)

// BootMode is the state the simulated chip booted into.
type BootMode int

const (
	// ModeRunning means the application runs and the loader ignores input
	ModeRunning BootMode = iota

	// ModeDownload means the ROM loader accepts commands
	ModeDownload
)

func (m BootMode) String() string {
	if m == ModeDownload {
		return "download"
	}
	return "running"
}

// ErrClosed is returned by a Port after Close.
var ErrClosed = errors.New("romsim: port closed")

// Region is an erased flash range.
type Region struct {
	Offset uint32
	Size   uint32
}

// Device is a simulated ESP32.
type Device struct {
	mu sync.Mutex

	// Magic is returned for protocol.ChipDetectMagicReg
	Magic uint32

	// XtalMHz is the crystal frequency used to derive the UART divider
	XtalMHz int

	// USBJTAG selects the USB-JTAG-Serial strapping logic: boot mode is
	// latched when reset asserts instead of when it is released.
	USBJTAG bool

	// FailOps makes the ROM answer the given opcodes with an error code
	FailOps map[byte]byte

	// FailRegs makes READ_REG of the given addresses fail with an error code
	FailRegs map[uint32]byte

	// SilentOps makes the ROM never answer the given opcodes
	SilentOps map[byte]bool

	// SyncDelay is the number of SYNC packets ignored before answering
	SyncDelay int

	flash    []byte
	baud     int
	mode     BootMode
	dtr, rts bool
	latched  BootMode

	flashSize uint32
	write     *flashWrite
	ops       []byte
	erases    []Region
	resets    int
	written   int
	syncSeen  int

	rx  []byte
	esc bool
	in  bool
	out bytes.Buffer
}

type flashWrite struct {
	offset    uint32
	blocks    uint32
	blockSize uint32
	next      uint32
}

// New returns a 4MB ESP32 with a 40MHz crystal running its application.
func New() *Device {
	flash := make([]byte, 4<<20)
	for i := range flash {
		flash[i] = 0xA5
	}
	return &Device{
		Magic:   protocol.ESP32ChipMagic,
		XtalMHz: 40,
		flash:   flash,
		baud:    protocol.ROMBaudRate,
	}
}

// Port returns a new connection to the device. Only one connection should
// be used at a time.
func (d *Device) Port() *Port {
	return &Port{dev: d, baud: protocol.ROMBaudRate}
}

// Flash returns a copy of size bytes of flash starting at offset.
func (d *Device) Flash(offset, size uint32) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, size)
	copy(out, d.flash[offset:offset+size])
	return out
}

// Mode returns the current boot mode.
func (d *Device) Mode() BootMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Ops returns the opcodes received in download mode, in order.
func (d *Device) Ops() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.ops...)
}

// Erases returns the regions erased by FLASH_BEGIN.
func (d *Device) Erases() []Region {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Region(nil), d.erases...)
}

// Resets returns how many times the chip left reset.
func (d *Device) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

// BytesWritten returns the number of FLASH_DATA payload bytes accepted.
func (d *Device) BytesWritten() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

// Baud returns the UART rate of the ROM.
func (d *Device) Baud() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baud
}

func (d *Device) setLines(dtr, rts bool) {
	assert := rts && !d.rts
	release := !rts && d.rts
	d.dtr, d.rts = dtr, rts

	if assert {
		d.mode = ModeRunning
		d.latched = ModeRunning
		if d.USBJTAG && dtr {
			d.latched = ModeDownload
		}
	}
	if release {
		mode := ModeRunning
		if (d.USBJTAG && d.latched == ModeDownload) || (!d.USBJTAG && dtr) {
			mode = ModeDownload
		}
		d.mode = mode
		d.baud = protocol.ROMBaudRate
		d.write = nil
		d.syncSeen = 0
		d.rx, d.in, d.esc = nil, false, false
		d.resets++
	}
}

// receive feeds bytes written at baud into the SLIP decoder.
func (d *Device) receive(p []byte, baud int) {
	if d.mode != ModeDownload || baud != d.baud {
		return
	}
	for _, b := range p {
		if !d.in {
			if b == protocol.SlipEnd {
				d.in = true
			}
			continue
		}
		if d.esc {
			d.esc = false
			switch b {
			case protocol.SlipEscEnd:
				d.rx = append(d.rx, protocol.SlipEnd)
			case protocol.SlipEscEsc:
				d.rx = append(d.rx, protocol.SlipEsc)
			}
			continue
		}
		switch b {
		case protocol.SlipEsc:
			d.esc = true
		case protocol.SlipEnd:
			if len(d.rx) > 0 {
				d.handle(d.rx)
				d.in = false
			}
			d.rx = nil
		default:
			d.rx = append(d.rx, b)
		}
	}
}

func (d *Device) respond(op byte, value uint32, status, code byte) {
	pkt := make([]byte, protocol.HeaderSize+protocol.ESP32StatusBytes)
	pkt[0] = protocol.DirResponse
	pkt[1] = op
	binary.LittleEndian.PutUint16(pkt[2:4], protocol.ESP32StatusBytes)
	binary.LittleEndian.PutUint32(pkt[4:8], value)
	pkt[8] = status
	pkt[9] = code
	d.out.Write(protocol.Encode(pkt))
}

func (d *Device) fail(op, code byte) {
	d.respond(op, 0, 1, code)
}

func (d *Device) handle(pkt []byte) {
	if len(pkt) < protocol.HeaderSize || pkt[0] != protocol.DirRequest {
		return
	}
	op := pkt[1]
	size := int(binary.LittleEndian.Uint16(pkt[2:4]))
	checksum := binary.LittleEndian.Uint32(pkt[4:8])
	data := pkt[protocol.HeaderSize:]
	if len(data) != size {
		d.fail(op, protocol.ErrInvalidMessage)
		return
	}

	if op == protocol.CmdSync && d.syncSeen < d.SyncDelay {
		d.syncSeen++
		return
	}
	d.ops = append(d.ops, op)

	if d.SilentOps[op] {
		return
	}
	if code, ok := d.FailOps[op]; ok {
		d.fail(op, code)
		return
	}

	u32 := func(i int) uint32 { return binary.LittleEndian.Uint32(data[i*4:]) }

	switch op {
	case protocol.CmdSync:
		if size != protocol.SyncPayloadSize {
			d.fail(op, protocol.ErrInvalidMessage)
			return
		}
		d.respond(op, 0, 0, 0)

	case protocol.CmdReadReg:
		if size != 4 {
			d.fail(op, protocol.ErrInvalidMessage)
			return
		}
		addr := u32(0)
		if code, ok := d.FailRegs[addr]; ok {
			d.fail(op, code)
			return
		}
		var value uint32
		switch addr {
		case protocol.ChipDetectMagicReg:
			value = d.Magic
		case protocol.UartClkDivReg:
			value = uint32(d.XtalMHz*1000000/d.baud) & protocol.UartClkDivMask
		}
		d.respond(op, value, 0, 0)

	case protocol.CmdSpiAttach:
		d.respond(op, 0, 0, 0)

	case protocol.CmdSpiSetParams:
		if size != 24 {
			d.fail(op, protocol.ErrInvalidMessage)
			return
		}
		d.flashSize = u32(1)
		d.respond(op, 0, 0, 0)

	case protocol.CmdChangeBaudrate:
		if size != 8 {
			d.fail(op, protocol.ErrInvalidMessage)
			return
		}
		// The acknowledgement still goes out at the old rate.
		d.respond(op, 0, 0, 0)
		d.baud = int(u32(0))

	case protocol.CmdFlashBegin:
		if size != 16 {
			d.fail(op, protocol.ErrInvalidMessage)
			return
		}
		erase, blocks, blockSize, offset := u32(0), u32(1), u32(2), u32(3)
		limit := uint64(len(d.flash))
		if d.flashSize != 0 && uint64(d.flashSize) < limit {
			limit = uint64(d.flashSize)
		}
		if uint64(offset)+uint64(erase) > limit || uint64(offset)+uint64(blocks)*uint64(blockSize) > limit {
			d.fail(op, protocol.ErrFailedToAct)
			return
		}
		for i := offset; i < offset+erase; i++ {
			d.flash[i] = 0xFF
		}
		d.erases = append(d.erases, Region{Offset: offset, Size: erase})
		d.write = &flashWrite{offset: offset, blocks: blocks, blockSize: blockSize}
		d.respond(op, 0, 0, 0)

	case protocol.CmdFlashData:
		if size < 16 || d.write == nil {
			d.fail(op, protocol.ErrInvalidMessage)
			return
		}
		n, seq := u32(0), u32(1)
		block := data[16:]
		if int(n) != len(block) || n != d.write.blockSize {
			d.fail(op, protocol.ErrInvalidMessage)
			return
		}
		if protocol.Checksum(block) != checksum {
			d.fail(op, protocol.ErrInvalidCRC)
			return
		}
		if seq != d.write.next || seq >= d.write.blocks {
			d.fail(op, protocol.ErrFailedToAct)
			return
		}
		copy(d.flash[d.write.offset+seq*d.write.blockSize:], block)
		d.write.next++
		d.written += len(block)
		d.respond(op, 0, 0, 0)

	case protocol.CmdFlashEnd:
		if size != 4 {
			d.fail(op, protocol.ErrInvalidMessage)
			return
		}
		d.write = nil
		d.respond(op, 0, 0, 0)
		if u32(0) == 0 {
			d.mode = ModeRunning
			d.resets++
		}

	default:
		d.fail(op, protocol.ErrInvalidMessage)
	}
}

// Port is an in-memory serial connection to a Device.
//
// Reads never block: when no response is pending, Read returns 0, nil the
// way a serial port does when its read timeout expires. Writes at a rate
// other than the ROM's are dropped.
type Port struct {
	dev    *Device
	baud   int
	closed bool

	// ReadDelay is slept before every empty read
	ReadDelay time.Duration
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	p.dev.mu.Lock()
	if p.closed {
		p.dev.mu.Unlock()
		return 0, ErrClosed
	}
	n, _ := p.dev.out.Read(b)
	p.dev.mu.Unlock()

	if n == 0 && p.ReadDelay > 0 {
		time.Sleep(p.ReadDelay)
	}
	return n, nil
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	p.dev.receive(b, p.baud)
	return len(b), nil
}

// SetBaudRate changes the host side rate.
func (p *Port) SetBaudRate(baud int) error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.baud = baud
	return nil
}

// Baud returns the host side rate.
func (p *Port) Baud() int {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	return p.baud
}

// SetDTR drives the DTR line (IO0 on the QTShock board).
func (p *Port) SetDTR(dtr bool) error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.setLines(dtr, p.dev.rts)
	return nil
}

// SetRTS drives the RTS line (EN on the QTShock board).
func (p *Port) SetRTS(rts bool) error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.setLines(p.dev.dtr, rts)
	return nil
}

// SetReadTimeout is a no-op; reads never block.
func (p *Port) SetReadTimeout(time.Duration) error {
	return nil
}

// ResetInputBuffer discards pending responses.
func (p *Port) ResetInputBuffer() error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.out.Reset()
	return nil
}

// Close closes the connection.
func (p *Port) Close() error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Port) Closed() bool {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	return p.closed
}
