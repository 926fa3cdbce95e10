package firmware

import "fmt"

// FlashMode is the SPI flash access mode encoded in image headers.
type FlashMode byte

const (
	FlashModeQIO  FlashMode = 0x00
	FlashModeQOUT FlashMode = 0x01
	FlashModeDIO  FlashMode = 0x02
	FlashModeDOUT FlashMode = 0x03
)

func (m FlashMode) String() string {
	switch m {
	case FlashModeQIO:
		return "QIO"
	case FlashModeQOUT:
		return "QOUT"
	case FlashModeDIO:
		return "DIO"
	case FlashModeDOUT:
		return "DOUT"
	default:
		return fmt.Sprintf("FlashMode(0x%02X)", byte(m))
	}
}

// FlashSize is the flash chip capacity. Its value is the header code
// stored in the upper nibble of byte 3.
type FlashSize byte

const (
	FlashSize1MB  FlashSize = 0x0
	FlashSize2MB  FlashSize = 0x1
	FlashSize4MB  FlashSize = 0x2
	FlashSize8MB  FlashSize = 0x3
	FlashSize16MB FlashSize = 0x4
)

// Bytes returns the capacity in bytes, or 0 for an unknown code.
func (s FlashSize) Bytes() uint32 {
	if s > FlashSize16MB {
		return 0
	}
	return (1 << 20) << s
}

func (s FlashSize) String() string {
	if b := s.Bytes(); b != 0 {
		return fmt.Sprintf("%dMB", b>>20)
	}
	return fmt.Sprintf("FlashSize(0x%X)", byte(s))
}

// FlashFrequency is the SPI clock. Its value is the header code stored in
// the lower nibble of byte 3.
type FlashFrequency byte

const (
	FlashFreq40MHz FlashFrequency = 0x0
	FlashFreq26MHz FlashFrequency = 0x1
	FlashFreq20MHz FlashFrequency = 0x2
	FlashFreq80MHz FlashFrequency = 0xF
)

func (f FlashFrequency) String() string {
	switch f {
	case FlashFreq40MHz:
		return "40MHz"
	case FlashFreq26MHz:
		return "26MHz"
	case FlashFreq20MHz:
		return "20MHz"
	case FlashFreq80MHz:
		return "80MHz"
	default:
		return fmt.Sprintf("FlashFrequency(0x%X)", byte(f))
	}
}

// XtalFrequency is the crystal frequency of the chip in MHz.
type XtalFrequency int

const (
	Xtal26MHz XtalFrequency = 26
	Xtal40MHz XtalFrequency = 40
)

func (x XtalFrequency) String() string {
	return fmt.Sprintf("%dMHz", int(x))
}

// FlashSettings describes the flash chip an image is built for.
type FlashSettings struct {
	Mode      FlashMode
	Size      FlashSize
	Frequency FlashFrequency
}

// DefaultSettings returns the settings of the QTShock board: DIO, 4MB, 40MHz.
func DefaultSettings() FlashSettings {
	return FlashSettings{
		Mode:      FlashModeDIO,
		Size:      FlashSize4MB,
		Frequency: FlashFreq40MHz,
	}
}

func (s FlashSettings) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Mode, s.Size, s.Frequency)
}

// Validate reports whether every field holds a known code.
func (s FlashSettings) Validate() error {
	if s.Mode > FlashModeDOUT {
		return fmt.Errorf("invalid flash mode 0x%02X", byte(s.Mode))
	}
	if s.Size.Bytes() == 0 {
		return fmt.Errorf("invalid flash size 0x%X", byte(s.Size))
	}
	switch s.Frequency {
	case FlashFreq40MHz, FlashFreq26MHz, FlashFreq20MHz, FlashFreq80MHz:
	default:
		return fmt.Errorf("invalid flash frequency 0x%X", byte(s.Frequency))
	}
	return nil
}

// headerBytes returns bytes 2 and 3 of an image header.
//
// The ESP32 SPI clock is derived from the APB clock, so any supported
// crystal yields the same frequency code; an unknown crystal is rejected.
func (s FlashSettings) headerBytes(xtal XtalFrequency) (byte, byte, error) {
	if err := s.Validate(); err != nil {
		return 0, 0, err
	}
	switch xtal {
	case Xtal26MHz, Xtal40MHz:
	default:
		return 0, 0, fmt.Errorf("unsupported crystal frequency %s", xtal)
	}
	return byte(s.Mode), byte(s.Size)<<4 | byte(s.Frequency), nil
}
