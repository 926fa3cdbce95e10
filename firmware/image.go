package firmware

import (
	"bytes"
	"crypto/sha256"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"
)

// ESP app image format constants.
const (
	// ImageMagic is the first byte of every ESP image
	ImageMagic = 0xE9

	// ImageHeaderSize is the size of the common image header
	ImageHeaderSize = 8

	// ExtendedHeaderSize is the size of the ESP32 extended header
	ExtendedHeaderSize = 16

	// SegmentHeaderSize is the size of a segment header (load addr + length)
	SegmentHeaderSize = 8

	// MaxSegments is the largest segment count a header can describe
	MaxSegments = 16

	// checksumSeed seeds the image XOR checksum
	checksumSeed = 0xEF

	// mmuPageSize is the flash cache page the IROM/DROM mappings align to
	mmuPageSize = 0x10000

	// wpPinDisabled marks the SPI write protect pin as unused
	wpPinDisabled = 0xEE
)

// ESP32 address ranges that are mapped from flash through the cache.
const (
	iromStart = 0x400D0000
	iromEnd   = 0x40400000
	dromStart = 0x3F400000
	dromEnd   = 0x3F800000
)

// Segment is one loadable region of an image.
type Segment struct {
	Addr uint32
	Data []byte
}

func (s Segment) end() uint32 { return s.Addr + uint32(len(s.Data)) }

func (s Segment) flashMapped() bool {
	return (s.Addr >= iromStart && s.Addr < iromEnd) ||
		(s.Addr >= dromStart && s.Addr < dromEnd)
}

// BuildApplication converts an ESP32 ELF executable into a flashable app
// image.
//
// Flash-mapped segments are placed so their file offset matches their load
// address modulo the 64 KiB MMU page, with zero-filled segments loaded at
// address 0 inserted as padding. RAM segments follow. The image ends with
// the XOR checksum at a 16 byte boundary and a SHA-256 digest.
//
// Example:
//
//	img, err := firmware.BuildApplication(elfBytes, firmware.DefaultSettings(), firmware.Xtal40MHz)
//	if err != nil {
//	    log.Fatal(err)
//	}
func BuildApplication(elfData []byte, settings FlashSettings, xtal XtalFrequency) ([]byte, error) {
	mode, sizeFreq, err := settings.headerBytes(xtal)
	if err != nil {
		return nil, err
	}

	f, err := elf.NewFile(bytes.NewReader(elfData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_XTENSA {
		return nil, fmt.Errorf("not an Xtensa ELF32 executable: class=%v machine=%v", f.Class, f.Machine)
	}

	segments, err := loadSegments(f)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("ELF has no loadable sections")
	}

	var flashSegs, ramSegs []Segment
	for _, s := range segments {
		if s.flashMapped() {
			flashSegs = append(flashSegs, s)
		} else {
			ramSegs = append(ramSegs, s)
		}
	}

	var img bytes.Buffer
	img.Write([]byte{ImageMagic, 0, mode, sizeFreq})
	_ = binary.Write(&img, binary.LittleEndian, uint32(f.Entry))
	img.Write(extendedHeader())

	checksum := byte(checksumSeed)
	count := 0
	write := func(s Segment) {
		var hdr [SegmentHeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[0:4], s.Addr)
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(s.Data)))
		img.Write(hdr[:])
		img.Write(s.Data)
		for _, b := range s.Data {
			checksum ^= b
		}
		count++
	}

	for _, s := range flashSegs {
		if pad := alignmentPadding(uint32(img.Len()), s.Addr); pad > 0 {
			write(Segment{Addr: 0, Data: make([]byte, pad)})
		}
		write(s)
	}
	for _, s := range ramSegs {
		write(s)
	}

	if count > MaxSegments {
		return nil, fmt.Errorf("too many segments: %d (maximum %d)", count, MaxSegments)
	}

	// Zero fill so the checksum lands on the last byte of a 16 byte block.
	for (img.Len()+1)%16 != 0 {
		img.WriteByte(0)
	}
	img.WriteByte(checksum)

	out := img.Bytes()
	out[1] = byte(count)
	digest := sha256.Sum256(out)
	return append(out, digest[:]...), nil
}

// alignmentPadding returns the data length of the padding segment needed
// before a flash-mapped segment at addr when the next segment header would
// start at offset. Zero means no padding segment.
func alignmentPadding(offset, addr uint32) uint32 {
	if (offset+SegmentHeaderSize)%mmuPageSize == addr%mmuPageSize {
		return 0
	}
	// A padding segment costs its own header before the real one.
	next := (offset + 2*SegmentHeaderSize) % mmuPageSize
	pad := (addr%mmuPageSize + mmuPageSize - next) % mmuPageSize
	if pad == 0 {
		pad = mmuPageSize
	}
	return pad
}

// extendedHeader returns the ESP32 extended header with the SHA-256 digest
// flag set.
//
// Layout:
//
//	[WP_PIN][SPI_DRV(3)][CHIP_ID(2)][MIN_REV][MIN_REV_FULL(2)][MAX_REV_FULL(2)][RESERVED(4)][HASH_APPENDED]
func extendedHeader() []byte {
	ext := make([]byte, ExtendedHeaderSize)
	ext[0] = wpPinDisabled
	// CHIP_ID 0 is the ESP32
	binary.LittleEndian.PutUint16(ext[9:11], 0xFFFF)
	ext[15] = 1
	return ext
}

// loadSegments collects the allocated PROGBITS sections of f sorted by
// address, merging contiguous sections of the same memory kind and padding
// each segment to a 4 byte length.
func loadSegments(f *elf.File) ([]Segment, error) {
	var segs []Segment
	for _, sec := range f.Sections {
		if sec.Type != elf.SHT_PROGBITS || sec.Flags&elf.SHF_ALLOC == 0 || sec.Size == 0 {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return nil, fmt.Errorf("failed to read section %s: %w", sec.Name, err)
		}
		segs = append(segs, Segment{Addr: uint32(sec.Addr), Data: data})
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].Addr < segs[j].Addr })

	var merged []Segment
	for _, s := range segs {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.end() > s.Addr {
				return nil, fmt.Errorf("sections overlap at 0x%08X", s.Addr)
			}
			if last.end() == s.Addr && last.flashMapped() == s.flashMapped() {
				last.Data = append(last.Data, s.Data...)
				continue
			}
		}
		merged = append(merged, Segment{Addr: s.Addr, Data: append([]byte(nil), s.Data...)})
	}

	for i := range merged {
		for len(merged[i].Data)%4 != 0 {
			merged[i].Data = append(merged[i].Data, 0)
		}
	}
	return merged, nil
}

// imageLength walks the segments of an ESP image and returns the offset
// just past the checksum byte, and whether a SHA-256 digest follows it.
func imageLength(img []byte) (int, bool, error) {
	if len(img) < ImageHeaderSize+ExtendedHeaderSize {
		return 0, false, fmt.Errorf("image too short: %d bytes", len(img))
	}
	if img[0] != ImageMagic {
		return 0, false, fmt.Errorf("invalid image magic: got 0x%02X, expected 0x%02X", img[0], ImageMagic)
	}

	count := int(img[1])
	if count == 0 || count > MaxSegments {
		return 0, false, fmt.Errorf("invalid segment count %d", count)
	}

	off := ImageHeaderSize + ExtendedHeaderSize
	for i := 0; i < count; i++ {
		if off+SegmentHeaderSize > len(img) {
			return 0, false, fmt.Errorf("segment %d header truncated", i)
		}
		size := int(binary.LittleEndian.Uint32(img[off+4 : off+8]))
		off += SegmentHeaderSize
		if size > len(img)-off {
			return 0, false, fmt.Errorf("segment %d data truncated: length %d", i, size)
		}
		off += size
	}

	for (off+1)%16 != 0 {
		off++
	}
	off++
	if off > len(img) {
		return 0, false, fmt.Errorf("image checksum truncated")
	}

	hashed := img[ImageHeaderSize+ExtendedHeaderSize-1] == 1
	if hashed && off+sha256.Size > len(img) {
		return 0, false, fmt.Errorf("image digest truncated")
	}
	return off, hashed, nil
}
