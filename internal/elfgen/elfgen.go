// Package elfgen writes minimal Xtensa ELF32 executables for tests and the
// simulated device example.
package elfgen

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

const (
	ehdrSize = 52
	shdrSize = 40
)

// Section is an allocated PROGBITS section.
type Section struct {
	Name string
	Addr uint32
	Data []byte
	Exec bool
}

// Build returns an ELF image with the given entry point and sections.
func Build(entry uint32, sections ...Section) []byte {
	// Section name table: "\0" + names + ".shstrtab\0"
	var strtab bytes.Buffer
	strtab.WriteByte(0)
	nameOff := make([]uint32, len(sections))
	for i, s := range sections {
		nameOff[i] = uint32(strtab.Len())
		strtab.WriteString(s.Name)
		strtab.WriteByte(0)
	}
	shstrName := uint32(strtab.Len())
	strtab.WriteString(".shstrtab")
	strtab.WriteByte(0)

	var body bytes.Buffer
	dataOff := make([]uint32, len(sections))
	for i, s := range sections {
		dataOff[i] = uint32(ehdrSize + body.Len())
		body.Write(s.Data)
		for body.Len()%4 != 0 {
			body.WriteByte(0)
		}
	}
	strOff := uint32(ehdrSize + body.Len())
	body.Write(strtab.Bytes())
	for body.Len()%4 != 0 {
		body.WriteByte(0)
	}
	shoff := uint32(ehdrSize + body.Len())
	shnum := uint16(len(sections) + 2)

	var out bytes.Buffer
	le := binary.LittleEndian

	ident := [elf.EI_NIDENT]byte{0x7F, 'E', 'L', 'F', byte(elf.ELFCLASS32), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)}
	out.Write(ident[:])
	_ = binary.Write(&out, le, uint16(elf.ET_EXEC))
	_ = binary.Write(&out, le, uint16(elf.EM_XTENSA))
	_ = binary.Write(&out, le, uint32(elf.EV_CURRENT))
	_ = binary.Write(&out, le, entry)
	_ = binary.Write(&out, le, uint32(0)) // phoff
	_ = binary.Write(&out, le, shoff)
	_ = binary.Write(&out, le, uint32(0)) // flags
	_ = binary.Write(&out, le, uint16(ehdrSize))
	_ = binary.Write(&out, le, uint16(32)) // phentsize
	_ = binary.Write(&out, le, uint16(0))  // phnum
	_ = binary.Write(&out, le, uint16(shdrSize))
	_ = binary.Write(&out, le, shnum)
	_ = binary.Write(&out, le, shnum-1) // shstrndx

	out.Write(body.Bytes())

	writeShdr := func(name, typ, flags, addr, off, size uint32) {
		for _, v := range []uint32{name, typ, flags, addr, off, size, 0, 0, 4, 0} {
			_ = binary.Write(&out, le, v)
		}
	}

	writeShdr(0, 0, 0, 0, 0, 0)
	for i, s := range sections {
		flags := uint32(elf.SHF_ALLOC)
		if s.Exec {
			flags |= uint32(elf.SHF_EXECINSTR)
		} else {
			flags |= uint32(elf.SHF_WRITE)
		}
		writeShdr(nameOff[i], uint32(elf.SHT_PROGBITS), flags, s.Addr, dataOff[i], uint32(len(s.Data)))
	}
	writeShdr(shstrName, uint32(elf.SHT_STRTAB), 0, 0, strOff, uint32(strtab.Len()))

	return out.Bytes()
}

// Firmware returns a small application ELF with one IRAM, one DROM and one
// IROM section, laid out like an ESP-IDF build.
func Firmware() []byte {
	return Build(0x40080400,
		Section{Name: ".flash.rodata", Addr: 0x3F400020, Data: bytes.Repeat([]byte{0xD0}, 0x120)},
		Section{Name: ".iram0.text", Addr: 0x40080000, Data: bytes.Repeat([]byte{0x1A}, 0x400), Exec: true},
		Section{Name: ".dram0.data", Addr: 0x3FFB0000, Data: []byte{0x01, 0x02, 0x03}},
		Section{Name: ".flash.text", Addr: 0x400D0020, Data: bytes.Repeat([]byte{0xF1}, 0x800), Exec: true},
	)
}

// Bootloader returns a bootloader ELF made only of RAM sections.
func Bootloader() []byte {
	return Build(0x40080000,
		Section{Name: ".iram_loader.text", Addr: 0x40078000, Data: bytes.Repeat([]byte{0xB0}, 0x200), Exec: true},
		Section{Name: ".dram0.rodata", Addr: 0x3FFF0000, Data: bytes.Repeat([]byte{0xB1}, 0x40)},
	)
}
