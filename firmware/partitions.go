package firmware

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Partition table format constants.
const (
	// DefaultPartitionTableOffset is where the partition table is flashed
	DefaultPartitionTableOffset = 0x8000

	// PartitionTableMaxSize is the space reserved for the table
	PartitionTableMaxSize = 0xC00

	// PartitionEntrySize is the size of one table entry
	PartitionEntrySize = 32

	// partitionMagic starts every entry (0xAA 0x50)
	partitionMagic = 0x50AA

	// md5Magic starts the optional MD5 checksum entry (0xEB 0xEB)
	md5Magic = 0xEBEB

	partitionLabelSize = 16
)

// PartitionType is the top level partition type.
type PartitionType byte

const (
	PartitionTypeApp  PartitionType = 0x00
	PartitionTypeData PartitionType = 0x01
)

// Partition is one entry of the partition table.
type Partition struct {
	Type    PartitionType
	SubType byte
	Offset  uint32
	Size    uint32
	Label   string
	Flags   uint32
}

// PartitionTable is a parsed partition table binary.
type PartitionTable struct {
	Partitions []Partition
}

// ParsePartitionTable decodes a partition table binary.
//
// Entry format (32 bytes, little-endian):
//
//	[MAGIC(2)=AA 50][TYPE(1)][SUBTYPE(1)][OFFSET(4)][SIZE(4)][LABEL(16)][FLAGS(4)]
//
// Parsing stops at the first erased (0xFF) entry. The MD5 entry is skipped.
func ParsePartitionTable(data []byte) (*PartitionTable, error) {
	if len(data) > PartitionTableMaxSize {
		return nil, fmt.Errorf("partition table too large: %d bytes, maximum is %d", len(data), PartitionTableMaxSize)
	}

	pt := &PartitionTable{}
entries:
	for off := 0; off+PartitionEntrySize <= len(data); off += PartitionEntrySize {
		entry := data[off : off+PartitionEntrySize]

		switch binary.LittleEndian.Uint16(entry[0:2]) {
		case partitionMagic:
		case md5Magic:
			continue
		case 0xFFFF:
			break entries
		default:
			return nil, fmt.Errorf("invalid entry magic 0x%02X%02X at offset 0x%X", entry[0], entry[1], off)
		}

		label := entry[12 : 12+partitionLabelSize]
		if i := bytes.IndexByte(label, 0); i >= 0 {
			label = label[:i]
		}

		pt.Partitions = append(pt.Partitions, Partition{
			Type:    PartitionType(entry[2]),
			SubType: entry[3],
			Offset:  binary.LittleEndian.Uint32(entry[4:8]),
			Size:    binary.LittleEndian.Uint32(entry[8:12]),
			Label:   string(label),
			Flags:   binary.LittleEndian.Uint32(entry[28:32]),
		})
	}

	if len(pt.Partitions) == 0 {
		return nil, fmt.Errorf("no partitions found")
	}
	return pt, nil
}

// Find returns the partition with the given label.
func (pt *PartitionTable) Find(label string) (Partition, bool) {
	for _, p := range pt.Partitions {
		if p.Label == label {
			return p, true
		}
	}
	return Partition{}, false
}

// MarshalBinary encodes the table followed by its MD5 entry and erased
// padding up to PartitionTableMaxSize.
func (pt *PartitionTable) MarshalBinary() ([]byte, error) {
	if (len(pt.Partitions)+1)*PartitionEntrySize > PartitionTableMaxSize {
		return nil, fmt.Errorf("too many partitions: %d", len(pt.Partitions))
	}

	out := make([]byte, 0, PartitionTableMaxSize)
	for _, p := range pt.Partitions {
		if len(p.Label) > partitionLabelSize {
			return nil, fmt.Errorf("label '%s' longer than %d bytes", p.Label, partitionLabelSize)
		}
		entry := make([]byte, PartitionEntrySize)
		binary.LittleEndian.PutUint16(entry[0:2], partitionMagic)
		entry[2] = byte(p.Type)
		entry[3] = p.SubType
		binary.LittleEndian.PutUint32(entry[4:8], p.Offset)
		binary.LittleEndian.PutUint32(entry[8:12], p.Size)
		copy(entry[12:28], p.Label)
		binary.LittleEndian.PutUint32(entry[28:32], p.Flags)
		out = append(out, entry...)
	}

	sum := md5.Sum(out)
	md5Entry := bytes.Repeat([]byte{0xFF}, PartitionEntrySize)
	binary.LittleEndian.PutUint16(md5Entry[0:2], md5Magic)
	copy(md5Entry[16:], sum[:])
	out = append(out, md5Entry...)

	for len(out) < PartitionTableMaxSize {
		out = append(out, 0xFF)
	}
	return out, nil
}
