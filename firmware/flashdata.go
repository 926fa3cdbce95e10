package firmware

import (
	"errors"
	"fmt"
	"os"
)

// Image is a binary destined for a flash address.
type Image struct {
	// Name identifies the image in logs and errors
	Name string

	// Offset is the flash address the image is written to
	Offset uint32

	Data []byte
}

// FlashData holds the validated artifacts that surround the application:
// the patched bootloader, the partition table and the application slot.
type FlashData struct {
	Settings FlashSettings

	Bootloader     []byte
	PartitionTable []byte

	// TableOffset is the flash address of the partition table
	TableOffset uint32

	// App is the partition the application image is written to
	App Partition
}

// NewFlashData reads and validates the bootloader and partition table
// files and locates the application partition named appLabel.
//
// Example:
//
//	fd, err := firmware.NewFlashData("bin/bootloader.bin", "bin/partitions.bin",
//	    firmware.DefaultPartitionTableOffset, "app0", firmware.DefaultSettings())
func NewFlashData(bootloaderPath, partitionsPath string, tableOffset uint32, appLabel string, settings FlashSettings) (*FlashData, error) {
	if err := settings.Validate(); err != nil {
		return nil, &FlashDataError{Artifact: "settings", Err: err}
	}
	raw, err := os.ReadFile(bootloaderPath)
	if err != nil {
		return nil, &FlashDataError{Artifact: "bootloader", Path: bootloaderPath, Err: err}
	}
	table, err := os.ReadFile(partitionsPath)
	if err != nil {
		return nil, &FlashDataError{Artifact: "partitions", Path: partitionsPath, Err: err}
	}

	fd, err := ParseFlashData(raw, table, tableOffset, appLabel, settings)
	var fe *FlashDataError
	if errors.As(err, &fe) {
		switch fe.Artifact {
		case "bootloader":
			fe.Path = bootloaderPath
		case "partitions":
			fe.Path = partitionsPath
		}
	}
	return fd, err
}

// ParseFlashData validates an in-memory bootloader image and partition
// table and locates the application partition named appLabel.
func ParseFlashData(bootloaderImage, table []byte, tableOffset uint32, appLabel string, settings FlashSettings) (*FlashData, error) {
	if err := settings.Validate(); err != nil {
		return nil, &FlashDataError{Artifact: "settings", Err: err}
	}

	bootloader, err := PatchBootloader(bootloaderImage, settings)
	if err != nil {
		return nil, &FlashDataError{Artifact: "bootloader", Err: err}
	}

	pt, err := ParsePartitionTable(table)
	if err != nil {
		return nil, &FlashDataError{Artifact: "partitions", Err: err}
	}

	app, ok := pt.Find(appLabel)
	if !ok {
		return nil, &FlashDataError{Artifact: "partitions",
			Err: fmt.Errorf("partition '%s' not found", appLabel)}
	}
	if app.Type != PartitionTypeApp {
		return nil, &FlashDataError{Artifact: "partitions",
			Err: fmt.Errorf("partition '%s' is not an app partition", appLabel)}
	}
	if end := uint64(app.Offset) + uint64(app.Size); end > uint64(settings.Size.Bytes()) {
		return nil, &FlashDataError{Artifact: "partitions",
			Err: fmt.Errorf("partition '%s' ends at 0x%X, beyond %s flash", appLabel, end, settings.Size)}
	}

	return &FlashData{
		Settings:       settings,
		Bootloader:     bootloader,
		PartitionTable: table,
		TableOffset:    tableOffset,
		App:            app,
	}, nil
}

// Images returns the bootloader, partition table and application images in
// the order they are written.
func (fd *FlashData) Images(app []byte) ([]Image, error) {
	if uint32(len(app)) > fd.App.Size {
		return nil, &FlashDataError{Artifact: "application",
			Err: fmt.Errorf("image is %d bytes, partition '%s' holds %d", len(app), fd.App.Label, fd.App.Size)}
	}
	return []Image{
		{Name: "bootloader", Offset: BootloaderOffset, Data: fd.Bootloader},
		{Name: "partitions", Offset: fd.TableOffset, Data: fd.PartitionTable},
		{Name: "application", Offset: fd.App.Offset, Data: app},
	}, nil
}
