// Package firmware builds the flash images written to an ESP32.
//
// # Flash Layout
//
// A QTShock device is programmed with three images:
//
//	0x1000  bootloader      second stage bootloader, header patched to FlashSettings
//	0x8000  partition table 32 byte entries, magic 0xAA50
//	app0    application     app image built from the firmware ELF
//
// # App Image Format
//
//	[0xE9][SEGMENTS][MODE][SIZE<<4|FREQ][ENTRY(4)][EXTENDED HEADER(16)]
//	[ADDR(4)][LEN(4)][DATA...] x SEGMENTS
//	[0x00 padding...][CHECKSUM][SHA-256(32)]
//
// # Usage
//
//	fd, err := firmware.NewFlashData("bin/bootloader.bin", "bin/partitions.bin",
//	    firmware.DefaultPartitionTableOffset, "app0", firmware.DefaultSettings())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	app, err := firmware.BuildApplication(elfBytes, fd.Settings, firmware.Xtal40MHz)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	images, err := fd.Images(app)
//
// # Error Handling
//
// NewFlashData, ParseFlashData and Images return *FlashDataError naming the
// artifact that was rejected. BuildApplication returns wrapped errors describing the ELF
// problem.
package firmware
