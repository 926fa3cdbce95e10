// Package pipeline runs a complete firmware flash: acquire the binaries,
// find and open the USB serial endpoint, connect to the ROM loader, erase,
// read the crystal and program. Every outcome is reported as one tagged
// message for the UI:
//
//	o := pipeline.New(pipeline.WithEmitter(broker))
//	msg := o.FlashDeviceFirmware(ctx, "COM3", "server")
//	// <g>Successfully flashed firmware!</g>
package pipeline
