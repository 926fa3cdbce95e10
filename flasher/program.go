package flasher

import (
	"context"
	"fmt"
	"time"

	"github.com/qtshock/qtshockd/firmware"
	"github.com/qtshock/qtshockd/protocol"
)

// LoadElfToFlash builds the application image from elfData and writes the
// bootloader, partition table and application in that order. The session
// must have erased the flash first.
//
// cb may be nil. It is driven through Init, Update and Finish once per
// image.
//
// Example:
//
//	xtal, err := s.CrystalFrequency(ctx)
//	if err != nil {
//	    return err
//	}
//	err = s.LoadElfToFlash(ctx, elfData, flashData, reporter, xtal)
func (s *Session) LoadElfToFlash(ctx context.Context, elfData []byte, data *firmware.FlashData, cb ProgressCallbacks, xtal firmware.XtalFrequency) error {
	if data == nil {
		return fmt.Errorf("flash data cannot be nil")
	}
	if err := s.transition(ctx, EventProgram, "write flash"); err != nil {
		return err
	}

	if err := s.loadElf(ctx, elfData, data, cb, xtal); err != nil {
		s.failed(ctx)
		return err
	}
	return s.transition(ctx, EventFinish, "write flash")
}

func (s *Session) loadElf(ctx context.Context, elfData []byte, data *firmware.FlashData, cb ProgressCallbacks, xtal firmware.XtalFrequency) error {
	app, err := firmware.BuildApplication(elfData, data.Settings, xtal)
	if err != nil {
		return &ProgramError{Err: err}
	}
	images, err := data.Images(app)
	if err != nil {
		return &ProgramError{Err: err}
	}

	start := time.Now()
	for _, img := range images {
		if err := s.writeImage(ctx, img, cb); err != nil {
			return &ProgramError{Image: img.Name, Offset: img.Offset, Err: err}
		}
	}

	if _, err := s.command(ctx, "flash end", protocol.BuildFlashEndCmd(false), s.config.Timeout); err != nil {
		return &ProgramError{Err: err}
	}

	s.logInfo("programming complete",
		"images", len(images),
		"bytes", s.written,
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// writeImage writes one image with FLASH_BEGIN followed by one FLASH_DATA
// per block.
func (s *Session) writeImage(ctx context.Context, img firmware.Image, cb ProgressCallbacks) error {
	if len(img.Data) == 0 {
		return fmt.Errorf("image is empty")
	}

	blocks := (len(img.Data) + protocol.FlashWriteSize - 1) / protocol.FlashWriteSize
	eraseSize := uint32(blocks * protocol.FlashWriteSize)

	s.logDebug("writing image",
		"image", img.Name,
		"offset", fmt.Sprintf("0x%X", img.Offset),
		"size", len(img.Data),
		"blocks", blocks,
	)

	begin := protocol.BuildFlashBeginCmd(eraseSize, uint32(blocks), protocol.FlashWriteSize, img.Offset)
	timeout := eraseTimeout(s.config.EraseTimeoutPerMB, eraseSize, s.config.Timeout)
	if _, err := s.command(ctx, "flash begin", begin, timeout); err != nil {
		return err
	}

	if cb != nil {
		cb.Init(img.Offset, blocks)
	}

	for seq := 0; seq < blocks; seq++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		end := (seq + 1) * protocol.FlashWriteSize
		if end > len(img.Data) {
			end = len(img.Data)
		}
		pkt, err := protocol.BuildFlashDataCmd(uint32(seq), img.Data[seq*protocol.FlashWriteSize:end])
		if err != nil {
			return err
		}
		if _, err := s.command(ctx, "flash data", pkt, s.config.Timeout); err != nil {
			return fmt.Errorf("block %d/%d: %w", seq+1, blocks, err)
		}
		s.written += protocol.FlashWriteSize

		if cb != nil {
			cb.Update(seq + 1)
		}
	}

	if cb != nil {
		cb.Finish()
	}
	return nil
}
