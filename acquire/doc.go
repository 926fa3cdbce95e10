// Package acquire materializes the firmware image set before a flash run.
//
// Binaries come either from the QTShock download server (or an S3 mirror)
// into a scratch directory, or from bin/ under the working directory:
//
//	a := acquire.New()
//	set, err := a.Acquire(ctx, "server", notifier)
//	if err != nil {
//	    return err
//	}
//	defer set.Close()
//
// The application ELF is read fully; the bootloader and partition table are
// handed on by path.
package acquire
