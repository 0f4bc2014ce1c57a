// Package blockio provides a thin adapter over a single OS file, exposing the
// offset-addressed read/write/truncate primitives a circular on-disk data
// structure needs without otherwise touching the filesystem.
//
// The main types are:
//   - [Device]: interface for offset-addressed I/O against one open file
//   - [Real]: production implementation, backed by [os.File]
//   - [FaultInjector]: testing implementation that can force writes to fail
//
// Example usage:
//
//	dev, err := blockio.OpenReal("queue.db")
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	if err := dev.WriteAt(0, header); err != nil {
//	    return err
//	}
package blockio
