package fuse

import (
	"fmt"
	"syscall"
)

// unmount asks the kernel to tear down the osxfuse mount at dir directly
// with unmount(2), rather than shelling out to a helper binary the way
// mount_darwin.go (mount_osxfusefs) and the Linux unmount path
// (fusermount -u) do.
func unmount(dir string) error {
	if err := syscall.Unmount(dir, 0); err != nil {
		return fmt.Errorf("unmount: %v", err)
	}
	return nil
}
