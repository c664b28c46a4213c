//go:build linux || darwin

package monitoring

import (
	"golang.org/x/sys/unix"
)

func fsUsage(path string) (totalBytes uint64, freeBytes uint64) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0
	}
	blockSize := uint64(stat.Bsize)
	return stat.Blocks * blockSize, stat.Bavail * blockSize
}
