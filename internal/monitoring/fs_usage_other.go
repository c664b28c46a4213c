//go:build !linux && !darwin

package monitoring

func fsUsage(path string) (totalBytes uint64, freeBytes uint64) {
	return 0, 0
}
