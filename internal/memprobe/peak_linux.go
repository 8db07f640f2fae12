//go:build linux

package memprobe

import "syscall"

// lifetimePeak returns the kernel's peak RSS for this process. Linux
// reports ru_maxrss in kilobytes.
func lifetimePeak() uint64 {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return uint64(ru.Maxrss) * 1024
}
