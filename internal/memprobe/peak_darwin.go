//go:build darwin

package memprobe

import "syscall"

// lifetimePeak returns the kernel's peak RSS for this process. Darwin
// reports ru_maxrss in bytes.
func lifetimePeak() uint64 {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return uint64(ru.Maxrss)
}
