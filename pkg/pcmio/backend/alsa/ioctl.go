// ABOUTME: Thin ioctl wrapper with EINTR retry
// ABOUTME: All kernel calls in this backend funnel through here
//go:build linux && (amd64 || arm64)

package alsa

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl issues one ioctl, retrying when a signal (including the runtime's
// preemption signal) interrupts the call.
func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
		if errno == 0 {
			return nil
		}
		if errno != unix.EINTR {
			return errno
		}
	}
}

// ioctlBare issues an ioctl that carries no payload.
func ioctlBare(fd int, req uint) error {
	return ioctl(fd, req, nil)
}
