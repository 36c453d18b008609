//go:build linux || darwin

package utils

import (
	"errors"
	"syscall"
)

// setSocketOptions disables Nagle and sizes both kernel buffers to one read
// buffer, so a chunk read rarely waits on a partially filled socket.
func setSocketOptions(fd uintptr) error {
	sock := int(fd)
	return errors.Join(
		syscall.SetsockoptInt(sock, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1),
		syscall.SetsockoptInt(sock, syscall.SOL_SOCKET, syscall.SO_RCVBUF, DefaultBufferSize),
		syscall.SetsockoptInt(sock, syscall.SOL_SOCKET, syscall.SO_SNDBUF, DefaultBufferSize),
	)
}
