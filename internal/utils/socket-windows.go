//go:build windows

package utils

import (
	"errors"
	"syscall"
)

func setSocketOptions(fd uintptr) error {
	sock := syscall.Handle(fd)
	return errors.Join(
		syscall.SetsockoptInt(sock, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1),
		syscall.SetsockoptInt(sock, syscall.SOL_SOCKET, syscall.SO_RCVBUF, DefaultBufferSize),
		syscall.SetsockoptInt(sock, syscall.SOL_SOCKET, syscall.SO_SNDBUF, DefaultBufferSize),
	)
}
