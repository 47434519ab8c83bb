//go:build unix && !linux

package stdredirect

import "golang.org/x/sys/unix"

func dup(fd int) (int, error) {
	return unix.Dup(fd)
}

func dup2(oldfd, newfd int) error {
	return unix.Dup2(oldfd, newfd)
}

func closefd(fd int) error {
	return unix.Close(fd)
}
