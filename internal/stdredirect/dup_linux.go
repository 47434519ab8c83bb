package stdredirect

import "golang.org/x/sys/unix"

func dup(fd int) (int, error) {
	return unix.Dup(fd)
}

// Note: linux/arm64 and linux/riscv64 do not have dup2.
func dup2(oldfd, newfd int) error {
	return unix.Dup3(oldfd, newfd, 0)
}

func closefd(fd int) error {
	return unix.Close(fd)
}
