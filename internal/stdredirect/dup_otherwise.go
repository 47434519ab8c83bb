//go:build !unix

package stdredirect

func dup(fd int) (int, error) {
	return -1, ErrUnsupported
}

func dup2(oldfd, newfd int) error {
	return ErrUnsupported
}

func closefd(fd int) error {
	return ErrUnsupported
}
