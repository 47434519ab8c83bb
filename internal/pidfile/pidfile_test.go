package pidfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFile(t *testing.T) {
	t.Run("we can write and read pids", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run", "torch.pid")
		f, err := New(path)
		if err != nil {
			t.Fatal(err)
		}
		if f.Path() != path {
			t.Fatal("unexpected path", f.Path())
		}
		if err := f.Write(1234, 5678); err != nil {
			t.Fatal(err)
		}
		pids, err := f.Read()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int{1234, 5678}, pids); diff != "" {
			t.Fatal(diff)
		}
		if err := f.Remove(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			t.Fatal("expected the file to be gone", err)
		}
		if err := f.Remove(); err != nil {
			t.Fatal("removing twice should not fail", err)
		}
	})

	t.Run("we reject invalid content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "torch.pid")
		if err := os.WriteFile(path, []byte("1234\nxo\n"), 0600); err != nil {
			t.Fatal(err)
		}
		f, err := New(path)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Read(); !errors.Is(err, ErrInvalid) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("we return the mkdir error", func(t *testing.T) {
		expected := errors.New("mocked error")
		mkdir := func(path string, perm fs.FileMode) error {
			return expected
		}
		f, err := newFile("/nonexistent/torch.pid", mkdir)
		if !errors.Is(err, expected) {
			t.Fatal("unexpected err", err)
		}
		if f != nil {
			t.Fatal("expected nil file")
		}
	})
}
