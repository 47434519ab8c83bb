package reaper

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// childExitCodeEnv instructs the test binary to exit immediately.
const childExitCodeEnv = "REAPER_TEST_CHILD_EXIT_CODE"

// childBlockEnv instructs the test binary to block until killed.
const childBlockEnv = "REAPER_TEST_CHILD_BLOCK"

func TestMain(m *testing.M) {
	if value := os.Getenv(childExitCodeEnv); value != "" {
		code, _ := strconv.Atoi(value)
		os.Exit(code)
	}
	if os.Getenv(childBlockEnv) == "1" {
		time.Sleep(time.Hour)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func startChild(t *testing.T, env string) *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), env)
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestRegistryReapsExitedChildren(t *testing.T) {
	r := NewRegistry(nil)
	first := startChild(t, childExitCodeEnv+"=17")
	second := startChild(t, childExitCodeEnv+"=0")
	if err := r.Track(first.Process.Pid, first.Process); err != nil {
		t.Fatal(err)
	}
	if err := r.Track(second.Process.Pid, second.Process); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exit, err := r.Wait(ctx, first.Process.Pid)
	if err != nil {
		t.Fatal(err)
	}
	if exit.Code != 17 || exit.Err != nil || exit.Pid != first.Process.Pid {
		t.Fatalf("unexpected exit: %+v", exit)
	}

	exits, err := r.WaitAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := map[int]int{}
	for _, exit := range exits {
		got[exit.Pid] = exit.Code
	}
	expected := map[int]int{
		first.Process.Pid:  17,
		second.Process.Pid: 0,
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatal(diff)
	}

	if pending := r.Pending(); len(pending) != 0 {
		t.Fatal("expected no pending children", pending)
	}
	r.Forget()
	if pids := r.Pids(); len(pids) != 0 {
		t.Fatal("expected no tracked children", pids)
	}
}

func TestRegistrySignal(t *testing.T) {
	r := NewRegistry(nil)
	cmd := startChild(t, childBlockEnv+"=1")
	if err := r.Track(cmd.Process.Pid, cmd.Process); err != nil {
		t.Fatal(err)
	}
	if err := r.Track(cmd.Process.Pid, cmd.Process); !errors.Is(err, ErrAlreadyTracked) {
		t.Fatal("unexpected err", err)
	}
	if diff := cmp.Diff([]int{cmd.Process.Pid}, r.Pending()); diff != "" {
		t.Fatal(diff)
	}
	if err := r.Signal(os.Kill); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exit, err := r.Wait(ctx, cmd.Process.Pid)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && exit.Code != -1 {
		t.Fatal("expected -1 for a killed child, got", exit.Code)
	}
}

func TestRegistryWaitUnknownChild(t *testing.T) {
	r := NewRegistry(nil)
	exit, err := r.Wait(context.Background(), 1)
	if !errors.Is(err, ErrNoSuchChild) {
		t.Fatal("unexpected err", err)
	}
	if exit != nil {
		t.Fatal("expected nil exit")
	}
}

// blockingProcess is a Process that never exits.
type blockingProcess struct {
	ch chan any
}

func (bp *blockingProcess) Signal(sig os.Signal) error {
	return errors.New("mocked error")
}

func (bp *blockingProcess) Wait() (*os.ProcessState, error) {
	<-bp.ch
	return nil, errors.New("mocked error")
}

func TestRegistryWithBlockingProcess(t *testing.T) {
	r := NewRegistry(nil)
	bp := &blockingProcess{ch: make(chan any)}
	if err := r.Track(1234, bp); err != nil {
		t.Fatal(err)
	}

	t.Run("Wait honours the context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel() // fail immediately
		exit, err := r.Wait(ctx, 1234)
		if !errors.Is(err, context.Canceled) {
			t.Fatal("unexpected err", err)
		}
		if exit != nil {
			t.Fatal("expected nil exit")
		}
		exits, err := r.WaitAll(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatal("unexpected err", err)
		}
		if exits != nil {
			t.Fatal("expected nil exits")
		}
	})

	t.Run("Signal reports errors", func(t *testing.T) {
		if err := r.Signal(os.Interrupt); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("Wait reports the wait error", func(t *testing.T) {
		close(bp.ch)
		exit, err := r.Wait(context.Background(), 1234)
		if err != nil {
			t.Fatal(err)
		}
		if exit.Code != -1 || exit.Err == nil {
			t.Fatalf("unexpected exit: %+v", exit)
		}
	})
}
