package launcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/torch/internal/model"
	"github.com/ooni/torch/internal/model/mocks"
)

// blockingLibrary is a fake tor library whose Run blocks until
// the test writes the desired exit code into the release channel.
type blockingLibrary struct {
	argv        [][]string
	invocations atomic.Int64
	mu          sync.Mutex
	release     chan int
	started     chan any
}

func newBlockingLibrary() *blockingLibrary {
	return &blockingLibrary{
		release: make(chan int),
		started: make(chan any, 16),
	}
}

func (bl *blockingLibrary) library() model.TorLibrary {
	return &mocks.TorLibrary{
		MockNewConfiguration: func() (model.TorConfiguration, error) {
			config := &mocks.TorConfiguration{
				MockSetCommandLine: func(argv []string) int {
					bl.mu.Lock()
					bl.argv = append(bl.argv, argv)
					bl.mu.Unlock()
					return 0
				},
				MockRun: func() int {
					bl.invocations.Add(1)
					bl.started <- true
					return <-bl.release
				},
				MockFree: func() {},
			}
			return config, nil
		},
	}
}

func TestThreadedStrategy(t *testing.T) {
	t.Run("Wait fails before we start tor", func(t *testing.T) {
		l := New(&Config{Library: &mocks.TorLibrary{}, Strategy: StrategyThreaded})
		_, err := l.Wait(context.Background())
		if !errors.Is(err, ErrNotStarted) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("a second start while running does nothing", func(t *testing.T) {
		bl := newBlockingLibrary()
		l := New(&Config{Library: bl.library(), Strategy: StrategyThreaded})

		if code := l.Start([]string{"tor"}); code != 0 {
			t.Fatal("unexpected code", code)
		}
		<-bl.started
		if !l.Running() {
			t.Fatal("expected tor to be running")
		}
		if code := l.Start([]string{"tor", "--another"}); code != 0 {
			t.Fatal("unexpected code", code)
		}
		if n := bl.invocations.Load(); n != 1 {
			t.Fatal("unexpected number of invocations", n)
		}

		bl.release <- 0
		code, err := l.Wait(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if code != 0 {
			t.Fatal("unexpected code", code)
		}
		if l.Running() {
			t.Fatal("expected tor not to be running")
		}
	})

	t.Run("concurrent starts cause exactly one invocation", func(t *testing.T) {
		bl := newBlockingLibrary()
		l := New(&Config{Library: bl.library(), Strategy: StrategyThreaded})

		const concurrency = 16
		wg := &sync.WaitGroup{}
		for idx := 0; idx < concurrency; idx++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if code := l.Start([]string{"tor"}); code != 0 {
					t.Error("unexpected code", code)
				}
			}()
		}
		wg.Wait()
		<-bl.started

		if n := bl.invocations.Load(); n != 1 {
			t.Fatal("unexpected number of invocations", n)
		}
		bl.release <- 0
		if _, err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("we can start tor again after it returned", func(t *testing.T) {
		bl := newBlockingLibrary()
		l := New(&Config{Library: bl.library(), Strategy: StrategyThreaded})

		l.Start([]string{"tor", "first"})
		<-bl.started
		bl.release <- 1
		code, err := l.Wait(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if code != 1 {
			t.Fatal("unexpected code", code)
		}

		l.Start([]string{"tor", "second"})
		<-bl.started
		if n := bl.invocations.Load(); n != 2 {
			t.Fatal("unexpected number of invocations", n)
		}
		bl.release <- 0
		code, err = l.Wait(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if code != 0 {
			t.Fatal("unexpected code", code)
		}

		expect := [][]string{{"tor", "first"}, {"tor", "second"}}
		if diff := cmp.Diff(expect, bl.argv); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("we own and release a copy of argv", func(t *testing.T) {
		bl := newBlockingLibrary()
		l := New(&Config{Library: bl.library(), Strategy: StrategyThreaded})

		argv := []string{"tor", "SocksPort", "9050", "DataDirectory", "/data/tor"}
		l.Start(argv)
		<-bl.started

		bl.mu.Lock()
		got := bl.argv[0]
		bl.mu.Unlock()
		if diff := cmp.Diff(argv, got); diff != "" {
			t.Fatal(diff)
		}
		for idx := range argv {
			if unsafe.StringData(argv[idx]) == unsafe.StringData(got[idx]) {
				t.Fatal("argument not copied", idx)
			}
		}

		bl.release <- 0
		if _, err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
		l.mu.Lock()
		released := l.task.args == nil
		l.mu.Unlock()
		if !released {
			t.Fatal("expected argv to be released")
		}
	})

	t.Run("a configuration failure leaves us idle", func(t *testing.T) {
		df := &directFixture{configErr: errors.New("mocked error")}
		l := New(&Config{Library: df.library(), Strategy: StrategyThreaded})
		if code := l.Start([]string{"tor"}); code != 0 {
			t.Fatal("unexpected code", code)
		}
		code, err := l.Wait(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if code != ExitFailure {
			t.Fatal("unexpected code", code)
		}
		if l.Running() {
			t.Fatal("expected tor not to be running")
		}
	})

	t.Run("we call OnExit with tor's exit code", func(t *testing.T) {
		df := &directFixture{runCode: 4}
		exitch := make(chan int, 1)
		l := New(&Config{
			Library:  df.library(),
			OnExit:   func(code int) { exitch <- code },
			Strategy: StrategyThreaded,
		})
		l.Start([]string{"tor"})
		select {
		case code := <-exitch:
			if code != 4 {
				t.Fatal("unexpected code", code)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("OnExit not called")
		}
	})

	t.Run("Wait honours the context", func(t *testing.T) {
		bl := newBlockingLibrary()
		l := New(&Config{Library: bl.library(), Strategy: StrategyThreaded})
		l.Start([]string{"tor"})
		<-bl.started

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Fatal("unexpected err", err)
		}

		bl.release <- 0
		if _, err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	})
}
