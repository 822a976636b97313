package hub

import (
	"sync"
	"testing"
	"time"
)

func TestThrottleLeadingFireIsImmediate(t *testing.T) {
	th := NewThrottle(100 * time.Millisecond)
	fired := false
	th.Do(func() { fired = true })
	if !fired {
		t.Fatal("first call inside an open window must run synchronously")
	}
}

func TestThrottleCoalescesBurst(t *testing.T) {
	th := NewThrottle(50 * time.Millisecond)

	var mu sync.Mutex
	var got []int
	call := func(n int) func() {
		return func() {
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		}
	}

	for i := 0; i < 10; i++ {
		th.Do(call(i))
	}
	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("a burst should fire exactly twice (leading + trailing), got %v", got)
	}
	if got[0] != 0 {
		t.Errorf("leading fire should be the first call, got %d", got[0])
	}
	if got[1] != 9 {
		t.Errorf("trailing fire should carry the latest call, got %d", got[1])
	}
}

func TestThrottleReopensAfterWindow(t *testing.T) {
	th := NewThrottle(30 * time.Millisecond)

	var mu sync.Mutex
	count := 0
	bump := func() {
		mu.Lock()
		count++
		mu.Unlock()
	}

	th.Do(bump)
	time.Sleep(60 * time.Millisecond)
	th.Do(bump)

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("a call after the window elapsed should fire immediately, count=%d", count)
	}
}

func TestThrottleStopCancelsTrailing(t *testing.T) {
	th := NewThrottle(40 * time.Millisecond)

	var mu sync.Mutex
	count := 0
	bump := func() {
		mu.Lock()
		count++
		mu.Unlock()
	}

	th.Do(bump) // leading
	th.Do(bump) // staged for trailing
	th.Stop()
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	if count != 1 {
		t.Errorf("stop should cancel the staged trailing fire, count=%d", count)
	}
	mu.Unlock()

	th.Do(bump)
	mu.Lock()
	if count != 1 {
		t.Error("a stopped throttle must not run new calls")
	}
	mu.Unlock()
}
