package kernel

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewMsgQueue_PanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewMsgQueue(0) did not panic")
		}
	}()
	NewMsgQueue[int](0)
}

func TestMsgQueue_FIFO(t *testing.T) {
	q := NewMsgQueue[int](5)

	for i := 0; i < 5; i++ {
		if err := q.Put(i, NoWait); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}

	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}
	if q.Cap() != 5 {
		t.Errorf("Cap() = %d, want 5", q.Cap())
	}

	for i := 0; i < 5; i++ {
		got, err := q.Get(NoWait)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != i {
			t.Errorf("Get() = %d, want %d", got, i)
		}
	}
}

func TestMsgQueue_NoWait(t *testing.T) {
	q := NewMsgQueue[int](1)

	if _, err := q.Get(NoWait); !errors.Is(err, ErrEmpty) {
		t.Errorf("Get() on empty queue error = %v, want ErrEmpty", err)
	}

	if err := q.Put(1, NoWait); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := q.Put(2, NoWait); !errors.Is(err, ErrFull) {
		t.Errorf("Put() on full queue error = %v, want ErrFull", err)
	}
}

func TestMsgQueue_BoundedWaitExpires(t *testing.T) {
	q := NewMsgQueue[int](1)

	start := time.Now()
	if _, err := q.Get(After(20 * time.Millisecond)); !errors.Is(err, ErrWouldBlock) {
		t.Errorf("Get() error = %v, want ErrWouldBlock", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Get() returned after %v, want at least 20ms", elapsed)
	}

	_ = q.Put(1, NoWait) //nolint:errcheck // queue has room
	if err := q.Put(2, After(20*time.Millisecond)); !errors.Is(err, ErrWouldBlock) {
		t.Errorf("Put() error = %v, want ErrWouldBlock", err)
	}
}

func TestMsgQueue_ForeverPutUnblocksOnGet(t *testing.T) {
	q := NewMsgQueue[int](1)
	_ = q.Put(1, NoWait) //nolint:errcheck // queue has room

	done := make(chan error, 1)
	go func() {
		done <- q.Put(2, Forever)
	}()

	select {
	case <-done:
		t.Fatal("Put(Forever) returned while queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	if got, _ := q.Get(NoWait); got != 1 {
		t.Errorf("Get() = %d, want 1", got)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Put(Forever) error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Put(Forever) did not unblock")
	}

	if got, _ := q.Get(NoWait); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

func TestMsgQueue_Purge(t *testing.T) {
	q := NewMsgQueue[string](4)
	for _, s := range []string{"a", "b", "c"} {
		_ = q.Put(s, NoWait) //nolint:errcheck // queue has room
	}

	if n := q.Purge(); n != 3 {
		t.Errorf("Purge() = %d, want 3", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len() after Purge = %d, want 0", q.Len())
	}
}

func TestMsgQueue_ConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 100

	q := NewMsgQueue[int](producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Put(i, Forever); err != nil {
					t.Errorf("Put() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Errorf("Len() = %d, want %d", q.Len(), producers*perProducer)
	}
}

func TestMsgQueue_WatchUnwatch(t *testing.T) {
	q := NewMsgQueue[int](2)
	w := make(chan struct{}, 1)

	q.Watch(w)
	_ = q.Put(1, NoWait) //nolint:errcheck // queue has room

	select {
	case <-w:
	default:
		t.Fatal("watcher not signalled after Put")
	}

	q.Unwatch(w)
	_ = q.Put(2, NoWait) //nolint:errcheck // queue has room

	select {
	case <-w:
		t.Error("watcher signalled after Unwatch")
	default:
	}
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name        string
		timeout     Timeout
		wantNoWait  bool
		wantForever bool
		wantString  string
	}{
		{name: "no wait", timeout: NoWait, wantNoWait: true, wantString: "no-wait"},
		{name: "forever", timeout: Forever, wantForever: true, wantString: "forever"},
		{name: "bounded", timeout: After(time.Second), wantString: "after(1s)"},
		{name: "zero duration is no wait", timeout: After(0), wantNoWait: true, wantString: "no-wait"},
		{name: "negative duration is no wait", timeout: After(-time.Second), wantNoWait: true, wantString: "no-wait"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.timeout.IsNoWait(); got != tt.wantNoWait {
				t.Errorf("IsNoWait() = %v, want %v", got, tt.wantNoWait)
			}
			if got := tt.timeout.IsForever(); got != tt.wantForever {
				t.Errorf("IsForever() = %v, want %v", got, tt.wantForever)
			}
			if got := tt.timeout.String(); got != tt.wantString {
				t.Errorf("String() = %q, want %q", got, tt.wantString)
			}
		})
	}
}
