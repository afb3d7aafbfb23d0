package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLockSerializesSameKey(t *testing.T) {
	l := NewAdvisoryLocker()
	walker := uuid.New()

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			unlock := l.Lock(walker)
			defer unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(order) != 5 {
		t.Fatalf("expected 5 critical-section entries, got %d", len(order))
	}
}

func TestLockDoesNotSerializeDifferentKeys(t *testing.T) {
	l := NewAdvisoryLocker()
	walkerA, walkerB := uuid.New(), uuid.New()

	unlockA := l.Lock(walkerA)
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock(walkerB)
		defer unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different walker should not block")
	}
	unlockA()
}

func TestLockMapEntryCleanup(t *testing.T) {
	l := NewAdvisoryLocker()
	walker := uuid.New()
	unlock := l.Lock(walker)
	unlock()

	l.mu.Lock()
	_, exists := l.locks[walker.String()]
	l.mu.Unlock()
	if exists {
		t.Fatal("expected lock entry to be cleaned up after last release")
	}
}
