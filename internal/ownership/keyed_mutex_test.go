package ownership

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("pair")
			defer km.Unlock("pair")
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a distinct key should not block")
	}
}

func TestKeyedMutex_CleansUpUnusedEntries(t *testing.T) {
	km := newKeyedMutex()
	km.Lock("a")
	km.Unlock("a")

	km.mu.Lock()
	n := len(km.locks)
	km.mu.Unlock()
	if n != 0 {
		t.Errorf("locks map has %d entries after release, want 0", n)
	}
}
