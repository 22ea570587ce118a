package eivu

import (
	"sync"
	"testing"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		holders int
		maxSeen int
		counter sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("bucket")
			defer unlock()

			counter.Lock()
			holders++
			maxSeen = max(maxSeen, holders)
			counter.Unlock()

			counter.Lock()
			holders--
			counter.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
	if n := k.size(); n != 0 {
		t.Errorf("size() after release = %d, want 0", n)
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()
	<-done

	if n := k.size(); n != 1 {
		t.Errorf("size() while holding a = %d, want 1", n)
	}
	unlockA()
	if n := k.size(); n != 0 {
		t.Errorf("size() after release = %d, want 0", n)
	}
}
