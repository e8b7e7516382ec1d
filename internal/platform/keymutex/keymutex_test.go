package keymutex

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	km := New()
	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("doctor-1")
			defer km.Unlock("doctor-1")
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("expected %d increments, got %d", workers, counter)
	}
}

func TestDifferentKeysIndependent(t *testing.T) {
	km := New()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done // must not deadlock while "a" is held
}

func TestEntriesReleased(t *testing.T) {
	km := New()
	km.Lock("x")
	km.Unlock("x")
	if len(km.locks) != 0 {
		t.Errorf("expected lock map to be empty, has %d entries", len(km.locks))
	}
}

func TestUnlockUnheldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on unlock of unheld key")
		}
	}()
	New().Unlock("nope")
}
