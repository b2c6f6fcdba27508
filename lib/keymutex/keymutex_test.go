package keymutex

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	km := New()
	const n = 50

	counter := 0
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			km.Lock("tracking:1")
			defer km.Unlock("tracking:1")
			// Unsynchronized increment; only the key mutex protects it.
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, n, counter)
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	km := New()
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
		t.Fatal("lock on a different key blocked")
	}
}

func TestEntriesAreReleased(t *testing.T) {
	km := New()
	km.Lock("a")
	km.Unlock("a")

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks, "released keys must not accumulate")
}

func TestUnlockOfUnlockedKeyPanics(t *testing.T) {
	km := New()
	assert.Panics(t, func() { km.Unlock("never-locked") })
}
