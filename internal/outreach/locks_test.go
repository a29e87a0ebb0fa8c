package outreach

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSequenceLocks_SerializesSameKey(t *testing.T) {
	locks := NewSequenceLocks()
	id := uuid.New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, locks.size())
}

func TestSequenceLocks_IndependentKeys(t *testing.T) {
	locks := NewSequenceLocks()

	unlockA := locks.Lock(uuid.New())
	unlockB := locks.Lock(uuid.New())
	assert.Equal(t, 2, locks.size())

	unlockA()
	unlockB()
	assert.Zero(t, locks.size())
}
