package tablestore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActor_RunsTasksInFIFOOrder(t *testing.T) {
	a := NewActor(8)
	defer a.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		a.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestActor_CloseDrainsQueuedTasks(t *testing.T) {
	a := NewActor(8)

	ran := make([]bool, 4)
	var mu sync.Mutex
	for i := 0; i < 4; i++ {
		i := i
		a.Post(func() {
			mu.Lock()
			ran[i] = true
			mu.Unlock()
		})
	}
	a.Close()

	for i, v := range ran {
		assert.True(t, v, "task %d should have run before Close returned", i)
	}
}

func TestActor_PostAfterCloseIsNoOp(t *testing.T) {
	a := NewActor(8)
	a.Close()
	assert.NotPanics(t, func() {
		a.Post(func() {})
	})
}
