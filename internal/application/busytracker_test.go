package application

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/credpanel/internal/card"
)

func TestBusyTracker_BeginEnd(t *testing.T) {
	tr := NewBusyTracker()

	assert.Equal(t, card.Busy{}, tr.Get("c1"))

	assert.True(t, tr.Begin("c1", BusyCheckingHealth))
	assert.True(t, tr.Begin("c1", BusyRefreshingToken))
	assert.False(t, tr.Begin("c1", BusyCheckingHealth))
	assert.Equal(t, card.Busy{CheckingHealth: true, RefreshingToken: true}, tr.Get("c1"))
	assert.Equal(t, card.Busy{}, tr.Get("c2"), "flags are per credential")

	tr.End("c1", BusyCheckingHealth)
	assert.Equal(t, card.Busy{RefreshingToken: true}, tr.Get("c1"))

	tr.End("c1", BusyRefreshingToken)
	assert.Equal(t, card.Busy{}, tr.Get("c1"))
}

func TestBusyTracker_ConcurrentBeginGrantsOnce(t *testing.T) {
	tr := NewBusyTracker()

	const goroutines = 100
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			if tr.Begin("c1", BusyDeleting) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, granted)
}
