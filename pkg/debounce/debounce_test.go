package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesRapidCalls(t *testing.T) {
	d := New(30 * time.Millisecond)

	var calls int32
	for i := 0; i < 10; i++ {
		d.Do(func() { atomic.AddInt32(&calls, 1) })
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 5*time.Millisecond)

	// No second firing after the window
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDebouncer_LastCallWins(t *testing.T) {
	d := New(20 * time.Millisecond)

	var got atomic.Value
	d.Do(func() { got.Store("first") })
	d.Do(func() { got.Store("second") })

	assert.Eventually(t, func() bool {
		v, ok := got.Load().(string)
		return ok && v == "second"
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncer_Cancel(t *testing.T) {
	d := New(20 * time.Millisecond)

	var calls int32
	d.Do(func() { atomic.AddInt32(&calls, 1) })
	d.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.False(t, d.Pending())
}

func TestDebouncer_FlushRunsImmediately(t *testing.T) {
	d := New(time.Hour)

	var calls int32
	d.Do(func() { atomic.AddInt32(&calls, 1) })
	assert.True(t, d.Pending())

	d.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, d.Pending())

	// Flush with nothing pending is a no-op
	d.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
