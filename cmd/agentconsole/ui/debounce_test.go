package ui

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_RunsLastCallOnce(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls, last atomic.Int32
	for i := 1; i <= 5; i++ {
		i := int32(i)
		d.Debounce(func() {
			calls.Add(1)
			last.Store(i)
		})
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(5), last.Load())
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Debounce(func() { calls.Add(1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestResizeDebouncer_DeliversLatestSize(t *testing.T) {
	rd := NewResizeDebouncer(20 * time.Millisecond)
	got := make(chan [2]int, 4)
	handler := func(w, h int) { got <- [2]int{w, h} }

	rd.Resize(80, 24, handler)
	rd.Resize(100, 30, handler)
	rd.Resize(120, 40, handler)

	select {
	case size := <-got:
		assert.Equal(t, [2]int{120, 40}, size)
	case <-time.After(time.Second):
		t.Fatal("resize handler never ran")
	}
	w, h := rd.LastSize()
	assert.Equal(t, 120, w)
	assert.Equal(t, 40, h)

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, got)
}
