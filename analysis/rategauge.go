package analysis

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// RateGauge is a lock-free float64 counter, adapted from the teacher's
// atomic_float.AtomicFloat64: updates never contend on a mutex. Driver.Run
// adds each batch's solved-state count after the batch completes, so it
// holds a running count of solved states; the status server does not read
// it.
type RateGauge struct {
	val float64
}

// Read atomically loads the current count.
func (g *RateGauge) Read() float64 {
	bits := atomic.LoadUint64((*uint64)(unsafe.Pointer(&g.val)))
	return math.Float64frombits(bits)
}

// Add atomically increments the gauge by delta, retrying on concurrent
// writers rather than silently dropping an update.
func (g *RateGauge) Add(delta float64) float64 {
	for {
		old := g.Read()
		newVal := old + delta
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&g.val)),
			math.Float64bits(old),
			math.Float64bits(newVal),
		) {
			return newVal
		}
	}
}

// Reset atomically zeroes the gauge, returning the value it held.
func (g *RateGauge) Reset() float64 {
	for {
		old := g.Read()
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&g.val)),
			math.Float64bits(old),
			math.Float64bits(0),
		) {
			return old
		}
	}
}
