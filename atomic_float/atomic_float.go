// Package atomic_float provides float64 cells that one writer can update while any number
// of readers sample them without locks.
package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 holds a float64 as its IEEE 754 bits. The zero value holds 0.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// NewAtomicFloat64 returns a cell holding val.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	af := &AtomicFloat64{}
	af.AtomicStore(val)
	return af
}

// AtomicRead returns the latest stored value.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicStore unconditionally replaces the value. Diff application is last-write-wins,
// so this is the only write the field mirror needs.
func (af *AtomicFloat64) AtomicStore(val float64) {
	af.bits.Store(math.Float64bits(val))
}

// AtomicAdd adds addend if the value did not change between the read and the write.
// On contention it reports failure rather than retrying, so the caller can decide
// whether the add is still meaningful.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.bits.Load()
	newVal = math.Float64frombits(old) + addend
	succeeded = af.bits.CompareAndSwap(old, math.Float64bits(newVal))
	return
}

// AtomicMax raises the value to val if it is larger and returns the value held afterwards.
func (af *AtomicFloat64) AtomicMax(val float64) float64 {
	for {
		old := af.bits.Load()
		if current := math.Float64frombits(old); current >= val {
			return current
		}
		if af.bits.CompareAndSwap(old, math.Float64bits(val)) {
			return val
		}
	}
}
