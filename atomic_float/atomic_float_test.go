package atomic_float

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicFloat64(t *testing.T) {
	Convey("When AtomicAdd is called", t, func() {
		Convey("When multiple writers add to the value concurrently", func() {
			af := NewAtomicFloat64(0)
			numOps := 3000
			numWriters := 200

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters * 2)
			adder := func(addend float64) {
				defer wg.Done()
				<-start
				for i := 0; i < numOps; i++ {
					for succeeded := false; !succeeded; _, succeeded = af.AtomicAdd(addend) {
					}
				}
			}

			for i := 0; i < numWriters; i++ {
				go adder(1)
				go adder(-0.5)
			}

			// Wait for goroutines to begin
			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, float64(numOps*numWriters)*0.5)
		})
	})

	Convey("When a diff is stored while readers sample the cell", t, func() {
		af := &AtomicFloat64{}
		So(af.AtomicRead(), ShouldEqual, 0)

		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					v := af.AtomicRead()
					// Readers only ever see values that were stored.
					if v != 0 && v != 120 && v != 35.5 {
						panic(v)
					}
				}
			}
		}()

		for i := 0; i < 1000; i++ {
			af.AtomicStore(120)
			af.AtomicStore(35.5)
		}
		close(done)
		wg.Wait()
		So(af.AtomicRead(), ShouldEqual, 35.5)
	})

	Convey("When AtomicMax is called", t, func() {
		af := NewAtomicFloat64(10)
		So(af.AtomicMax(4), ShouldEqual, 10)
		So(af.AtomicMax(12.5), ShouldEqual, 12.5)
		So(af.AtomicRead(), ShouldEqual, 12.5)
	})
}
