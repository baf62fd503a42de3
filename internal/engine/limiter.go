package engine

import "time"

// spinMargin is how early the limiter stops sleeping and starts spinning.
const spinMargin = 200 * time.Microsecond

// FPSLimiter paces the frame loop with a hybrid sleep/spin wait.
type FPSLimiter struct {
	next time.Time
	now  func() time.Time
}

func NewFPSLimiter() *FPSLimiter {
	return &FPSLimiter{now: time.Now}
}

// Wait blocks until the next frame is due under limit frames per second.
// A limit of zero or less never waits. When the loop falls more than one
// frame behind, the schedule restarts from now instead of catching up.
func (f *FPSLimiter) Wait(limit int) {
	if limit <= 0 {
		f.next = time.Time{}
		return
	}
	target := time.Second / time.Duration(limit)

	if f.next.IsZero() {
		f.next = f.now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	for {
		remaining := f.next.Sub(f.now())
		if remaining <= 0 {
			break
		}
		if remaining > spinMargin {
			time.Sleep(remaining - spinMargin)
		}
		// spin out the last stretch; Sleep overshoots on high caps
		if !f.now().Before(f.next) {
			break
		}
	}

	if late := f.now().Sub(f.next); late > target {
		f.next = f.now().Add(target)
	}
}
