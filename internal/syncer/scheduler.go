package syncer

import "time"

// Handle is a cancellable scheduled task.
type Handle interface {
	// Stop cancels the task. It returns false if the task already ran or
	// was already stopped.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Handle
}

// TimerScheduler schedules on the runtime timer.
type TimerScheduler struct{}

// AfterFunc implements Scheduler with time.AfterFunc.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) Handle {
	return time.AfterFunc(d, f)
}

// FlushOnly never fires. Pushes then happen only through Flush, which
// one-shot commands call before exiting.
type FlushOnly struct{}

// AfterFunc implements Scheduler and discards f.
func (FlushOnly) AfterFunc(time.Duration, func()) Handle { return idle{} }

type idle struct{}

func (idle) Stop() bool { return false }
