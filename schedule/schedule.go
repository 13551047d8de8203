package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

// Task is a running periodic job. Stop is idempotent and never blocks, so it
// is safe to call from inside the job itself.
type Task interface {
	Stop()
	Active() bool
}

// Scheduler starts periodic jobs.
type Scheduler interface {
	// Every runs fn each interval until the returned task is stopped. The
	// first run happens one interval after the call. Runs never overlap.
	Every(interval time.Duration, fn func()) Task
}

// TickerScheduler runs each task on its own goroutine driven by a time.Ticker.
type TickerScheduler struct{}

var _ Scheduler = TickerScheduler{}

func New() TickerScheduler {
	return TickerScheduler{}
}

func (TickerScheduler) Every(interval time.Duration, fn func()) Task {
	t := &tickerTask{done: make(chan struct{})}
	t.active.Store(true)
	go t.run(interval, fn)
	return t
}

type tickerTask struct {
	done     chan struct{}
	stopOnce sync.Once
	active   atomic.Bool
}

func (t *tickerTask) run(interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			// a Stop racing with the tick wins
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *tickerTask) Stop() {
	t.stopOnce.Do(func() {
		t.active.Store(false)
		close(t.done)
	})
}

func (t *tickerTask) Active() bool {
	return t.active.Load()
}
