package schedulefake

import (
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/schedule"
)

var _ schedule.Scheduler = (*FakeScheduler)(nil)

// FakeScheduler runs tasks against simulated time. Nothing fires until
// Advance is called, and due tasks run synchronously on the caller's goroutine.
type FakeScheduler struct {
	lock    sync.Mutex
	elapsed time.Duration
	tasks   []*fakeTask
	started int
}

func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

type fakeTask struct {
	owner    *FakeScheduler
	interval time.Duration
	next     time.Duration
	fn       func()
	stopped  bool
	seq      int
}

func (s *FakeScheduler) Every(interval time.Duration, fn func()) schedule.Task {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.started++
	t := &fakeTask{owner: s, interval: interval, next: s.elapsed + interval, fn: fn, seq: s.started}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves simulated time forward by d, firing every task that falls due
// in order. Tasks started or stopped by a firing task are honoured.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.lock.Lock()
	target := s.elapsed + d
	for {
		due := s.nextDueLocked(target)
		if due == nil {
			break
		}
		s.elapsed = due.next
		due.next += due.interval
		s.lock.Unlock()
		due.fn()
		s.lock.Lock()
	}
	s.elapsed = target
	s.lock.Unlock()
}

// Elapsed returns the simulated time since the scheduler was created.
func (s *FakeScheduler) Elapsed() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.elapsed
}

// ActiveTasks counts tasks that have not been stopped.
func (s *FakeScheduler) ActiveTasks() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Started counts every Every call so far.
func (s *FakeScheduler) Started() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.started
}

func (s *FakeScheduler) nextDueLocked(target time.Duration) *fakeTask {
	var due []*fakeTask
	for _, t := range s.tasks {
		if !t.stopped && t.interval > 0 && t.next <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].next == due[j].next {
			return due[i].seq < due[j].seq
		}
		return due[i].next < due[j].next
	})
	return due[0]
}

func (t *fakeTask) Stop() {
	t.owner.lock.Lock()
	defer t.owner.lock.Unlock()
	t.stopped = true
}

func (t *fakeTask) Active() bool {
	t.owner.lock.Lock()
	defer t.owner.lock.Unlock()
	return !t.stopped
}
