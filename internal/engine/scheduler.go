package engine

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"auction_go/internal/infra"
)

type timerState int

const (
	timerPending timerState = iota
	timerFired
	timerCancelled
)

type closeTimer struct {
	auctionID string
	fireAt    time.Time
	state     timerState
	index     int
}

// timerQueue is a min-heap over fireAt.
type timerQueue []*closeTimer

func (q timerQueue) Len() int           { return len(q) }
func (q timerQueue) Less(i, j int) bool { return q[i].fireAt.Before(q[j].fireAt) }
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*closeTimer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// Scheduler keeps at most one pending close timer per auction, backed by a
// min-heap. Fire delivery is decoupled from the trigger: due auction ids are
// handed to a dispatch goroutine over a channel, so a slow close never stalls
// the timer loop.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*closeTimer
	queue   timerQueue
	pending int

	wake  chan struct{}
	fires chan string
	fire  func(auctionID string)
	now   func() time.Time
}

// NewScheduler creates a scheduler that calls fire with the auction id each
// time a timer comes due. Run must be started for timers to fire.
func NewScheduler(fire func(auctionID string)) *Scheduler {
	return &Scheduler{
		timers: make(map[string]*closeTimer),
		wake:   make(chan struct{}, 1),
		fires:  make(chan string, 64),
		fire:   fire,
		now:    time.Now,
	}
}

// ScheduleClose creates a pending timer targeting endTime. Scheduling again
// for the same auction moves the existing timer; a deadline already in the
// past fires on the next loop iteration (recovery after downtime).
func (s *Scheduler) ScheduleClose(auctionID string, endTime time.Time) {
	s.mu.Lock()
	if t, ok := s.timers[auctionID]; ok && t.state == timerPending {
		t.fireAt = endTime
		heap.Fix(&s.queue, t.index)
	} else {
		t := &closeTimer{auctionID: auctionID, fireAt: endTime, state: timerPending}
		s.timers[auctionID] = t
		heap.Push(&s.queue, t)
		s.pending++
	}
	infra.GlobalMetrics.SetPendingTimers(int32(s.pending))
	s.mu.Unlock()
	s.kick()
}

// Reschedule moves the pending timer to newEndTime, or creates one if none
// exists (covers a process restart without durable timer state).
func (s *Scheduler) Reschedule(auctionID string, newEndTime time.Time) {
	s.ScheduleClose(auctionID, newEndTime)
}

// Unschedule cancels the pending timer, best effort. A fire already in
// flight is tolerated; the closer's idempotency covers that race.
func (s *Scheduler) Unschedule(auctionID string) {
	s.mu.Lock()
	if t, ok := s.timers[auctionID]; ok && t.state == timerPending {
		t.state = timerCancelled
		delete(s.timers, auctionID)
		s.pending--
	}
	infra.GlobalMetrics.SetPendingTimers(int32(s.pending))
	s.mu.Unlock()
	s.kick()
}

// PendingAt returns the pending timer's deadline for an auction, if any.
func (s *Scheduler) PendingAt(auctionID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[auctionID]
	if !ok || t.state != timerPending {
		return time.Time{}, false
	}
	return t.fireAt, true
}

// Run drives the timer loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("auction scheduler started")
	go s.dispatch(ctx)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		next, ok := s.nextDeadline()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		d := next.Sub(s.now())
		if d <= 0 {
			s.fireDue()
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d)

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
			s.fireDue()
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.fires:
			s.fire(id)
		}
	}
}

func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// nextDeadline returns the earliest pending deadline, discarding cancelled
// heap entries on the way.
func (s *Scheduler) nextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.queue.Len() > 0 {
		t := s.queue[0]
		if t.state != timerPending {
			heap.Pop(&s.queue)
			continue
		}
		return t.fireAt, true
	}
	return time.Time{}, false
}

// fireDue marks every due timer as fired and queues its auction id for
// dispatch.
func (s *Scheduler) fireDue() {
	now := s.now()

	s.mu.Lock()
	var due []string
	for s.queue.Len() > 0 {
		t := s.queue[0]
		if t.state != timerPending {
			heap.Pop(&s.queue)
			continue
		}
		if t.fireAt.After(now) {
			break
		}
		heap.Pop(&s.queue)
		t.state = timerFired
		delete(s.timers, t.auctionID)
		s.pending--
		due = append(due, t.auctionID)
	}
	infra.GlobalMetrics.SetPendingTimers(int32(s.pending))
	s.mu.Unlock()

	for _, id := range due {
		slog.Info("close timer fired", slog.String("auction_id", id))
		s.fires <- id
	}
}
