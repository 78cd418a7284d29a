package director

import (
	"sync"

	"github.com/talgya/crownfall/internal/attention"
	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/info"
)

// Priority orders message processing within one actor's queue.
type Priority uint8

const (
	PriorityCritical Priority = iota // Processed immediately
	PriorityHigh                     // 1–3 day delay
	PriorityMedium                   // 1–2 week delay
	PriorityLow                      // Only when the queue is otherwise idle

	numPriorities = 4
)

// PriorityName returns a human-readable priority name.
func PriorityName(p Priority) string {
	switch p {
	case PriorityCritical:
		return "Critical"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// Message wraps one exclusively-owned packet queued for an actor. Destroyed
// once popped and executed.
type Message struct {
	Packet    *info.Packet
	Target    attention.ActorID
	Priority  Priority
	Scheduled calendar.Date // Earliest processing date
	Received  calendar.Date

	seq uint64
}

// messageQueue holds one actor's pending messages in four priority buckets.
// Push is O(1); pop takes the highest bucket with a ready message, earliest
// scheduled date first, insertion order breaking ties. Low-priority messages
// pop only when every other bucket is empty.
type messageQueue struct {
	mu      sync.Mutex
	buckets [numPriorities][]*Message
	nextSeq uint64

	pushed     uint64
	popped     uint64
	byPriority [numPriorities]uint64
}

func newMessageQueue() *messageQueue {
	return &messageQueue{}
}

func (q *messageQueue) push(m *Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	m.seq = q.nextSeq
	q.nextSeq++
	q.buckets[m.Priority] = append(q.buckets[m.Priority], m)
	q.pushed++
	q.byPriority[m.Priority]++
}

// popReady removes and returns the next ready message, or nil.
func (q *messageQueue) popReady(now calendar.Date) *Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	for p := PriorityCritical; p <= PriorityMedium; p++ {
		if m := q.takeEarliestReady(p, now); m != nil {
			return m
		}
	}

	// Low runs only when nothing else is pending at all.
	if len(q.buckets[PriorityCritical]) == 0 &&
		len(q.buckets[PriorityHigh]) == 0 &&
		len(q.buckets[PriorityMedium]) == 0 {
		return q.takeEarliestReady(PriorityLow, now)
	}
	return nil
}

// takeEarliestReady removes the ready message with the earliest scheduled
// date from one bucket. Caller holds the queue mutex.
func (q *messageQueue) takeEarliestReady(p Priority, now calendar.Date) *Message {
	bucket := q.buckets[p]
	best := -1
	for i, m := range bucket {
		if m.Scheduled.After(now) {
			continue
		}
		if best == -1 ||
			m.Scheduled.Before(bucket[best].Scheduled) ||
			(m.Scheduled.Equal(bucket[best].Scheduled) && m.seq < bucket[best].seq) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	m := bucket[best]
	q.buckets[p] = append(bucket[:best], bucket[best+1:]...)
	q.popped++
	return m
}

func (q *messageQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, b := range q.buckets {
		n += len(b)
	}
	return n
}

func (q *messageQueue) lenPriority(p Priority) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buckets[p])
}

func (q *messageQueue) hasReady(now calendar.Date) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := 0
	for p := PriorityCritical; p <= PriorityMedium; p++ {
		for _, m := range q.buckets[p] {
			if !m.Scheduled.After(now) {
				return true
			}
		}
		pending += len(q.buckets[p])
	}
	if pending > 0 {
		return false
	}
	for _, m := range q.buckets[PriorityLow] {
		if !m.Scheduled.After(now) {
			return true
		}
	}
	return false
}
