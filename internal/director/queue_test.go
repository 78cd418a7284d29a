package director

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crownfall/internal/calendar"
	"github.com/talgya/crownfall/internal/info"
)

func queuedMessage(prio Priority, scheduled calendar.Date) *Message {
	return &Message{
		Packet:    info.New(info.MilitaryAction, 1, 1, 0.5, "test", scheduled),
		Priority:  prio,
		Scheduled: scheduled,
		Received:  scheduled,
	}
}

func TestPopPriorityOrder(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)
	q := newMessageQueue()

	q.push(queuedMessage(PriorityLow, now))
	q.push(queuedMessage(PriorityCritical, now))
	q.push(queuedMessage(PriorityHigh, now))

	var order []Priority
	for m := q.popReady(now); m != nil; m = q.popReady(now) {
		order = append(order, m.Priority)
	}
	assert.Equal(t, []Priority{PriorityCritical, PriorityHigh, PriorityLow}, order)
}

func TestPopFIFOWithinBucket(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)
	q := newMessageQueue()

	first := queuedMessage(PriorityHigh, now)
	second := queuedMessage(PriorityHigh, now)
	q.push(first)
	q.push(second)

	assert.Same(t, first, q.popReady(now))
	assert.Same(t, second, q.popReady(now))
}

func TestPopEarliestScheduledFirst(t *testing.T) {
	now := calendar.NewDate(1444, 1, 10)
	q := newMessageQueue()

	later := queuedMessage(PriorityMedium, calendar.NewDate(1444, 1, 8))
	earlier := queuedMessage(PriorityMedium, calendar.NewDate(1444, 1, 2))
	q.push(later)
	q.push(earlier)

	assert.Same(t, earlier, q.popReady(now))
	assert.Same(t, later, q.popReady(now))
}

func TestFutureMessagesNotReady(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)
	q := newMessageQueue()

	q.push(queuedMessage(PriorityCritical, now.AddDays(3)))

	assert.Nil(t, q.popReady(now))
	assert.False(t, q.hasReady(now))
	require.NotNil(t, q.popReady(now.AddDays(3)))
}

func TestLowOnlyWhenIdle(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)
	q := newMessageQueue()

	low := queuedMessage(PriorityLow, now)
	pendingHigh := queuedMessage(PriorityHigh, now.AddDays(2))
	q.push(low)
	q.push(pendingHigh)

	// A pending (if unready) high message blocks low work.
	assert.Nil(t, q.popReady(now))
	assert.False(t, q.hasReady(now))

	// Once high is processed the low message surfaces.
	later := now.AddDays(2)
	assert.Same(t, pendingHigh, q.popReady(later))
	assert.Same(t, low, q.popReady(later))
}

func TestQueueLen(t *testing.T) {
	now := calendar.NewDate(1444, 1, 1)
	q := newMessageQueue()

	assert.Zero(t, q.len())
	q.push(queuedMessage(PriorityCritical, now))
	q.push(queuedMessage(PriorityLow, now))

	assert.Equal(t, 2, q.len())
	assert.Equal(t, 1, q.lenPriority(PriorityCritical))
	assert.Equal(t, 1, q.lenPriority(PriorityLow))

	q.popReady(now)
	assert.Equal(t, 1, q.len())
}
