package events_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/events"
	"github.com/classpulse/backend/internal/models"
)

func newTestHub(buf int) *events.Hub {
	return events.NewHub(zap.NewNop(), buf, nil)
}

func recvEvent(t *testing.T, sub *events.Subscription) events.Event {
	t.Helper()
	select {
	case evt, ok := <-sub.C:
		require.True(t, ok, "subscription closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func requireNoEvent(t *testing.T, sub *events.Subscription) {
	t.Helper()
	select {
	case evt := <-sub.C:
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversToMatchingSubscribers(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()

	q1 := uuid.New()
	q2 := uuid.New()
	subA := hub.Subscribe(events.ChannelResponseCount, q1.String())
	subB := hub.Subscribe(events.ChannelResponseCount, q1.String())
	other := hub.Subscribe(events.ChannelResponseCount, q2.String())
	defer subA.Close()
	defer subB.Close()
	defer other.Close()

	hub.Publish(events.ResponseCountUpdated(q1, 1))

	for _, sub := range []*events.Subscription{subA, subB} {
		evt := recvEvent(t, sub)
		require.Equal(t, events.ChannelResponseCount, evt.Channel)
		require.Equal(t, q1.String(), evt.FilterKey)
	}
	requireNoEvent(t, other)
}

func TestHubChannelsAreIndependent(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()

	lectureID := uuid.New()
	updated := hub.Subscribe(events.ChannelLectureUpdated, lectureID.String())
	activity := hub.Subscribe(events.ChannelLectureActivity, "")
	defer updated.Close()
	defer activity.Close()

	l := &models.Lecture{ID: lectureID, Status: models.LectureScheduled}
	hub.Publish(events.LectureCreated(l))

	evt := recvEvent(t, activity)
	require.Equal(t, "lecture_created", evt.Type)
	requireNoEvent(t, updated)

	hub.Publish(events.LectureUpdated(l))
	evt = recvEvent(t, updated)
	require.Equal(t, "lecture_updated", evt.Type)
}

func TestHubNoReplayForLateSubscribers(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()

	q := uuid.New()
	hub.Publish(events.ResponseCountUpdated(q, 1))

	late := hub.Subscribe(events.ChannelResponseCount, q.String())
	defer late.Close()
	requireNoEvent(t, late)

	hub.Publish(events.ResponseCountUpdated(q, 2))
	evt := recvEvent(t, late)
	require.Equal(t, q.String(), evt.FilterKey)
}

func TestHubSlowConsumerDropsWithoutBlockingOthers(t *testing.T) {
	hub := newTestHub(1)
	defer hub.Close()

	q := uuid.New()
	slow := hub.Subscribe(events.ChannelResponseCount, q.String())
	fast := hub.Subscribe(events.ChannelResponseCount, q.String())
	defer slow.Close()

	// Nobody drains slow; its single-slot buffer fills after one event.
	// Publish stays non-blocking and fast keeps receiving everything.
	for i := 0; i < 5; i++ {
		hub.Publish(events.ResponseCountUpdated(q, int64(i+1)))
		evt := recvEvent(t, fast)
		require.Equal(t, q.String(), evt.FilterKey)
	}

	require.Equal(t, uint64(4), slow.Dropped())
	fast.Close()
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()

	q := uuid.New()
	sub := hub.Subscribe(events.ChannelStudentResponded, q.String())
	require.Equal(t, 1, hub.SubscriberCount(events.ChannelStudentResponded, q.String()))

	sub.Close()
	sub.Close() // idempotent
	require.Equal(t, 0, hub.SubscriberCount(events.ChannelStudentResponded, q.String()))

	_, ok := <-sub.C
	require.False(t, ok)

	// Publishing after the consumer left must not panic or block.
	hub.Publish(events.StudentResponded(&models.StudentResponse{LectureQuestionID: q}))
}

func TestHubCloseReleasesAllSubscribers(t *testing.T) {
	hub := newTestHub(8)

	subs := []*events.Subscription{
		hub.Subscribe(events.ChannelLectureActivity, ""),
		hub.Subscribe(events.ChannelLectureUpdated, uuid.New().String()),
		hub.Subscribe(events.ChannelQuestionUpdated, uuid.New().String()),
	}
	hub.Close()
	hub.Close() // idempotent

	for _, sub := range subs {
		_, ok := <-sub.C
		require.False(t, ok)
		sub.Close() // safe after hub shutdown
	}

	// Subscribe after close yields an already-closed subscription.
	sub := hub.Subscribe(events.ChannelLectureActivity, "")
	_, ok := <-sub.C
	require.False(t, ok)
}
