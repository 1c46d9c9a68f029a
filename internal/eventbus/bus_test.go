package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanout(t *testing.T) {
	b := New()
	c1, u1 := b.Subscribe(4)
	c2, u2 := b.Subscribe(4)
	defer u1()
	defer u2()

	b.Publish(Event{Type: TaskStarted, Task: "tweets"})

	e1 := <-c1
	e2 := <-c2
	assert.Equal(t, TaskStarted, e1.Type)
	assert.Equal(t, "tweets", e2.Task)
	assert.False(t, e1.Time.IsZero())
}

func TestSubscribeFiltersTypes(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4, ReplyPosted, ReplyFailed)
	defer unsub()

	b.Publish(Event{Type: TaskStarted})
	b.Publish(Event{Type: ReplyFailed, Data: int64(10)})
	b.Publish(Event{Type: TaskFinished})

	require.Len(t, ch, 1)
	e := <-ch
	assert.Equal(t, ReplyFailed, e.Type)
	assert.Equal(t, int64(10), e.Data)
	assert.Zero(t, b.Dropped())
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})

	require.Len(t, ch, 1)
	assert.Equal(t, "a", (<-ch).Type)
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestPublishAfterUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()

	assert.NotPanics(t, func() { b.Publish(Event{Type: "x"}) })
	_, ok := <-ch
	assert.False(t, ok)
}
