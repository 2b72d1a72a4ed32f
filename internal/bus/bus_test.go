package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	b := New()

	var got []Notification
	id := b.Subscribe(func(n Notification) { got = append(got, n) })

	n := Notification{
		Type:    TypeMessageNew,
		Payload: Payload{Model: "mail.activity.thread", ResID: 101, MessageID: 5},
	}
	b.Publish(n)
	require.Len(t, got, 1)
	assert.Equal(t, n, got[0])

	b.Unsubscribe(id)
	b.Publish(n)
	assert.Len(t, got, 1, "unsubscribed handlers no longer fire")
}

func TestPublish_FansOut(t *testing.T) {
	b := New()
	var a, c int
	b.Subscribe(func(Notification) { a++ })
	b.Subscribe(func(Notification) { c++ })

	b.Publish(Notification{Type: TypeMessageNew})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, c)
}

func TestUnsubscribe_UnknownHandle(t *testing.T) {
	b := New()
	b.Unsubscribe("no-such-handle")
	b.UnsubscribePosted("no-such-handle")
}

func TestPublishPosted(t *testing.T) {
	b := New()

	var got []PostedSignal
	id := b.SubscribePosted(func(sig PostedSignal) { got = append(got, sig) })

	sig := PostedSignal{ThreadID: 101, ThreadModel: "mail.activity.thread"}
	b.PublishPosted(sig)
	require.Len(t, got, 1)
	assert.Equal(t, sig, got[0])

	b.UnsubscribePosted(id)
	b.PublishPosted(sig)
	assert.Len(t, got, 1)
}

func TestPublish_NoSubscribers(t *testing.T) {
	b := New()
	b.Publish(Notification{Type: TypeMessageNew})
	b.PublishPosted(PostedSignal{ThreadID: 1})
}
