package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierSendToSubscriber(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe(1)
	defer cancel()

	assert.True(t, n.Connected(1))
	n.Send(1, "hello")

	select {
	case msg := <-ch:
		assert.Equal(t, "hello", msg)
	default:
		t.Fatal("期望收到推送消息")
	}
}

func TestNotifierSendToDisconnectedUser(t *testing.T) {
	n := NewNotifier()

	// 无订阅者时推送是空操作，不 panic 不阻塞
	assert.NotPanics(t, func() { n.Send(42, "nobody home") })
	assert.False(t, n.Connected(42))
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe(1)
	cancel()
	assert.False(t, n.Connected(1))

	// 注销后通道已关闭
	_, ok := <-ch
	assert.False(t, ok)

	// 重复注销安全
	assert.NotPanics(t, cancel)
}

func TestNotifierMultipleConnections(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe(1)
	ch2, cancel2 := n.Subscribe(1)
	defer cancel1()
	defer cancel2()

	n.Send(1, "both")

	require.Equal(t, "both", <-ch1)
	require.Equal(t, "both", <-ch2)
}

func TestNotifierDropsWhenBufferFull(t *testing.T) {
	n := NewNotifier()

	_, cancel := n.Subscribe(1)
	defer cancel()

	// 塞满缓冲后继续推送不应阻塞
	for i := 0; i < 20; i++ {
		n.Send(1, "burst")
	}
}
