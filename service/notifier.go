package service

import "sync"

// Notifier 在线用户的实时通知通道注册表
// 推送是 fire-and-forget：用户不在线或通道已满则直接丢弃，
// 通知行已持久化，下次拉取仍可见
type Notifier struct {
	mu   sync.RWMutex
	subs map[uint]map[chan string]struct{}
}

// NewNotifier 创建通知注册表
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uint]map[chan string]struct{})}
}

// Live 全局实时通知注册表
var Live = NewNotifier()

// Subscribe 为用户注册一条接收通道，返回通道与注销函数
func (n *Notifier) Subscribe(userID uint) (<-chan string, func()) {
	ch := make(chan string, 8)
	n.mu.Lock()
	if n.subs[userID] == nil {
		n.subs[userID] = make(map[chan string]struct{})
	}
	n.subs[userID][ch] = struct{}{}
	n.mu.Unlock()

	once := sync.Once{}
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			if set, ok := n.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(n.subs, userID)
				}
			}
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Send 向指定用户的所有在线连接推送消息，无连接时为空操作
func (n *Notifier) Send(userID uint, message string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.subs[userID] {
		select {
		case ch <- message:
		default:
			// 消费太慢则丢弃，不做重试或背压
		}
	}
}

// Connected 判断用户当前是否有在线连接
func (n *Notifier) Connected(userID uint) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[userID]) > 0
}
