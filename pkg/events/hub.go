// Package events 账单状态变化的进程内订阅
package events

import (
	"sync"

	"homerent/app/models/payment"
	"homerent/pkg/logger"
	"homerent/pkg/payment/types"
)

const bufferSize = 64

// Filter 返回 true 的事件才会投递给订阅者
type Filter = func(e types.Event) bool

type subscriber struct {
	filter Filter
	ch     chan types.Event
}

// Hub 事件中心。每个订阅者拥有独立的缓冲队列和投递 goroutine，
// 慢订阅者只会丢弃自己的事件
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
}

// NewHub 创建事件中心
func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint64]*subscriber),
	}
}

// Subscribe 注册回调，返回的函数用于取消订阅，可重复调用
func (h *Hub) Subscribe(filter Filter, callback func(e types.Event)) (unsubscribe func()) {
	sub := &subscriber{
		filter: filter,
		ch:     make(chan types.Event, bufferSize),
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for e := range sub.ch {
			callback(e)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish 广播事件，不会阻塞调用方
func (h *Hub) Publish(e types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.filter != nil && !sub.filter(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			logger.WarnString("Events", "Publish", "subscriber buffer full, dropped "+e.PaymentID)
		}
	}
}

// Len 当前订阅者数量
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ByTenant 只接收某个租客的事件
func ByTenant(tenantID string) Filter {
	return func(e types.Event) bool {
		return e.TenantID == tenantID
	}
}

// ByProperties 只接收指定房产的事件
func ByProperties(propertyIDs ...string) Filter {
	set := make(map[string]struct{}, len(propertyIDs))
	for _, id := range propertyIDs {
		set[id] = struct{}{}
	}
	return func(e types.Event) bool {
		_, ok := set[e.PropertyID]
		return ok
	}
}

// ByStatus 只接收变为指定状态的事件
func ByStatus(statuses ...payment.Status) Filter {
	return func(e types.Event) bool {
		for _, s := range statuses {
			if e.Status == s {
				return true
			}
		}
		return false
	}
}
