// Package events 面板实时事件
//
// 处理器在状态变更时发布事件，WebSocket 面板订阅推送。
// Sink 为空实现时发布是无操作，处理器无需判空。
package events

import "time"

// Sink 事件接收端
type Sink interface {
	Publish(event any)
}

// SessionEvent 会话状态变更事件
type SessionEvent struct {
	Type      string    `json:"type"` // "session.created" | "session.status_changed"
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"`
	Name      string    `json:"name"`
	At        time.Time `json:"at"`
}

// UserEvent 用户审核状态变更事件
type UserEvent struct {
	Type   string    `json:"type"` // "user.created" | "user.status_changed"
	UserID string    `json:"userId"`
	Role   string    `json:"role"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// Discard 丢弃全部事件的空实现
type Discard struct{}

// Publish 无操作
func (Discard) Publish(any) {}
