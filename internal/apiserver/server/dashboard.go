// Package server 管理面板 WebSocket
//
// 本文件提供管理面板的实时事件推送。各领域处理器通过
// events.Sink 发布状态变更，本中心广播给已连接的管理员。
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/apiserver/events"
)

var dashboardUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域（开发环境）
	},
}

// DashboardMessage WebSocket 消息
type DashboardMessage struct {
	Type      string      `json:"type"`      // session.created, session.status_changed, user.created, user.status_changed
	Data      interface{} `json:"data"`      // 事件数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// DashboardHub 管理面板 WebSocket 推送中心
//
// 实现 events.Sink，处理器发布的事件广播到所有连接。
type DashboardHub struct {
	cfg     auth.Config
	metrics *Metrics
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewDashboardHub 创建面板推送中心
func NewDashboardHub(cfg auth.Config, metrics *Metrics) *DashboardHub {
	return &DashboardHub{
		cfg:     cfg,
		metrics: metrics,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Publish 接收领域事件并广播
func (d *DashboardHub) Publish(event any) {
	msg := DashboardMessage{Data: event, Timestamp: time.Now()}
	switch e := event.(type) {
	case events.SessionEvent:
		msg.Type = e.Type
	case events.UserEvent:
		msg.Type = e.Type
	default:
		return
	}
	d.broadcast(msg)
}

// HandleWebSocket 处理 WebSocket 连接
//
// 路由: GET /ws/dashboard
//
// 浏览器无法为 WebSocket 握手设置请求头，令牌通过
// ?token= 查询参数传递。仅管理员可连接。
func (d *DashboardHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if d.cfg.Enabled() {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := auth.ParseToken(d.cfg, token)
		if err != nil || claims.Type != "access" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.Role != auth.UserRoleAdmin {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
	}

	conn, err := dashboardUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[DashboardWS] Upgrade error: %v", err)
		return
	}

	d.mu.Lock()
	d.clients[conn] = true
	total := len(d.clients)
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.WSConnectionOpened()
	}
	log.Printf("[DashboardWS] Client connected, total: %d", total)

	go d.readPump(conn)
}

func (d *DashboardHub) readPump(conn *websocket.Conn) {
	defer func() {
		d.mu.Lock()
		delete(d.clients, conn)
		remaining := len(d.clients)
		d.mu.Unlock()
		conn.Close()
		if d.metrics != nil {
			d.metrics.WSConnectionClosed()
		}
		log.Printf("[DashboardWS] Client disconnected, remaining: %d", remaining)
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[DashboardWS] Read error: %v", err)
			}
			break
		}
	}
}

func (d *DashboardHub) broadcast(msg DashboardMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[DashboardWS] Marshal error: %v", err)
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for conn := range d.clients {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[DashboardWS] Broadcast error: %v", err)
			continue
		}
		if d.metrics != nil {
			d.metrics.RecordWSMessage("out", msg.Type)
		}
	}
}

// ClientCount 当前连接数
func (d *DashboardHub) ClientCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clients)
}

// StartPing 定期向客户端发送心跳，直到 stop 关闭
func (d *DashboardHub) StartPing(stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.mu.RLock()
			for conn := range d.clients {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Printf("[DashboardWS] Ping error: %v", err)
				}
			}
			d.mu.RUnlock()
		}
	}
}
