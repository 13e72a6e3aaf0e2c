package ws

import (
	"log"
	"net/http"
	"strings"

	"richdocServer/backend/internal/cache"
	"richdocServer/backend/internal/collab"
	"richdocServer/backend/internal/mysqldb"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 全局的 WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" { // 一些环境可能不发送 Origin，或为 "null"
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

type Manager struct {
	h        *Hub
	svc      collab.Service
	sem      *collab.SemaphoreControl
	contents cache.ContentCache
	stats    mysqldb.DocStatsRepo
}

func NewManager(h *Hub, svc collab.Service, sem *collab.SemaphoreControl, contents cache.ContentCache, stats mysqldb.DocStatsRepo) *Manager {
	return &Manager{h: h, svc: svc, sem: sem, contents: contents, stats: stats}
}

// WebSocketConnect 把鉴权后的 HTTP 请求升级成 WebSocket 并进入收发循环。
// userId/username 由鉴权中间件写入 gin.Context。
func (m *Manager) WebSocketConnect(c *gin.Context) {
	userID := c.GetUint64("userId")
	username := c.GetString("username")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}
	defer conn.Close()

	wsConn := NewConn(conn, m.h, "", userID, username, m.svc, m.sem, m.contents, m.stats)

	// 先启动写循环，确保后续写入 send 通道的消息可以被及时发送
	go wsConn.writeLoop()
	wsConn.SendMessage_Enqueue(ServerMessage{Type: "welcome", Content: "connected"})

	// 读循环阻塞至连接关闭
	wsConn.readLoop(c.Request.Context())

	// 连接关闭后清掉在线状态
	if wsConn.docID != "" {
		m.h.Leave(wsConn.docID, wsConn)
		_ = m.h.presence.RemoveMember(c.Request.Context(), wsConn.docID, userID)
	}
}
