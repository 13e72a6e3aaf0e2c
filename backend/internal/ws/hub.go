package ws

import (
	"sync"
	"time"

	"richdocServer/backend/internal/cache"
	"richdocServer/backend/internal/ot/delta"
)

// Hub 维护 docID -> 连接集合 的房间表，广播走每个连接自己的发送队列。
type Hub struct {
	// presence 是对外部存储（Redis）的读写句柄，在线状态/光标都落在那边
	presence cache.PresenceCache
	// 保护 rooms 的并发访问；加入/离开/广播都先加锁
	mu sync.RWMutex
	// docID -> set of connections
	// 房间里存连接而不是 userID：一个用户可开多个标签页/设备，广播要逐连接发
	rooms map[string]map[*Conn]struct{}
}

func NewHub(p cache.PresenceCache) *Hub {
	return &Hub{presence: p, rooms: make(map[string]map[*Conn]struct{})}
}

// Join 将连接加入指定文档房间
func (h *Hub) Join(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[docID] == nil {
		h.rooms[docID] = make(map[*Conn]struct{})
	}
	h.rooms[docID][c] = struct{}{}
}

// Leave 将连接从指定文档房间移除
func (h *Hub) Leave(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[docID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, docID)
		}
	}
}

func (h *Hub) connsOf(docID string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.rooms[docID]))
	for c := range h.rooms[docID] {
		out = append(out, c)
	}
	return out
}

// BroadcastAppliedOp 把已应用的操作推给同房间的其他连接（不含提交者自己）
func (h *Hub) BroadcastAppliedOp(docID string, from *Conn, authorID uint64, revision uint64, ops delta.Delta, msgType string) {
	msg := OpBroadcastMessage{
		Type:      msgType,
		DocID:     docID,
		Revision:  revision,
		AuthorID:  authorID,
		Ops:       ops,
		AppliedAt: time.Now(),
	}
	for _, c := range h.connsOf(docID) {
		if c == from {
			continue
		}
		c.SendMessage_Enqueue(msg)
	}
}

func (h *Hub) BroadcastPresence(docID string, members []PresenceMember) {
	msg := ServerMessage{Type: "presence", DocID: docID, Members: members}
	for _, c := range h.connsOf(docID) {
		c.SendMessage_Enqueue(msg)
	}
}

func (h *Hub) BroadcastCursor(docID string, userID uint64, rng interface{}) {
	msg := ServerMessage{Type: "cursor", DocID: docID, UserID: userID, Range: rng}
	for _, c := range h.connsOf(docID) {
		c.SendMessage_Enqueue(msg)
	}
}
