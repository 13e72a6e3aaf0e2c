package ws

import (
	"context"
	"encoding/json"
	"log"
	"slices"
	"strconv"
	"time"

	"richdocServer/backend/internal/cache"
	"richdocServer/backend/internal/collab"
	"richdocServer/backend/internal/format"
	"richdocServer/backend/internal/mysqldb"

	"github.com/gorilla/websocket"
)

const presenceTTL = 600 * time.Second

type Conn struct {
	ws       *websocket.Conn
	hub      *Hub
	docID    string
	userID   uint64
	username string
	// send 是该连接的出站队列，writeLoop 消费
	send chan OutboundMessage
	// 协作引擎服务
	svc collab.Service
	// 信号量控制
	sem *collab.SemaphoreControl
	// 写路径成功后失效内容缓存、累加统计（都允许为 nil）
	contents cache.ContentCache
	stats    mysqldb.DocStatsRepo
}

// 出站消息接口
type OutboundMessage interface {
	MessageType() string
}

func (m ServerMessage) MessageType() string        { return m.Type }
func (m OpSubmitMessage) MessageType() string      { return m.Type }
func (m OpAppliedMessage) MessageType() string     { return m.Type }
func (m OpBroadcastMessage) MessageType() string   { return m.Type }
func (m FormatAppliedMessage) MessageType() string { return m.Type }

func NewConn(ws *websocket.Conn, hub *Hub, docID string, userID uint64, username string, svc collab.Service, sem *collab.SemaphoreControl, contents cache.ContentCache, stats mysqldb.DocStatsRepo) *Conn {
	return &Conn{
		ws: ws, hub: hub, docID: docID, userID: userID, username: username,
		send: make(chan OutboundMessage, 32), svc: svc, sem: sem,
		contents: contents, stats: stats,
	}
}

// afterMutation 写路径成功后的旁路工作：失效内容缓存、异步累加统计。
// 都不在提交热路径里等结果。
func (c *Conn) afterMutation(docID string, isFormat bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if c.contents != nil {
			if err := c.contents.Invalidate(ctx, docID); err != nil {
				log.Printf("invalidate content cache error (doc=%s): %v", docID, err)
			}
		}
		if c.stats != nil {
			var err error
			if isFormat {
				err = c.stats.AddFormat(ctx, docID)
			} else {
				err = c.stats.AddEdit(ctx, docID)
			}
			if err != nil {
				log.Printf("add doc stats error (doc=%s): %v", docID, err)
			}
		}
	}()
}

// SendMessage_Enqueue 非阻塞入队；队列满了直接丢弃（慢客户端自己负责追平）
func (c *Conn) SendMessage_Enqueue(msg OutboundMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Conn) handleOpSubmit(ctx context.Context, msg OpSubmitMessage) {
	submitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	if err := c.sem.Acquire(submitCtx); err != nil {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
		return
	}
	defer c.sem.Release()

	applied, err := c.svc.Submit(submitCtx, msg.DocID, c.userID,
		msg.BaseRevision, msg.ClientId, msg.ClientSeq, msg.Ops)
	if err != nil {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
		return
	}
	c.SendMessage_Enqueue(OpAppliedMessage{
		Type: "op_applied", DocID: msg.DocID,
		BaseRevision: msg.BaseRevision, CurrentRevision: applied.Revision,
		ClientId: msg.ClientId, ClientSeq: msg.ClientSeq,
	})
	c.hub.BroadcastAppliedOp(msg.DocID, c, c.userID, applied.Revision, applied.Ops, "op_broadcast")
	c.afterMutation(msg.DocID, false)
}

// handleFormat 把格式化请求交给规则引擎，把补丁 ack 给提交者并广播给房间
func (c *Conn) handleFormat(ctx context.Context, msg ClientMessage) {
	formatCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	if err := c.sem.Acquire(formatCtx); err != nil {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
		return
	}
	defer c.sem.Release()

	// 引擎把违反 embed 前置条件当作调用方编程错误（panic），
	// 对外部输入要先挡在门口
	if msg.AttrKey == format.KeyStyle && msg.Length != 1 {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: "style requires length == 1"})
		return
	}
	if msg.Index < 0 || msg.Length < 0 {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: "index and length must be non-negative"})
		return
	}
	attr := format.Attribute{Key: msg.AttrKey}
	if msg.HasValue {
		attr.Value = msg.AttrVal
	}
	applied, err := c.svc.Format(formatCtx, msg.DocID, c.userID, msg.Index, msg.Length, attr, nil)
	if err != nil {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
		return
	}
	c.SendMessage_Enqueue(FormatAppliedMessage{
		Type: "format_applied", DocID: msg.DocID,
		CurrentRevision: applied.Revision, Patch: applied.Ops,
	})
	c.hub.BroadcastAppliedOp(msg.DocID, c, c.userID, applied.Revision, applied.Ops, "format_broadcast")
	c.afterMutation(msg.DocID, true)
}

func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.send)
	for {
		var clientMessage ClientMessage
		if err := c.ws.ReadJSON(&clientMessage); err != nil {
			log.Printf("read json error (user=%d, doc=%s): %v", c.userID, c.docID, err)
			return
		}
		switch clientMessage.Type {
		case "heartbeat":
			if err := c.hub.presence.AddMember(ctx, c.docID, c.userID, c.username, presenceTTL); err != nil {
				log.Printf("add member error: %v", err)
			}
			members, err := c.hub.presence.GetAliveMembersWithNames(ctx, c.docID)
			if err != nil {
				log.Printf("get members error: %v", err)
			}
			out := make([]PresenceMember, len(members))
			for i, m := range members {
				out[i] = PresenceMember{UserID: m.UserID, Username: m.Username}
			}
			c.SendMessage_Enqueue(ServerMessage{Type: "presence", DocID: c.docID, Members: out})
			c.SendMessage_Enqueue(ServerMessage{Type: "feedback", Content: "Heartbeat received"})

		case "createDocument":
			docTitle := clientMessage.DocTitle
			if err := c.svc.CreateDocument(ctx, c.userID, docTitle); err != nil {
				log.Printf("create document error: %v", err)
				c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: "CREATE_DOC_FAILED"})
				continue
			}
			docID, err := c.svc.GetDocumentID(ctx, docTitle)
			if err != nil {
				log.Printf("get document id error: %v", err)
				c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: "GET_DOCID_FAILED"})
				continue
			}
			_ = c.hub.presence.AddMember(ctx, docID, c.userID, c.username, presenceTTL)
			c.SendMessage_Enqueue(ServerMessage{Type: "createDocument", DocID: docID,
				Content: "Document " + docID + " created by user " + strconv.FormatUint(c.userID, 10)})

		case "joinDocument":
			// 允许客户端在 joinDocument 中指定标题，用于动态切换房间
			if clientMessage.DocTitle != "" {
				docID, err := c.svc.GetDocumentID(ctx, clientMessage.DocTitle)
				if err != nil {
					log.Printf("get document id error: %v", err)
					c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: "GET_DOCID_FAILED"})
					continue
				}
				if c.docID != "" && c.docID != docID {
					// 先离开旧房间
					c.hub.Leave(c.docID, c)
				}
				c.docID = docID
			}
			documents, err := c.hub.presence.GetDocuments(ctx)
			if err != nil {
				log.Printf("get documents error: %v", err)
			}
			if !slices.Contains(documents, c.docID) {
				c.SendMessage_Enqueue(ServerMessage{Type: "joinDocument", DocID: c.docID, Content: "Document " + c.docID + " not found"})
				continue
			}
			c.hub.Join(c.docID, c)
			_ = c.hub.presence.AddMember(ctx, c.docID, c.userID, c.username, presenceTTL)
			c.SendMessage_Enqueue(ServerMessage{Type: "joinDocument", DocID: c.docID,
				Content: "Document " + c.docID + " joined by user " + strconv.FormatUint(c.userID, 10)})

		case "cursor":
			// 光标/选区转发 + 落 Redis（带 TTL，掉线自动消失）
			if b, err := json.Marshal(clientMessage.Range); err == nil {
				_ = c.hub.presence.SetCursor(ctx, c.docID, c.userID, b, presenceTTL)
			}
			c.hub.BroadcastCursor(c.docID, c.userID, clientMessage.Range)

		case "op_submit":
			msg := OpSubmitMessage{
				Type:         clientMessage.Type,
				DocID:        clientMessage.DocID,
				BaseRevision: clientMessage.BaseRevision,
				ClientId:     clientMessage.ClientId,
				ClientSeq:    clientMessage.ClientSeq,
				Ops:          clientMessage.Ops,
			}
			c.handleOpSubmit(ctx, msg)

		case "format":
			c.handleFormat(ctx, clientMessage)

		case "saveDocument":
			if err := c.svc.SaveSnapshot(ctx, clientMessage.DocID); err != nil {
				log.Printf("save document error: %v", err)
				c.SendMessage_Enqueue(ServerMessage{Type: "saveDocument", Content: "Document " + clientMessage.DocID + " save failed"})
				continue
			}
			c.SendMessage_Enqueue(ServerMessage{Type: "saveDocument", Content: "Document " + clientMessage.DocID + " saved"})

		case "loadDocumentContent":
			content, revision, err := c.svc.LoadDocumentContent(ctx, clientMessage.DocID)
			if err != nil {
				log.Printf("load document content error: %v", err)
				continue
			}
			c.SendMessage_Enqueue(ServerMessage{Type: "loadDocumentContent", Delta: content, Revision: revision})

		default:
			// 忽略未知类型，回一条提示
			c.SendMessage_Enqueue(ServerMessage{Type: "ignored", Content: "Unknown message type"})
		}
	}
}

func (c *Conn) writeLoop() {
	// 持续消费通道中的出站消息
	for msg := range c.send {
		_ = c.ws.WriteJSON(msg)
	}
}
