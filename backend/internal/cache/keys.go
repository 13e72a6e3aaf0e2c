package cache

import "fmt"

// 键语义：
// - roomKey(docID):           房间在线成员（ZSet<userId>，score = 逻辑过期时间）
// - namesKey(docID):          房间内 userId→username 映射（Hash）
// - cursorKey(docID,userID):  成员光标/选区 JSON（String，带 TTL）
// - contentKey(docID):        文档内容缓存（String，Delta JSON + 版本号，带 TTL）

const (
	keyRoomFmt    = "presence:room:%s"       // ZSet<userId>
	keyNamesFmt   = "presence:room:names:%s" // Hash<userId -> username>
	keyCursorFmt  = "presence:cursor:%s:%d"  // String JSON with TTL
	keyContentFmt = "doc:content:%s"         // String JSON with TTL
)

func roomKey(docID string) string                  { return fmt.Sprintf(keyRoomFmt, docID) }
func namesKey(docID string) string                 { return fmt.Sprintf(keyNamesFmt, docID) }
func cursorKey(docID string, userID uint64) string { return fmt.Sprintf(keyCursorFmt, docID, userID) }
func contentKey(docID string) string               { return fmt.Sprintf(keyContentFmt, docID) }
