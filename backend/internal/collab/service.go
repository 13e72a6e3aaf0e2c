package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"richdocServer/backend/internal/format"
	"richdocServer/backend/internal/ot/delta"
)

// 协作引擎接口
type Service interface {
	Submit(ctx context.Context, docID string, authorID uint64,
		baseRevision uint64, clientID string, clientSeq uint64,
		ops delta.Delta) (AppliedOp, error)

	// Format 执行一次格式化请求（规则引擎），返回并入后的补丁
	Format(ctx context.Context, docID string, authorID uint64,
		index, length int, attr format.Attribute, data any) (AppliedOp, error)

	CurrentRevision(ctx context.Context, docID string) (uint64, error)

	LoadDocumentContent(ctx context.Context, docID string) (delta.Delta, uint64, error)

	// 可选：用于握手/追平
	OpsSince(ctx context.Context, docID string, fromRevision uint64, limit int) ([]AppliedOp, error)

	SaveSnapshot(ctx context.Context, docID string) error

	GetDocumentID(ctx context.Context, title string) (string, error)
	CreateDocument(ctx context.Context, ownerID uint64, title string) error

	GetUserID(ctx context.Context, username string) (uint64, error)
}

// 快照存储接口
type SnapshotStore interface {
	SaveDocumentSnapshot(ctx context.Context, docID string, rev uint64, content string) error
	LoadLatestSnapshot(ctx context.Context, docID string) (content string, rev uint64, found bool, err error)
}

type DocumentStore interface {
	GetDocumentID(ctx context.Context, title string) (string, error)
	CreateDocument(ctx context.Context, ownerID uint64, title string) error
}

type UserStore interface {
	GetUserID(ctx context.Context, username string) (uint64, error)
}

type AppliedOp struct {
	OperationId string // 本次操作的唯一ID（用于幂等/追踪）
	Revision    uint64 // 全局版本号
	AuthorId    uint64
	// 并入文档的补丁（提交的 ops 或格式引擎产出的 patch）
	Ops       delta.Delta
	AppliedAt time.Time
}

var (
	ErrRevisionConflict      = errors.New("REVISION_CONFLICT")
	ErrDuplicateOrOutOfOrder = errors.New("DUPLICATE_OR_OUT_OF_ORDER")
	ErrDocumentNotFound      = errors.New("DOCUMENT_NOT_FOUND")
)

type docState struct {
	mu       sync.RWMutex
	revision uint64
	opsRing  []AppliedOp
	// 去重窗口：记录某 clientId 最近的最大 clientSeq
	lastSeqByClient map[string]uint64
	// 文档内容缓冲区
	buf Buffer
}

// 内存实现：持有所有文档的状态
type InMemoryService struct {
	mu      sync.RWMutex
	docs    map[string]*docState
	ringCap int

	// 依赖注入
	// 只声明，实现在 store 中
	store         SnapshotStore
	documentStore DocumentStore
	userStore     UserStore

	// Kafka 事件走本地队列 + worker 补发
	dispatcher *KafkaDispatcher
}

// NewInMemoryService 返回一个满足 Service 接口的实例
func NewInMemoryService(store SnapshotStore, documentStore DocumentStore, userStore UserStore, dispatcher *KafkaDispatcher) Service {
	return &InMemoryService{
		docs:          make(map[string]*docState),
		ringCap:       1024, // 近期操作环形缓冲容量，可按需调整
		store:         store,
		documentStore: documentStore,
		userStore:     userStore,
		dispatcher:    dispatcher,
	}
}

func (s *InMemoryService) LoadDocumentContent(ctx context.Context, docID string) (delta.Delta, uint64, error) {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil {
		// 内存里没有，尝试从最近一次快照恢复（进程重启后的读路径）
		var err error
		if ds, err = s.restoreFromSnapshot(ctx, docID); err != nil {
			return nil, 0, err
		}
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.buf.Delta(), ds.revision, nil
}

// restoreFromSnapshot 从落盘快照重建文档状态并注册到 docs。
// 没有快照视为文档不存在（创建过但从未保存的文档由 getOrCreateDoc 兜底）。
func (s *InMemoryService) restoreFromSnapshot(ctx context.Context, docID string) (*docState, error) {
	if s.store == nil {
		return nil, ErrDocumentNotFound
	}
	content, rev, found, err := s.store.LoadLatestSnapshot(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrDocumentNotFound
	}
	var snapshot delta.Delta
	if err := json.Unmarshal([]byte(content), &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot for doc %s: %w", docID, err)
	}
	doc, err := NewDeltaDocumentFrom(snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore doc %s: %w", docID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 并发恢复时只保留第一个
	if ds := s.docs[docID]; ds != nil {
		return ds, nil
	}
	ds := &docState{
		revision:        rev,
		lastSeqByClient: make(map[string]uint64),
		opsRing:         make([]AppliedOp, 0, s.ringCap),
		buf:             doc,
	}
	s.docs[docID] = ds
	return ds, nil
}

// 获取或创建指定文档的状态
func (s *InMemoryService) getOrCreateDoc(docID string) *docState {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds != nil {
		return ds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds = s.docs[docID]; ds == nil {
		capacity := s.ringCap
		if capacity <= 0 {
			capacity = 1024
		}
		ds = &docState{
			lastSeqByClient: make(map[string]uint64),
			opsRing:         make([]AppliedOp, 0, capacity),
			buf:             NewDeltaDocument(""),
		}
		s.docs[docID] = ds
	}
	return ds
}

// 加锁前提下推进版本并记录环形缓冲
func (ds *docState) commit(authorID uint64, ops delta.Delta) AppliedOp {
	ds.revision++
	appliedOp := AppliedOp{
		OperationId: fmt.Sprintf("o-%d", time.Now().UnixNano()),
		Revision:    ds.revision,
		AuthorId:    authorID,
		Ops:         ops,
		AppliedAt:   time.Now(),
	}
	// 保存到环形缓冲（达到容量则丢弃最老的一条）
	if cap(ds.opsRing) > 0 && len(ds.opsRing) == cap(ds.opsRing) {
		copy(ds.opsRing[0:], ds.opsRing[1:])
		ds.opsRing = ds.opsRing[:len(ds.opsRing)-1]
	}
	ds.opsRing = append(ds.opsRing, appliedOp)
	return appliedOp
}

// 提交操作（InMemoryService 实现）
func (s *InMemoryService) Submit(ctx context.Context, docID string, authorID uint64, baseRevision uint64, clientId string, clientSeq uint64, ops delta.Delta) (AppliedOp, error) {
	ds := s.getOrCreateDoc(docID)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	// 幂等/去重（最小实现：只允许递增）
	if last := ds.lastSeqByClient[clientId]; clientSeq <= last {
		return AppliedOp{}, ErrDuplicateOrOutOfOrder
	}
	// 版本校验
	if baseRevision != ds.revision {
		return AppliedOp{}, ErrRevisionConflict
	}

	if ds.buf == nil {
		ds.buf = NewDeltaDocument("")
	}
	if err := ds.buf.Apply(ops); err != nil {
		return AppliedOp{}, err
	}

	appliedOp := ds.commit(authorID, ops)

	// 更新去重窗口
	ds.lastSeqByClient[clientId] = clientSeq

	s.publish(ctx, EventOpApplied, docID, appliedOp, clientId, clientSeq, baseRevision)
	return appliedOp, nil
}

// Format 执行一次格式化：规则引擎读当前文档算出补丁，Compose 并入后
// 推进版本。引擎是纯函数，补丁要么整体并入要么整体失败。
func (s *InMemoryService) Format(ctx context.Context, docID string, authorID uint64, index, length int, attr format.Attribute, data any) (AppliedOp, error) {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil {
		return AppliedOp{}, ErrDocumentNotFound
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()

	doc, ok := ds.buf.(*DeltaDocument)
	if !ok {
		return AppliedOp{}, errors.New("buffer does not support formatting")
	}
	patch, err := doc.Format(index, length, attr, data)
	if err != nil {
		return AppliedOp{}, err
	}

	appliedOp := ds.commit(authorID, patch)
	s.publish(ctx, EventFormatApplied, docID, appliedOp, "", 0, appliedOp.Revision-1)
	return appliedOp, nil
}

// 异步发 Kafka（不阻塞主流程，队列满了就由 dispatcher 降级）
func (s *InMemoryService) publish(ctx context.Context, eventType string, docID string, op AppliedOp, clientId string, clientSeq uint64, baseRevision uint64) {
	if s.dispatcher == nil {
		return
	}
	evt := DocOpEvent{
		EventType:    eventType,
		DocID:        docID,
		OperationID:  op.OperationId,
		Revision:     op.Revision,
		AuthorID:     op.AuthorId,
		ClientID:     clientId,
		ClientSeq:    clientSeq,
		BaseRevision: baseRevision,
		Ops:          op.Ops,
		AppliedAt:    op.AppliedAt,
	}
	enqueueCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_ = s.dispatcher.Enqueue(enqueueCtx, evt)
}

// 返回当前文档版本（InMemoryService 实现）
func (s *InMemoryService) CurrentRevision(ctx context.Context, docID string) (uint64, error) {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil {
		return 0, nil
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.revision, nil
}

// 返回 fromRevision 之后的已应用操作（InMemoryService 实现）
func (s *InMemoryService) OpsSince(ctx context.Context, docID string, fromRevision uint64, limit int) ([]AppliedOp, error) {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil {
		return nil, nil
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	var out []AppliedOp
	for _, op := range ds.opsRing {
		if op.Revision > fromRevision {
			out = append(out, op)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// SaveSnapshot 把权威 Delta 按线上 JSON 格式落盘（快照消费方要求无损往返）
func (s *InMemoryService) SaveSnapshot(ctx context.Context, docID string) error {
	if s.store == nil {
		return errors.New("snapshot store not initialized")
	}
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil || ds.buf == nil {
		return ErrDocumentNotFound
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	content, err := json.Marshal(ds.buf.Delta())
	if err != nil {
		return err
	}
	rev := ds.revision
	return s.store.SaveDocumentSnapshot(ctx, docID, rev, string(content))
}

func (s *InMemoryService) GetDocumentID(ctx context.Context, title string) (string, error) {
	if s.documentStore == nil {
		return "", errors.New("document store not initialized")
	}
	return s.documentStore.GetDocumentID(ctx, title)
}

func (s *InMemoryService) CreateDocument(ctx context.Context, ownerID uint64, title string) error {
	if s.documentStore == nil {
		return errors.New("document store not initialized")
	}
	return s.documentStore.CreateDocument(ctx, ownerID, title)
}

func (s *InMemoryService) GetUserID(ctx context.Context, username string) (uint64, error) {
	if s.userStore == nil {
		return 0, errors.New("user store not initialized")
	}
	return s.userStore.GetUserID(ctx, username)
}
