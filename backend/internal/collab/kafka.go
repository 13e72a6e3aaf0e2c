package collab

import (
	"time"

	"richdocServer/backend/internal/ot/delta"
)

const (
	EventOpApplied     = "OP_APPLIED"
	EventFormatApplied = "FORMAT_APPLIED"
)

type DocOpEvent struct {
	EventType    string      `json:"eventType"` // OP_APPLIED / FORMAT_APPLIED
	DocID        string      `json:"docId"`
	OperationID  string      `json:"operationId"`
	Revision     uint64      `json:"revision"`
	AuthorID     uint64      `json:"authorId"`
	ClientID     string      `json:"clientId,omitempty"`
	ClientSeq    uint64      `json:"clientSeq,omitempty"` // 针对同一个 clientId 的“本地递增序号”
	BaseRevision uint64      `json:"baseRevision"`
	Ops          delta.Delta `json:"ops"`
	AppliedAt    time.Time   `json:"appliedAt"`
}
