package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"richdocServer/backend/internal/cache"
	"richdocServer/backend/internal/collab"
	"richdocServer/backend/internal/format"
	"richdocServer/backend/internal/mysqldb"
	"richdocServer/backend/internal/ot/delta"
)

// DocumentHandler 暴露文档的 REST 读路径。
// 实时编辑走 WebSocket，这里负责创建、内容读取（走缓存）和统计。
type DocumentHandler struct {
	svc      collab.Service
	contents cache.ContentCache
	stats    mysqldb.DocStatsRepo
}

func NewDocumentHandler(svc collab.Service, contents cache.ContentCache, stats mysqldb.DocStatsRepo) *DocumentHandler {
	return &DocumentHandler{svc: svc, contents: contents, stats: stats}
}

type createDocReq struct {
	Title string `json:"title" binding:"required"`
}

func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	ownerID := c.GetUint64("userId")
	if ownerID == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createDocReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.CreateDocument(c.Request.Context(), ownerID, req.Title); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	docID, err := h.svc.GetDocumentID(c.Request.Context(), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"docId":     docID,
		"ownerId":   ownerID,
		"title":     req.Title,
		"createdAt": time.Now().Format(time.RFC3339),
	})
}

// GetDocumentContent 读文档内容，走 Redis cache-aside，未命中回源协作引擎。
func (h *DocumentHandler) GetDocumentContent(c *gin.Context) {
	docID := c.Param("docID")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document ID missing"})
		return
	}

	ctx := c.Request.Context()
	cc, exists, err := h.contents.GetContent(ctx, docID, func() (cache.CachedContent, bool, error) {
		content, rev, err := h.svc.LoadDocumentContent(ctx, docID)
		if err != nil {
			if errors.Is(err, collab.ErrDocumentNotFound) {
				return cache.CachedContent{}, false, nil
			}
			return cache.CachedContent{}, false, err
		}
		b, err := json.Marshal(content)
		if err != nil {
			return cache.CachedContent{}, false, err
		}
		return cache.CachedContent{Revision: rev, Delta: string(b)}, true, nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"code": "DOCUMENT_NOT_FOUND", "message": "document not found"})
		return
	}

	// 缓存里存的是 ops-list JSON，回包前还原成结构化 Delta
	var d delta.Delta
	if err := json.Unmarshal([]byte(cc.Delta), &d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "corrupt cached content"})
		return
	}

	if h.stats != nil {
		if err := h.stats.AddView(ctx, docID); err != nil {
			log.Printf("add view count error: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"docId":    docID,
		"revision": cc.Revision,
		"delta":    d,
	})
}

type formatReq struct {
	Index  int    `json:"index"`
	Length int    `json:"length"`
	Key    string `json:"key" binding:"required"`
	Value  any    `json:"value"`
	// 区分“值为 null（移除属性）”和“没带值”
	HasValue bool `json:"hasValue"`
}

// FormatDocument 是格式化的 REST 入口（WebSocket 之外的备用通道，
// 脚本/服务端集成用）。补丁同样经协作引擎并入并广播事件。
func (h *DocumentHandler) FormatDocument(c *gin.Context) {
	docID := c.Param("docID")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document ID missing"})
		return
	}
	var req formatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Index < 0 || req.Length < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index and length must be non-negative"})
		return
	}
	// 引擎把违反 embed 前置条件当作调用方编程错误（panic），
	// 对外部输入要先挡在门口
	if req.Key == format.KeyStyle && req.Length != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "style requires length == 1"})
		return
	}

	attr := format.Attribute{Key: req.Key}
	if req.HasValue {
		attr.Value = req.Value
	}
	applied, err := h.svc.Format(c.Request.Context(), docID, c.GetUint64("userId"), req.Index, req.Length, attr, nil)
	if err != nil {
		if errors.Is(err, collab.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "DOCUMENT_NOT_FOUND", "message": "document not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.contents.Invalidate(ctx, docID); err != nil {
		log.Printf("invalidate content cache error (doc=%s): %v", docID, err)
	}
	if h.stats != nil {
		if err := h.stats.AddFormat(ctx, docID); err != nil {
			log.Printf("add format count error: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"docId":           docID,
		"currentRevision": applied.Revision,
		"patch":           applied.Ops,
	})
}

func (h *DocumentHandler) GetDocStats(c *gin.Context) {
	docID := c.Param("docID")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document ID missing"})
		return
	}
	stats, err := h.stats.GetDocStats(c.Request.Context(), docID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if stats == nil {
		c.JSON(http.StatusOK, gin.H{
			"docId": docID, "viewCount": 0, "editCount": 0, "formatCount": 0, "likeCount": 0,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"docId":       stats.DocID,
		"viewCount":   stats.ViewCount,
		"editCount":   stats.EditCount,
		"formatCount": stats.FormatCount,
		"likeCount":   stats.LikeCount,
	})
}

func (h *DocumentHandler) LikeDocument(c *gin.Context) {
	docID := c.Param("docID")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document ID missing"})
		return
	}
	if err := h.stats.AddLike(c.Request.Context(), docID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"docId": docID})
}
