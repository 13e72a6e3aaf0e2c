package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrTitleTaken       = errors.New("document title already taken")
)

type DocumentStore struct{ db *sql.DB }

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// GetDocumentID 按标题查文档 ID（标题在表上有唯一索引）。
func (s *DocumentStore) GetDocumentID(ctx context.Context, title string) (string, error) {
	var docID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE title = ?`,
		title,
	).Scan(&docID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrDocumentNotFound
	}
	return docID, err
}

func (s *DocumentStore) CreateDocument(ctx context.Context, ownerID uint64, title string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (owner_id, title) VALUES (?, ?)`,
		ownerID, title,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrTitleTaken
		}
		return err
	}
	return nil
}

// ListDocumentsByOwner 返回某用户名下的全部文档标题（文档列表页用）。
func (s *DocumentStore) ListDocumentsByOwner(ctx context.Context, ownerID uint64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title FROM documents WHERE owner_id = ? ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}
