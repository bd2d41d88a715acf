package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/kb"
	kbstorage "github.com/hyvve/hyvve/internal/kb/storage"
)

const articleColumns = `id, workspace_id, title, body, tags, author_id, embedding, created_at, updated_at`

// PutArticle persists a knowledge base article. The embedding column is
// left untouched on update so re-indexing stays a separate write.
func (s *Store) PutArticle(ctx context.Context, article kb.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(article.ID) == "" {
		return fmt.Errorf("article id is required")
	}

	tags, err := encodeStrings(article.Tags)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO articles (
	id, workspace_id, title, body, tags, author_id, embedding, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	body = excluded.body,
	tags = excluded.tags,
	embedding = NULL,
	updated_at = excluded.updated_at
`,
		article.ID,
		article.WorkspaceID,
		article.Title,
		article.Body,
		tags,
		article.AuthorID,
		encodeVector(article.Embedding),
		toMillis(article.CreatedAt),
		toMillis(article.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put article: %w", err)
	}
	return nil
}

// GetArticle fetches one article scoped to a workspace.
func (s *Store) GetArticle(ctx context.Context, workspaceID, articleID string) (kb.Article, error) {
	if err := ctx.Err(); err != nil {
		return kb.Article{}, err
	}
	if s == nil || s.sqlDB == nil {
		return kb.Article{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(articleID))
	return scanArticle(row.Scan)
}

// DeleteArticle removes one article.
func (s *Store) DeleteArticle(ctx context.Context, workspaceID, articleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM articles
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(articleID))
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete article rows affected: %w", err)
	}
	if affected == 0 {
		return kbstorage.ErrNotFound
	}
	return nil
}

// ListArticles returns a page of articles ordered by ID.
func (s *Store) ListArticles(ctx context.Context, workspaceID string, pageSize int, pageToken string) (kbstorage.ArticlePage, error) {
	if err := ctx.Err(); err != nil {
		return kbstorage.ArticlePage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return kbstorage.ArticlePage{}, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return kbstorage.ArticlePage{}, fmt.Errorf("workspace id is required")
	}
	pageSize = clampPageSize(pageSize)

	limit := pageSize + 1
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE workspace_id = ? AND id > ?
ORDER BY id
LIMIT ?
`, workspaceID, strings.TrimSpace(pageToken), limit)
	if err != nil {
		return kbstorage.ArticlePage{}, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	page := kbstorage.ArticlePage{Articles: make([]kb.Article, 0, pageSize)}
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return kbstorage.ArticlePage{}, err
		}
		page.Articles = append(page.Articles, article)
	}
	if err := rows.Err(); err != nil {
		return kbstorage.ArticlePage{}, fmt.Errorf("iterate article rows: %w", err)
	}

	if len(page.Articles) > pageSize {
		page.NextPageToken = page.Articles[pageSize-1].ID
		page.Articles = page.Articles[:pageSize]
	}
	return page, nil
}

// ListAllArticles lists every article in a workspace, for search ranking.
func (s *Store) ListAllArticles(ctx context.Context, workspaceID string) ([]kb.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE workspace_id = ?
ORDER BY id
`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list all articles: %w", err)
	}
	defer rows.Close()

	var articles []kb.Article
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}
	return articles, nil
}

// ListUnindexedArticles returns articles still waiting for an embedding,
// oldest first.
func (s *Store) ListUnindexedArticles(ctx context.Context, limit int) ([]kb.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE embedding IS NULL OR length(embedding) = 0
ORDER BY updated_at, id
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unindexed articles: %w", err)
	}
	defer rows.Close()

	var articles []kb.Article
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}
	return articles, nil
}

// PutArticleEmbedding stores the embedding vector for one article.
func (s *Store) PutArticleEmbedding(ctx context.Context, workspaceID, articleID string, embedding []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE articles
SET embedding = ?
WHERE workspace_id = ? AND id = ?
`, encodeVector(embedding), strings.TrimSpace(workspaceID), strings.TrimSpace(articleID))
	if err != nil {
		return fmt.Errorf("put article embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put article embedding rows affected: %w", err)
	}
	if affected == 0 {
		return kbstorage.ErrNotFound
	}
	return nil
}

func scanArticle(scan func(...any) error) (kb.Article, error) {
	var article kb.Article
	var tags string
	var embedding []byte
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&article.ID,
		&article.WorkspaceID,
		&article.Title,
		&article.Body,
		&tags,
		&article.AuthorID,
		&embedding,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return kb.Article{}, kbstorage.ErrNotFound
		}
		return kb.Article{}, fmt.Errorf("scan article: %w", err)
	}
	decodedTags, err := decodeStrings(tags)
	if err != nil {
		return kb.Article{}, err
	}
	article.Tags = decodedTags
	article.Embedding = decodeVector(embedding)
	article.CreatedAt = fromMillis(createdAt)
	article.UpdatedAt = fromMillis(updatedAt)
	return article, nil
}
