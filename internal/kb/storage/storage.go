// Package storage defines persistence contracts for knowledge base articles.
package storage

import (
	"context"
	"errors"

	"github.com/hyvve/hyvve/internal/kb"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ArticlePage stores a page of articles.
type ArticlePage struct {
	Articles      []kb.Article
	NextPageToken string
}

// ArticleStore persists knowledge base articles and their embeddings.
type ArticleStore interface {
	PutArticle(ctx context.Context, article kb.Article) error
	GetArticle(ctx context.Context, workspaceID, articleID string) (kb.Article, error)
	DeleteArticle(ctx context.Context, workspaceID, articleID string) error
	ListArticles(ctx context.Context, workspaceID string, pageSize int, pageToken string) (ArticlePage, error)
	ListAllArticles(ctx context.Context, workspaceID string) ([]kb.Article, error)
	ListUnindexedArticles(ctx context.Context, limit int) ([]kb.Article, error)
	PutArticleEmbedding(ctx context.Context, workspaceID, articleID string, embedding []float32) error
}
