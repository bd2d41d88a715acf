// Package kb defines knowledge base articles and semantic search over them.
package kb

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
)

// ErrEmptyTitle indicates a missing article title.
var ErrEmptyTitle = apperrors.New(apperrors.CodeArticleTitleEmpty, "article title is required")

// Article represents one knowledge base article.
type Article struct {
	ID          string
	WorkspaceID string
	Title       string
	Body        string
	Tags        []string
	AuthorID    string
	// Embedding is the semantic vector for Title and Body; empty until the
	// article has been indexed.
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateArticleInput describes the metadata needed to create an article.
type CreateArticleInput struct {
	WorkspaceID string
	Title       string
	Body        string
	Tags        []string
	AuthorID    string
}

// CreateArticle creates an article with a generated ID and timestamps.
func CreateArticle(input CreateArticleInput, now func() time.Time, idGenerator func() (string, error)) (Article, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateArticleInput(input)
	if err != nil {
		return Article{}, err
	}

	articleID, err := idGenerator()
	if err != nil {
		return Article{}, fmt.Errorf("generate article id: %w", err)
	}

	createdAt := now().UTC()
	return Article{
		ID:          articleID,
		WorkspaceID: normalized.WorkspaceID,
		Title:       normalized.Title,
		Body:        normalized.Body,
		Tags:        normalized.Tags,
		AuthorID:    normalized.AuthorID,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateArticleInput trims and validates article input metadata.
func NormalizeCreateArticleInput(input CreateArticleInput) (CreateArticleInput, error) {
	input.WorkspaceID = strings.TrimSpace(input.WorkspaceID)
	if input.WorkspaceID == "" {
		return CreateArticleInput{}, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace id is required")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return CreateArticleInput{}, ErrEmptyTitle
	}
	input.Body = strings.TrimSpace(input.Body)
	input.AuthorID = strings.TrimSpace(input.AuthorID)

	tags := make([]string, 0, len(input.Tags))
	seen := make(map[string]bool, len(input.Tags))
	for _, tag := range input.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	input.Tags = tags
	return input, nil
}

// IndexText is the text an article's embedding is computed from.
func (a Article) IndexText() string {
	if a.Body == "" {
		return a.Title
	}
	return a.Title + "\n\n" + a.Body
}
