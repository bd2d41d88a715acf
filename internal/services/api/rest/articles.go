package rest

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	"github.com/hyvve/hyvve/internal/kb"
	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
)

const defaultSearchLimit = 10

type articleResponse struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags,omitempty"`
	AuthorID  string   `json:"author_id"`
	Indexed   bool     `json:"indexed"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func articleToResponse(article kb.Article) articleResponse {
	return articleResponse{
		ID:        article.ID,
		Title:     article.Title,
		Body:      article.Body,
		Tags:      article.Tags,
		AuthorID:  article.AuthorID,
		Indexed:   len(article.Embedding) > 0,
		CreatedAt: article.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: article.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type articlePageResponse struct {
	Articles      []articleResponse `json:"articles"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

func (h *Handler) handleListArticles(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	pageSize, afterID, err := pageParams(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.articles.ListArticles(r.Context(), scope.ID, pageSize, afterID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := articlePageResponse{
		Articles:      make([]articleResponse, 0, len(page.Articles)),
		NextPageToken: nextPageToken(page.NextPageToken, ""),
	}
	for _, article := range page.Articles {
		response.Articles = append(response.Articles, articleToResponse(article))
	}
	writeJSON(w, http.StatusOK, response)
}

type createArticleRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

func (h *Handler) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	var req createArticleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	article, err := kb.CreateArticle(kb.CreateArticleInput{
		WorkspaceID: scope.ID,
		Title:       req.Title,
		Body:        req.Body,
		Tags:        req.Tags,
		AuthorID:    requestctx.UserIDFromContext(r.Context()),
	}, h.now, h.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.articles.PutArticle(r.Context(), article); err != nil {
		writeError(w, err)
		return
	}

	h.indexArticle(r, &article)
	h.record(r, activity.KindArticlePublished, article.ID, fmt.Sprintf("published %q", article.Title))
	writeJSON(w, http.StatusCreated, articleToResponse(article))
}

// indexArticle embeds the article inline when an embedder is configured.
// Embedding failures log and leave the article for the maintenance indexer.
func (h *Handler) indexArticle(r *http.Request, article *kb.Article) {
	if h.embedder == nil {
		return
	}
	vector, err := h.embedder.Embed(r.Context(), article.IndexText())
	if err != nil {
		log.Printf("api: embed article %s: %v", article.ID, err)
		return
	}
	if err := h.articles.PutArticleEmbedding(r.Context(), article.WorkspaceID, article.ID, vector); err != nil {
		log.Printf("api: store embedding for article %s: %v", article.ID, err)
		return
	}
	article.Embedding = vector
}

func (h *Handler) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	article, err := h.articles.GetArticle(r.Context(), scope.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeArticleNotFound, "article not found"))
		return
	}
	writeJSON(w, http.StatusOK, articleToResponse(article))
}

type updateArticleRequest struct {
	Title *string   `json:"title"`
	Body  *string   `json:"body"`
	Tags  *[]string `json:"tags"`
}

func (h *Handler) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	article, err := h.articles.GetArticle(r.Context(), scope.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeArticleNotFound, "article not found"))
		return
	}

	var req updateArticleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	input := kb.CreateArticleInput{
		WorkspaceID: article.WorkspaceID,
		Title:       article.Title,
		Body:        article.Body,
		Tags:        article.Tags,
		AuthorID:    article.AuthorID,
	}
	if req.Title != nil {
		input.Title = *req.Title
	}
	if req.Body != nil {
		input.Body = *req.Body
	}
	if req.Tags != nil {
		input.Tags = *req.Tags
	}

	normalized, err := kb.NormalizeCreateArticleInput(input)
	if err != nil {
		writeError(w, err)
		return
	}

	article.Title = normalized.Title
	article.Body = normalized.Body
	article.Tags = normalized.Tags
	article.Embedding = nil
	article.UpdatedAt = h.now().UTC()

	if err := h.articles.PutArticle(r.Context(), article); err != nil {
		writeError(w, err)
		return
	}

	h.indexArticle(r, &article)
	writeJSON(w, http.StatusOK, articleToResponse(article))
}

func (h *Handler) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	if err := h.articles.DeleteArticle(r.Context(), scope.ID, r.PathValue("id")); err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeArticleNotFound, "article not found"))
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type searchResultResponse struct {
	Article articleResponse `json:"article"`
	Score   float64         `json:"score"`
}

type searchResponse struct {
	Results []searchResultResponse `json:"results"`
}

func (h *Handler) handleSearchArticles(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "query parameter q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	articles, err := h.articles.ListAllArticles(r.Context(), scope.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := kb.Search(r.Context(), h.embedder, query, articles, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	response := searchResponse{Results: make([]searchResultResponse, 0, len(results))}
	for _, result := range results {
		response.Results = append(response.Results, searchResultResponse{
			Article: articleToResponse(result.Article),
			Score:   result.Score,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
