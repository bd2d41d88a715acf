package kb

import (
	"context"
	"sort"
	"strings"
)

// minSimilarity filters semantic matches with no meaningful relation to the
// query.
const minSimilarity = 0.3

// SearchResult pairs an article with its relevance score.
type SearchResult struct {
	Article Article
	Score   float64
}

// RankBySimilarity scores each indexed article against the query vector and
// returns up to limit results ordered by descending score. Articles without
// an embedding are skipped.
func RankBySimilarity(queryVector []float32, articles []Article, limit int) []SearchResult {
	results := make([]SearchResult, 0, len(articles))
	for _, article := range articles {
		if len(article.Embedding) == 0 {
			continue
		}
		score := CosineSimilarity(queryVector, article.Embedding)
		if score < minSimilarity {
			continue
		}
		results = append(results, SearchResult{Article: article, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// RankByKeyword is the fallback ranking when no embedder is configured. It
// scores articles by query-term hits across title, tags, and body.
func RankByKeyword(query string, articles []Article, limit int) []SearchResult {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(terms) == 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(articles))
	for _, article := range articles {
		title := strings.ToLower(article.Title)
		body := strings.ToLower(article.Body)
		score := 0.0
		for _, term := range terms {
			if strings.Contains(title, term) {
				score += 3
			}
			for _, tag := range article.Tags {
				if strings.Contains(tag, term) {
					score += 2
				}
			}
			if strings.Contains(body, term) {
				score++
			}
		}
		if score > 0 {
			results = append(results, SearchResult{Article: article, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Search embeds the query and ranks articles semantically, falling back to
// keyword ranking when embedder is nil or embedding fails.
func Search(ctx context.Context, embedder Embedder, query string, articles []Article, limit int) ([]SearchResult, error) {
	if embedder != nil {
		vector, err := embedder.Embed(ctx, query)
		if err == nil {
			return RankBySimilarity(vector, articles, limit), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return RankByKeyword(query, articles, limit), nil
}
