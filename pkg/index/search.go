package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harun/ingat/pkg/store"
)

const candidateLimit = 200

// Result is one ranked search hit.
type Result struct {
	Category store.Category `json:"category"`
	Filename string         `json:"filename"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	LexScore *float64       `json:"lexical_score,omitempty"`
	SemScore *float64       `json:"semantic_score,omitempty"`
}

type signalHit struct {
	id    string
	score float64
}

// Search ranks entries against query, blending the lexical and semantic
// signals. An empty category searches everywhere. Empty or whitespace
// queries return no results and no error.
func (ix *Index) Search(ctx context.Context, query string, category store.Category, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	ix.mu.Lock()
	needsReconcile := !ix.built || ix.stale
	ix.mu.Unlock()
	if needsReconcile {
		if err := ix.reconcile(ctx); err != nil {
			return nil, fmt.Errorf("failed to reconcile index before search: %w", err)
		}
	}

	lexical, lexErr := ix.lexicalSearch(ctx, query, category)
	if lexErr != nil {
		ix.logger.Warn().Err(lexErr).Msg("Lexical search failed")
	}

	var semantic []signalHit
	var semErr error
	if ix.provider != nil && ix.vecAvailable {
		semantic, semErr = ix.semanticSearch(ctx, query, category)
		if semErr != nil {
			// Provider failure degrades this call's semantic component to
			// unavailable, never the whole search.
			ix.logger.Warn().Err(semErr).Msg("Semantic search unavailable for this query")
		}
	}

	if lexErr != nil && ix.provider == nil {
		return nil, fmt.Errorf("search failed: %w", lexErr)
	}
	if lexErr != nil && semErr != nil {
		return nil, fmt.Errorf("both search signals failed: %w", lexErr)
	}

	merged := hybridMerge(lexical, semantic, ix.alpha, limit)
	return ix.resolve(merged)
}

// lexicalSearch prefers FTS5 and degrades to the substring scan with the
// same result membership when FTS5 is unavailable.
func (ix *Index) lexicalSearch(ctx context.Context, query string, category store.Category) ([]signalHit, error) {
	if ix.ftsAvailable {
		hits, err := ix.ftsSearch(ctx, query, category)
		if err == nil {
			return hits, nil
		}
		ix.logger.Warn().Err(err).Msg("FTS query failed, falling back to substring scan")
	}
	return ix.substringSearch(ctx, query, category)
}

func (ix *Index) ftsSearch(ctx context.Context, query string, category store.Category) ([]signalHit, error) {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	match := strings.Join(quoted, " OR ")

	sqlQuery := `
		SELECT f.record_id, bm25(records_fts) AS score
		FROM records_fts f
		JOIN records r ON r.id = f.record_id
		WHERE records_fts MATCH ?
	`
	args := []interface{}{match}
	if category != "" {
		sqlQuery += " AND r.category = ?"
		args = append(args, category.String())
	}
	sqlQuery += " ORDER BY score LIMIT ?"
	args = append(args, candidateLimit)

	rows, err := ix.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []signalHit
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		// BM25 scores are negative, better matches more so.
		hits = append(hits, signalHit{id: id, score: -score})
	}
	return hits, rows.Err()
}

// substringSearch scores LIKE-style matches. The score expression is
// computed inside a subquery and filtered in the outer query: SQLite cannot
// reference a computed column in the WHERE clause of the same SELECT.
func (ix *Index) substringSearch(ctx context.Context, query string, category store.Category) ([]signalHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var expr strings.Builder
	args := make([]interface{}, 0, len(terms)*2+2)
	for i, term := range terms {
		if i > 0 {
			expr.WriteString(" + ")
		}
		expr.WriteString("(CASE WHEN instr(lower(title), ?) > 0 THEN 2.0 ELSE 0.0 END + CASE WHEN instr(lower(content), ?) > 0 THEN 1.0 ELSE 0.0 END)")
		args = append(args, term, term)
	}

	sqlQuery := fmt.Sprintf(`
		SELECT record_id, score FROM (
			SELECT id AS record_id, category, %s AS score
			FROM records
		)
		WHERE score > 0
	`, expr.String())
	if category != "" {
		sqlQuery += " AND category = ?"
		args = append(args, category.String())
	}
	sqlQuery += " ORDER BY score DESC, record_id ASC LIMIT ?"
	args = append(args, candidateLimit)

	rows, err := ix.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []signalHit
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		hits = append(hits, signalHit{id: id, score: score})
	}
	return hits, rows.Err()
}

// semanticSearch ranks records by cosine similarity between the query's
// embedding and each stored embedding.
func (ix *Index) semanticSearch(ctx context.Context, query string, category store.Category) ([]signalHit, error) {
	embedding, err := ix.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	blob, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query embedding: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT record_id, vec_distance_cosine(embedding, ?) AS distance
		FROM embeddings
		ORDER BY distance ASC
		LIMIT ?
	`, string(blob), candidateLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefix := ""
	if category != "" {
		prefix = category.String() + "/"
	}

	var hits []signalHit
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, err
		}
		if prefix != "" && !strings.HasPrefix(id, prefix) {
			continue
		}
		// Cosine distance in [0,2] maps to similarity in [-1,1].
		hits = append(hits, signalHit{id: id, score: 1.0 - distance})
	}
	return hits, rows.Err()
}

// resolve fetches record details for merged hits, preserving their order.
func (ix *Index) resolve(merged []mergedHit) ([]Result, error) {
	results := make([]Result, 0, len(merged))
	for _, m := range merged {
		var r Result
		var category string
		err := ix.db.QueryRow(
			"SELECT category, filename, title, content FROM records WHERE id = ?", m.id,
		).Scan(&category, &r.Filename, &r.Title, &r.Content)
		if err != nil {
			ix.logger.Warn().Err(err).Str("record", m.id).Msg("Failed to resolve record details")
			continue
		}
		r.Category = store.Category(category)
		r.Score = m.score
		r.LexScore = m.lexScore
		r.SemScore = m.semScore
		results = append(results, r)
	}
	return results, nil
}
