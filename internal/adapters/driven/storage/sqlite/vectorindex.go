package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ==================== Write Path ====================

// embeddingHook persists embeddings carried on chunk writes.
// A chunk written without an embedding keeps the one it already has.
type embeddingHook struct{}

var _ ChunkHook = embeddingHook{}

// AfterInsert stores the chunk's embedding, if any.
func (embeddingHook) AfterInsert(ctx context.Context, tx *sql.Tx, _ int64, chunk *domain.Chunk) error {
	if len(chunk.Embedding) == 0 {
		return nil
	}
	return upsertEmbedding(ctx, tx, chunk.ID, chunk.Embedding)
}

// AfterUpdate replaces the chunk's embedding when one is supplied.
func (h embeddingHook) AfterUpdate(ctx context.Context, tx *sql.Tx, rowid int64, chunk *domain.Chunk) error {
	return h.AfterInsert(ctx, tx, rowid, chunk)
}

// AfterDelete removes the chunk's embedding.
func (embeddingHook) AfterDelete(ctx context.Context, tx *sql.Tx, _ int64, chunkID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_embeddings WHERE chunk_id = ?", chunkID); err != nil {
		return fmt.Errorf("deleting embedding: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertEmbedding(ctx context.Context, db execer, chunkID string, embedding []float32) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO chunk_embeddings (chunk_id, dimensions, embedding, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			dimensions = excluded.dimensions,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`, chunkID, len(embedding), float32SliceToBytes(embedding), time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
		}
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// ==================== Vector Index ====================

// vectorIndex implements driven.VectorIndex with an exhaustive cosine scan
// over the stored embeddings.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Add stores or replaces the embedding of an existing chunk.
func (v *vectorIndex) Add(ctx context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding is empty", domain.ErrInvalidInput)
	}
	return upsertEmbedding(ctx, v.store.db, chunkID, embedding)
}

// Delete removes the embedding of a chunk.
func (v *vectorIndex) Delete(ctx context.Context, chunkID string) error {
	result, err := v.store.db.ExecContext(ctx, "DELETE FROM chunk_embeddings WHERE chunk_id = ?", chunkID)
	if err != nil {
		return fmt.Errorf("deleting embedding: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Search returns the k chunks most similar to query. Similarity is
// 1 - cosine distance clamped to [0,1]. Embeddings of a different
// dimensionality or with zero magnitude are skipped. Each candidate carries
// its chunk's importance; ranking by it is left to the caller.
func (v *vectorIndex) Search(
	ctx context.Context, query []float32, k int, filter domain.SearchFilter,
) ([]domain.Candidate, error) {
	results := []domain.Candidate{}
	if k <= 0 {
		return results, nil
	}

	q := search.Float32s(query)
	if len(query) == 0 || q.Magnitude() == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", domain.ErrInvalidInput)
	}

	f := buildFilterSQL(filter, "c.document_id", "c.page_number")
	args := append([]any{len(query)}, f.args...)

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.page_number, c.chunk_index, c.importance, e.embedding
		FROM chunk_embeddings e
		JOIN chunks c ON c.id = e.chunk_id `+f.join+`
		WHERE e.dimensions = ?`+f.conditions(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Candidate
		var importance float64
		var blob []byte
		if err := rows.Scan(&c.Ref.ChunkID, &c.Ref.DocumentID, &c.Ref.PageNumber,
			&c.Ref.ChunkIndex, &importance, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}

		vec := search.Float32s(bytesToFloat32Slice(blob))
		if len(vec) != len(query) || vec.Magnitude() == 0 {
			continue
		}

		c.Score = domain.Clamp01(1 - float64(q.CosineDistance(vec)))
		c.Importance = &importance
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ref.Less(results[j].Ref)
	})
	if len(results) > k {
		results = results[:k]
	}

	logger.Debug("Vector scan: %d candidates", len(results))
	return results, nil
}
