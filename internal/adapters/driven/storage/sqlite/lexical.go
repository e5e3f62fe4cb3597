package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// BackfillBatchSize is the number of chunks indexed per backfill transaction.
const BackfillBatchSize = 500

// ==================== Write Path ====================

// ftsHook keeps chunks_fts in step with the chunks table.
// Each index row shares its rowid with the chunk's seq.
type ftsHook struct{}

var _ ChunkHook = ftsHook{}

const ftsInsert = `
	INSERT INTO chunks_fts (rowid, content, chunk_id, document_id, page_number, chunk_index, content_type)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// AfterInsert adds the chunk's index entry.
func (ftsHook) AfterInsert(ctx context.Context, tx *sql.Tx, rowid int64, chunk *domain.Chunk) error {
	_, err := tx.ExecContext(ctx, ftsInsert, rowid, chunk.Content, chunk.ID, chunk.DocumentID,
		chunk.PageNumber, chunk.ChunkIndex, chunk.ContentType)
	if err != nil {
		return fmt.Errorf("indexing chunk: %w", err)
	}
	return nil
}

// AfterUpdate replaces the chunk's index entry.
func (h ftsHook) AfterUpdate(ctx context.Context, tx *sql.Tx, rowid int64, chunk *domain.Chunk) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE rowid = ?", rowid); err != nil {
		return fmt.Errorf("removing stale index entry: %w", err)
	}
	return h.AfterInsert(ctx, tx, rowid, chunk)
}

// AfterDelete removes the chunk's index entry.
func (ftsHook) AfterDelete(ctx context.Context, tx *sql.Tx, rowid int64, _ string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE rowid = ?", rowid); err != nil {
		return fmt.Errorf("removing index entry: %w", err)
	}
	return nil
}

// ==================== Lexical Index ====================

// lexicalIndex implements driven.LexicalIndex on FTS5.
type lexicalIndex struct {
	store *Store
}

var _ driven.LexicalIndex = (*lexicalIndex)(nil)

// Search runs a BM25-ranked keyword query. Terms are OR-joined, so a chunk
// matching any term is a candidate. Scores are divided by the best raw
// score so the top hit scores 1.0.
func (l *lexicalIndex) Search(
	ctx context.Context, query string, filter domain.SearchFilter, limit int,
) ([]domain.Candidate, error) {
	results := []domain.Candidate{}

	match := matchExpression(domain.QueryTerms(query))
	if match == "" || limit <= 0 {
		return results, nil
	}

	f := buildFilterSQL(filter, "chunks_fts.document_id", "CAST(chunks_fts.page_number AS INTEGER)")
	args := append([]any{match}, f.args...)
	args = append(args, limit)

	// bm25 is lower-is-better, so it is negated into a relevance score.
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT chunks_fts.chunk_id, chunks_fts.document_id,
			CAST(chunks_fts.page_number AS INTEGER) AS page,
			CAST(chunks_fts.chunk_index AS INTEGER) AS idx,
			-bm25(chunks_fts) AS score
		FROM chunks_fts `+f.join+`
		WHERE chunks_fts MATCH ?`+f.conditions()+`
		ORDER BY score DESC, page, idx, chunks_fts.chunk_id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lexical index: %w", err)
	}
	defer rows.Close()

	best := 0.0
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.Ref.ChunkID, &c.Ref.DocumentID, &c.Ref.PageNumber,
			&c.Ref.ChunkIndex, &c.Score); err != nil {
			return nil, fmt.Errorf("scanning lexical hit: %w", err)
		}
		best = max(best, c.Score)
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lexical hits: %w", err)
	}

	for i := range results {
		if best <= 0 {
			results[i].Score = 1
			continue
		}
		results[i].Score = domain.Clamp01(results[i].Score / best)
	}

	return results, nil
}

// Backfill indexes every chunk when the index is empty. Chunks are
// processed in pages of BackfillBatchSize, one transaction per page, so an
// interrupted run keeps the pages it finished.
func (l *lexicalIndex) Backfill(ctx context.Context) (domain.BackfillResult, error) {
	var result domain.BackfillResult

	existing, err := l.countEntries(ctx)
	if err != nil {
		return result, err
	}
	if existing > 0 {
		result.Skipped = true
		result.Existing = existing
		logger.Debug("Lexical index holds %d entries, skipping backfill", existing)
		return result, nil
	}

	return l.populate(ctx)
}

// Rebuild clears the index and repopulates it from the chunks table.
func (l *lexicalIndex) Rebuild(ctx context.Context) (domain.BackfillResult, error) {
	if _, err := l.store.db.ExecContext(ctx, "DELETE FROM chunks_fts"); err != nil {
		return domain.BackfillResult{}, fmt.Errorf("clearing lexical index: %w", err)
	}
	return l.populate(ctx)
}

// Status compares the number of chunks with the number of index entries.
func (l *lexicalIndex) Status(ctx context.Context) (domain.IndexStatus, error) {
	var status domain.IndexStatus

	if err := l.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&status.Chunks); err != nil {
		return status, fmt.Errorf("counting chunks: %w", err)
	}

	entries, err := l.countEntries(ctx)
	if err != nil {
		return status, err
	}
	status.Entries = entries

	return status, nil
}

func (l *lexicalIndex) countEntries(ctx context.Context) (int, error) {
	var count int
	if err := l.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_fts").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting index entries: %w", err)
	}
	return count, nil
}

// populate indexes all chunks that have no entry yet, page by page.
func (l *lexicalIndex) populate(ctx context.Context) (domain.BackfillResult, error) {
	var result domain.BackfillResult
	var lastSeq int64

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		indexed, failed, next, err := l.populatePage(ctx, lastSeq)
		if err != nil {
			return result, err
		}
		result.Indexed += indexed
		result.Failed += failed
		if next == lastSeq {
			break
		}
		lastSeq = next
		logger.Debug("Backfill progress: %d indexed, %d failed", result.Indexed, result.Failed)
	}

	logger.Info("Lexical index backfill complete: %d indexed, %d failed", result.Indexed, result.Failed)
	return result, nil
}

// populatePage indexes up to BackfillBatchSize chunks after afterSeq and
// returns the last seq it visited. Chunks already indexed are left alone.
func (l *lexicalIndex) populatePage(ctx context.Context, afterSeq int64) (indexed, failed int, lastSeq int64, err error) {
	lastSeq = afterSeq

	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, lastSeq, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `
		SELECT seq, id, document_id, page_number, chunk_index, content, content_type
		FROM chunks
		WHERE seq > ?
		ORDER BY seq
		LIMIT ?
	`, afterSeq, BackfillBatchSize)
	if err != nil {
		return 0, 0, lastSeq, fmt.Errorf("querying chunks: %w", err)
	}

	type pending struct {
		seq   int64
		chunk domain.Chunk
	}
	page := make([]pending, 0, BackfillBatchSize)
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.seq, &p.chunk.ID, &p.chunk.DocumentID, &p.chunk.PageNumber,
			&p.chunk.ChunkIndex, &p.chunk.Content, &p.chunk.ContentType); err != nil {
			rows.Close()
			return 0, 0, lastSeq, fmt.Errorf("scanning chunk: %w", err)
		}
		page = append(page, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, lastSeq, fmt.Errorf("iterating chunks: %w", err)
	}

	hook := ftsHook{}
	for _, p := range page {
		lastSeq = p.seq

		var present int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_fts WHERE rowid = ?", p.seq).Scan(&present)
		if err != nil {
			return 0, 0, afterSeq, fmt.Errorf("probing index entry: %w", err)
		}
		if present > 0 {
			continue
		}

		if err := hook.AfterInsert(ctx, tx, p.seq, &p.chunk); err != nil {
			logger.Warn("Backfill: chunk %s: %v", p.chunk.ID, err)
			failed++
			continue
		}
		indexed++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, afterSeq, fmt.Errorf("committing transaction: %w", err)
	}
	return indexed, failed, lastSeq, nil
}

// matchExpression quotes each term and joins them with OR.
func matchExpression(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}
