package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// idBatchSize bounds the number of bound parameters in an IN clause.
const idBatchSize = 500

const documentColumns = `id, filename, title, author, document_type, language, topics,
	summary, page_count, creation_date, created_at, updated_at`

const chunkColumns = `c.id, c.document_id, c.page_number, c.chunk_index, c.content, c.content_type,
	c.section_path, c.token_count, c.importance, e.embedding`

const chunkFrom = `FROM chunks c LEFT JOIN chunk_embeddings e ON e.chunk_id = c.id`

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// ==================== Documents ====================

// SaveDocument stores or updates a document.
func (s *chunkStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	topics := doc.Topics
	if topics == nil {
		topics = []string{}
	}
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("marshalling topics: %w", err)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			title = excluded.title,
			author = excluded.author,
			document_type = excluded.document_type,
			language = excluded.language,
			topics = excluded.topics,
			summary = excluded.summary,
			page_count = excluded.page_count,
			creation_date = excluded.creation_date,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Filename, doc.Title, doc.Author, doc.DocumentType, doc.Language,
		string(topicsJSON), doc.Summary, doc.PageCount, nullDate(doc.CreationDate),
		doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *chunkStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)

	return scanDocument(row)
}

// ListDocuments returns all documents ordered by creation time.
func (s *chunkStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document and its chunks. Every chunk is
// removed from the indexes in the same transaction.
func (s *chunkStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", id).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return fmt.Errorf("looking up document: %w", err)
	}

	type chunkKey struct {
		seq int64
		id  string
	}
	rows, err := tx.QueryContext(ctx, "SELECT seq, id FROM chunks WHERE document_id = ? ORDER BY seq", id)
	if err != nil {
		return fmt.Errorf("querying chunks: %w", err)
	}
	var keys []chunkKey //nolint:prealloc // size unknown from query
	for rows.Next() {
		var key chunkKey
		if err := rows.Scan(&key.seq, &key.id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning chunk: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating chunks: %w", err)
	}

	for _, key := range keys {
		if err := s.store.hooks.afterDelete(ctx, tx, key.seq, key.id); err != nil {
			return err
		}
	}

	// Chunks and embeddings follow through ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Chunks ====================

// InsertChunks stores new chunks in one transaction. Any failure,
// including an index hook failure, rolls back the whole batch.
func (s *chunkStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, page_number, chunk_index, content, content_type,
			section_path, token_count, importance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunk := &chunks[i]
		sectionJSON, err := marshalSectionPath(chunk.SectionPath)
		if err != nil {
			return err
		}

		result, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.PageNumber,
			chunk.ChunkIndex, chunk.Content, chunk.ContentType, sectionJSON,
			nullInt(chunk.TokenCount), chunk.Weight())
		if err != nil {
			return chunkWriteError(chunk, err)
		}

		seq, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading chunk rowid: %w", err)
		}

		if err := s.store.hooks.afterInsert(ctx, tx, seq, chunk); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// UpdateChunk replaces an existing chunk and its index entries.
func (s *chunkStore) UpdateChunk(ctx context.Context, chunk domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	seq, err := lookupSeq(ctx, tx, chunk.ID)
	if err != nil {
		return err
	}

	sectionJSON, err := marshalSectionPath(chunk.SectionPath)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE chunks SET
			document_id = ?,
			page_number = ?,
			chunk_index = ?,
			content = ?,
			content_type = ?,
			section_path = ?,
			token_count = ?,
			importance = ?
		WHERE seq = ?
	`, chunk.DocumentID, chunk.PageNumber, chunk.ChunkIndex, chunk.Content, chunk.ContentType,
		sectionJSON, nullInt(chunk.TokenCount), chunk.Weight(), seq)
	if err != nil {
		return chunkWriteError(&chunk, err)
	}

	if err := s.store.hooks.afterUpdate(ctx, tx, seq, &chunk); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteChunk removes a chunk and its index entries.
func (s *chunkStore) DeleteChunk(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	seq, err := lookupSeq(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := s.store.hooks.afterDelete(ctx, tx, seq, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE seq = ?", seq); err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` `+chunkFrom+` WHERE c.id = ?`, id)

	return scanChunk(row)
}

// GetChunks retrieves all chunks for a document ordered by page and index.
func (s *chunkStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` `+chunkFrom+`
		WHERE c.document_id = ?
		ORDER BY c.page_number, c.chunk_index, c.id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// GetChunksByIDs retrieves the chunks with the given IDs.
func (s *chunkStore) GetChunksByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	result := make(map[string]domain.Chunk, len(ids))

	for start := 0; start < len(ids); start += idBatchSize {
		batch := ids[start:min(start+idBatchSize, len(ids))]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		rows, err := s.store.db.QueryContext(ctx,
			`SELECT `+chunkColumns+` `+chunkFrom+` WHERE c.id IN (`+placeholders(len(batch))+`)`,
			args...)
		if err != nil {
			return nil, fmt.Errorf("querying chunks: %w", err)
		}

		for rows.Next() {
			chunk, err := scanChunk(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			result[chunk.ID] = *chunk
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating chunks: %w", err)
		}
	}

	return result, nil
}

// CountChunks returns the number of live chunks.
func (s *chunkStore) CountChunks(ctx context.Context) (int, error) {
	var count int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// ==================== Helpers ====================

// lookupSeq returns the rowid of a chunk inside a transaction.
func lookupSeq(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT seq FROM chunks WHERE id = ?", id).Scan(&seq); err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("looking up chunk: %w", err)
	}
	return seq, nil
}

// chunkWriteError maps constraint violations to domain errors.
func chunkWriteError(chunk *domain.Chunk, err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("chunk %s (page %d, index %d): %w",
			chunk.ID, chunk.PageNumber, chunk.ChunkIndex, domain.ErrAlreadyExists)
	case isForeignKeyViolation(err):
		return fmt.Errorf("document %s: %w", chunk.DocumentID, domain.ErrNotFound)
	default:
		return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
	}
}

func marshalSectionPath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	data, err := json.Marshal(path)
	if err != nil {
		return "", fmt.Errorf("marshalling section path: %w", err)
	}
	return string(data), nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var topicsJSON string
	var creationDate sql.NullString

	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Title, &doc.Author, &doc.DocumentType,
		&doc.Language, &topicsJSON, &doc.Summary, &doc.PageCount, &creationDate,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if topicsJSON != "" {
		if err := json.Unmarshal([]byte(topicsJSON), &doc.Topics); err != nil {
			return nil, fmt.Errorf("unmarshaling topics: %w", err)
		}
	}

	date, err := parseDate(creationDate)
	if err != nil {
		return nil, err
	}
	doc.CreationDate = date

	return &doc, nil
}

// scanChunk scans a single chunk row.
func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var sectionJSON string
	var tokenCount sql.NullInt64
	var importance float64
	var embeddingBlob []byte

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.PageNumber, &chunk.ChunkIndex,
		&chunk.Content, &chunk.ContentType, &sectionJSON, &tokenCount, &importance,
		&embeddingBlob); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	if sectionJSON != "" {
		if err := json.Unmarshal([]byte(sectionJSON), &chunk.SectionPath); err != nil {
			return nil, fmt.Errorf("unmarshaling section path: %w", err)
		}
	}
	if len(chunk.SectionPath) == 0 {
		chunk.SectionPath = nil
	}

	if tokenCount.Valid {
		n := int(tokenCount.Int64)
		chunk.TokenCount = &n
	}
	chunk.Importance = &importance

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	return &chunk, nil
}
