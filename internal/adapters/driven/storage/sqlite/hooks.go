package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChunkHook is notified of every chunk mutation inside the write
// transaction. rowid is the chunk's seq column. Returning an error rolls
// the mutation back.
type ChunkHook interface {
	// AfterInsert runs after a chunk row is inserted.
	AfterInsert(ctx context.Context, tx *sql.Tx, rowid int64, chunk *domain.Chunk) error

	// AfterUpdate runs after a chunk row is replaced.
	AfterUpdate(ctx context.Context, tx *sql.Tx, rowid int64, chunk *domain.Chunk) error

	// AfterDelete runs before the chunk row is removed, while it still exists.
	AfterDelete(ctx context.Context, tx *sql.Tx, rowid int64, chunkID string) error
}

// hookChain runs hooks in registration order and stops at the first error.
type hookChain []ChunkHook

func (h hookChain) afterInsert(ctx context.Context, tx *sql.Tx, rowid int64, chunk *domain.Chunk) error {
	for _, hook := range h {
		if err := hook.AfterInsert(ctx, tx, rowid, chunk); err != nil {
			return fmt.Errorf("chunk %s: %w: %w", chunk.ID, domain.ErrIndexSync, err)
		}
	}
	return nil
}

func (h hookChain) afterUpdate(ctx context.Context, tx *sql.Tx, rowid int64, chunk *domain.Chunk) error {
	for _, hook := range h {
		if err := hook.AfterUpdate(ctx, tx, rowid, chunk); err != nil {
			return fmt.Errorf("chunk %s: %w: %w", chunk.ID, domain.ErrIndexSync, err)
		}
	}
	return nil
}

func (h hookChain) afterDelete(ctx context.Context, tx *sql.Tx, rowid int64, chunkID string) error {
	for _, hook := range h {
		if err := hook.AfterDelete(ctx, tx, rowid, chunkID); err != nil {
			return fmt.Errorf("chunk %s: %w: %w", chunkID, domain.ErrIndexSync, err)
		}
	}
	return nil
}
