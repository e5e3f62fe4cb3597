// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple interfaces
// through a single database connection:
//
//   - ChunkStore: Document and chunk persistence
//   - LexicalIndex: FTS5 full-text index with BM25 ranking
//   - VectorIndex: Stored chunk embeddings with cosine similarity search
//
// # Index Sync
//
// The lexical and vector indexes are kept in step with the chunks table by
// ChunkHook implementations that run inside the chunk write transaction.
// A failing hook rolls the whole write back. No triggers are involved, so
// every write path is visible in Go.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docchat/data/docchat.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
