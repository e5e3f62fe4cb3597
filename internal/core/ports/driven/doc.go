// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ChunkStore: Document and chunk persistence (the source of truth)
//   - LexicalIndex: Full-text search over chunks, kept in step with ChunkStore
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - search degrades to lexical ranking:
//
//   - VectorIndex: Stored chunk embeddings and similarity search.
//   - EmbeddingService: Generates query embeddings. Without it, VectorIndex is unused.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
