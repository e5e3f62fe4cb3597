// Package domain defines the core business entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A processed document and its descriptive metadata
//   - Chunk: An indexable unit of document text (one page segment)
//   - SearchRequest / SearchResponse: The hybrid search contract
//   - Candidate: A scored chunk reference produced by one retrieval signal
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
