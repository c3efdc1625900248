// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A loaded source document with metadata
//   - Chunk: The unit of retrieval, cut from a document
//   - IndexRecord: The persisted unit in the external search index
//   - RetrievalResult: A scored chunk returned from a query
//   - Answer: The full response to a question, with citations
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
