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
//   - MemoryStore: memory record persistence
//   - EmbeddingStore: per-entity-kind vector persistence and similarity search
//   - KeywordIndex: full-text BM25 search. Keyword search is always required.
//   - ConfigStore: application configuration
//   - Backlog: enumeration of entities still missing embeddings
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: accelerated nearest-neighbour search. When unavailable,
//     EmbeddingStore falls back to an exhaustive cosine scan.
//   - EmbeddingService: generates vector embeddings. Without it, search is
//     keyword-only and records are saved without vectors until a backfill.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
