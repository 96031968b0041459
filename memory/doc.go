// Package memory provides the shared blackboard agents coordinate through.
//
// A SharedMemory instance holds two things:
//   - ContextStore: the latest document each agent published under a
//     well-known key (e.g. "latest_meeting_summary"), last write wins.
//   - VectorIndex: an append-only index of fixed-dimension embeddings with
//     exact nearest-neighbor search, used to recommend similar leads.
//
// Architecture:
//   - VectorIndex: FlatIndex in this package (cosine or squared L2), or the
//     chromem-go backed index in memory/store/chromem.
//   - Embedder: text-to-vector conversion (mock hash embedder, Ollama, and a
//     ristretto cache wrapper under memory/embedder).
//   - SharedMemory: one explicitly constructed instance, passed to every
//     agent at startup. There is no package-level singleton.
//
// Concurrency:
//   - Writes are serialized; a batch of vectors is appended atomically.
//   - Searches see the index strictly before or strictly after any batch.
//
// Nothing here is persisted; state lives for the life of the process.
package memory
