// Package engine orchestrates the timeline registry.
//
// The engine owns a mapping of timeline id to Timeline, seeded with "main"
// at construction. Every operation is addressed by timeline id; the engine
// resolves the id and delegates to the timeline, the causality analyzer, or
// the what-if machinery. There is no global mutable state beyond the
// registry itself.
//
// Concurrency:
//   - Reads may run concurrently with each other.
//   - Writes are exclusive per timeline, independent across timelines.
//   - Forking is atomic with respect to the parent at the instant of the
//     call; there are no cross-timeline transactions.
//   - What-if metric projection runs without any lock on the source
//     timeline; only the fork step is exclusive.
package engine
