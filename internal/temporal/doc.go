// Package temporal provides the core value types for the tapline store.
//
// This package contains type definitions, the error taxonomy, and the
// canonical JSON encoder. All other internal packages import temporal;
// temporal imports nothing internal. This keeps it the foundational layer
// with no circular dependencies.
//
// Key design constraints:
//   - Events are immutable once added to a timeline; there is no update path.
//   - Timestamps use time.Time with at least second resolution.
//   - All JSON tags use snake_case.
//   - CausalStrength is producer-asserted and distinct from the confidence
//     computed by the causality analyzer.
package temporal
