// Package tap implements the Temporal Access Protocol envelope, the
// boundary contract for remote or cross-component use of the store.
//
// A TAP message carries exactly one of a temporal operation (a write) or a
// temporal query (a read) plus temporal context. Messages serialize to plain
// nested maps: nested records render as maps and enum-valued fields render
// as their lowercase string tag, so any JSON-speaking collaborator can
// produce and consume them.
//
// Incoming raw messages are validated against an embedded CUE schema before
// dispatch; responses render deterministically via canonical JSON.
package tap
