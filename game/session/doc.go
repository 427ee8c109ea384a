// Package session manages game session lifecycle and storage.
//
// The Manager is the process-wide registry mapping session identifiers to
// live games. It is the only shared mutable resource: operations on
// different sessions proceed independently, while every mutation of a single
// session funnels through that session's own lock via Session.Do.
//
// The package also defines the SnapshotStore interface for persisting
// session state, with a file-based implementation. When a snapshot store is
// configured, the manager transparently recovers sessions that are no longer
// in memory, which is how a client reconnects after a server restart or an
// idle-session eviction.
//
// Snapshot writes are best-effort: a failed save is logged by the caller and
// never fails the in-memory operation.
package session
