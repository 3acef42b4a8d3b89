// Package stores provides persistence layer implementations for txforge.
// It includes SQLite-based storage with WAL mode, connection pooling,
// and comprehensive CRUD operations for runs, construct snapshots, events,
// cached construct state, action items, and audit logs.
package stores
