// Package session implements the durable, append-only conversation log.
// A Store owns one SQLite database file, the token accounting for every
// message written through it, and the read-time context-window truncation
// that keeps replayed history within the configured token budget. Messages
// are never mutated or deleted; truncation is a projection applied on read.
package session
