// Package memory implements the memory service: short text records with
// tags and metadata, kept in Redis.
//
// Records are stored as JSON strings under <prefix>:memory:<id>, with a
// sorted-set index ordered by creation time. Expired records are pruned
// from the index lazily on read.
package memory
