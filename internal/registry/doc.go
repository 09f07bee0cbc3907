// Package registry tracks which participants are connected to which
// document and their last-known cursor positions.
//
// The registry is a pure data structure: no I/O, no goroutines. All five
// operations are atomic per document via a lock shard keyed by document id;
// operations on independent documents run in parallel.
package registry
