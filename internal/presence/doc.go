// Package presence mirrors the hub's in-memory presence state into Redis
// with TTLs, so other services in the document system can read who is
// viewing a document without holding a WebSocket connection to this hub.
package presence
