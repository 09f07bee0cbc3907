// Package store is the annotation persistence collaborator: it records the
// annotation events relayed through the hub so the surrounding document
// system can serve them after the live session ends. The hub itself keeps
// no collaboration history.
package store
