// Package publish ships annotation events to Kafka so downstream consumers
// in the document system can react to live annotation activity. Publication
// is asynchronous and best-effort, matching the hub's delivery semantics.
package publish
