// Package hub implements the real-time collaboration hub: the Session
// Gateway that owns each WebSocket connection's lifecycle and the Broadcast
// Router that fans inbound events out to the other participants of the same
// document.
//
// Delivery is best-effort and at-most-once: no acks, no retries, no
// persistence of the event stream. Events from one sender reach each
// recipient in the order sent; there is no ordering guarantee across
// senders beyond router arrival order, and the server timestamp on every
// outbound event is the only ordering signal receivers get.
package hub
