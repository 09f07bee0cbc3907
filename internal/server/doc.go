// Package server wires the collaboration hub to HTTP: the WebSocket
// upgrade endpoint at /ws/collaborate/{document_id}/{user_id} and the
// request/response snapshot reads under /collaborate/.
package server
