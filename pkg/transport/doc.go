// Package transport provides the duplex media channel: a narrow
// send/close/events contract over one persistent websocket connection.
// Connect is a single attempt with no automatic reconnection; the owner
// restarts the session after a terminal event.
package transport
