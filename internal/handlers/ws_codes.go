// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby handlers. These provide
// more specific reasons for closure than the standard codes.
const (
	CloseSlowConsumer  = 4000 // Outbound queue overflowed; the client stopped reading.
	CloseProtocolAbuse = 4001 // Client sent binary or otherwise unusable frames.
)
