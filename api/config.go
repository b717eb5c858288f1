// Package api provides the HTTP server that fronts the chat orchestrator.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// DebugRoutes registers GET /api/chat/sessions/:id for transcript inspection.
	DebugRoutes bool
}
