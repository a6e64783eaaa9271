// Command tribunal-bridge runs the extension session bridge that connects
// scraping workers to the browser extensions users keep logged in to
// tribunal portals.
//
// Usage:
//
//	# Serve WebSocket, health and metrics endpoints
//	tribunal-bridge serve --port 8080
//
//	# Development mode (colored logs, debug level)
//	tribunal-bridge serve --dev
//
//	# Check a provider key against a saved image CAPTCHA
//	CAPTCHA_PROVIDER=2captcha CAPTCHA_API_KEY=... tribunal-bridge solve captcha.png
//
// Configuration comes from the environment (see internal/infrastructure/config);
// flags override it.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
