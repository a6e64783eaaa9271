// Package server assembles the bridge process: pub/sub bus, extension
// session bridge, CAPTCHA solver, metrics and the gin router.
//
// Routes:
//   - GET /ws                     extension WebSocket endpoint
//   - GET /health                 liveness and session counts
//   - GET /users/:userId/sessions per-user session introspection
//   - GET /metrics                Prometheus exposition
package server
