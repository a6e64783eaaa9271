// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *Logger and scope it with Named, e.g. the bridge
// logs under "bridge" and the CAPTCHA engine under "captcha". Tests pass
// NewNop().
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Bridge starting", zap.String("port", "8080"))
//	logger.Error("Failed to publish", zap.Error(err))
package logging
