// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Subsystems take a *zap.Logger and name themselves, so every line from the
// script bridge, the relay or the metadata pipeline carries its component:
//
//	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
//	relayLog := logger.Component("relay")
//	relayLog.Debug("dropped malformed script-response", zap.String("source", label))
package logging
