// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr by default so that workload output on stdout stays
// clean. Rank-scoped loggers carry "rank" and "size" fields:
//
//	logger := logging.NewDefault()
//	rankLog := logger.ForRank(2, 4)
//	rankLog.Debug("blocking on gate", zap.Int("tag", 7))
package logging
