// Package config provides 12-factor configuration for threadcomm.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Comm: number of ranks, deep-copy policy, default receive timeout
//   - Workload: demo workload name, round count and broadcast document
//   - Logging: log level and output format
//   - Metrics: HTTP surface toggle and listen address
//   - RateLimit: per-IP request limit for the HTTP surface
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("running %d ranks\n", cfg.Comm.Ranks)
//
// Environment Variables:
//   - THREADCOMM_RANKS, THREADCOMM_FORCE_DEEP_COPY, THREADCOMM_RECEIVE_TIMEOUT
//   - WORKLOAD, WORKLOAD_ROUNDS, WORKLOAD_DOCUMENT
//   - LOG_LEVEL, LOG_DEV
//   - METRICS_ENABLED, METRICS_ADDR
//   - RATE_LIMIT_ENABLED, RATE_LIMIT_RPS, RATE_LIMIT_BURST
package config
