// Package monitoring provides Prometheus metrics for the rank messaging layer.
//
// Every collector owns a private prometheus.Registry. Handler exposes it in
// the Prometheus text format and Middleware times HTTP requests served next
// to it.
//
// Metric families:
//   - threadcomm_messages_sent_total / _received_total: mailbox traffic
//   - threadcomm_mailbox_pending: per-rank pending count
//   - threadcomm_receive_wait_seconds: time spent blocked on a gate
//   - threadcomm_rank_failures_total: per-rank errors by reason
//   - threadcomm_runs_total / _run_duration_seconds: coordinator executions
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.GET("/metrics", monitoring.Handler(metrics))
package monitoring
