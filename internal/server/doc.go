// Package server provides the HTTP surface of the threadcomm CLI.
//
// Routes:
//   - GET  /health        liveness and uptime
//   - GET  /metrics       Prometheus text format
//   - GET  /metrics/json  counter snapshot
//   - GET  /workloads     registered workloads
//   - GET  /runs/last     summary of the most recent run
//   - POST /runs          run a workload: {"workload": "ring", "ranks": 4, "rounds": 3}
//
// Middleware stack: recovery, tracing, request metrics, CORS and an optional
// per-IP rate limit.
//
// Example Usage:
//
//	srv := server.NewServer(server.Config{Addr: ":9464"}, runner, metrics, tracer, logger)
//	go srv.Run()
//	defer srv.Shutdown(ctx)
package server
