package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
	"github.com/GriffinCanCode/threadcomm/internal/comm/payload"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/config"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/logging"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/threadcomm/internal/server"
	"github.com/GriffinCanCode/threadcomm/internal/workload"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	stopTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitUsage
	}

	flags := flag.NewFlagSet("threadcomm", flag.ContinueOnError)
	flags.SetOutput(stderr)
	name := flags.String("workload", cfg.Workload.Name, "Workload to run")
	ranks := flags.Int("ranks", cfg.Comm.Ranks, "Number of ranks")
	rounds := flags.Int("rounds", cfg.Workload.Rounds, "Rounds per workload")
	deep := flags.Bool("deep", cfg.Comm.ForceDeepCopy, "Deep-copy payloads on send")
	document := flags.String("document", cfg.Workload.Document, "Document file for the broadcast workload")
	asJSON := flags.Bool("json", false, "Print the run summary as JSON")
	list := flags.Bool("list", false, "List workloads and exit")
	serve := flags.Bool("serve", cfg.Metrics.Enabled, "Serve metrics and run reports until interrupted")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if *ranks < 1 || *rounds < 1 {
		fmt.Fprintln(stderr, "ranks and rounds must be at least 1")
		return exitUsage
	}
	if *ranks > cfg.Comm.MaxRanks {
		fmt.Fprintf(stderr, "ranks must not exceed %d\n", cfg.Comm.MaxRanks)
		return exitUsage
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitUsage
	}
	defer logger.Sync()

	registry := workload.NewDefaultRegistry()
	if *list {
		for _, info := range registry.List() {
			fmt.Fprintf(stdout, "%-10s %s\n", info.Name, info.Description)
		}
		return exitOK
	}

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("threadcomm", logger.Logger)
	defer tracer.Close()

	coord, err := comm.NewCoordinator(*ranks, comm.Options{
		ForceDeepCopy:  *deep,
		ReceiveTimeout: cfg.Comm.ReceiveTimeout,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		logger.Error("Failed to create coordinator", zap.Error(err))
		return exitUsage
	}
	coord.WithTracer(tracer)

	runner := workload.NewRunner(registry, coord, logger).WithMaxRanks(cfg.Comm.MaxRanks)
	if *document != "" {
		doc, err := loadDocument(*document)
		if err != nil {
			logger.Error("Failed to load document", zap.String("path", *document), zap.Error(err))
			return exitUsage
		}
		runner.WithDocument(doc)
	}

	var srv *server.Server
	if *serve {
		srvCfg := server.Config{Addr: cfg.Metrics.Addr, Development: cfg.Logging.Development}
		if cfg.RateLimit.Enabled {
			srvCfg.RateLimit = &server.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				Burst:             cfg.RateLimit.Burst,
			}
		}
		srv = server.NewServer(srvCfg, runner, metrics, tracer, logger)
		go func() {
			if err := srv.Run(); err != nil {
				logger.Error("HTTP server error", zap.Error(err))
			}
		}()
	}

	summary, err := runner.Run(ctx, workload.Request{Workload: *name, Rounds: *rounds})
	if err != nil {
		logger.Error("Run failed", zap.String("workload", *name), zap.Error(err))
		shutdown(srv, logger)
		if errors.Is(err, workload.ErrUnknownWorkload) {
			return exitUsage
		}
		return exitFailed
	}

	if err := printSummary(stdout, summary, *asJSON); err != nil {
		logger.Error("Failed to print summary", zap.Error(err))
	}

	if srv != nil {
		logger.Info("Serving until interrupted", zap.String("addr", cfg.Metrics.Addr))
		<-ctx.Done()
		shutdown(srv, logger)
	}

	if !summary.OK {
		return exitFailed
	}
	return exitOK
}

func loadDocument(path string) (payload.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return payload.Parse(payload.FormatFromPath(path), data)
}

func printSummary(w io.Writer, s *workload.Summary, asJSON bool) error {
	if asJSON {
		data, err := sonic.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	status := "ok"
	if !s.OK {
		status = "FAILED"
	}
	fmt.Fprintf(w, "run %s: %s on %d ranks, %d rounds, %.2fms: %s\n",
		s.RunID, s.Workload, s.Size, s.Rounds, s.DurationMS, status)
	for _, r := range s.Ranks {
		if r.Error != "" {
			fmt.Fprintf(w, "  rank %d: %s\n", r.Rank, r.Error)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(s.Values)) {
		fmt.Fprintf(w, "  %s = %g\n", key, s.Values[key])
	}
	return nil
}

func shutdown(srv *server.Server, logger *logging.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
}
