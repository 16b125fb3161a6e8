// Command mutagen runs one mutation-generation round: it loads seed
// programs, sends them through the configured mutation model, and writes the
// candidate programs back out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/snow-ghost/mutagen/config"
	"github.com/snow-ghost/mutagen/core"
	"github.com/snow-ghost/mutagen/mutation"
	"github.com/snow-ghost/mutagen/pkg/logging"
	"github.com/snow-ghost/mutagen/pkg/metrics"
	"github.com/snow-ghost/mutagen/pkg/tracing"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to the model configuration YAML")
		seedsDir    = flag.String("seeds", "./seeds", "Directory of seed program files")
		outDir      = flag.String("out", "./candidates", "Directory to write candidate programs to")
		metricsAddr = flag.String("metrics-addr", "", "Address for the /metrics endpoint (disabled when empty)")
		jaegerURL   = flag.String("jaeger", "", "Jaeger collector endpoint (tracing disabled when empty)")
		localScope  = flag.Bool("local-scope", false, "Truncate completions at the end of the local scope")
		skipTrunc   = flag.Bool("skip-truncation", false, "Append raw completions under one indent block")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	logger, err := logging.NewLogger(logging.Config{
		Level:  *logLevel,
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	reg := prometheus.NewRegistry()
	met := metrics.NewPipelineMetrics(reg)

	tracer := tracing.NewNopTracer()
	if *jaegerURL != "" {
		tracer, err = tracing.NewTracer(tracing.Config{
			ServiceName:    "mutagen",
			ServiceVersion: "dev",
			JaegerEndpoint: *jaegerURL,
			Environment:    "production",
		})
		if err != nil {
			log.Fatalf("Failed to create tracer: %v", err)
		}
	}

	model, err := mutation.New(cfg, logger, met, tracer)
	if err != nil {
		log.Fatalf("Failed to create mutation model: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg, logger)
	}

	records, err := loadSeeds(ctx, *seedsDir)
	if err != nil {
		log.Fatalf("Failed to load seed programs: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("No seed programs found in %s", *seedsDir)
	}
	logger.Info("seeds loaded", "count", len(records), "dir", *seedsDir)

	candidates, err := model.GeneratePrograms(ctx, records, core.GenerateOptions{
		LocalScopeTruncate: *localScope,
		SkipTruncation:     *skipTrunc,
	})
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}
	logger.Info("generation round completed",
		"seeds", len(records),
		"candidates", len(candidates),
		"dropped", len(records)-len(candidates),
	)

	if err := writeCandidates(*outDir, candidates); err != nil {
		log.Fatalf("Failed to write candidates: %v", err)
	}

	if err := tracer.Shutdown(context.Background()); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}
}

// loadSeeds reads every regular file under dir concurrently and returns one
// record per seed, ordered by file name.
func loadSeeds(ctx context.Context, dir string) ([]core.PromptRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	// each goroutine writes its own slot, so no lock is needed
	records := make([]core.PromptRecord, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("failed to read seed %s: %w", name, err)
			}
			seed := string(data)
			records[i] = core.PromptRecord{Prompt: seed, Template: seed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// writeCandidates writes each candidate program to its own file under dir.
func writeCandidates(dir string, candidates []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, candidate := range candidates {
		path := filepath.Join(dir, fmt.Sprintf("candidate_%03d.py", i))
		if err := os.WriteFile(path, []byte(candidate), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// serveMetrics exposes the pipeline metrics over HTTP.
func serveMetrics(addr string, reg *prometheus.Registry, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	logger.Info("metrics server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}
