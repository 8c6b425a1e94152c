package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/praetorian-inc/deliberate/internal/coordinator"
	"github.com/praetorian-inc/deliberate/pkg/config"
	"github.com/praetorian-inc/deliberate/pkg/deliberation"
	"github.com/praetorian-inc/deliberate/pkg/events"
	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"github.com/praetorian-inc/deliberate/pkg/metrics"
	"github.com/praetorian-inc/deliberate/pkg/registry"
)

func (r *RunCmd) execute() error {
	cfg, err := config.Load(r.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading engine config: %w", err)
	}

	gwConfig, err := r.loadGatewayConfig()
	if err != nil {
		return err
	}

	gw, err := gateway.Create(r.Gateway, gwConfig)
	if err != nil {
		return fmt.Errorf("failed to create gateway %s: %w", r.Gateway, err)
	}

	opinions, err := readOpinions(r.OpinionsFile)
	if err != nil {
		return err
	}

	ctx, cancel := r.setupContext()
	defer cancel()

	rng := coordinator.NewRNG()
	if r.Seed != 0 {
		rng = rand.New(rand.NewSource(r.Seed))
	}

	memSink := events.NewMemorySink()
	metricsSink := metrics.NewSink(memSink)

	if r.MetricsAddr != "" {
		srv := &http.Server{Addr: r.MetricsAddr, Handler: metrics.NewPrometheusExporter(metricsSink).Handler()}
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "warning: metrics server stopped: %v\n", serveErr)
			}
		}()
		defer srv.Close()
	}

	var result coordinator.Result
	if r.Recursive {
		result, err = coordinator.Recursive(ctx, r.Question, opinions, cfg, gw, rng, metricsSink)
	} else {
		result, err = coordinator.SingleRun(ctx, r.Question, opinions, cfg, gw, rng, metricsSink)
	}

	if r.Transcript != "" {
		if writeErr := writeTranscript(r.Transcript, memSink.Events()); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write transcript: %v\n", writeErr)
		}
	}

	if err != nil {
		return err
	}

	return r.printResult(result)
}

func (r *RunCmd) loadGatewayConfig() (registry.Config, error) {
	if r.Config == "" {
		return registry.Config{}, nil
	}
	var gwConfig registry.Config
	if err := json.Unmarshal([]byte(r.Config), &gwConfig); err != nil {
		return nil, fmt.Errorf("invalid --config JSON: %w", err)
	}
	return gwConfig, nil
}

func (r *RunCmd) setupContext() (context.Context, context.CancelFunc) {
	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(baseCtx, r.Timeout)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (r *RunCmd) printResult(result coordinator.Result) error {
	switch r.Format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]any{
			"winner":   result.Winner,
			"degraded": result.Degraded,
		})
	default:
		fmt.Println("\nDeliberation Result")
		fmt.Println("===================")
		fmt.Printf("Winner: %s\n", result.Winner)
		if result.Degraded {
			fmt.Println("(degraded: one or more rankings fell back after exhausting retries)")
		}
		return nil
	}
}

// readOpinions reads one non-empty, non-comment opinion per line.
func readOpinions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening opinions file: %w", err)
	}
	defer f.Close()

	var opinions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		opinions = append(opinions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading opinions file: %w", err)
	}
	if len(opinions) < 2 {
		return nil, fmt.Errorf("%w: opinions file must contain at least 2 opinions, got %d", deliberation.ErrInvalidInput, len(opinions))
	}
	return opinions, nil
}

func writeTranscript(path string, transcript []events.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, e := range transcript {
		if err := encoder.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
