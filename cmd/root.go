// cmd/root.go
package cmd

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/prefillcore/cache"
	"github.com/inference-sim/prefillcore/config"
	prefillmetrics "github.com/inference-sim/prefillcore/metrics"
	"github.com/inference-sim/prefillcore/planner"
)

var (
	configPath  string
	logLevel    string
	ticks       int
	numRequests int
	promptLen   int
	outputLen   int
	metricsAddr string
	demoSeed    int64
)

var rootCmd = &cobra.Command{
	Use:   "prefillcore",
	Short: "Radix prefix cache and prefill admission planner for LLM inference",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic admission demo against the planner and cache",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				logrus.Fatalf("loading config: %v", err)
			}
			cfg = loaded
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", cfg.LogLevel)
		}
		logrus.SetLevel(level)
		log := logrus.StandardLogger().WithField("component", "cmd")

		var sink interface {
			cache.MetricsSink
			planner.MetricsSink
		}
		var reg *prometheus.Registry
		if metricsAddr != "" {
			reg = prometheus.NewRegistry()
			sink = prefillmetrics.New(reg)
		}

		cacheOpts := []cache.Option{cache.WithLogger(log)}
		plannerOpts := []planner.Option{planner.WithLogger(log)}
		if sink != nil {
			cacheOpts = append(cacheOpts, cache.WithMetrics(sink))
			plannerOpts = append(plannerOpts, planner.WithMetrics(sink))
		}

		c := cache.New(cacheOpts...)
		table := planner.NewSlotTable(cfg.Planner.TableSlots)
		adapter := planner.NewRadixCacheAdapter(c, cfg.Cache.TotalKVUnits)
		p := planner.New(adapter, table, plannerOpts...)

		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			go func() {
				log.Infof("serving metrics on %s", metricsAddr)
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					log.Errorf("metrics server stopped: %v", err)
				}
			}()
		}

		logrus.Infof("starting admission demo: %d requests, kv_units=%d, table_slots=%d, budget=%d",
			numRequests, cfg.Cache.TotalKVUnits, cfg.Planner.TableSlots, cfg.Planner.PrefillBudget)

		rng := rand.New(rand.NewSource(demoSeed))
		for i := 0; i < numRequests; i++ {
			ids := make([]int32, promptLen)
			for j := range ids {
				ids[j] = int32(rng.Intn(32000))
			}
			p.AddPending(&planner.Request{
				UID:       uint64(i + 1),
				InputIDs:  ids,
				OutputLen: outputLen,
			})
		}

		for tick := 0; tick < ticks && p.PendingLen() > 0; tick++ {
			batch, err := p.ScheduleNextBatch(cfg.Planner.PrefillBudget, 0)
			if err != nil {
				logrus.Fatalf("tick %d: scheduling failed: %v", tick, err)
			}
			if batch == nil {
				logrus.Infof("tick %d: nothing admitted (pending=%d)", tick, p.PendingLen())
				continue
			}
			fmt.Printf("tick %d: admitted %d request(s), pending=%d\n", tick, len(batch.Reqs), p.PendingLen())
			for _, r := range batch.Reqs {
				fmt.Printf("  uid=%d table=%d cached=%d device=%d chunked=%v\n",
					r.UID, r.TableIdx, r.CachedLen, r.DeviceLen, r.IsChunked)
			}
		}

		if err := c.CheckIntegrity(); err != nil {
			logrus.Fatalf("post-run integrity check failed: %v", err)
		}
		logrus.Info("demo complete.")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file (overrides built-in defaults)")
	runCmd.Flags().StringVar(&logLevel, "log", "", "Log level (debug, info, warn, error); overrides config")
	runCmd.Flags().IntVar(&ticks, "ticks", 20, "Number of scheduling ticks to run")
	runCmd.Flags().IntVar(&numRequests, "requests", 8, "Number of synthetic pending requests to generate")
	runCmd.Flags().IntVar(&promptLen, "prompt-len", 64, "Token length of each synthetic prompt")
	runCmd.Flags().IntVar(&outputLen, "output-len", 16, "Declared output length of each synthetic request")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().Int64Var(&demoSeed, "seed", 1, "Seed for the synthetic prompt generator")

	rootCmd.AddCommand(runCmd)
}
