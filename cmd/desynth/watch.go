package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"DeSynth/internal/logging"
	"DeSynth/internal/watch"
	"DeSynth/pkg/filehandler"
)

var watchFlags struct {
	metricsAddr string
	quiet       time.Duration
	format      string
	explain     bool
}

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Analyze images as they appear in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(watchFlags.format); err != nil {
			return err
		}
		opts, err := runOptions(cmd, appConfig)
		if err != nil {
			return err
		}
		a, closeFn, err := newAnalyzer(appConfig)
		if err != nil {
			return err
		}
		defer closeFn()

		w, err := watch.New(args[0], watchFlags.quiet, filehandler.IsImageFile)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		addr := appConfig.Metrics.Addr
		if cmd.Flags().Changed("metrics-addr") {
			addr = watchFlags.metricsAddr
		}
		if addr != "" {
			go serveMetrics(ctx, addr)
		}

		r := &runner{
			analyzer: a,
			opts:     opts,
			p:        newPrinter(cmd.OutOrStdout()),
			format:   watchFlags.format,
			explain:  watchFlags.explain,
		}
		r.info("Watching %s for new images (Ctrl-C to stop)", w.Dir())

		err = w.Run(ctx, func(path string) {
			fr := r.analyze(ctx, fileInput(path))
			if fr.Err != nil {
				r.p.Error("%s: %v", filepath.Base(path), fr.Err)
				return
			}
			if err := r.emit(fr); err != nil {
				logging.Error().Err(err).Str("file", path).Msg("write result")
			}
		}, func(err error) {
			logging.Warn().Err(err).Msg("watch error")
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	fl := watchCmd.Flags()
	fl.StringVar(&watchFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	fl.DurationVar(&watchFlags.quiet, "quiet", time.Second, "Wait this long after the last write before analyzing a file")
	fl.StringVar(&watchFlags.format, "format", formatText, "Output format: text, json or yaml")
	fl.BoolVar(&watchFlags.explain, "explain", false, "Describe every finding")
	addRunFlags(watchCmd)
}

// serveMetrics exposes /metrics until ctx is done
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
	}
}
