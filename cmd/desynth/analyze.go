package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"DeSynth/internal/config"
	"DeSynth/internal/logging"
	"DeSynth/pkg/filehandler"
	"DeSynth/pkg/models"
	"DeSynth/pkg/pipeline"
)

var analyzeFlags struct {
	file      string
	dir       string
	url       string
	urlFile   string
	format    string
	models    []string
	disable   []string
	randomize bool
	seed      uint64
	explain   bool
	verbose   bool
	jobs      int
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze images for signs of synthetic generation",
	Example: `  desynth analyze --file photo.jpg --explain
  desynth analyze --dir ./uploads --jobs 8
  desynth analyze --url https://example.com/image.png --format json
  desynth analyze --url s3://uploads/2024/photo.png
  desynth analyze --urlfile urls.txt --models clip-probe,dire --disable physics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := analyzeFlags
		if f.file == "" && f.dir == "" && f.url == "" && f.urlFile == "" {
			return errors.New("one of --file, --dir, --url or --urlfile is required")
		}
		if err := checkFormat(f.format); err != nil {
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

		r := &runner{
			analyzer: a,
			s3:       filehandler.NewS3Fetcher(appConfig.S3),
			opts:     opts,
			p:        newPrinter(cmd.OutOrStdout()),
			format:   f.format,
			verbose:  f.verbose,
			explain:  f.explain,
		}
		if f.format == formatText {
			r.banner()
		}
		return r.run(cmd.Context(), f.file, f.dir, f.url, f.urlFile, max(1, f.jobs))
	},
}

func init() {
	fl := analyzeCmd.Flags()
	fl.StringVar(&analyzeFlags.file, "file", "", "Path to a single image for analysis")
	fl.StringVar(&analyzeFlags.dir, "dir", "", "Path to directory of images for analysis")
	fl.StringVar(&analyzeFlags.url, "url", "", "URL (http, https or s3) to download and analyze")
	fl.StringVar(&analyzeFlags.urlFile, "urlfile", "", "Path to file containing URLs to download and analyze")
	fl.StringVar(&analyzeFlags.format, "format", formatText, "Output format: text, json or yaml")
	fl.BoolVar(&analyzeFlags.explain, "explain", false, "Describe every finding")
	fl.BoolVarP(&analyzeFlags.verbose, "verbose", "v", false, "Show module details and votes")
	fl.IntVar(&analyzeFlags.jobs, "jobs", 4, "Images analyzed in parallel for --dir and --urlfile")
	addRunFlags(analyzeCmd)
}

// addRunFlags registers the flags runOptions reads
func addRunFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringSliceVar(&analyzeFlags.models, "models", nil, "Classifier models to query (default: all configured)")
	fl.StringSliceVar(&analyzeFlags.disable, "disable", nil, "Modules to disable (visual,metadata,physics,frequency,ml,provenance)")
	fl.BoolVar(&analyzeFlags.randomize, "randomize", false, "Randomize analysis-frame resampling")
	fl.Uint64Var(&analyzeFlags.seed, "seed", 0, "Seed for --randomize (0: time-seeded)")
}

// runOptions merges command-line overrides into the configured run options
func runOptions(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	opts := cfg.Options()
	fl := cmd.Flags()
	if fl.Changed("models") {
		opts.Models = analyzeFlags.models
	}
	if fl.Changed("disable") {
		opts.Disabled = opts.Disabled[:0:0]
		for _, m := range analyzeFlags.disable {
			opts.Disabled = append(opts.Disabled, models.Module(m))
		}
	}
	if fl.Changed("randomize") {
		opts.Randomize = analyzeFlags.randomize
	}
	if fl.Changed("seed") {
		opts.Seed = analyzeFlags.seed
	}
	return opts, opts.Validate()
}

// input is one image to analyze, loaded lazily
type input struct {
	name string
	load func(ctx context.Context) ([]byte, error)
}

func fileInput(path string) input {
	return input{name: path, load: func(context.Context) ([]byte, error) {
		return filehandler.ReadFileBytes(path)
	}}
}

// urlInput loads http(s) URLs directly and s3:// URIs through the configured object store
func urlInput(url string, store *filehandler.S3Fetcher) input {
	return input{name: url, load: func(ctx context.Context) ([]byte, error) {
		var (
			data []byte
			err  error
		)
		if filehandler.IsS3URI(url) {
			data, _, err = store.Fetch(ctx, url)
		} else {
			data, _, err = filehandler.Download(ctx, nil, url)
		}
		return data, err
	}}
}

type runner struct {
	analyzer pipeline.Analyzer
	s3       *filehandler.S3Fetcher
	opts     pipeline.Options
	p        *printer
	format   string
	verbose  bool
	explain  bool
}

func (r *runner) banner() {
	r.p.Println("DeSynth v" + Version)
	r.p.Println("Multi-signal synthetic image detection")
	r.p.Println("---------------------------------")
}

func (r *runner) run(ctx context.Context, file, dir, url, urlFile string, jobs int) error {
	var batch []input

	if urlFile != "" {
		r.info("Processing URLs from file: %s", urlFile)
		urls, err := filehandler.ReadLines(urlFile)
		if err != nil {
			return fmt.Errorf("failed to read URL file: %w", err)
		}
		for _, u := range urls {
			batch = append(batch, urlInput(u, r.s3))
		}
	}
	if dir != "" {
		r.info("Analyzing directory: %s", dir)
		files, err := filehandler.ImagesInDirectory(dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			batch = append(batch, fileInput(f))
		}
	}

	if url != "" {
		r.info("Downloading from URL: %s", url)
		if err := r.single(ctx, urlInput(url, r.s3)); err != nil {
			return err
		}
	}
	if file != "" {
		r.info("Analyzing file: %s", file)
		if err := r.single(ctx, fileInput(file)); err != nil {
			return err
		}
	}

	if len(batch) > 0 {
		return r.batch(ctx, batch, jobs)
	}
	return nil
}

// info prints only in text mode so machine output stays parseable
func (r *runner) info(format string, args ...interface{}) {
	if r.format == formatText {
		r.p.Info(format, args...)
	}
}

func (r *runner) analyze(ctx context.Context, in input) fileResult {
	data, err := in.load(ctx)
	if err != nil {
		return fileResult{Name: in.name, Err: err}
	}
	res, err := r.analyzer.Analyze(ctx, data, r.opts)
	return fileResult{Name: in.name, Result: res, Err: err}
}

func (r *runner) single(ctx context.Context, in input) error {
	start := time.Now()
	fr := r.analyze(ctx, in)
	if fr.Err != nil {
		return fmt.Errorf("%s: %w", in.name, fr.Err)
	}
	if err := r.emit(fr); err != nil {
		return err
	}
	r.info("Analysis completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *runner) emit(fr fileResult) error {
	if r.format == formatText {
		displayResult(r.p, filepath.Base(fr.Name), fr.Result, r.verbose, r.explain)
		return nil
	}
	return writeResult(r.p.w, fr.Result, r.format)
}

func (r *runner) batch(ctx context.Context, batch []input, jobs int) error {
	r.info("Found %d images to analyze", len(batch))

	var tracker *ProgressTracker
	if r.format == formatText {
		tracker = NewProgressTracker(r.p.w)
		tracker.Start("analyze", "starting", len(batch))
	}

	results := make([]fileResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, in := range batch {
		g.Go(func() error {
			results[i] = r.analyze(gctx, in)
			if tracker != nil {
				tracker.Step("analyze", filepath.Base(in.name))
			}
			// Only cancellation stops the batch; bad files are reported in the summary
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if tracker != nil {
		tracker.Complete("analyze", fmt.Sprintf("%d images", len(batch)))
	}

	for _, fr := range results {
		if fr.Err != nil {
			if r.format == formatText {
				r.p.Error("%s: %v", fr.Name, fr.Err)
			} else {
				logging.Error().Err(fr.Err).Str("input", fr.Name).Msg("analysis failed")
			}
			continue
		}
		if err := r.emit(fr); err != nil {
			return err
		}
	}
	if r.format == formatText {
		printSummary(r.p, results)
	}
	return nil
}
