// Command proofshot generates testimonial artifacts and exports them as
// images.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/api"
	"github.com/ibeckermayer/proofshot/internal/app"
	"github.com/ibeckermayer/proofshot/internal/assembler"
	"github.com/ibeckermayer/proofshot/internal/config"
	"github.com/ibeckermayer/proofshot/internal/logging"
	"github.com/ibeckermayer/proofshot/internal/scheduler"
	"github.com/ibeckermayer/proofshot/internal/store"
	"github.com/ibeckermayer/proofshot/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(ctx, os.Args[2:])
	case "export":
		err = runExport(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "schedule":
		err = runSchedule(ctx)
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: proofshot open <config|cache|output>")
			os.Exit(1)
		}
		err = runOpen(os.Args[2])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "proofshot %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: proofshot <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate       Generate artifacts from a URL or description")
	fmt.Println("  export ID...   Capture stored artifacts as PNG (one id) or zip")
	fmt.Println("  serve          Run the HTTP API and scheduled jobs")
	fmt.Println("  schedule       Run scheduled jobs only")
	fmt.Println("  open config    Open config file in default editor")
	fmt.Println("  open cache     Open cache directory in file explorer")
	fmt.Println("  open output    Open the export directory")
}

// env is what every command needs
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	app    *app.App
}

func (e *env) Close() {
	_ = e.logger.Sync()
	e.store.Close()
}

func setup() (*env, error) {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbPath, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, store: st, app: a}, nil
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	input := fs.String("input", "", "product URL or free-text description")
	platform := fs.String("platform", string(types.PlatformReview), "comment-feed, micro-post, review, email or handwritten")
	tone := fs.String("tone", "", "tone hint, e.g. enthusiastic")
	count := fs.Int("count", 1, "number of artifacts")
	metrics := fs.String("metrics", "", "JSON object of metric overrides")
	capture := fs.Bool("export", false, "capture the generated artifacts")
	_ = fs.Parse(args)

	req := assembler.Request{
		Input:    *input,
		Platform: types.Platform(*platform),
		Tone:     types.Tone(*tone),
	}
	if *metrics != "" {
		if err := json.Unmarshal([]byte(*metrics), &req.Metrics); err != nil {
			return fmt.Errorf("invalid -metrics: %w", err)
		}
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	artifacts, genErr := e.app.Generate(ctx, req, *count)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifacts); err != nil {
		return err
	}
	if genErr != nil {
		return genErr
	}

	if !*capture {
		return nil
	}
	ids := make([]string, len(artifacts))
	for i, a := range artifacts {
		ids[i] = a.ID
	}
	return export(ctx, e, ids)
}

func runExport(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: proofshot export ID...")
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	return export(ctx, e, args)
}

func export(ctx context.Context, e *env, ids []string) error {
	var name string
	var data []byte

	if len(ids) == 1 {
		img, err := e.app.ExportArtifact(ctx, ids[0])
		if err != nil {
			return err
		}
		name, data = img.FileName, img.Data
	} else {
		archive, err := e.app.ExportArtifacts(ctx, ids)
		if err != nil {
			return err
		}
		for _, s := range archive.Skipped {
			e.logger.Warn("target skipped", zap.String("target", s.DOMID), zap.String("reason", s.Reason))
		}
		name, data = archive.FileName, archive.Data
	}

	path, err := e.app.SaveExport(name, data)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (default from config)")
	_ = fs.Parse(args)

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if *addr == "" {
		*addr = e.cfg.Server.Addr
	}

	sched, err := startScheduler(e)
	if err != nil {
		return err
	}
	defer func() { <-sched.Stop().Done() }()

	// SIGHUP reloads the config; scheduled jobs keep their original schedule
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			if err := e.app.ReloadConfig(); err != nil {
				e.logger.Error("config reload failed", zap.Error(err))
			}
		}
	}()

	return api.NewServer(*addr, e.app, e.logger).Run(ctx)
}

func runSchedule(ctx context.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if len(e.cfg.Jobs) == 0 {
		path, _ := config.ConfigPath()
		return fmt.Errorf("no [[jobs]] configured in %s", path)
	}

	sched, err := startScheduler(e)
	if err != nil {
		return err
	}
	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}

func startScheduler(e *env) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(e.cfg.Timezone, e.logger)
	if err != nil {
		return nil, err
	}
	if err := e.app.ScheduleJobs(sched); err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}

func runOpen(target string) error {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	case "output":
		var cfg *config.Config
		if cfg, err = config.LoadOrDefault(); err == nil {
			path, err = cfg.OutputDir()
		}
	default:
		return fmt.Errorf("unknown target: %s", target)
	}
	if err != nil {
		return fmt.Errorf("failed to get path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return browser.OpenFile(path)
}
