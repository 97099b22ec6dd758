package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/browser"
	"github.com/japaniel/easyquiz/pkg/config"
	"github.com/japaniel/easyquiz/pkg/dictionary"
	"github.com/japaniel/easyquiz/pkg/fetch"
	"github.com/japaniel/easyquiz/pkg/furigana"
	"github.com/japaniel/easyquiz/pkg/nhkeasy"
	"github.com/japaniel/easyquiz/pkg/pipeline"
	"github.com/japaniel/easyquiz/pkg/push"
)

// skipConfig marks commands that run without loading the config file.
const skipConfig = "skip-config"

type app struct {
	configPath string
	verbose    bool
	logJSON    bool

	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "easyquiz",
		Short:         "Generate vocabulary quizzes from NHK News Web Easy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = a.newLogger()
			slog.SetDefault(a.logger)
			if cmd.Annotations[skipConfig] != "" {
				return nil
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ./"+config.DefaultFileName+")")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&a.logJSON, "log-json", false, "log as JSON instead of colored text")

	root.AddCommand(
		a.generateCmd(),
		a.pushCmd(),
		a.announceCmd(),
		a.gradeCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) newLogger() *slog.Logger {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	if a.logJSON {
		return slog.New(slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	}
	noColor := true
	if f, ok := a.stderr.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			noColor = false
		}
	}
	return slog.New(tint.NewHandler(a.stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
}

// pipeline wires the collaborators for one run.
func (a *app) pipeline(ctx context.Context) *pipeline.Pipeline {
	cfg := a.cfg
	logger := a.logger.With("run_id", uuid.NewString())

	client := &nhkeasy.Client{
		Fetcher: fetch.New(cfg.HTTP),
		Site:    cfg.Site,
		Logger:  logger,
	}
	if cfg.Dictionary.InferReadings {
		an, err := furigana.NewAnalyzer()
		if err != nil {
			logger.Warn("reading inference disabled", "error", err)
		} else {
			client.Analyzer = an
		}
	}

	p := &pipeline.Pipeline{
		Config: cfg,
		OpenSession: func(ctx context.Context) (browser.Session, error) {
			return browser.Open(ctx, cfg.Browser, logger)
		},
		Pages:  client,
		Logger: logger,
	}
	if ix := a.dictionary(ctx, logger); ix != nil {
		p.Dictionary = ix
	}
	if s := a.sender(logger); s != nil {
		p.Sender = s
	}
	return p
}

func (a *app) dictionary(ctx context.Context, logger *slog.Logger) *dictionary.Index {
	path := a.cfg.Dictionary.Path
	if path == "" {
		return nil
	}
	if a.cfg.Dictionary.AutoDownload {
		d := &dictionary.Downloader{UserAgent: a.cfg.HTTP.UserAgent, Logger: logger}
		if err := d.EnsureDictionary(ctx, path); err != nil {
			logger.Warn("dictionary download failed, continuing without fallback definitions", "path", path, "error", err)
			return nil
		}
	}
	start := time.Now()
	ix, err := dictionary.Open(path)
	if err != nil {
		logger.Warn("dictionary unavailable, continuing without fallback definitions", "path", path, "error", err)
		return nil
	}
	logger.Debug("dictionary loaded", "path", path, "took", time.Since(start))
	return ix
}

func (a *app) sender(logger *slog.Logger) *push.LINE {
	if a.cfg.LINE.ChannelAccessToken == "" {
		return nil
	}
	s, err := push.NewLINE(a.cfg.LINE, nil, logger)
	if err != nil {
		logger.Warn("line sender unavailable", "error", err)
		return nil
	}
	return s
}

// quizType accepts the config names and the Japanese quiz titles.
func quizType(s string) (string, error) {
	switch s {
	case "":
		return "", nil
	case config.QuizDefinition, "単語意味クイズ":
		return config.QuizDefinition, nil
	case config.QuizPronunciation, "読み方クイズ":
		return config.QuizPronunciation, nil
	default:
		return "", fmt.Errorf("unknown quiz type %q (want %s or %s): %w", s, config.QuizDefinition, config.QuizPronunciation, apperr.ErrInvalidValue)
	}
}
