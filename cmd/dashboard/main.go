package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/config"
	"github.com/pemodest0/Assyntrax-sub000/internal/dashboard"
	"github.com/pemodest0/Assyntrax-sub000/internal/feed"
	"github.com/pemodest0/Assyntrax-sub000/internal/metrics"
	"github.com/pemodest0/Assyntrax-sub000/internal/openai"
	"github.com/pemodest0/Assyntrax-sub000/internal/scheduler"
	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/server"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
	"github.com/pemodest0/Assyntrax-sub000/internal/storage"
	"github.com/pemodest0/Assyntrax-sub000/internal/telegram"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var level, format string
	root := &cobra.Command{
		Use:          "dashboard",
		Short:        "Market regime dashboard API, bot and renderer",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(level, format)
		},
	}
	root.PersistentFlags().StringVar(&level, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&format, "log-format", "", "json or console (overrides LOG_FORMAT)")
	root.AddCommand(serveCmd(&level, &format), renderCmd())
	return root
}

func setupLogging(level, format string) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func serveCmd(level, format *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the run watcher and (if configured) the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			// flags win over the config file
			setupLogging(orDefault(*level, cfg.LogLevel), orDefault(*format, cfg.LogFormat))
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	log.Info().Str("path", cfg.DBPath).Msg("db: sqlite ready")

	history := storage.NewStore(db)
	store := snapshot.NewStore(cfg.DataDir)
	reg := metrics.New()
	cache := chart.NewCache(cfg.ChartCacheTTL)
	narrator := openai.NewNarrator(cfg.OpenAIKey)

	deps := server.Deps{
		Store:           store,
		History:         history,
		Metrics:         reg,
		Cache:           cache,
		Narrator:        narrator,
		MaxRenderPoints: cfg.MaxRenderPoints,
	}

	var notifier scheduler.Notifier
	if cfg.BotEnabled() {
		client := feed.NewClient(cfg.APIBaseURL, feed.Options{RPS: cfg.FeedRPS, Metrics: reg})
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, telegram.Deps{
			Source:          client,
			History:         history,
			Narrator:        narrator,
			Explainer:       openai.NewExplainer(cfg.OpenAIKey),
			Metrics:         reg,
			Cache:           cache,
			MaxRenderPoints: cfg.MaxRenderPoints,
		})
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		deps.Webhook = bot.WebhookHandler
		if cfg.TelegramChatID != 0 {
			notifier = bot.Notifier(cfg.TelegramChatID)
		}
		log.Info().Str("webhook", cfg.WebhookPublicURL).Msg("telegram: bot initialized")
	} else {
		log.Info().Msg("telegram: not configured, bot disabled")
	}

	w := scheduler.NewWatcher(store, history, notifier, reg)
	if err := w.Register(cfg.WatchCron); err != nil {
		return err
	}
	w.Start()
	defer w.Stop()
	if _, err := w.Check(); err != nil {
		log.Warn().Err(err).Msg("scheduler: initial check failed")
	}

	return server.ListenAndServe(ctx, ":"+cfg.Port, server.NewRouter(deps))
}

func renderCmd() *cobra.Command {
	var (
		assets    []string
		out       string
		rng       string
		smooth    string
		align     string
		api       string
		dataDir   string
		normalize bool
		width     int
		height    int
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a chart of one or more assets to a PNG file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(assets) == 0 {
				return fmt.Errorf("--assets is required")
			}
			var src feed.Source
			if api != "" {
				src = feed.NewClient(api, feed.Options{})
			} else {
				if dataDir == "" {
					dataDir = os.Getenv("DATA_DIR")
				}
				if dataDir == "" {
					return fmt.Errorf("--api or --data-dir is required")
				}
				src = feed.Local{Store: snapshot.NewStore(dataDir)}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			s := dashboard.NewSession(src, dashboard.Config{})
			s.Dispatch(ctx, dashboard.SetRange{Range: series.ParseRange(rng)})
			s.Dispatch(ctx, dashboard.SetNormalize{On: normalize})
			s.Dispatch(ctx, dashboard.SetSmoothing{Smoothing: series.ParseSmoothing(smooth)})
			al := series.ParseAlignment(align)
			gap := series.GapNone
			if al == series.AlignmentDate {
				gap = series.GapForward
			}
			s.Dispatch(ctx, dashboard.SetAlignment{Alignment: al, GapFill: gap})
			s.Dispatch(ctx, dashboard.SelectAssets{Assets: assets})

			img, err := s.Image(width, height)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			log.Info().Str("out", out).Strs("assets", s.State().Selected).Int("bytes", len(img)).Msg("render: chart written")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&assets, "assets", nil, "comma separated assets, primary first")
	f.StringVar(&out, "out", "chart.png", "output PNG path")
	f.StringVar(&rng, "range", "1y", "30d, 90d, 180d, 1y or all")
	f.StringVar(&smooth, "smooth", "none", "none, short or long")
	f.StringVar(&align, "align", "positional", "positional or date")
	f.StringVar(&api, "api", "", "dashboard API base URL")
	f.StringVar(&dataDir, "data-dir", "", "artifact directory, used when --api is empty")
	f.BoolVar(&normalize, "normalize", false, "index every series to base 100")
	f.IntVar(&width, "width", 980, "image width")
	f.IntVar(&height, "height", 420, "image height")
	return cmd
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
