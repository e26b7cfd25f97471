package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/bulletin"
	"github.com/aquasecurity/vuln-bulletin/config"
	"github.com/aquasecurity/vuln-bulletin/feed"
	"github.com/aquasecurity/vuln-bulletin/utils"
)

const configEnv = "VULN_BULLETIN_CONFIG"

// Options holds the CLI flag values.
type Options struct {
	ConfigPath string
	Targets    []string
	OutputDir  string
	Progress   bool
	Debug      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "vuln-bulletin",
		Short: "Build per-platform CVE bulletins from vendor advisory feeds",
		Long: `vuln-bulletin fetches vendor advisory feeds (OVAL documents, the MSRC API),
keeps the vulnerabilities matching each bulletin's platform and date window
and writes one sorted CVE list per bulletin.

Without --config the built-in bulletins are used: alt-p10, ubuntu-jammy, windows-10.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := initLogger(opts.Debug)
			defer logger.Sync() // nolint: errcheck

			return run(ctx, opts, afero.NewOsFs(), logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", utils.LookupEnv(configEnv, ""), "YAML configuration of the bulletins, built-in bulletins if empty")
	flags.StringSliceVarP(&opts.Targets, "target", "t", nil, "bulletins to build (default all)")
	flags.StringVarP(&opts.OutputDir, "output-dir", "o", "", "directory the bulletins are written to")
	flags.BoolVar(&opts.Progress, "progress", false, "show a progress bar per feed")
	flags.BoolVar(&opts.Debug, "debug", false, "log every fetch attempt and record")

	return cmd
}

func initLogger(debug bool) *zap.Logger {
	prodConfig := zap.NewProductionConfig()
	prodConfig.Encoding = "console"
	prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prodConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if debug {
		prodConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := prodConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadConfig(fs afero.Fs, path string) (config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(fs, path)
}

// run builds every selected bulletin. A failed bulletin writes nothing and
// does not stop the others; all failures are returned together.
func run(ctx context.Context, opts *Options, fs afero.Fs, logger *zap.Logger) error {
	cfg, err := loadConfig(fs, opts.ConfigPath)
	if err != nil {
		return xerrors.Errorf("config error: %w", err)
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	bulletins, err := cfg.Select(opts.Targets...)
	if err != nil {
		return err
	}

	observers := feed.Observers{feed.LogObserver{Logger: logger}}
	if opts.Progress {
		observers = append(observers, feed.NewProgressObserver(os.Stderr))
	}
	runner := bulletin.NewRunner(feed.NewPipeline(feed.WithObserver(observers)))

	var errs error
	for _, b := range bulletins {
		log := logger.With(zap.String("bulletin", b.Name))
		log.Info("Building bulletin", zap.Int("feeds", len(b.Feeds)))

		ids, err := runner.Run(ctx, b)
		if err != nil {
			log.Error("Bulletin failed", zap.Error(err))
			errs = multierror.Append(errs, err)
			continue
		}

		for _, group := range bulletin.CaseCollisions(ids) {
			log.Warn("Identifiers differ only by case", zap.Strings("ids", group))
		}
		if len(ids) == 0 {
			log.Warn("No vulnerabilities found")
		}

		path := cfg.OutputPath(b)
		if err = bulletin.Write(fs, path, ids); err != nil {
			log.Error("Write failed", zap.Error(err))
			errs = multierror.Append(errs, err)
			continue
		}
		log.Info("Saved", zap.Int("ids", len(ids)), zap.String("path", path))
	}
	return errs
}
