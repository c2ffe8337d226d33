package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"instapoem/internal/config"
	"instapoem/internal/logging"
	"instapoem/internal/media"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	apiKey     string
	configPath string
	dataDir    string
	backend    string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "instapoem",
	Short: "InstaPoem - turn photos into poems, quotes and scheduled posts",
	Long: `InstaPoem writes a poem for a photo with a hosted generative model,
distills it into emotion-styled quotes, translates either, and keeps
everything in a local history that can be scheduled for posting.

Run "instapoem serve" to expose the same workflow over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.LogsDir(), cfg.LoggingSettings()); err != nil {
			logger.Warn("Categorized logging unavailable", zap.Error(err))
		}
		logging.Boot("instapoem %s starting", cmd.Name())
		logging.BootDebug("config=%s backend=%s data_dir=%s", configPath, cfg.History.Backend, cfg.History.DataDir)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "History data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "History backend: file, sqlite or memory (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout (0 disables)")

	rootCmd.AddCommand(poemCmd, regenerateCmd, editCmd, captionCmd, translateCmd)
	rootCmd.AddCommand(quoteCmd, quoteEditCmd, quoteTranslateCmd, quoteDeleteCmd)
	rootCmd.AddCommand(scheduleCmd, unscheduleCmd)
	rootCmd.AddCommand(historyCmd, emotionsCmd, languagesCmd)
	rootCmd.AddCommand(serveCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for bad input and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, media.ErrValidation) {
		return 2
	}
	return 1
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		c.LLM.APIKey = apiKey
	}
	if dataDir != "" {
		c.History.DataDir = dataDir
	}
	if backend != "" {
		c.History.Backend = backend
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// commandContext returns a context bounded by --timeout and cancelled on SIGINT/SIGTERM.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}
