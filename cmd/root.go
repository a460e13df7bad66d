package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/sus-cli/internal/api"
	"github.com/khanhnv2901/sus-cli/internal/application"
)

var cfgFile string
var debug bool

// AppContext carries the state shared by every subcommand.
type AppContext struct {
	Logger *zap.Logger
	Config application.Config

	// Scanner overrides the container's scanner when set.
	Scanner api.Scanner

	once      sync.Once
	container *application.Container
	err       error
}

// Services builds the dependency container on first use.
func (a *AppContext) Services(ctx context.Context) (*application.Container, error) {
	a.once.Do(func() {
		a.container, a.err = application.NewContainer(ctx, a.Config, a.Logger)
	})
	return a.container, a.err
}

func (a *AppContext) scanner(ctx context.Context) (api.Scanner, error) {
	if a.Scanner != nil {
		return a.Scanner, nil
	}
	services, err := a.Services(ctx)
	if err != nil {
		return nil, err
	}
	return services.Scanner, nil
}

// Close releases the container, if one was built, and flushes the logger.
func (a *AppContext) Close() {
	if a.container != nil {
		if err := a.container.Close(); err != nil && a.Logger != nil {
			a.Logger.Warn("failed to close services", zap.Error(err))
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

type appContextKey struct{}

var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if ctx := cmd.Context(); ctx != nil {
		if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return globalAppContext
}

var rootCmd = &cobra.Command{
	Use:           "sus",
	Short:         "Score how suspicious a URL looks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		loadEnvFiles()

		if err := bindFlags(viper.GetViper(), cmd.Flags(), flagKeys); err != nil {
			return err
		}
		cfg, err := loadConfig(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}

		logger, err := newLogger(debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("loaded config", zap.String("file", used))
		}

		storeAppContext(cmd, &AppContext{Logger: logger, Config: cfg})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil {
			appCtx.Close()
		}
	},
}

// loadEnvFiles loads the first .env file found; the process environment wins.
func loadEnvFiles() {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

func exitCode(err error, w io.Writer) int {
	var verdictErr *VerdictError
	if errors.As(err, &verdictErr) {
		return verdictErr.Code()
	}
	fmt.Fprintln(w, colorError("Error:"), err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sus-cli.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to stderr")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
