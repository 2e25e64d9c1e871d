package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"followup-agent/internal/config"
)

// localDefaults apply when neither the environment nor the env file set them.
var localDefaults = map[string]string{
	"PARAM_PREFIX": "/followup/local",
	"LOG_FORMAT":   "console",
	"LOG_LEVEL":    "warn",
}

var (
	cfg     *config.Config
	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "followup",
	Short:         "Generate follow-up questions locally",
	Long:          "Runs the follow-up pipeline against a state document, using a live backend, a recorded reply or keyword templates only.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing default .env is fine; an explicitly named one must exist.
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
				return eris.Wrapf(err, "load %s", envFile)
			}
		}
		for k, v := range localDefaults {
			if _, ok := os.LookupEnv(k); !ok {
				_ = os.Setenv(k, v)
			}
		}

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
