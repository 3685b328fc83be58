package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sqrt-go/internal/app"
	"sqrt-go/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies secrets from the
// environment, including an optional .env file in the base dir.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	if _, err := os.Stat(defaults["env_file"]); err == nil {
		if err := godotenv.Load(defaults["env_file"]); err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaults["env_file"], err)
		}
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// newApp reads the config and creates a SqrtApp. The caller must defer a.Close().
func newApp(ctx context.Context) (*app.SqrtApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewSqrtApp(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "sqrt",
	Short:        "Personal activity data warehouse loader",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(locationCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}
