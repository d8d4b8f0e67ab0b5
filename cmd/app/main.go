package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mintforge/internal"
	pkgconfig "github.com/starford/mintforge/pkg/config"
)

type entrypoint func(context.Context, ...internal.Option) error

func action(name string, entry entrypoint) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if cmd.IsSet("workers") {
			cfg.Generation.Workers = int(cmd.Int("workers"))
		}
		if cmd.IsSet("seed") {
			cfg.Generation.Seed = uint64(cmd.Uint("seed"))
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := entry(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

func main() {
	generate := action("generate", internal.Run)

	cmd := &cli.Command{
		Name:   "mintforge",
		Usage:  "Generate unique layered artwork editions with ordered metadata",
		Action: generate,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of render workers (overrides config)",
				Sources: cli.EnvVars("APP_WORKERS"),
			},
			&cli.UintFlag{
				Name:    "seed",
				Usage:   "Random seed, 0 seeds from the clock (overrides config)",
				Sources: cli.EnvVars("APP_SEED"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Generate the collection into the build directory",
				Action: generate,
			},
			{
				Name:   "rarity",
				Usage:  "Print trait rarity of the generated collection",
				Action: action("rarity", internal.Rarity),
			},
			{
				Name:   "watch",
				Usage:  "Generate, then regenerate whenever the layer tree changes",
				Action: action("watch", internal.Watch),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
