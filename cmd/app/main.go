package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/marknote/internal"
	"github.com/starford/marknote/internal/rootdir"
	pkgconfig "github.com/starford/marknote/pkg/config"
)

// options loads the config file and turns the command-line overrides into
// application options.
func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}
	if root := cmd.String("root"); root != "" {
		opts = append(opts, internal.WithRoot(root))
	}
	if m := cmd.String("mode"); m != "" {
		mode, err := rootdir.ParseMode(m)
		if err != nil {
			return nil, err
		}
		opts = append(opts, internal.WithMode(mode))
	}
	return opts, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "marknote",
		Usage:  "Flat-folder Markdown notes with block reordering, full-text search and live events",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml, .yml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Notes directory; overrides notes.root",
				Sources: cli.EnvVars("MARKNOTE_ROOT"),
			},
			&cli.StringFlag{
				Name:    "mode",
				Usage:   "Root resolution mode: production or development; overrides app.mode",
				Sources: cli.EnvVars("MARKNOTE_MODE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
