// solarquote - residential solar sizing and pricing
//
// Usage:
//
//	solarquote estimate --roof-sqft 1000 [options]
//	solarquote quote --address "1 Main St, Boulder, CO" --format pdf
//	solarquote offset --target-kwh 800 --sun-hours 5
//	solarquote benchmarks load benchmarks/ca.yaml
//	solarquote serve
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"solar-estimate/config"
	"solar-estimate/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configKey = "config"

func main() {
	app := &cli.App{
		Name:    "solarquote",
		Usage:   "Residential solar system sizing, pricing and quote documents",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"SOLARQUOTE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "env-file",
				Value:   ".env",
				Usage:   "Path to .env file with API keys",
				EnvVars: []string{"SOLARQUOTE_ENV_FILE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"SOLARQUOTE_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Emit JSON logs instead of console output",
			},
			&cli.BoolFlag{
				Name:    "clickhouse",
				Usage:   "Use the ClickHouse benchmark store",
				EnvVars: []string{"CLICKHOUSE_ENABLED"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address; selects the redis cache backend",
				EnvVars: []string{"REDIS_ADDR"},
			},
		},

		Before: loadConfig,

		Commands: []*cli.Command{
			estimateCommand(),
			offsetCommand(),
			quoteCommand(),
			serveCommand(),
			benchmarksCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration once; explicitly set flags win over
// file and environment values.
func loadConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return err
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("clickhouse") {
		cfg.ClickHouse.Enabled = c.Bool("clickhouse")
	}
	if c.IsSet("clickhouse-host") {
		cfg.ClickHouse.Host = c.String("clickhouse-host")
	}
	if c.IsSet("clickhouse-port") {
		cfg.ClickHouse.Port = c.Int("clickhouse-port")
	}
	if c.IsSet("redis-addr") {
		cfg.Cache.Backend = config.CacheRedis
		cfg.Cache.RedisAddr = c.String("redis-addr")
	}

	platform.InitLogger(cfg.LogLevel, !c.Bool("log-json"))
	for _, w := range cfg.Warnings() {
		log.Debug().Str("field", w.Field).Msg(w.Message)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}
