package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"solar-estimate/api"
	"solar-estimate/db/ingestion"
	"solar-estimate/decision/document"
	"solar-estimate/decision/estimation"
	"solar-estimate/decision/geo"
)

// =============================================================================
// ESTIMATE COMMAND
// =============================================================================

func financingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "cost-per-watt", Usage: "Installed cost in $/W (default: benchmark)"},
		&cli.Float64Flag{Name: "rate", Usage: "Annual financing rate in percent"},
		&cli.IntFlag{Name: "term", Usage: "Loan term in years"},
		&cli.Float64Flag{Name: "itc", Usage: "Tax credit fraction (0.30 = 30%)"},
		&cli.StringFlag{Name: "financing", Value: string(estimation.FinancingAmortized), Usage: "Financing mode (amortized, fixed_percentage)"},
	}
}

func estimateCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.Float64Flag{Name: "roof-sqft", Usage: "Installable roof area in square feet"},
		&cli.Float64Flag{Name: "usage-kwh", Usage: "Monthly electricity usage in kWh"},
		&cli.Float64Flag{Name: "area-m2", Usage: "Provider max array area in m2"},
		&cli.Float64Flag{Name: "sunshine-hours", Usage: "Provider max sunshine hours per year"},
		&cli.IntFlag{Name: "panels", Usage: "Provider max panel count"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table", Usage: "Output format (table, json, markdown)"},
	}
	return &cli.Command{
		Name:   "estimate",
		Usage:  "Estimate size, cost and monthly payment from roof area, usage or provider data",
		Flags:  append(flags, financingFlags()...),
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	cfg := configFrom(c)

	var potential *geo.SolarPotential
	if c.IsSet("area-m2") || c.IsSet("sunshine-hours") {
		potential = &geo.SolarPotential{
			MaxArrayAreaM2:          c.Float64("area-m2"),
			MaxSunshineHoursPerYear: c.Float64("sunshine-hours"),
			MaxArrayPanelsCount:     c.Int("panels"),
		}
		if !potential.Valid() {
			return fmt.Errorf("--area-m2 and --sunshine-hours must both be positive")
		}
	}

	strategy, err := estimation.SelectSizing(optFloat(c, "roof-sqft"), optFloat(c, "usage-kwh"), potential)
	if err != nil {
		return err
	}

	in := estimation.Input{
		Sizing:      strategy,
		Assumptions: &cfg.Assumptions,
	}
	applyFinancing(c, &in)

	result, err := estimation.Estimate(in)
	if err != nil {
		return err
	}

	switch c.String("format") {
	case "json":
		return outputJSON(api.EstimateResponse{Summary: result.Summary(), Result: result})
	case "markdown":
		return outputDocument(document.MarkdownRenderer{}, document.QuoteDocument{
			Address:     "-",
			Summary:     result.Summary(),
			Installer:   cfg.Installer,
			GeneratedAt: time.Now(),
		})
	default:
		return outputTable(result.Summary(), nil)
	}
}

func applyFinancing(c *cli.Context, in *estimation.Input) {
	in.CostPerWatt = optFloat(c, "cost-per-watt")
	in.FinancingRatePct = optFloat(c, "rate")
	in.TaxCreditFraction = optFloat(c, "itc")
	if c.IsSet("term") {
		term := c.Int("term")
		in.LoanTermYears = &term
	}
	in.Financing = estimation.FinancingMode(c.String("financing"))
}

func optFloat(c *cli.Context, name string) *float64 {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Float64(name)
	return &v
}

// =============================================================================
// OFFSET COMMAND
// =============================================================================

func offsetCommand() *cli.Command {
	return &cli.Command{
		Name:  "offset",
		Usage: "Panels needed to offset a monthly usage target",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "target-kwh", Usage: "Monthly kWh to offset", Required: true},
			&cli.Float64Flag{Name: "sun-hours", Usage: "Average daily sunlight hours", Required: true},
			&cli.Float64Flag{Name: "panel-fraction", Usage: "Panel output as a fraction of 1 kW (default: watts per panel / 1000)"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			res, err := estimation.NeededPanels(estimation.OffsetInput{
				TargetMonthlyKWh:    c.Float64("target-kwh"),
				DailySunlightHours:  c.Float64("sun-hours"),
				PanelOutputFraction: optFloat(c, "panel-fraction"),
				Assumptions:         &cfg.Assumptions,
			})
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return outputJSON(res)
			}
			fmt.Printf("Panels needed: %d (%.2f kW at %.2f kW per panel)\n",
				res.NeededPanels, res.SystemSizeKW, res.PanelOutputFraction)
			return nil
		},
	}
}

// =============================================================================
// QUOTE COMMAND
// =============================================================================

func quoteCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Street address", Required: true},
		&cli.StringFlag{Name: "region", Usage: "State or market code for cost benchmarks"},
		&cli.Float64Flag{Name: "roof-sqft", Usage: "Fallback roof area in square feet"},
		&cli.Float64Flag{Name: "usage-kwh", Usage: "Fallback monthly usage in kWh"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "pdf", Usage: "Document format (pdf, markdown, html, json)"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default: solar-quote-<id>.<ext>, '-' for stdout)"},
	}
	return &cli.Command{
		Name:   "quote",
		Usage:  "Quote an address using geocoding and solar-potential data",
		Flags:  append(flags, financingFlags()...),
		Action: runQuote,
	}
}

func runQuote(c *cli.Context) error {
	cfg := configFrom(c)
	a, err := wire(c.Context, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var in estimation.Input
	applyFinancing(c, &in)
	req := estimation.QuoteRequest{
		Address:           c.String("address"),
		Region:            strings.ToUpper(c.String("region")),
		RoofAreaSqFt:      optFloat(c, "roof-sqft"),
		MonthlyUsageKWh:   optFloat(c, "usage-kwh"),
		CostPerWatt:       in.CostPerWatt,
		FinancingRatePct:  in.FinancingRatePct,
		LoanTermYears:     in.LoanTermYears,
		TaxCreditFraction: in.TaxCreditFraction,
		Financing:         in.Financing,
	}

	quote, err := a.engine.Quote(c.Context, req)
	if err != nil {
		return err
	}
	for _, w := range quote.Warnings {
		log.Warn().Str("quote_id", quote.ID.String()).Msg(w)
	}

	if c.String("format") == "json" {
		return outputJSON(quote)
	}
	renderer, err := document.ForFormat(c.String("format"))
	if err != nil {
		return err
	}
	doc := api.QuoteDocument(quote, cfg.Installer)

	out := c.String("out")
	if out == "-" {
		return outputDocument(renderer, doc)
	}
	if out == "" {
		out = fmt.Sprintf("solar-quote-%s%s", quote.ID, renderer.Extension())
	}
	data, err := renderer.Render(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	if err := outputTable(quote.Summary, quote); err != nil {
		return err
	}
	fmt.Printf("Quote document written to %s\n", out)
	return nil
}

// =============================================================================
// SERVE COMMAND (API SERVER)
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the solarquote API server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "API server port", EnvVars: []string{"SOLARQUOTE_PORT"}},
			&cli.StringFlag{Name: "cors-origins", Usage: "Comma-separated list of allowed CORS origins"},
			&cli.StringFlag{Name: "api-key", Usage: "Require this X-API-Key on /api/v1", EnvVars: []string{"SOLARQUOTE_API_KEY"}},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg := configFrom(c)
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("cors-origins") {
		cfg.Server.CORSOrigins = strings.Split(c.String("cors-origins"), ",")
		for i := range cfg.Server.CORSOrigins {
			cfg.Server.CORSOrigins[i] = strings.TrimSpace(cfg.Server.CORSOrigins[i])
		}
	}
	if c.IsSet("api-key") {
		cfg.Server.APIKey = c.String("api-key")
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}

	a, err := wire(c.Context, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var store api.SnapshotStore
	if a.store != nil {
		store = a.store
	}

	server := api.NewServer(a.engine, store, cfg.Installer, &api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		APIKey:         cfg.Server.APIKey,
	})
	return server.StartWithGracefulShutdown()
}

// =============================================================================
// BENCHMARKS COMMAND
// =============================================================================

func benchmarksCommand() *cli.Command {
	return &cli.Command{
		Name:  "benchmarks",
		Usage: "Manage cost-per-watt benchmark snapshots in ClickHouse",
		Before: func(c *cli.Context) error {
			configFrom(c).ClickHouse.Enabled = true
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "load",
				Usage:     "Load benchmark YAML files as new active snapshots",
				ArgsUsage: "FILE [FILE...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "migrate", Usage: "Create tables before loading"},
				},
				Action: runBenchmarksLoad,
			},
			{
				Name:  "list",
				Usage: "List benchmark snapshots",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "region", Usage: "Filter by region"},
				},
				Action: runBenchmarksList,
			},
			{
				Name:      "activate",
				Usage:     "Make a snapshot the active one for its region",
				ArgsUsage: "SNAPSHOT_ID",
				Action:    runBenchmarksActivate,
			},
		},
	}
}

func runBenchmarksLoad(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one benchmark file is required")
	}
	store, err := openStore(configFrom(c))
	if err != nil {
		return err
	}
	defer store.Close()

	if c.Bool("migrate") {
		if err := store.Migrate(c.Context); err != nil {
			return err
		}
	}

	adapter := ingestion.NewClickHouseAdapter(store)
	for _, path := range c.Args().Slice() {
		res, err := adapter.IngestFile(c.Context, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		status := "loaded"
		if res.Duplicate {
			status = "unchanged"
		}
		fmt.Printf("%-30s %-9s region=%s snapshot=%s tiers=%d\n",
			path, status, res.Region, res.SnapshotID, res.BenchmarkCount)
	}
	return nil
}

func runBenchmarksList(c *cli.Context) error {
	store, err := openStore(configFrom(c))
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.ListSnapshots(c.Context, strings.ToUpper(c.String("region")))
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Println("No benchmark snapshots found")
		return nil
	}
	fmt.Printf("%-36s  %-6s  %-10s  %-6s  %s\n", "ID", "REGION", "ALIAS", "ACTIVE", "SOURCE")
	for _, s := range snapshots {
		fmt.Printf("%-36s  %-6s  %-10s  %-6t  %s\n", s.ID, s.Region, s.Alias, s.IsActive, s.Source)
	}
	return nil
}

func runBenchmarksActivate(c *cli.Context) error {
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid snapshot id %q: %w", c.Args().First(), err)
	}
	store, err := openStore(configFrom(c))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ActivateSnapshot(c.Context, id); err != nil {
		return err
	}
	fmt.Printf("Activated snapshot %s\n", id)
	return nil
}
