package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/mohamedkhairy/golden-cross/internal/app"
	"github.com/mohamedkhairy/golden-cross/internal/config"
	"github.com/mohamedkhairy/golden-cross/internal/crossover"
	"github.com/mohamedkhairy/golden-cross/internal/models"
	"github.com/mohamedkhairy/golden-cross/internal/symbols"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
)

// newCommand builds the crossover CLI. Configuration comes from the
// environment (and .env); flags override the scan and download settings.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "crossover",
		Usage: "Download daily prices and find moving average golden crosses",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the price table if it does not exist",
				Action: initAction,
			},
			{
				Name:  "download",
				Usage: "Download daily history for the configured symbols",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "symbol",
						Aliases: []string{"s"},
						Usage:   "Symbol to download; repeat or comma-separate. Overrides the symbols file",
					},
					&cli.StringFlag{
						Name:  "symbols-file",
						Usage: "CSV file with a Symbol column",
					},
					&cli.IntFlag{
						Name:  "days",
						Usage: "Calendar days of history to request",
					},
				},
				Action: downloadAction,
			},
			{
				Name:  "scan",
				Usage: "List symbols whose short average just crossed above the long average",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "short", Usage: "Short moving average window"},
					&cli.IntFlag{Name: "long", Usage: "Long moving average window"},
					&cli.BoolFlag{Name: "strict", Usage: "Require short < long on the previous day"},
					&cli.BoolFlag{Name: "details", Usage: "Print the averages for each crossover"},
					&cli.BoolFlag{Name: "publish", Usage: "Publish crossovers to the Redis stream"},
				},
				Action: scanAction,
			},
			{
				Name:      "history",
				Usage:     "Print stored bars for a symbol",
				ArgsUsage: "SYMBOL",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Only print the most recent bars"},
				},
				Action: historyAction,
			},
			{
				Name:   "symbols",
				Usage:  "List symbols present in the store",
				Action: symbolsAction,
			},
		},
	}
}

// setup loads configuration, initializes logging and opens the store
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg)
}

func initAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(cmd.Root().Writer, "Table %s is ready\n", a.Config.Database.Table)
	return nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	defer logger.Sync()

	marketData := a.Config.MarketData
	if list := splitSymbols(cmd.StringSlice("symbol")); len(list) > 0 {
		marketData.Symbols = list
		marketData.SymbolsFile = ""
	}
	if cmd.IsSet("symbols-file") {
		marketData.SymbolsFile = cmd.String("symbols-file")
	}
	if cmd.IsSet("days") {
		a.Config.Ingest.LookbackDays = int(cmd.Int("days"))
	}

	list, err := symbols.Resolve(marketData)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	bar := progressbar.NewOptions(len(list),
		progressbar.OptionSetWriter(cmd.Root().ErrWriter),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	runner, err := a.Runner(func(symbol string, done, total int, err error) {
		bar.Add(1)
	})
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx, list)
	if err != nil {
		return err
	}
	bar.Finish()

	for _, f := range report.Failures {
		fmt.Fprintf(out, "Warning: could not download %s: %v\n", f.Symbol, f.Err)
	}
	fmt.Fprintf(out, "Downloaded %d of %d symbols, %d new bars\n",
		report.Succeeded(), report.Requested, report.Inserted)
	return nil
}

func scanAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	defer logger.Sync()

	detector, err := a.Detector()
	if err != nil {
		return err
	}

	short, long := a.Config.Scanner.ShortWindow, a.Config.Scanner.LongWindow
	if cmd.IsSet("short") {
		short = int(cmd.Int("short"))
	}
	if cmd.IsSet("long") {
		long = int(cmd.Int("long"))
	}
	rule := detector.Rule(short, long)
	if cmd.Bool("strict") {
		rule.Prev = crossover.LessThan
	}

	evals, err := detector.Scan(ctx, rule)
	if err != nil {
		return err
	}

	detectedAt := time.Now().UTC()
	var found []*models.Crossover
	for _, e := range evals {
		if e.Outcome == crossover.Crossed {
			found = append(found, e.Crossover(rule, detectedAt))
		}
	}

	out := cmd.Root().Writer
	if len(found) == 0 {
		fmt.Fprintln(out, crossover.NoCrossoversMessage)
		return nil
	}

	if cmd.Bool("details") {
		printCrossovers(out, found)
	} else {
		for _, c := range found {
			fmt.Fprintln(out, c.Symbol)
		}
	}

	if cmd.Bool("publish") {
		publisher, err := a.Publisher(ctx)
		if err != nil {
			return err
		}
		defer publisher.Close()
		if err := publisher.PublishCrossovers(ctx, found); err != nil {
			return err
		}
	}
	return nil
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one SYMBOL argument")
	}
	symbol := strings.TrimSpace(cmd.Args().First())

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bars, err := a.Store.ReadHistory(ctx, symbol)
	if err != nil {
		return err
	}
	if limit := int(cmd.Int("limit")); limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	out := cmd.Root().Writer
	if len(bars) == 0 {
		fmt.Fprintf(out, "No bars stored for %s\n", symbol)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME")
	for _, b := range bars {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n",
			b.Date.Format(models.DateLayout), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return w.Flush()
}

func symbolsAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.Store.ListSymbols(ctx)
	if err != nil {
		return err
	}
	sort.Strings(list)
	for _, s := range list {
		fmt.Fprintln(cmd.Root().Writer, s)
	}
	return nil
}

func printCrossovers(out io.Writer, found []*models.Crossover) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tDATE\tSHORT\tLONG\tPREV SHORT\tPREV LONG")
	for _, c := range found {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\n",
			c.Symbol, c.Date.Format(models.DateLayout), c.ShortMA, c.LongMA, c.PrevShortMA, c.PrevLongMA)
	}
	w.Flush()
}

func splitSymbols(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return symbols.Dedupe(out)
}
