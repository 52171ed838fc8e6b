// backend-go/cmd/salescast/main.go
package main

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/salescast/backend-go/internal/cache"
	"github.com/salescast/backend-go/internal/config"
	"github.com/salescast/backend-go/internal/domain"
	"github.com/salescast/backend-go/internal/forecast"
	"github.com/salescast/backend-go/internal/series"
	"github.com/salescast/backend-go/internal/service"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "salescast",
		Usage: "Sales forecasting from POS transaction exports",
		Commands: []*cli.Command{
			{
				Name:  "forecast",
				Usage: "Run a forecast over a local CSV export and write the result CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Usage:    "Path to the sales detail CSV",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Path of the forecast CSV to write",
						Value: "forecast.csv",
					},
					&cli.StringFlag{
						Name:  "backend",
						Usage: "Forecast backend id (seasonal, arima, linear)",
						Value: "linear",
					},
					&cli.StringFlag{
						Name:  "start",
						Usage: "Forecast window start (YYYY-MM-DD)",
					},
					&cli.IntFlag{
						Name:  "start-days-after-cutoff",
						Usage: "Start the forecast N days after the training cutoff instead of an explicit start date",
					},
					&cli.StringFlag{
						Name:     "end",
						Usage:    "Forecast window end (YYYY-MM-DD)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "cutoff",
						Usage: "Training cutoff date (YYYY-MM-DD), default is derived from the data",
					},
					&cli.StringFlag{
						Name:  "departments",
						Usage: "Comma-separated department codes to include",
					},
					&cli.StringFlag{
						Name:  "order-methods",
						Usage: "Comma-separated order method codes to include",
					},
					&cli.StringFlag{
						Name:  "products",
						Usage: "Comma-separated product codes to include",
					},
				},
				Action: runForecast,
			},
			{
				Name:  "seed",
				Usage: "Load a sales detail CSV into the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db-url",
						Usage:    "Database connection string",
						Required: true,
						EnvVars:  []string{"DATABASE_URL"},
					},
					&cli.StringFlag{
						Name:     "input",
						Usage:    "Path to the sales detail CSV",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Dataset name, defaults to the file name",
					},
				},
				Action: runSeed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runForecast(c *cli.Context) error {
	cfg := config.Load()

	raw, err := os.ReadFile(c.String("input"))
	if err != nil {
		return err
	}

	labels := series.LabelNames{
		AllDepartments:  cfg.App.DefaultLabels.AllDepartments,
		AllOrderMethods: cfg.App.DefaultLabels.AllOrderMethods,
		AllProducts:     cfg.App.DefaultLabels.AllProducts,
	}
	datasets := service.NewDatasetService(labels, nil, nil, cache.NewNoopSeriesCache())
	registry := forecast.NewRegistry(cfg.Forecast)
	forecasts := service.NewForecastService(datasets, registry, cfg.Forecast.MaxHorizonDays)

	ds, err := datasets.Ingest(c.Context, c.String("input"), raw)
	if err != nil {
		return err
	}

	window, err := windowFromFlags(c)
	if err != nil {
		return err
	}

	sel := domain.FilterSelection{
		Departments:  splitCodes(c.String("departments")),
		OrderMethods: splitCodes(c.String("order-methods")),
		Products:     splitCodes(c.String("products")),
	}

	data, err := forecasts.ExportCSV(c.Context, ds.ID, sel, c.String("backend"), window)
	if err != nil {
		return err
	}

	output := c.String("output")
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s (%d bytes)", output, len(data))
	return nil
}

func windowFromFlags(c *cli.Context) (domain.ForecastWindow, error) {
	var w domain.ForecastWindow
	var err error

	if start := strings.TrimSpace(c.String("start")); start != "" {
		if w.Start, err = parseDateFlag(start); err != nil {
			return w, err
		}
	}
	w.StartOffsetDays = c.Int("start-days-after-cutoff")
	if w.End, err = parseDateFlag(c.String("end")); err != nil {
		return w, err
	}
	if cutoff := strings.TrimSpace(c.String("cutoff")); cutoff != "" {
		if w.Cutoff, err = parseDateFlag(cutoff); err != nil {
			return w, err
		}
	}
	return w, nil
}

func splitCodes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
