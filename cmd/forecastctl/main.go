package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/metrics"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/migration"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/service"
	"github.com/andresuchdata/retail-forecast/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	dsn := c.String("db-url")
	if dsn == "" {
		dsn = postgres.DSN(&config.Load().Database)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database not initialised")
	}
	return db, nil
}

// servicesFrom builds the services over the CLI's pgx handle.
func servicesFrom(c *cli.Context) (*service.Services, func(), error) {
	db, err := dbFrom(c)
	if err != nil {
		return nil, nil, err
	}

	cfg := config.Load()
	wrapped := postgres.Wrap(sqlx.NewDb(db, "pgx"), cfg.Database.QueryTimeout())

	redisClient, err := cache.NewRedisClient(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("redis unavailable, running without cache")
		redisClient = nil
	}
	cleanup := func() {
		if redisClient != nil {
			redisClient.Close()
		}
	}

	return service.NewServices(wrapped, redisClient, cfg, metrics.Forecast()), cleanup, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	app := &cli.App{
		Name:  "forecastctl",
		Usage: "Operate the demand forecasting and stock alert core",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending schema migrations",
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "forecast",
				Usage: "Forecast demand for one product",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "product-id",
						Usage:    "Product to forecast",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "horizon",
						Usage: "Days to forecast (0 uses the configured default)",
					},
					&cli.StringFlag{
						Name:  "method",
						Usage: "auto, prophet or classical",
						Value: string(domain.MethodAuto),
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runForecast,
			},
			{
				Name:   "forecast-all",
				Usage:  "Forecast every product at the default horizon",
				Before: initDB,
				After:  closeDB,
				Action: runForecastAll,
			},
			{
				Name:   "scan-alerts",
				Usage:  "Scan every product for low stock and imminent stock-outs",
				Before: initDB,
				After:  closeDB,
				Action: runScanAlerts,
			},
			{
				Name:   "backtest",
				Usage:  "Score past predictions against actual sales",
				Before: initDB,
				After:  closeDB,
				Action: runBacktest,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runMigrate(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}
	if err := migration.RunMigrations(db); err != nil {
		return err
	}
	logger.Log.Info().Msg("migrations applied")
	return nil
}

func runForecast(c *cli.Context) error {
	services, cleanup, err := servicesFrom(c)
	if err != nil {
		return err
	}
	defer cleanup()

	method, ok := domain.ParseForecastMethod(c.String("method"))
	if !ok {
		return fmt.Errorf("unknown method %q", c.String("method"))
	}

	resp, err := services.Forecast.Forecast(c.Context, domain.ForecastRequest{
		ProductID:   c.Int64("product-id"),
		HorizonDays: c.Int("horizon"),
		Method:      method,
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runForecastAll(c *cli.Context) error {
	services, cleanup, err := servicesFrom(c)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := services.Forecast.ForecastAll(c.Context)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runScanAlerts(c *cli.Context) error {
	services, cleanup, err := servicesFrom(c)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := services.Alerts.Scan(c.Context)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runBacktest(c *cli.Context) error {
	services, cleanup, err := servicesFrom(c)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := services.Backtest.Run(c.Context)
	if err != nil {
		return err
	}
	return printJSON(result)
}
