// Command train fits the linear forecasting artifact from a well history.
//
// The history comes either from a "date,value" CSV (as exported by
// GET /api/session/series.csv) or from the Postgres archive:
//
//	go run ./cmd/train -csv training_data.csv -out groundwater_model.json
//	go run ./cmd/train -well 0512345 -dsn postgres://... -out groundwater_model.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/adapter/postgres"
	"github.com/couchcryptid/groundwater-dss-service/internal/dashboard"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/features"
	"github.com/couchcryptid/groundwater-dss-service/internal/model"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	csvPath := flag.String("csv", "", "path to a date,value training CSV")
	wellID := flag.String("well", "", "well id to load from the Postgres archive")
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres connection string for -well")
	out := flag.String("out", "groundwater_model.json", "output path for the model artifact")
	lambda := flag.Float64("lambda", 1e-3, "ridge penalty on standardized features")
	trainFrac := flag.Float64("train-frac", 0.8, "leading fraction of rows used for fitting")
	flag.Parse()

	if (*csvPath == "") == (*wellID == "") {
		flag.Usage()
		return errors.New("exactly one of -csv or -well is required")
	}
	if *trainFrac <= 0 || *trainFrac >= 1 {
		return fmt.Errorf("-train-frac must be in (0, 1), got %v", *trainFrac)
	}

	logger := sharedobs.NewLogger("info", "text")

	series, err := loadSeries(*csvPath, *wellID, *dsn)
	if err != nil {
		return err
	}
	logger.Info("history loaded", "points", series.Len())

	rows := features.TrainingRows(series)
	train, test := model.SplitChronological(rows, *trainFrac)
	if len(test) == 0 {
		return fmt.Errorf("%w: %d usable rows leave no holdout", model.ErrTooFewRows, len(rows))
	}

	m, err := model.FitLinear(train, *lambda)
	if err != nil {
		return err
	}
	mae, r2, err := model.Evaluate(m, test)
	if err != nil {
		return err
	}

	m.TrainedAt = time.Now().UTC()
	m.Metrics = model.TrainMetrics{
		TrainRows: len(train),
		TestRows:  len(test),
		MAE:       mae,
		R2:        r2,
	}
	if err := m.Save(*out); err != nil {
		return err
	}

	logger.Info("model written",
		"path", *out,
		"train_rows", len(train),
		"test_rows", len(test),
		"mae", mae,
		"r2", r2,
	)
	return nil
}

func loadSeries(csvPath, wellID, dsn string) (domain.TimeSeries, error) {
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return domain.TimeSeries{}, err
		}
		defer f.Close()
		return dashboard.ReadCSV(f)
	}

	if dsn == "" {
		return domain.TimeSeries{}, errors.New("-dsn or DATABASE_URL is required with -well")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return domain.TimeSeries{}, err
	}
	defer pool.Close()
	return postgres.NewArchive(pool).LoadSeries(ctx, wellID)
}
